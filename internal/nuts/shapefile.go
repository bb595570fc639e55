package nuts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// ReadShapefile reads a shapefile and its DBF attributes in record order.
// Attribute values are kept as text; empty values become null.
func ReadShapefile(ctx context.Context, shpPath string) ([]Feature, error) {
	if _, err := os.Stat(shpPath); err != nil {
		return nil, formatError(shpPath, err)
	}

	dbfPath := strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".dbf"
	if _, err := os.Stat(dbfPath); err != nil {
		return nil, formatError(shpPath, eris.Wrap(err, "attribute table"))
	}

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, formatError(shpPath, eris.Wrap(err, "open shapefile"))
	}
	defer func() { _ = reader.Close() }()

	// A truncated or foreign header leaves GeometryType unset.
	if reader.GeometryType != shp.POLYGON {
		return nil, formatError(shpPath, eris.Errorf("unsupported geometry type %d", reader.GeometryType))
	}

	dec, err := codePageDecoder(shpPath)
	if err != nil {
		return nil, formatError(shpPath, err)
	}

	fields := reader.Fields()
	if len(fields) == 0 {
		return nil, formatError(shpPath, eris.New("attribute table has no fields"))
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToUpper(strings.TrimRight(f.String(), "\x00"))
	}

	var features []Feature
	var noGeom int

	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "nuts: read shapefile")
		}

		_, shape := reader.Shape()

		props := make(map[string]any, len(names))
		for idx, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
			if val == "" {
				props[name] = nil
				continue
			}
			if dec != nil {
				decoded, decErr := dec.String(val)
				if decErr != nil {
					return nil, formatError(shpPath, eris.Wrapf(decErr, "decode attribute %s", name))
				}
				val = decoded
			}
			props[name] = val
		}

		g := ShapeToGeom(shape)
		if g == nil {
			noGeom++
		}
		features = append(features, Feature{Properties: props, Geometry: g})
	}
	if err := reader.Err(); err != nil {
		return nil, formatError(shpPath, eris.Wrap(err, "read shapefile"))
	}

	if noGeom > 0 {
		zap.L().Debug("nuts: shapefile records without usable geometry",
			zap.String("path", shpPath),
			zap.Int("count", noGeom),
		)
	}

	return features, nil
}

// codePageDecoder returns a decoder for the code page named in the .cpg
// sidecar, or nil when attributes are already UTF-8.
func codePageDecoder(shpPath string) (*encoding.Decoder, error) {
	cpgPath := strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".cpg"
	raw, err := os.ReadFile(cpgPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "read code page")
	}

	name := strings.TrimSpace(string(raw))
	if name == "" || strings.EqualFold(name, "UTF-8") || strings.EqualFold(name, "UTF8") {
		return nil, nil
	}
	if strings.IndexFunc(name, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		name = "windows-" + name
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, eris.Wrapf(err, "unsupported code page %q", name)
	}
	if enc == nil {
		return nil, eris.Errorf("unsupported code page %q", name)
	}
	return enc.NewDecoder(), nil
}
