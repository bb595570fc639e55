package nuts

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Load reads the dataset at path and returns its features in file order.
// The format follows the extension: .geojson/.json, .shp, or a .zip
// distribution containing either. Every read failure is a *FileFormatError.
func Load(ctx context.Context, path string) ([]Feature, error) {
	log := zap.L().With(
		zap.String("component", "nuts.loader"),
		zap.String("path", path),
	)

	if _, err := os.Stat(path); err != nil {
		return nil, formatError(path, err)
	}

	var (
		features []Feature
		err      error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".geojson", ".json":
		features, err = ReadGeoJSON(ctx, path)
	case ".shp":
		features, err = ReadShapefile(ctx, path)
	case ".zip":
		var dataset string
		dataset, err = unpack(path)
		if err != nil {
			return nil, formatError(path, err)
		}
		log.Debug("archive unpacked", zap.String("dataset", dataset))
		return Load(ctx, dataset)
	default:
		return nil, formatError(path, eris.Errorf("unsupported extension %q", ext))
	}
	if err != nil {
		return nil, err
	}

	log.Info("dataset loaded", zap.Int("features", len(features)))
	return features, nil
}

// unpack extracts a distribution archive beside itself and returns the
// dataset file inside it. Region layers (NUTS_RG_*) win over the boundary
// line and label layers of a full distribution, then GeoJSON over shapefile.
func unpack(zipPath string) (string, error) {
	destDir := strings.TrimSuffix(zipPath, filepath.Ext(zipPath))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "create extract dir")
	}
	if err := extractZIP(zipPath, destDir); err != nil {
		return "", err
	}
	for _, prefix := range []string{regionLayerPrefix, ""} {
		for _, ext := range []string{".geojson", ".json", ".shp"} {
			if p, err := findFile(destDir, prefix, ext); err == nil {
				return p, nil
			}
		}
	}
	return "", eris.Errorf("no dataset found in %s", zipPath)
}

// regionLayerPrefix names the GISCO region polygon files.
const regionLayerPrefix = "NUTS_RG_"
