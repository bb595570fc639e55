package nuts

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// ReadGeoJSON decodes a GeoJSON FeatureCollection in file order.
func ReadGeoJSON(ctx context.Context, path string) ([]Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, formatError(path, err)
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, formatError(path, eris.Wrap(err, "decode geojson"))
	}
	if head.Type != "FeatureCollection" {
		return nil, formatError(path, eris.Errorf("geojson type %q is not a FeatureCollection", head.Type))
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, formatError(path, eris.Wrap(err, "decode feature collection"))
	}

	features := make([]Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "nuts: read geojson")
		}
		if f == nil {
			continue
		}
		props := f.Properties
		if props == nil {
			props = map[string]any{}
		}
		features = append(features, Feature{Properties: props, Geometry: f.Geometry})
	}

	zap.L().Debug("nuts: geojson decoded",
		zap.String("path", path),
		zap.Int("features", len(features)),
	)
	return features, nil
}
