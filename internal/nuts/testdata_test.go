package nuts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleGeoJSON = `{
  "type": "FeatureCollection",
  "crs": {"type": "name", "properties": {"name": "urn:ogc:def:crs:EPSG::4326"}},
  "features": [
    {
      "type": "Feature",
      "id": "AT",
      "properties": {"NUTS_ID": "AT", "LEVL_CODE": 0, "CNTR_CODE": "AT", "NAME_LATN": "Österreich",
        "NUTS_NAME": "Österreich", "MOUNT_TYPE": 0, "URBN_TYPE": 0, "COAST_TYPE": 0, "FID": "AT"},
      "geometry": {"type": "Polygon", "coordinates": [[[9.5, 47.0], [17.0, 47.0], [17.0, 49.0], [9.5, 49.0], [9.5, 47.0]]]}
    },
    {
      "type": "Feature",
      "id": "EL30",
      "properties": {"NUTS_ID": "EL30", "LEVL_CODE": 2, "CNTR_CODE": "EL", "NAME_LATN": "Attiki",
        "NUTS_NAME": "Αττική", "MOUNT_TYPE": 4, "URBN_TYPE": 1, "COAST_TYPE": 1, "FID": "EL30"},
      "geometry": {"type": "MultiPolygon", "coordinates": [[[[23.5, 37.8], [24.1, 37.8], [24.1, 38.3], [23.5, 38.3], [23.5, 37.8]]]]}
    },
    {
      "type": "Feature",
      "id": "EU27_2020",
      "properties": {"NUTS_ID": "EU27_2020", "LEVL_CODE": 0, "CNTR_CODE": "EU", "NAME_LATN": "European Union",
        "NUTS_NAME": "European Union", "MOUNT_TYPE": null, "URBN_TYPE": null, "COAST_TYPE": null, "FID": "EU27_2020"},
      "geometry": {"type": "Polygon", "coordinates": [[[-10.0, 35.0], [30.0, 35.0], [30.0, 70.0], [-10.0, 70.0], [-10.0, 35.0]]]}
    }
  ]
}`

// writeFile writes content into a temp dir and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
