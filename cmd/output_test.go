package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/regions-cli/internal/region"
)

func intPtr(n int) *int { return &n }

func sampleRegions() []region.Region {
	return []region.Region{
		{NUTSID: "EL30", LevelCode: 2, CountryCode: "EL", NameLatin: "Attiki", NUTSName: "Αττική",
			MountType: intPtr(4), UrbanType: intPtr(1), CoastType: intPtr(1), FID: "EL30", Version: 1},
		{NUTSID: "EU27_2020", LevelCode: 0, CountryCode: "EU", NameLatin: "European Union",
			NUTSName: "European Union", FID: "EU27_2020", Version: 1},
	}
}

func TestWriteRegions_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRegions(&buf, sampleRegions(), "table"))

	out := buf.String()
	assert.Contains(t, out, "NUTS_ID")
	assert.Contains(t, out, "EL30")
	assert.Contains(t, out, "Αττική")
	assert.Contains(t, out, "EU27_2020")
}

func TestWriteRegions_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRegions(&buf, sampleRegions(), "json"))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "EL30", got[0]["nuts_id"])
	assert.Nil(t, got[1]["mount_type"])
	_, hasGeom := got[0]["geometry"]
	assert.False(t, hasGeom)
}

func TestWriteRegions_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRegions(&buf, sampleRegions(), "yaml"))

	var got []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "EU27_2020", got[1]["nuts_id"])
	assert.Equal(t, 2, got[0]["levl_code"])
}

func TestWriteRegions_UnknownFormat(t *testing.T) {
	err := writeRegions(&bytes.Buffer{}, sampleRegions(), "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestFormatRuns(t *testing.T) {
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	done := started.Add(1500 * time.Millisecond)

	var buf bytes.Buffer
	formatRuns(&buf, []region.Run{
		{ID: "0f8fad5b-d9cb-469f-a165-70867728950e", Source: "nuts.geojson", Status: region.RunStatusComplete,
			Inserted: 2010, StartedAt: started, CompletedAt: &done},
		{ID: "7c9e6679", Source: "broken.geojson", Status: region.RunStatusFailed,
			Error: "nuts: read broken.geojson: unexpected end of JSON input", StartedAt: started},
	})

	out := buf.String()
	assert.Contains(t, out, "0f8fad5b ")
	assert.NotContains(t, out, "0f8fad5b-d9cb")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "2010")
	assert.Contains(t, out, "failed")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Αττ...", truncate("Αττική Περιφέρεια", 6))
}

func TestOptInt(t *testing.T) {
	assert.Equal(t, "-", optInt(nil))
	assert.Equal(t, "3", optInt(intPtr(3)))
}
