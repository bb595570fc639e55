package nuts

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

type shpRecord struct {
	nutsID string
	level  int
	name   string
	mount  string
}

// writeShapefile creates a polygon shapefile with a subset of NUTS attributes.
func writeShapefile(t *testing.T, records []shpRecord) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "NUTS_RG_01M_2021_4326.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("NUTS_ID", 10),
		shp.NumberField("LEVL_CODE", 2),
		shp.StringField("NAME_LATN", 40),
		shp.StringField("MOUNT_TYPE", 2),
	}))

	for i, r := range records {
		w.Write(polygonShape([]shp.Point{
			{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0},
		}))
		require.NoError(t, w.WriteAttribute(i, 0, r.nutsID))
		require.NoError(t, w.WriteAttribute(i, 1, r.level))
		require.NoError(t, w.WriteAttribute(i, 2, r.name))
		require.NoError(t, w.WriteAttribute(i, 3, r.mount))
	}
	w.Close()

	// go-shp names the attribute table "<base>dbf".
	base := strings.TrimSuffix(path, ".shp")
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))

	return path
}

// polygonShape builds a polygon with one part per ring.
func polygonShape(rings ...[]shp.Point) *shp.Polygon {
	p := &shp.Polygon{NumParts: int32(len(rings))}
	for _, ring := range rings {
		p.Parts = append(p.Parts, int32(len(p.Points)))
		p.Points = append(p.Points, ring...)
	}
	p.NumPoints = int32(len(p.Points))
	return p
}

func TestReadShapefile(t *testing.T) {
	path := writeShapefile(t, []shpRecord{
		{nutsID: "DE", level: 0, name: "Deutschland", mount: "0"},
		{nutsID: "DE1", level: 1, name: "Baden-Wurttemberg", mount: ""},
	})

	features, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, features, 2)

	assert.Equal(t, "DE", features[0].Text("NUTS_ID"))
	assert.Equal(t, "Deutschland", features[0].Text("NAME_LATN"))
	lvl, err := features[1].Int("LEVL_CODE")
	require.NoError(t, err)
	require.NotNil(t, lvl)
	assert.Equal(t, 1, *lvl)

	mount, err := features[1].Int("MOUNT_TYPE")
	require.NoError(t, err)
	assert.Nil(t, mount)

	assert.IsType(t, &geom.MultiPolygon{}, features[0].Geometry)
}

func TestReadShapefile_CodePage(t *testing.T) {
	path := writeShapefile(t, []shpRecord{
		{nutsID: "AT", level: 0, name: "\xd6sterreich", mount: "0"},
	})
	cpg := strings.TrimSuffix(path, ".shp") + ".cpg"
	require.NoError(t, os.WriteFile(cpg, []byte("ISO-8859-1\n"), 0o644))

	features, err := ReadShapefile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, "Österreich", features[0].Text("NAME_LATN"))
}

func TestCodePageDecoder(t *testing.T) {
	dir := t.TempDir()
	shpPath := filepath.Join(dir, "x.shp")

	dec, err := codePageDecoder(shpPath)
	require.NoError(t, err)
	assert.Nil(t, dec, "no sidecar means UTF-8")

	cpg := filepath.Join(dir, "x.cpg")
	require.NoError(t, os.WriteFile(cpg, []byte("UTF-8"), 0o644))
	dec, err = codePageDecoder(shpPath)
	require.NoError(t, err)
	assert.Nil(t, dec)

	require.NoError(t, os.WriteFile(cpg, []byte("1252"), 0o644))
	dec, err = codePageDecoder(shpPath)
	require.NoError(t, err)
	require.NotNil(t, dec)
	s, err := dec.String("\x80")
	require.NoError(t, err)
	assert.Equal(t, "€", s)

	require.NoError(t, os.WriteFile(cpg, []byte("no-such-charset"), 0o644))
	_, err = codePageDecoder(shpPath)
	assert.Error(t, err)
}

func TestReadShapefile_Malformed(t *testing.T) {
	t.Run("garbage", func(t *testing.T) {
		path := writeFile(t, "bad.shp", "not a shapefile")
		require.NoError(t, os.WriteFile(strings.TrimSuffix(path, ".shp")+".dbf", []byte{}, 0o644))

		_, err := ReadShapefile(context.Background(), path)
		var ffe *FileFormatError
		require.ErrorAs(t, err, &ffe)
		assert.Contains(t, err.Error(), "unsupported geometry type")
	})

	t.Run("missing attribute table", func(t *testing.T) {
		path := writeShapefile(t, []shpRecord{{nutsID: "DE", level: 0, name: "Deutschland"}})
		require.NoError(t, os.Remove(strings.TrimSuffix(path, ".shp")+".dbf"))

		_, err := Load(context.Background(), path)
		var ffe *FileFormatError
		require.ErrorAs(t, err, &ffe)
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("truncated record", func(t *testing.T) {
		path := writeShapefile(t, []shpRecord{{nutsID: "DE", level: 0, name: "Deutschland"}})
		info, err := os.Stat(path)
		require.NoError(t, err)
		require.NoError(t, os.Truncate(path, info.Size()-20))

		_, err = ReadShapefile(context.Background(), path)
		var ffe *FileFormatError
		require.ErrorAs(t, err, &ffe)
	})

	t.Run("point layer", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "points.shp")
		w, err := shp.Create(path, shp.POINT)
		require.NoError(t, err)
		require.NoError(t, w.SetFields([]shp.Field{shp.StringField("NUTS_ID", 10)}))
		w.Write(&shp.Point{X: 1, Y: 2})
		require.NoError(t, w.WriteAttribute(0, 0, "DE"))
		w.Close()
		base := strings.TrimSuffix(path, ".shp")
		require.NoError(t, os.Rename(base+"dbf", base+".dbf"))

		_, err = ReadShapefile(context.Background(), path)
		var ffe *FileFormatError
		require.ErrorAs(t, err, &ffe)
	})
}
