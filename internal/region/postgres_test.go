package region

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock}, mock
}

func regionRows(regions ...Region) *pgxmock.Rows {
	rows := pgxmock.NewRows(regionColumns)
	for _, r := range regions {
		rows.AddRow(r.NUTSID, r.LevelCode, r.CountryCode, r.NameLatin, r.NUTSName,
			r.MountType, r.UrbanType, r.CoastType, r.FID, r.Geometry,
			r.Version, r.CreatedAt, r.UpdatedAt)
	}
	return rows
}

func storedRegion(id string, level int, country string, version int) Region {
	r := sampleRegion(id, level, country)
	r.Version = version
	r.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r.UpdatedAt = r.CreatedAt
	return r
}

func TestPostgresStore_SaveRegions_InsertAndUpdate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	changed := sampleRegion("AT1", 1, "AT")
	changed.NameLatin = "Ostösterreich"
	batch := []Region{sampleRegion("AT", 0, "AT"), changed, sampleRegion("AT2", 1, "AT")}

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM nuts.regions WHERE nuts_id = ANY\(\$1\) FOR UPDATE`).
		WithArgs([]string{"AT", "AT1", "AT2"}).
		WillReturnRows(regionRows(storedRegion("AT", 0, "AT", 1), storedRegion("AT1", 1, "AT", 4)))
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_nuts_regions"}, regionColumns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "nuts"."regions".*ON CONFLICT \("nuts_id"\) DO UPDATE SET`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	res, err := s.SaveRegions(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, &SaveResult{Inserted: 1, Updated: 1, Unchanged: 1}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRegions_AllUnchanged(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM nuts.regions WHERE nuts_id = ANY`).
		WithArgs([]string{"AT"}).
		WillReturnRows(regionRows(storedRegion("AT", 0, "AT", 2)))
	mock.ExpectCommit()

	res, err := s.SaveRegions(context.Background(), []Region{sampleRegion("AT", 0, "AT")})
	require.NoError(t, err)
	assert.Equal(t, &SaveResult{Unchanged: 1}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRegions_CopyFailureRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM nuts.regions WHERE nuts_id = ANY`).
		WithArgs([]string{"AT"}).
		WillReturnRows(regionRows())
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_nuts_regions"}, regionColumns).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := s.SaveRegions(context.Background(), []Region{sampleRegion("AT", 0, "AT")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRegions_BeginError(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("pool closed"))

	_, err := s.SaveRegions(context.Background(), []Region{sampleRegion("AT", 0, "AT")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin save")
}

func TestPostgresStore_GetRegions(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM nuts.regions WHERE nuts_id = \$1`).
		WithArgs("EU27_2020").
		WillReturnRows(regionRows(storedRegion("EU27_2020", 0, "EU", 1)))

	got, err := s.GetRegions(context.Background(), "EU27_2020")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "EU27_2020", got[0].NUTSID)
	assert.Equal(t, intPtr(2), got[0].UrbanType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRegions_Absent(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM nuts.regions WHERE nuts_id = \$1`).
		WithArgs("ZZ").
		WillReturnRows(regionRows())

	got, err := s.GetRegions(context.Background(), "ZZ")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPostgresStore_ListRegions(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`ORDER BY nuts_id`).
		WithArgs("AT", pgxmock.AnyArg()).
		WillReturnRows(regionRows(storedRegion("AT", 0, "AT", 1), storedRegion("AT1", 1, "AT", 1)))

	got, err := s.ListRegions(context.Background(), Filter{CountryCode: "AT"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountRegions(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM nuts.regions`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2010))

	n, err := s.CountRegions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2010, n)
}

func TestPostgresStore_Runs(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO nuts.load_runs`).
		WithArgs(pgxmock.AnyArg(), "nuts.geojson", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	id, err := s.StartRun(ctx, "nuts.geojson")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	mock.ExpectExec(`UPDATE nuts.load_runs`).
		WithArgs("complete", pgxmock.AnyArg(), 2, 0, 0, 0, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, s.CompleteRun(ctx, id, &SaveResult{Inserted: 2}))

	mock.ExpectExec(`UPDATE nuts.load_runs SET status = \$1, completed_at = \$2, error = \$3`).
		WithArgs("failed", pgxmock.AnyArg(), "boom", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err = s.FailRun(ctx, "missing", "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	done := started.Add(time.Minute)
	mock.ExpectQuery(`FROM nuts.load_runs ORDER BY started_at DESC LIMIT \$1`).
		WithArgs(20).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "source", "status", "inserted", "updated", "unchanged", "duplicates", "error", "started_at", "completed_at",
		}).AddRow("run-1", "nuts.geojson", "complete", 2010, 0, 0, 0, "", started, &done))

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, RunStatusComplete, runs[0].Status)
	assert.Equal(t, 2010, runs[0].Inserted)
	require.NotNil(t, runs[0].CompletedAt)
	assert.True(t, done.Equal(*runs[0].CompletedAt))
}
