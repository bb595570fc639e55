package region

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS regions (
	nuts_id        TEXT PRIMARY KEY,
	levl_code      INTEGER NOT NULL,
	cntr_code      TEXT NOT NULL,
	name_latn      TEXT NOT NULL,
	nuts_name      TEXT NOT NULL,
	mount_type     INTEGER,
	urbn_type      INTEGER,
	coast_type     INTEGER,
	fid            TEXT NOT NULL DEFAULT '',
	geom           BLOB,
	version_number INTEGER NOT NULL DEFAULT 1,
	created_at     DATETIME NOT NULL,
	updated_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS load_runs (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	inserted     INTEGER NOT NULL DEFAULT 0,
	updated      INTEGER NOT NULL DEFAULT 0,
	unchanged    INTEGER NOT NULL DEFAULT 0,
	duplicates   INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	started_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_regions_cntr_code ON regions(cntr_code);
CREATE INDEX IF NOT EXISTS idx_regions_levl_code ON regions(levl_code);
CREATE INDEX IF NOT EXISTS idx_load_runs_started_at ON load_runs(started_at);
`

const sqliteRegionColumns = `nuts_id, levl_code, cntr_code, name_latn, nuts_name,
	mount_type, urbn_type, coast_type, fid, geom, version_number, created_at, updated_at`

const sqliteUpsert = `
INSERT INTO regions (nuts_id, levl_code, cntr_code, name_latn, nuts_name,
	mount_type, urbn_type, coast_type, fid, geom, version_number, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
ON CONFLICT(nuts_id) DO UPDATE SET
	levl_code      = excluded.levl_code,
	cntr_code      = excluded.cntr_code,
	name_latn      = excluded.name_latn,
	nuts_name      = excluded.nuts_name,
	mount_type     = excluded.mount_type,
	urbn_type      = excluded.urbn_type,
	coast_type     = excluded.coast_type,
	fid            = excluded.fid,
	geom           = COALESCE(excluded.geom, regions.geom),
	version_number = regions.version_number + 1,
	updated_at     = excluded.updated_at`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRegions(ctx context.Context, regions []Region) (*SaveResult, error) {
	if len(regions) == 0 {
		return &SaveResult{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin save")
	}
	defer tx.Rollback() //nolint:errcheck

	existing, err := s.existing(ctx, tx, codes(regions))
	if err != nil {
		return nil, err
	}
	plan := planSave(regions, existing)

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for _, r := range plan.writes() {
		if _, err := stmt.ExecContext(ctx,
			r.NUTSID, r.LevelCode, r.CountryCode, r.NameLatin, r.NUTSName,
			r.MountType, r.UrbanType, r.CoastType, r.FID, nullBytes(r.Geometry),
			now, now,
		); err != nil {
			return nil, eris.Wrapf(err, "sqlite: upsert region %s", r.NUTSID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit save")
	}

	res := plan.result()
	zap.L().Debug("sqlite: regions saved",
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("unchanged", res.Unchanged),
	)
	return res, nil
}

// existing loads the stored records for the given codes, in chunks that stay
// under SQLite's bound-parameter limit.
func (s *SQLiteStore) existing(ctx context.Context, tx *sql.Tx, ids []string) (map[string]Region, error) {
	const chunk = 500
	out := make(map[string]Region, len(ids))
	for start := 0; start < len(ids); start += chunk {
		end := min(start+chunk, len(ids))
		part := ids[start:end]

		args := make([]any, len(part))
		for i, id := range part {
			args[i] = id
		}
		query := `SELECT ` + sqliteRegionColumns + ` FROM regions WHERE nuts_id IN (` +
			strings.TrimSuffix(strings.Repeat("?,", len(part)), ",") + `)`

		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: query existing regions")
		}
		found, err := scanRegions(rows)
		if err != nil {
			return nil, err
		}
		for _, r := range found {
			out[r.NUTSID] = r
		}
	}
	return out, nil
}

func (s *SQLiteStore) GetRegions(ctx context.Context, nutsID string) ([]Region, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteRegionColumns+` FROM regions WHERE nuts_id = ?`, nutsID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get regions %s", nutsID)
	}
	return scanRegions(rows)
}

func (s *SQLiteStore) ListRegions(ctx context.Context, filter Filter) ([]Region, error) {
	query := `SELECT ` + sqliteRegionColumns + ` FROM regions WHERE 1=1`
	var args []any

	if filter.CountryCode != "" {
		query += ` AND cntr_code = ?`
		args = append(args, filter.CountryCode)
	}
	if filter.Level != nil {
		query += ` AND levl_code = ?`
		args = append(args, *filter.Level)
	}
	query += ` ORDER BY nuts_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list regions")
	}
	return scanRegions(rows)
}

func (s *SQLiteStore) CountRegions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM regions`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count regions")
	}
	return n, nil
}

func (s *SQLiteStore) StartRun(ctx context.Context, source string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO load_runs (id, source, status, started_at) VALUES (?, ?, ?, ?)`,
		id, source, string(RunStatusRunning), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: start run")
	}
	return id, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, result *SaveResult) error {
	if result == nil {
		result = &SaveResult{}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE load_runs SET status = ?, completed_at = ?, inserted = ?, updated = ?, unchanged = ?, duplicates = ?
		 WHERE id = ?`,
		string(RunStatusComplete), time.Now().UTC(),
		result.Inserted, result.Updated, result.Unchanged, result.Duplicates, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, msg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE load_runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(RunStatusFailed), time.Now().UTC(), msg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, status, inserted, updated, unchanged, duplicates, error, started_at, completed_at
		 FROM load_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		var (
			r         Run
			status    string
			completed sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.Source, &status, &r.Inserted, &r.Updated, &r.Unchanged,
			&r.Duplicates, &r.Error, &r.StartedAt, &completed); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Status = RunStatus(status)
		if completed.Valid {
			t := completed.Time
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

// scanRegions drains and closes rows.
func scanRegions(rows *sql.Rows) ([]Region, error) {
	defer rows.Close() //nolint:errcheck

	regions := []Region{}
	for rows.Next() {
		var r Region
		if err := rows.Scan(
			&r.NUTSID, &r.LevelCode, &r.CountryCode, &r.NameLatin, &r.NUTSName,
			&r.MountType, &r.UrbanType, &r.CoastType, &r.FID, &r.Geometry,
			&r.Version, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan region")
		}
		regions = append(regions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate regions")
	}
	return regions, nil
}

// nullBytes stores an empty geometry as NULL.
func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
