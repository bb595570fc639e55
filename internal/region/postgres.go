package region

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regions-cli/internal/config"
	"github.com/sells-group/regions-cli/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool and verifies
// the database is reachable.
func NewPostgres(ctx context.Context, cfg config.StoreConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(5)
	minConns := int32(1)
	if cfg.MaxConns > 0 {
		maxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		minConns = cfg.MinConns
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// regionTable is the upsert target. ON CONFLICT refers to the stored row as "regions".
const regionTable = "nuts.regions"

var regionColumns = []string{
	"nuts_id", "levl_code", "cntr_code", "name_latn", "nuts_name",
	"mount_type", "urbn_type", "coast_type", "fid", "geom",
	"version_number", "created_at", "updated_at",
}

const pgRegionSelect = `SELECT nuts_id, levl_code, cntr_code, name_latn, nuts_name,
	mount_type, urbn_type, coast_type, fid, geom, version_number, created_at, updated_at
	FROM nuts.regions`

// regionUpsert updates everything but the key and creation time. A NULL
// incoming geometry keeps the stored one.
var regionUpsert = db.UpsertConfig{
	Table:        regionTable,
	Columns:      regionColumns,
	ConflictKeys: []string{"nuts_id"},
	UpdateCols: []string{
		"levl_code", "cntr_code", "name_latn", "nuts_name",
		"mount_type", "urbn_type", "coast_type", "fid", "geom",
		"version_number", "updated_at",
	},
	UpdateExprs: map[string]string{
		"geom":           `COALESCE(EXCLUDED."geom", "regions"."geom")`,
		"version_number": `"regions"."version_number" + 1`,
	},
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return Migrate(ctx, s.pool)
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveRegions(ctx context.Context, regions []Region) (*SaveResult, error) {
	if len(regions) == 0 {
		return &SaveResult{}, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin save")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	rows, err := tx.Query(ctx, pgRegionSelect+` WHERE nuts_id = ANY($1) FOR UPDATE`, codes(regions))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query existing regions")
	}
	found, err := collectRegions(rows)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]Region, len(found))
	for _, r := range found {
		existing[r.NUTSID] = r
	}

	plan := planSave(regions, existing)
	writes := plan.writes()

	now := time.Now().UTC()
	batch := make([][]any, 0, len(writes))
	for _, r := range writes {
		batch = append(batch, []any{
			r.NUTSID, r.LevelCode, r.CountryCode, r.NameLatin, r.NUTSName,
			r.MountType, r.UrbanType, r.CoastType, r.FID, nullBytes(r.Geometry),
			r.Version, now, now,
		})
	}

	if _, err := db.UpsertTx(ctx, tx, regionUpsert, batch); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit save")
	}

	res := plan.result()
	zap.L().Debug("postgres: regions saved",
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("unchanged", res.Unchanged),
	)
	return res, nil
}

func (s *PostgresStore) GetRegions(ctx context.Context, nutsID string) ([]Region, error) {
	rows, err := s.pool.Query(ctx, pgRegionSelect+` WHERE nuts_id = $1`, nutsID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get regions %s", nutsID)
	}
	return collectRegions(rows)
}

func (s *PostgresStore) ListRegions(ctx context.Context, filter Filter) ([]Region, error) {
	query := pgRegionSelect + ` WHERE ($1 = '' OR cntr_code = $1) AND ($2::int IS NULL OR levl_code = $2)
	ORDER BY nuts_id`

	rows, err := s.pool.Query(ctx, query, filter.CountryCode, filter.Level)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list regions")
	}
	return collectRegions(rows)
}

func (s *PostgresStore) CountRegions(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM nuts.regions`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count regions")
	}
	return n, nil
}

func (s *PostgresStore) StartRun(ctx context.Context, source string) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO nuts.load_runs (id, source, status, started_at) VALUES ($1, $2, $3, $4)`,
		id, source, string(RunStatusRunning), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: start run")
	}
	return id, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, result *SaveResult) error {
	if result == nil {
		result = &SaveResult{}
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE nuts.load_runs
		 SET status = $1, completed_at = $2, inserted = $3, updated = $4, unchanged = $5, duplicates = $6
		 WHERE id = $7`,
		string(RunStatusComplete), time.Now().UTC(),
		result.Inserted, result.Updated, result.Unchanged, result.Duplicates, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, msg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE nuts.load_runs SET status = $1, completed_at = $2, error = $3 WHERE id = $4`,
		string(RunStatusFailed), time.Now().UTC(), msg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, status, inserted, updated, unchanged, duplicates, error, started_at, completed_at
		 FROM nuts.load_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var status string
		if err := rows.Scan(&r.ID, &r.Source, &status, &r.Inserted, &r.Updated, &r.Unchanged,
			&r.Duplicates, &r.Error, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = RunStatus(status)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// collectRegions drains and closes rows.
func collectRegions(rows pgx.Rows) ([]Region, error) {
	defer rows.Close()

	regions := []Region{}
	for rows.Next() {
		var r Region
		if err := rows.Scan(
			&r.NUTSID, &r.LevelCode, &r.CountryCode, &r.NameLatin, &r.NUTSName,
			&r.MountType, &r.UrbanType, &r.CoastType, &r.FID, &r.Geometry,
			&r.Version, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan region")
		}
		regions = append(regions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate regions")
	}
	return regions, nil
}
