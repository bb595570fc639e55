package region

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/regions-cli/internal/config"
)

// Store persists regions and the log of load runs.
type Store interface {
	// SaveRegions upserts a batch keyed on NUTS_ID in one transaction.
	SaveRegions(ctx context.Context, regions []Region) (*SaveResult, error)

	// GetRegions returns every stored record whose NUTS_ID equals nutsID.
	GetRegions(ctx context.Context, nutsID string) ([]Region, error)

	// ListRegions returns stored records matching the filter, ordered by NUTS_ID.
	ListRegions(ctx context.Context, filter Filter) ([]Region, error)

	CountRegions(ctx context.Context) (int, error)

	// Load runs
	StartRun(ctx context.Context, source string) (string, error)
	CompleteRun(ctx context.Context, runID string, result *SaveResult) error
	FailRun(ctx context.Context, runID string, msg string) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the backend named by cfg.Driver. It does not migrate.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg)
	case "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "regions.db"
		}
		return NewSQLite(dsn)
	default:
		return nil, eris.Errorf("region: unsupported store driver %q", cfg.Driver)
	}
}
