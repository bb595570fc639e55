// Package etl runs the load-and-save operation: open the store, read a NUTS
// dataset, map it to region records, and save them in one transaction.
package etl

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regions-cli/internal/config"
	"github.com/sells-group/regions-cli/internal/nuts"
	"github.com/sells-group/regions-cli/internal/region"
)

// ErrStoreInit marks a failure to open or migrate the store. No records are
// written when it is returned.
var ErrStoreInit = eris.New("etl: store initialization failed")

// InitError carries the cause of a store initialization failure.
// errors.Is(err, ErrStoreInit) holds for every InitError.
type InitError struct {
	Driver string
	Err    error
}

func (e *InitError) Error() string {
	return "etl: initialize " + e.Driver + " store: " + e.Err.Error()
}

func (e *InitError) Unwrap() error { return e.Err }

func (e *InitError) Is(target error) bool { return target == ErrStoreInit }

// Opener returns a store handle for one unit of work.
type Opener func(ctx context.Context, cfg config.StoreConfig) (region.Store, error)

// Options configures a single Run.
type Options struct {
	Path         string
	WithGeometry bool
	Store        config.StoreConfig
}

// Result summarizes a successful Run.
type Result struct {
	RunID    string
	Source   string
	Features int
	Saved    region.SaveResult
	Elapsed  time.Duration
}

// Run initializes the store, loads the dataset at opts.Path, and saves every
// feature as a region record. The store is closed before Run returns.
func Run(ctx context.Context, opts Options, open Opener) (*Result, error) {
	log := zap.L().With(
		zap.String("component", "etl.run"),
		zap.String("source", opts.Path),
	)
	start := time.Now()

	st, err := initStore(ctx, opts.Store, open)
	if err != nil {
		log.Error("database initialization failed", zap.Error(err))
		return nil, err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Warn("etl: close store", zap.Error(cerr))
		}
	}()

	runID, err := st.StartRun(ctx, opts.Path)
	if err != nil {
		return nil, eris.Wrap(err, "etl: start run")
	}
	log = log.With(zap.String("run_id", runID))

	saved, features, err := loadAndSave(ctx, st, opts)
	if err != nil {
		if ferr := st.FailRun(context.WithoutCancel(ctx), runID, err.Error()); ferr != nil {
			log.Warn("etl: mark run failed", zap.Error(ferr))
		}
		log.Error("load failed", zap.Error(err))
		return nil, err
	}

	if err := st.CompleteRun(ctx, runID, saved); err != nil {
		return nil, eris.Wrap(err, "etl: complete run")
	}

	res := &Result{
		RunID:    runID,
		Source:   opts.Path,
		Features: features,
		Saved:    *saved,
		Elapsed:  time.Since(start),
	}
	log.Info("regions saved",
		zap.Int("features", features),
		zap.Int("inserted", saved.Inserted),
		zap.Int("updated", saved.Updated),
		zap.Int("unchanged", saved.Unchanged),
		zap.Int("duplicates", saved.Duplicates),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// initStore opens and migrates the store, closing it again on failure.
func initStore(ctx context.Context, cfg config.StoreConfig, open Opener) (region.Store, error) {
	st, err := open(ctx, cfg)
	if err != nil {
		return nil, &InitError{Driver: cfg.Driver, Err: err}
	}
	if st == nil {
		return nil, &InitError{Driver: cfg.Driver, Err: eris.New("etl: opener returned no store")}
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, &InitError{Driver: cfg.Driver, Err: err}
	}
	return st, nil
}

func loadAndSave(ctx context.Context, st region.Store, opts Options) (*region.SaveResult, int, error) {
	features, err := nuts.Load(ctx, opts.Path)
	if err != nil {
		return nil, 0, err
	}

	regions, err := region.FromFeatures(features, opts.WithGeometry)
	if err != nil {
		return nil, len(features), err
	}

	saved, err := st.SaveRegions(ctx, regions)
	if err != nil {
		return nil, len(features), eris.Wrap(err, "etl: save regions")
	}
	return saved, len(features), nil
}
