package main

import (
	"context"

	"github.com/sells-group/regions-cli/internal/region"
)

// openStore validates the store config and connects without migrating.
func openStore(ctx context.Context) (region.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	return region.Open(ctx, cfg.Store)
}
