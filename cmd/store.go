package main

import (
	"context"

	"github.com/heyimsteve/nichescout/internal/checkpoint"
)

// openStore returns the checkpoint store named by config: SQLite when a path
// is configured, otherwise an in-memory store that makes runs stateless.
func openStore(ctx context.Context) (checkpoint.Store, error) {
	if cfg.Checkpoint.Path == "" {
		return checkpoint.NewMemory(), nil
	}
	return checkpoint.NewSQLite(ctx, cfg.Checkpoint.Path)
}
