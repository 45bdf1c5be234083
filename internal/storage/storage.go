// Package storage persists match snapshots and card content.
package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/emberline/duelcore/internal/config"
	"github.com/emberline/duelcore/internal/game"
)

// ErrNotFound is returned when no snapshot exists for a match.
var ErrNotFound = errors.New("snapshot not found")

// Open builds the snapshot store selected by cfg. The returned close
// function releases any connections.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (game.SnapshotStore, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return NewMemory(), func() {}, nil
	case config.DriverFile:
		store, err := NewFile(cfg.Dir, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case config.DriverPostgres:
		store, err := NewPostgres(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
