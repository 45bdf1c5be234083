package storage

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/emberline/duelcore/internal/game"
	"github.com/emberline/duelcore/internal/game/state"
)

// File writes one gzip-compressed gob snapshot per match into a directory.
type File struct {
	dir    string
	logger *zap.Logger
}

// NewFile creates dir if needed.
func NewFile(dir string, logger *zap.Logger) (*File, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &File{dir: dir, logger: logger}, nil
}

func (f *File) path(matchID string) string {
	return filepath.Join(f.dir, matchID+".snapshot")
}

// Save replaces the match snapshot. The file is written under a temporary
// name and renamed so a crash never leaves a torn snapshot.
func (f *File) Save(ctx context.Context, matchID string, gs state.GameState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := game.SerializeToBytes(gs)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, matchID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())

	gz := gzip.NewWriter(tmp)
	if _, err := gz.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(matchID)); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	f.logger.Debug("saved snapshot",
		zap.String("match_id", matchID),
		zap.Int("round", gs.Round),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Load reads the match snapshot.
func (f *File) Load(ctx context.Context, matchID string) (state.GameState, error) {
	if err := ctx.Err(); err != nil {
		return state.GameState{}, err
	}
	file, err := os.Open(f.path(matchID))
	if errors.Is(err, os.ErrNotExist) {
		return state.GameState{}, fmt.Errorf("%w: %s", ErrNotFound, matchID)
	}
	if err != nil {
		return state.GameState{}, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return state.GameState{}, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()
	data, err := io.ReadAll(gz)
	if err != nil {
		return state.GameState{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return game.DeserializeFromBytes(data)
}

// Delete removes the match snapshot if present.
func (f *File) Delete(_ context.Context, matchID string) error {
	if err := os.Remove(f.path(matchID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
