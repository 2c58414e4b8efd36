package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/normalize"
)

// SnapshotSource reads one JSON array per kind from <dir>/<kind>.json.
type SnapshotSource struct {
	dir string
}

// NewSnapshotSource creates a snapshot source rooted at dir.
func NewSnapshotSource(dir string) *SnapshotSource {
	return &SnapshotSource{dir: dir}
}

func (s *SnapshotSource) Name() string { return "snapshot" }

// Dir returns the snapshot directory.
func (s *SnapshotSource) Dir() string { return s.dir }

// List reads a kind's file. A missing file is an empty collection.
func (s *SnapshotSource) List(_ context.Context, kind Kind) ([]normalize.Row, error) {
	data, err := os.ReadFile(filePath(s.dir, kind))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", kind, err)
	}
	return decodeRows(data)
}

// WriteSnapshot writes v as the JSON array for kind, replacing the previous
// file atomically.
func WriteSnapshot(dir string, kind Kind, v any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", kind, err)
	}
	tmp, err := os.CreateTemp(dir, string(kind)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot %s: %w", kind, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close snapshot %s: %w", kind, err)
	}
	if err := os.Rename(tmp.Name(), filePath(dir, kind)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish snapshot %s: %w", kind, err)
	}
	return nil
}

func filePath(dir string, kind Kind) string {
	return filepath.Join(dir, string(kind)+".json")
}
