// Package jsonfile persists index snapshots as a directory of JSON files.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ragqa/internal/domain"
)

const (
	headerFile  = "header.json"
	entriesFile = "entries.json"
)

// Store writes header.json and entries.json under dir.
type Store struct {
	dir string
}

func New(dir string) *Store { return &Store{dir: dir} }

func (s *Store) Exists(ctx context.Context) (bool, error) {
	_, err := os.Stat(filepath.Join(s.dir, headerFile))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Save writes entries before the header, each through a rename, so a
// partial write never looks like a complete snapshot.
func (s *Store) Save(ctx context.Context, header domain.SnapshotHeader, entries []domain.IndexEntry) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	_ = os.Remove(filepath.Join(s.dir, headerFile))
	if entries == nil {
		entries = []domain.IndexEntry{}
	}
	if err := writeJSON(filepath.Join(s.dir, entriesFile), entries); err != nil {
		return fmt.Errorf("save snapshot: entries: %w", err)
	}
	if err := writeJSON(filepath.Join(s.dir, headerFile), header); err != nil {
		return fmt.Errorf("save snapshot: header: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (domain.SnapshotHeader, []domain.IndexEntry, error) {
	var h domain.SnapshotHeader
	if err := readJSON(filepath.Join(s.dir, headerFile), &h); err != nil {
		return h, nil, fmt.Errorf("load snapshot header: %w", err)
	}
	var entries []domain.IndexEntry
	if err := readJSON(filepath.Join(s.dir, entriesFile), &entries); err != nil {
		return h, nil, fmt.Errorf("load snapshot entries: %w", err)
	}
	return h, entries, nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
