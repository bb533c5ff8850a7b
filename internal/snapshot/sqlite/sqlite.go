// Package sqlite persists index snapshots in a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"ragqa/internal/domain"
)

const schema = `
DROP TABLE IF EXISTS snapshot_header;
DROP TABLE IF EXISTS snapshot_entries;
CREATE TABLE snapshot_header (
	version     INTEGER NOT NULL,
	embedder    TEXT    NOT NULL,
	fingerprint TEXT    NOT NULL,
	dimension   INTEGER NOT NULL,
	count       INTEGER NOT NULL,
	created_at  TEXT    NOT NULL
);
CREATE TABLE snapshot_entries (
	position    INTEGER PRIMARY KEY,
	chunk_id    TEXT    NOT NULL,
	document_id TEXT    NOT NULL,
	source_url  TEXT    NOT NULL,
	chunk_index INTEGER NOT NULL,
	text        TEXT    NOT NULL,
	embedding   BLOB    NOT NULL
);`

// Store keeps one snapshot per database. Save recreates both tables in a
// single transaction, so older layouts are replaced.
type Store struct {
	db   *sql.DB
	path string
}

// New opens the database at path. The file is only created by Save.
func New(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("snapshot dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Exists reports whether a snapshot header has been written.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	if s.path != ":memory:" {
		info, err := os.Stat(s.path)
		if errors.Is(err, os.ErrNotExist) || (err == nil && info.Size() == 0) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'snapshot_header'`).Scan(&n)
	if err != nil {
		// an unreadable file still counts as present so Load can report it as corrupt
		return true, nil
	}
	return n > 0, nil
}

func (s *Store) Save(ctx context.Context, header domain.SnapshotHeader, entries []domain.IndexEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("save snapshot: schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshot_header (version, embedder, fingerprint, dimension, count, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		header.Version, header.Embedder, header.Fingerprint, header.Dimension, header.Count, header.CreatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("save snapshot: header: %w", err)
	}
	ins, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_entries (position, chunk_id, document_id, source_url, chunk_index, text, embedding) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("save snapshot: prepare: %w", err)
	}
	defer ins.Close()
	for i, e := range entries {
		c := e.Chunk
		if _, err := ins.ExecContext(ctx, i, c.ID, c.DocumentID, c.SourceURL, c.Index, c.Text, encodeVector(e.Embedding)); err != nil {
			return fmt.Errorf("save snapshot: entry %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save snapshot: commit: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (domain.SnapshotHeader, []domain.IndexEntry, error) {
	var (
		h       domain.SnapshotHeader
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT version, embedder, fingerprint, dimension, count, created_at FROM snapshot_header LIMIT 1`,
	).Scan(&h.Version, &h.Embedder, &h.Fingerprint, &h.Dimension, &h.Count, &created)
	if err != nil {
		return h, nil, fmt.Errorf("load snapshot header: %w", err)
	}
	if h.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return h, nil, fmt.Errorf("load snapshot header: created_at: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_id, document_id, source_url, chunk_index, text, embedding FROM snapshot_entries ORDER BY position`)
	if err != nil {
		return h, nil, fmt.Errorf("load snapshot entries: %w", err)
	}
	defer rows.Close()
	var entries []domain.IndexEntry
	for rows.Next() {
		var (
			e    domain.IndexEntry
			blob []byte
		)
		if err := rows.Scan(&e.Chunk.ID, &e.Chunk.DocumentID, &e.Chunk.SourceURL, &e.Chunk.Index, &e.Chunk.Text, &blob); err != nil {
			return h, nil, fmt.Errorf("load snapshot entry %d: %w", len(entries), err)
		}
		if e.Embedding, err = decodeVector(blob); err != nil {
			return h, nil, fmt.Errorf("load snapshot entry %d: %w", len(entries), err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return h, nil, fmt.Errorf("load snapshot entries: %w", err)
	}
	return h, entries, nil
}

// Vectors are stored as little-endian float64 values.
func encodeVector(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("embedding blob has %d bytes, not a multiple of 8", len(b))
	}
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return v, nil
}
