// Package sqlite implements the blob Store as rows of an embedded SQLite database.
package sqlite

import (
	"bytes"
	"carbonledger/internal/blob/core"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const createTable = `CREATE TABLE IF NOT EXISTS blobs (
	key TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
)`

// Store keeps every blob as one row keyed by blob key.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the database at path and ensures the blobs table exists.
func New(path string) (*Store, error) {
	if path == "" {
		path = "carbonledger.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(createTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create blobs table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Driver() core.Driver { return core.DriverSQLite }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	if key == "" {
		return core.Info{}, fmt.Errorf("empty key")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO blobs(key,payload,content_type,updated_at) VALUES(?,?,?,?)
		 ON CONFLICT(key) DO UPDATE SET payload=excluded.payload, content_type=excluded.content_type, updated_at=excluded.updated_at`,
		key, data, opts.ContentType, now.Format(time.RFC3339Nano)); err != nil {
		return core.Info{}, fmt.Errorf("upsert %s: %w", key, err)
	}
	return core.Info{Key: key, Size: int64(len(data)), ContentType: opts.ContentType, ETag: etag(data), LastModified: now}, nil
}

func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	info, data, err := s.row(ctx, key)
	if err != nil {
		return core.Info{}, nil, err
	}
	return info, io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) Head(ctx context.Context, key string) (core.Info, error) {
	info, _, err := s.row(ctx, key)
	return info, err
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]core.Info, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, payload, content_type, updated_at FROM blobs WHERE substr(key, 1, length(?)) = ? ORDER BY key`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	defer func() { _ = rows.Close() }()
	var infos []core.Info
	for rows.Next() {
		var (
			key, contentType, updated string
			payload                   []byte
		)
		if err := rows.Scan(&key, &payload, &contentType, &updated); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		infos = append(infos, buildInfo(key, payload, contentType, updated))
	}
	return infos, rows.Err()
}

func (s *Store) row(ctx context.Context, key string) (core.Info, []byte, error) {
	var (
		payload              []byte
		contentType, updated string
	)
	err := s.db.QueryRowContext(ctx, `SELECT payload, content_type, updated_at FROM blobs WHERE key = ?`, key).
		Scan(&payload, &contentType, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Info{}, nil, fmt.Errorf("blob %s: %w", key, core.ErrNotFound)
	}
	if err != nil {
		return core.Info{}, nil, fmt.Errorf("select %s: %w", key, err)
	}
	return buildInfo(key, payload, contentType, updated), payload, nil
}

func buildInfo(key string, payload []byte, contentType, updated string) core.Info {
	lm, _ := time.Parse(time.RFC3339Nano, updated)
	return core.Info{Key: key, Size: int64(len(payload)), ContentType: contentType, ETag: etag(payload), LastModified: lm}
}

func etag(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
