// Package core defines the key-value blob storage contract shared by every
// storage backend and the persistence bridge.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs" // local filesystem (default, dev)
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3"
	// DriverMemory represents an in-memory implementation typically used in tests.
	DriverMemory Driver = "memory"
	// DriverSQLite stores blobs as rows of an embedded sqlite database.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres stores blobs as rows of a PostgreSQL table.
	DriverPostgres Driver = "postgres"
)

// Drivers lists every supported driver.
func Drivers() []Driver {
	return []Driver{DriverFilesystem, DriverS3, DriverMemory, DriverSQLite, DriverPostgres}
}

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string // MIME type, optional
}

// Info describes a stored blob.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is a string keyed blob store. Put overwrites any existing blob at
// key; Get on a missing key returns an error wrapping ErrNotFound.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	// Delete removes a blob. Returns (false, nil) if not found.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns blobs whose key has the provided prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

// ErrNotFound is returned (wrapped) when a key has no blob.
var ErrNotFound = errors.New("blobstore: not found")
