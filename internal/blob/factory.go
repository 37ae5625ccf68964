package blob

import (
	"context"
	"fmt"
	"io"

	"carbonledger/internal/config"
	"carbonledger/internal/infra/blob/fs"
	"carbonledger/internal/infra/blob/memory"
	"carbonledger/internal/infra/blob/postgres"
	"carbonledger/internal/infra/blob/s3"
	"carbonledger/internal/infra/blob/sqlite"
)

// Open selects a Store implementation from the resolved blob configuration.
//
//	fs:       FSRoot (default ./blobdata)
//	s3:       S3.Bucket (required), S3.Region, S3.Endpoint, S3.PathStyle
//	memory:   process local, lost on exit
//	sqlite:   SQLitePath (default carbonledger.db)
//	postgres: PostgresDSN
func Open(ctx context.Context, cfg config.Blob) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return NewSQLite(cfg.SQLitePath)
	case DriverPostgres:
		return NewPostgres(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewFilesystem returns a filesystem-backed store rooted at root.
func NewFilesystem(root string) (Store, error) {
	s, err := fs.New(root)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewMemory returns an in-memory store.
func NewMemory() *memory.Store { return memory.New() }

// NewS3 returns an S3-backed store for the configured bucket.
func NewS3(ctx context.Context, cfg config.S3) (Store, error) {
	s, err := s3.New(ctx, s3.Config{Bucket: cfg.Bucket, Region: cfg.Region, Endpoint: cfg.Endpoint, PathStyle: cfg.PathStyle})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewSQLite returns a store backed by an embedded sqlite database at path.
func NewSQLite(path string) (Store, error) {
	s, err := sqlite.New(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewPostgres returns a store backed by the blobs table of a PostgreSQL database.
func NewPostgres(ctx context.Context, dsn string) (Store, error) {
	s, err := postgres.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases driver resources when the store holds any (database handles).
func Close(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
