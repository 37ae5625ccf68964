// Package config loads runtime settings from an optional YAML file overlaid
// with CARBONLEDGER_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"carbonledger/internal/blob/core"

	"gopkg.in/yaml.v3"
)

// DefaultStorageKey is the blob key holding the serialized record collection.
const DefaultStorageKey = "carbon-footprint-emissions"

const (
	envBlobDriver   = "CARBONLEDGER_BLOB_DRIVER"
	envFSRoot       = "CARBONLEDGER_BLOB_FS_ROOT"
	envSQLitePath   = "CARBONLEDGER_SQLITE_PATH"
	envPostgresDSN  = "CARBONLEDGER_POSTGRES_DSN"
	envS3Bucket     = "CARBONLEDGER_BLOB_S3_BUCKET"
	envS3Region     = "CARBONLEDGER_BLOB_S3_REGION"
	envS3Endpoint   = "CARBONLEDGER_BLOB_S3_ENDPOINT"
	envS3PathStyle  = "CARBONLEDGER_BLOB_S3_PATH_STYLE"
	envStorageKey   = "CARBONLEDGER_STORAGE_KEY"
	envLogLevel     = "CARBONLEDGER_LOG_LEVEL"
	defaultFSRoot   = "./blobdata"
	defaultLogLevel = "info"
)

// Config is the resolved runtime configuration.
type Config struct {
	Blob       Blob   `yaml:"blob"`
	StorageKey string `yaml:"storage_key"`
	LogLevel   string `yaml:"log_level"`
}

// Blob selects and configures the blob driver backing persistence.
type Blob struct {
	Driver      core.Driver `yaml:"driver"`
	FSRoot      string      `yaml:"fs_root"`
	SQLitePath  string      `yaml:"sqlite_path"`
	PostgresDSN string      `yaml:"postgres_dsn"`
	S3          S3          `yaml:"s3"`
}

// S3 holds bucket settings for the s3 driver. Endpoint and PathStyle target
// MinIO style deployments.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

var lookupEnv = os.LookupEnv

// Default returns the configuration used when neither file nor env override anything.
func Default() Config {
	return Config{
		Blob:       Blob{Driver: core.DriverFilesystem, FSRoot: defaultFSRoot},
		StorageKey: DefaultStorageKey,
		LogLevel:   defaultLogLevel,
	}
}

// Load reads path (skipped when empty), applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := lookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	if v, ok := lookupEnv(envBlobDriver); ok && strings.TrimSpace(v) != "" {
		c.Blob.Driver = core.Driver(strings.ToLower(strings.TrimSpace(v)))
	}
	setString(envFSRoot, &c.Blob.FSRoot)
	setString(envSQLitePath, &c.Blob.SQLitePath)
	setString(envPostgresDSN, &c.Blob.PostgresDSN)
	setString(envS3Bucket, &c.Blob.S3.Bucket)
	setString(envS3Region, &c.Blob.S3.Region)
	setString(envS3Endpoint, &c.Blob.S3.Endpoint)
	setString(envStorageKey, &c.StorageKey)
	setString(envLogLevel, &c.LogLevel)
	if v, ok := lookupEnv(envS3PathStyle); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envS3PathStyle, err)
		}
		c.Blob.S3.PathStyle = b
	}
	return nil
}

func (c *Config) fillDefaults() {
	if c.Blob.Driver == "" {
		c.Blob.Driver = core.DriverFilesystem
	}
	if c.StorageKey == "" {
		c.StorageKey = DefaultStorageKey
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

// Validate rejects unknown drivers, an s3 driver without bucket and unknown log levels.
func (c Config) Validate() error {
	known := false
	for _, d := range core.Drivers() {
		if c.Blob.Driver == d {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	if c.Blob.Driver == core.DriverS3 && c.Blob.S3.Bucket == "" {
		return fmt.Errorf("blob driver s3 requires a bucket (%s)", envS3Bucket)
	}
	if strings.TrimSpace(c.StorageKey) == "" {
		return fmt.Errorf("storage key must not be empty")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel (debug, info, warn, error).
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
