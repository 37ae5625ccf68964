package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"carbonledger/internal/blob/core"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "carbonledger.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Blob.Driver != core.DriverFilesystem || cfg.Blob.FSRoot != "./blobdata" {
		t.Fatalf("unexpected blob defaults %+v", cfg.Blob)
	}
	if cfg.StorageKey != "carbon-footprint-emissions" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	path := writeFile(t, `
blob:
  driver: s3
  s3:
    bucket: from-file
    region: eu-west-1
storage_key: custom-key
log_level: debug
`)
	t.Setenv("CARBONLEDGER_BLOB_S3_BUCKET", "from-env")
	t.Setenv("CARBONLEDGER_BLOB_S3_PATH_STYLE", "true")
	t.Setenv("CARBONLEDGER_BLOB_S3_ENDPOINT", "http://localhost:9000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Blob.Driver != core.DriverS3 || cfg.Blob.S3.Bucket != "from-env" || cfg.Blob.S3.Region != "eu-west-1" {
		t.Fatalf("unexpected s3 config %+v", cfg.Blob)
	}
	if !cfg.Blob.S3.PathStyle || cfg.Blob.S3.Endpoint != "http://localhost:9000" {
		t.Fatalf("expected env path style and endpoint, got %+v", cfg.Blob.S3)
	}
	if cfg.StorageKey != "custom-key" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected file values %+v", cfg)
	}
}

func TestLoadEnvDriverSelection(t *testing.T) {
	t.Setenv("CARBONLEDGER_BLOB_DRIVER", " SQLite ")
	t.Setenv("CARBONLEDGER_SQLITE_PATH", "/tmp/ledger.db")
	t.Setenv("CARBONLEDGER_STORAGE_KEY", "k")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Blob.Driver != core.DriverSQLite || cfg.Blob.SQLitePath != "/tmp/ledger.db" || cfg.StorageKey != "k" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		file string
		env  map[string]string
		want string
	}{
		{name: "unknown driver", env: map[string]string{"CARBONLEDGER_BLOB_DRIVER": "tape"}, want: "unknown blob driver"},
		{name: "s3 without bucket", env: map[string]string{"CARBONLEDGER_BLOB_DRIVER": "s3"}, want: "requires a bucket"},
		{name: "bad path style", env: map[string]string{"CARBONLEDGER_BLOB_S3_PATH_STYLE": "sometimes"}, want: "PATH_STYLE"},
		{name: "bad log level", env: map[string]string{"CARBONLEDGER_LOG_LEVEL": "chatty"}, want: "log level"},
		{name: "unknown yaml field", file: "blobs: {}\n", want: "parse config"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			path := ""
			if tc.file != "" {
				path = writeFile(t, tc.file)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestEmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Blob.Driver != core.DriverFilesystem {
		t.Fatalf("expected default driver, got %q", cfg.Blob.Driver)
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "warn"
	lvl, err := cfg.SlogLevel()
	if err != nil || lvl.String() != "WARN" {
		t.Fatalf("unexpected level %v %v", lvl, err)
	}
}
