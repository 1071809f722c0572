package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"polity/internal/blob"
	"polity/internal/core"
	"polity/internal/search"
)

var polityVars = []string{
	"POLITY_STORAGE_DRIVER", "POLITY_SQLITE_PATH", "POLITY_POSTGRES_DSN",
	"POLITY_SEARCH_DRIVER", "POLITY_REDIS_URL", "POLITY_REDIS_PREFIX",
	"POLITY_BLOB_DRIVER", "POLITY_BLOB_FS_ROOT", "POLITY_BLOB_S3_BUCKET",
	"POLITY_BLOB_S3_REGION", "POLITY_BLOB_S3_ENDPOINT", "POLITY_BLOB_S3_PATH_STYLE",
	"POLITY_BLOB_S3_ACCESS_KEY_ID", "POLITY_BLOB_S3_SECRET_ACCESS_KEY",
	"POLITY_LOG_LEVEL", "POLITY_INDEX_SYNC_ATTEMPTS", "POLITY_INDEX_SYNC_BACKOFF",
}

// clearEnv unsets every POLITY_* variable for the test, restoring them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range polityVars {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != core.StorageSQLite || cfg.Storage.SQLitePath != "polity.db" {
		t.Fatalf("unexpected storage defaults %+v", cfg.Storage)
	}
	if cfg.Search.Driver != search.DriverMemory || cfg.Search.Prefix != "polity:search" {
		t.Fatalf("unexpected search defaults %+v", cfg.Search)
	}
	if cfg.Blob.Driver != blob.DriverFilesystem || cfg.Blob.FSRoot != "snapshots" {
		t.Fatalf("unexpected blob defaults %+v", cfg.Blob)
	}
	if cfg.SyncAttempts != 3 || cfg.SyncBackoff != 50*time.Millisecond || cfg.LogLevel != "info" {
		t.Fatalf("unexpected sync defaults %+v", cfg)
	}
}

func TestDotEnvFileAndEnvironmentPrecedence(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	body := strings.Join([]string{
		"POLITY_STORAGE_DRIVER=memory",
		"POLITY_SEARCH_DRIVER=redis",
		"POLITY_REDIS_URL=redis://localhost:6379/0",
		"POLITY_BLOB_S3_PATH_STYLE=true",
		"POLITY_INDEX_SYNC_ATTEMPTS=5",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("POLITY_INDEX_SYNC_ATTEMPTS", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != core.StorageMemory {
		t.Fatalf("expected memory storage, got %s", cfg.Storage.Driver)
	}
	if cfg.Search.Driver != search.DriverRedis || cfg.Search.RedisURL != "redis://localhost:6379/0" {
		t.Fatalf("unexpected search config %+v", cfg.Search)
	}
	if !cfg.Blob.S3.PathStyle {
		t.Fatalf("expected path-style S3")
	}
	if cfg.SyncAttempts != 7 {
		t.Fatalf("expected environment to win, got %d", cfg.SyncAttempts)
	}
}

func TestInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"attempts", map[string]string{"POLITY_INDEX_SYNC_ATTEMPTS": "many"}, "POLITY_INDEX_SYNC_ATTEMPTS"},
		{"attempts zero", map[string]string{"POLITY_INDEX_SYNC_ATTEMPTS": "0"}, "must be positive"},
		{"backoff", map[string]string{"POLITY_INDEX_SYNC_BACKOFF": "soon"}, "POLITY_INDEX_SYNC_BACKOFF"},
		{"path style", map[string]string{"POLITY_BLOB_S3_PATH_STYLE": "sometimes"}, "POLITY_BLOB_S3_PATH_STYLE"},
		{"postgres dsn", map[string]string{"POLITY_STORAGE_DRIVER": "postgres"}, "POLITY_POSTGRES_DSN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}
