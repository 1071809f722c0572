// Package config reads the POLITY_* environment into typed settings for the
// store, search index, snapshot archive and logging.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"polity/internal/blob"
	"polity/internal/core"
	"polity/internal/search"
)

// Config is the process configuration.
type Config struct {
	Storage      core.StorageConfig
	Search       search.Config
	Blob         blob.Config
	LogLevel     string
	SyncAttempts int
	SyncBackoff  time.Duration
}

const (
	defaultSQLitePath  = "polity.db"
	defaultRedisPrefix = "polity:search"
	defaultBlobRoot    = "snapshots"
	defaultLogLevel    = "info"
)

// Load reads the given .env files (".env" when none are named) and then the
// environment. Missing files are ignored; variables already set in the
// environment win over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	var errs []error
	cfg := Config{
		Storage: core.StorageConfig{
			Driver:      core.StorageDriver(getEnv("POLITY_STORAGE_DRIVER", string(core.StorageSQLite))),
			SQLitePath:  getEnv("POLITY_SQLITE_PATH", defaultSQLitePath),
			PostgresDSN: getEnv("POLITY_POSTGRES_DSN", ""),
		},
		Search: search.Config{
			Driver:   search.Driver(getEnv("POLITY_SEARCH_DRIVER", string(search.DriverMemory))),
			RedisURL: getEnv("POLITY_REDIS_URL", ""),
			Prefix:   getEnv("POLITY_REDIS_PREFIX", defaultRedisPrefix),
		},
		Blob: blob.Config{
			Driver: blob.Driver(getEnv("POLITY_BLOB_DRIVER", string(blob.DriverFilesystem))),
			FSRoot: getEnv("POLITY_BLOB_FS_ROOT", defaultBlobRoot),
			S3: blob.S3Config{
				Bucket:          getEnv("POLITY_BLOB_S3_BUCKET", ""),
				Region:          getEnv("POLITY_BLOB_S3_REGION", ""),
				Endpoint:        getEnv("POLITY_BLOB_S3_ENDPOINT", ""),
				AccessKeyID:     getEnv("POLITY_BLOB_S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("POLITY_BLOB_S3_SECRET_ACCESS_KEY", ""),
			},
		},
		LogLevel: getEnv("POLITY_LOG_LEVEL", defaultLogLevel),
	}

	pathStyle, err := getBool("POLITY_BLOB_S3_PATH_STYLE", false)
	errs = append(errs, err)
	cfg.Blob.S3.PathStyle = pathStyle

	cfg.SyncAttempts, err = getInt("POLITY_INDEX_SYNC_ATTEMPTS", 3)
	errs = append(errs, err)
	if err == nil && cfg.SyncAttempts < 1 {
		errs = append(errs, fmt.Errorf("POLITY_INDEX_SYNC_ATTEMPTS must be positive, got %d", cfg.SyncAttempts))
	}

	cfg.SyncBackoff, err = getDuration("POLITY_INDEX_SYNC_BACKOFF", 50*time.Millisecond)
	errs = append(errs, err)

	if cfg.Storage.Driver == core.StoragePostgres && cfg.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("POLITY_POSTGRES_DSN is required for the postgres storage driver"))
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
