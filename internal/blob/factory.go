package blob

import (
	"context"
	"fmt"

	"polity/internal/infra/blob/fs"
	memorystore "polity/internal/infra/blob/memory"
	infraS3 "polity/internal/infra/blob/s3"
)

// S3Config re-exports the S3 driver configuration.
type S3Config = infraS3.Config

// Config selects and configures a blob driver.
//
//	POLITY_BLOB_DRIVER: fs|s3|memory (default fs)
//	POLITY_BLOB_FS_ROOT: directory root when driver=fs (default ./snapshots)
//	POLITY_BLOB_S3_BUCKET, POLITY_BLOB_S3_REGION, POLITY_BLOB_S3_ENDPOINT,
//	POLITY_BLOB_S3_PATH_STYLE: S3 settings when driver=s3
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open constructs the Store described by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
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
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewFilesystem constructs a filesystem-backed Store rooted at root.
func NewFilesystem(root string) (Store, error) {
	store, err := fs.New(root)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewMemory returns an in-memory Store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// NewS3 constructs an S3-backed Store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	store, err := infraS3.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}
