// Package blob re-exports the archive abstractions and selects a driver.
package blob

import (
	"polity/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrExists indicates a create-only Put hit an existing key.
	ErrExists = core.ErrExists
	// ErrNotFound indicates a missing blob.
	ErrNotFound = core.ErrNotFound
	// ErrInvalidKey indicates a rejected key.
	ErrInvalidKey = core.ErrInvalidKey
)
