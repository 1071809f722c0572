// Package search re-exports the index abstractions and selects a backend.
package search

import "polity/internal/search/core"

type (
	// Driver identifies a search backend.
	Driver = core.Driver
	// Document is one indexed (id, language) representation.
	Document = core.Document
	// Index is the interface implemented by search backends.
	Index = core.Index
)

const (
	// DriverMemory is the in-process index.
	DriverMemory = core.DriverMemory
	// DriverRedis is the Redis hash index.
	DriverRedis = core.DriverRedis
)

var (
	// ErrExists indicates Add hit an existing document key.
	ErrExists = core.ErrExists
	// ErrNotIndexed indicates Update found no document.
	ErrNotIndexed = core.ErrNotIndexed
	// ErrBadQuery indicates an unparseable query string.
	ErrBadQuery = core.ErrBadQuery
)
