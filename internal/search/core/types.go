// Package core defines the search index abstractions implemented by the
// index backends and consumed by the index synchronizer.
package core

import (
	"context"
	"encoding/json"
	"errors"
)

// Driver identifies a concrete search index backend implementation.
type Driver string

const (
	// DriverMemory keeps documents in process memory (default, tests).
	DriverMemory Driver = "memory"
	// DriverRedis stores documents in Redis hashes.
	DriverRedis Driver = "redis"
)

// Document is one indexed representation of a record in one language.
type Document struct {
	Index    string          `json:"index"`
	ID       string          `json:"id"`
	Language string          `json:"language_code"`
	Body     json.RawMessage `json:"body"`
}

// Key returns the (id, language) document key within its index.
func (d Document) Key() string { return DocumentKey(d.ID, d.Language) }

// DocumentKey joins an id and a language into the storage key of a document.
func DocumentKey(id, lang string) string { return id + "|" + lang }

// Index is the document store the synchronizer writes to.
type Index interface {
	// Add stores a new document. It fails with ErrExists if the key is taken.
	Add(ctx context.Context, doc Document) error
	// Update overwrites an existing document. It fails with ErrNotIndexed if absent.
	Update(ctx context.Context, doc Document) error
	// Delete removes the document; deleting a missing document is not an error.
	Delete(ctx context.Context, index, id, lang string) error
	// Search returns the documents of index in lang matching query. An empty
	// lang searches every language.
	Search(ctx context.Context, index, query, lang string) ([]Document, error)
	Driver() Driver
}

var (
	// ErrExists is returned by Add when a document with the same key exists.
	ErrExists = errors.New("search: document already exists")
	// ErrNotIndexed is returned by Update when no document has the key.
	ErrNotIndexed = errors.New("search: document not indexed")
	// ErrBadQuery is returned for query strings outside the supported grammar.
	ErrBadQuery = errors.New("search: malformed query")
)
