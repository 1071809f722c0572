// Package memory implements an in-process search index for tests and
// single-node deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"polity/internal/search/core"
)

// Index implements core.Index backed by process memory.
type Index struct {
	mu   sync.RWMutex
	docs map[string]map[string]core.Document
}

// New returns an empty in-memory index.
func New() *Index { return &Index{docs: make(map[string]map[string]core.Document)} }

// Driver returns the index driver identifier.
func (i *Index) Driver() core.Driver { return core.DriverMemory }

// Add stores a new document; errors if the key exists.
func (i *Index) Add(_ context.Context, doc core.Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	bucket := i.docs[doc.Index]
	if bucket == nil {
		bucket = make(map[string]core.Document)
		i.docs[doc.Index] = bucket
	}
	if _, ok := bucket[doc.Key()]; ok {
		return fmt.Errorf("%w: %s/%s", core.ErrExists, doc.Index, doc.Key())
	}
	bucket[doc.Key()] = cloneDocument(doc)
	return nil
}

// Update overwrites an existing document.
func (i *Index) Update(_ context.Context, doc core.Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	bucket := i.docs[doc.Index]
	if _, ok := bucket[doc.Key()]; !ok {
		return fmt.Errorf("%w: %s/%s", core.ErrNotIndexed, doc.Index, doc.Key())
	}
	bucket[doc.Key()] = cloneDocument(doc)
	return nil
}

// Delete removes a document if present.
func (i *Index) Delete(_ context.Context, index, id, lang string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.docs[index], core.DocumentKey(id, lang))
	return nil
}

// Search returns matching documents ordered by key.
func (i *Index) Search(_ context.Context, index, query, lang string) ([]core.Document, error) {
	q, err := core.ParseQuery(query)
	if err != nil {
		return nil, err
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	var out []core.Document
	for _, doc := range i.docs[index] {
		if lang != "" && doc.Language != lang {
			continue
		}
		if q.Match(doc) {
			out = append(out, cloneDocument(doc))
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Key() < out[b].Key() })
	return out, nil
}

// Len returns the number of documents stored in index.
func (i *Index) Len(index string) int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.docs[index])
}

func cloneDocument(doc core.Document) core.Document {
	cp := doc
	cp.Body = append([]byte(nil), doc.Body...)
	return cp
}
