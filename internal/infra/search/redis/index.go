// Package redis implements the search index on Redis hashes. Each index is a
// hash at <prefix>:<index> whose fields are "<id>|<language>" document keys.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"polity/internal/search/core"
)

const defaultPrefix = "polity:search"

// Index implements core.Index backed by Redis.
type Index struct {
	client *redis.Client
	prefix string
}

// Option configures an Index.
type Option func(*Index)

// WithPrefix sets the key prefix shared by every index hash.
func WithPrefix(prefix string) Option {
	return func(i *Index) {
		if prefix != "" {
			i.prefix = prefix
		}
	}
}

// New constructs an index over an established client.
func New(client *redis.Client, opts ...Option) *Index {
	idx := &Index{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(idx)
		}
	}
	return idx
}

// Connect parses url, pings the server and returns an index over the new client.
func Connect(ctx context.Context, url string, opts ...Option) (*Index, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return New(client, opts...), nil
}

// Driver returns the index driver identifier.
func (i *Index) Driver() core.Driver { return core.DriverRedis }

// Health checks the Redis connection.
func (i *Index) Health(ctx context.Context) error { return i.client.Ping(ctx).Err() }

// Close closes the Redis connection.
func (i *Index) Close() error { return i.client.Close() }

func (i *Index) hashKey(index string) string { return i.prefix + ":" + index }

// Add stores a new document with HSETNX.
func (i *Index) Add(ctx context.Context, doc core.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	created, err := i.client.HSetNX(ctx, i.hashKey(doc.Index), doc.Key(), payload).Result()
	if err != nil {
		return fmt.Errorf("hsetnx %s: %w", doc.Index, err)
	}
	if !created {
		return fmt.Errorf("%w: %s/%s", core.ErrExists, doc.Index, doc.Key())
	}
	return nil
}

// Update overwrites an existing document.
func (i *Index) Update(ctx context.Context, doc core.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	key := i.hashKey(doc.Index)
	exists, err := i.client.HExists(ctx, key, doc.Key()).Result()
	if err != nil {
		return fmt.Errorf("hexists %s: %w", doc.Index, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s/%s", core.ErrNotIndexed, doc.Index, doc.Key())
	}
	if err := i.client.HSet(ctx, key, doc.Key(), payload).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", doc.Index, err)
	}
	return nil
}

// Delete removes a document with HDEL.
func (i *Index) Delete(ctx context.Context, index, id, lang string) error {
	if err := i.client.HDel(ctx, i.hashKey(index), core.DocumentKey(id, lang)).Err(); err != nil {
		return fmt.Errorf("hdel %s: %w", index, err)
	}
	return nil
}

// Search answers id+language lookups with a single HGET and scans the hash otherwise.
func (i *Index) Search(ctx context.Context, index, query, lang string) ([]core.Document, error) {
	q, err := core.ParseQuery(query)
	if err != nil {
		return nil, err
	}
	key := i.hashKey(index)
	id, hasID := q.Lookup("id")
	qlang, hasLang := q.Lookup("language_code")
	if !hasLang && lang != "" {
		qlang, hasLang = lang, true
	}
	if hasID && hasLang {
		raw, err := i.client.HGet(ctx, key, core.DocumentKey(id, qlang)).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("hget %s: %w", index, err)
		}
		doc, err := decode(raw)
		if err != nil {
			return nil, err
		}
		if (lang != "" && doc.Language != lang) || !q.Match(doc) {
			return nil, nil
		}
		return []core.Document{doc}, nil
	}

	all, err := i.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", index, err)
	}
	var out []core.Document
	for _, raw := range all {
		doc, err := decode(raw)
		if err != nil {
			return nil, err
		}
		if lang != "" && doc.Language != lang {
			continue
		}
		if q.Match(doc) {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Key() < out[b].Key() })
	return out, nil
}

func decode(raw string) (core.Document, error) {
	var doc core.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return core.Document{}, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
