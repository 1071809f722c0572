package search

import (
	"context"
	"fmt"
	"io"

	memoryindex "polity/internal/infra/search/memory"
	redisindex "polity/internal/infra/search/redis"
)

// Config selects and configures a search backend.
//
//	POLITY_SEARCH_DRIVER: memory|redis (default memory)
//	POLITY_REDIS_URL: connection URL when driver=redis
//	POLITY_REDIS_PREFIX: Redis key prefix (default polity:search)
type Config struct {
	Driver   Driver
	RedisURL string
	Prefix   string
}

// Open constructs the Index described by cfg.
func Open(ctx context.Context, cfg Config) (Index, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}
	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis search driver requires a URL")
		}
		idx, err := redisindex.Connect(ctx, cfg.RedisURL, redisindex.WithPrefix(cfg.Prefix))
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown search driver %s", driver)
	}
}

// NewMemory returns an empty in-process index.
func NewMemory() Index { return memoryindex.New() }

// Close releases backend connections when the index holds any.
func Close(idx Index) error {
	if closer, ok := idx.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
