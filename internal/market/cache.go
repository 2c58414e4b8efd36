package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	goredis "github.com/redis/go-redis/v9"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/logger"
)

// DefaultTTL bounds how long a resolved listing set is reused.
const DefaultTTL = time.Hour

// ListingCache is the read-through store for resolved listing sets. A miss,
// expiry or backend error all read as "not cached".
type ListingCache interface {
	Get(ctx context.Context, key string) ([]Listing, bool)
	Set(ctx context.Context, key string, ls []Listing)
}

// LRUCache keeps listing sets in process.
type LRUCache struct {
	lru *expirable.LRU[string, []Listing]
}

// NewLRUCache holds up to size sets for ttl each.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	if size <= 0 {
		size = 512
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LRUCache{lru: expirable.NewLRU[string, []Listing](size, nil, ttl)}
}

func (c *LRUCache) Get(_ context.Context, key string) ([]Listing, bool) {
	return c.lru.Get(key)
}

func (c *LRUCache) Set(_ context.Context, key string, ls []Listing) {
	c.lru.Add(key, ls)
}

// RedisCache shares listing sets between processes.
type RedisCache struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisCache connects to addr and pings it.
func NewRedisCache(ctx context.Context, addr, prefix string, ttl time.Duration, log *logger.Logger) (*RedisCache, error) {
	if addr == "" {
		return nil, errors.New("missing redis address")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if prefix == "" {
		prefix = "verse:listings:"
	}
	if log == nil {
		log = logger.NewNop()
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: ttl, log: log.With("service", "RedisListingCache")}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]Listing, bool) {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("redis get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var ls []Listing
	if err := json.Unmarshal(raw, &ls); err != nil {
		c.log.Warn("redis entry undecodable", "key", key, "error", err)
		return nil, false
	}
	return ls, true
}

func (c *RedisCache) Set(ctx context.Context, key string, ls []Listing) {
	raw, err := json.Marshal(ls)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("redis set failed", "key", key, "error", err)
	}
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
