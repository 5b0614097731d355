package preferences

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/tkeith/wallet-hopper-2/logger"
	"github.com/tkeith/wallet-hopper-2/types"
)

// Cache holds fetched documents. Misses and backend errors look the same to
// callers; a broken cache only costs a lookup.
type Cache interface {
	Get(ctx context.Context, key string) (*types.PreferenceDocument, bool)
	Set(ctx context.Context, key string, doc *types.PreferenceDocument)
	Delete(ctx context.Context, key string)
}

// MemoryCache is an in-process TTL cache. Documents are kept serialized, so
// every Get returns a private copy.
type MemoryCache struct {
	c *gocache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{c: gocache.New(ttl, 2*ttl)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (*types.PreferenceDocument, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	raw, ok := v.([]byte)
	if !ok {
		return nil, false
	}
	var doc types.PreferenceDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}
	return &doc, true
}

func (m *MemoryCache) Set(_ context.Context, key string, doc *types.PreferenceDocument) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return
	}
	m.c.SetDefault(key, raw)
}

func (m *MemoryCache) Delete(_ context.Context, key string) {
	m.c.Delete(key)
}

// RedisCache shares fetched documents between processes.
type RedisCache struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	prefix string
	log    logger.Logger
}

func NewRedisCache(addr string, ttl time.Duration, log logger.Logger) *RedisCache {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return NewRedisCacheWithClient(rdb, ttl, log)
}

func NewRedisCacheWithClient(rdb redis.UniversalClient, ttl time.Duration, log logger.Logger) *RedisCache {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &RedisCache{rdb: rdb, ttl: ttl, prefix: "wallethopper:prefs:", log: log}
}

func (r *RedisCache) Get(ctx context.Context, key string) (*types.PreferenceDocument, bool) {
	raw, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.log.Warn("redis get failed", map[string]any{"error": err})
		}
		return nil, false
	}
	var doc types.PreferenceDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}
	return &doc, true
}

func (r *RedisCache) Set(ctx context.Context, key string, doc *types.PreferenceDocument) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, r.prefix+key, raw, r.ttl).Err(); err != nil {
		r.log.Warn("redis set failed", map[string]any{"error": err})
	}
}

func (r *RedisCache) Delete(ctx context.Context, key string) {
	if err := r.rdb.Del(ctx, r.prefix+key).Err(); err != nil {
		r.log.Warn("redis delete failed", map[string]any{"error": err})
	}
}

func (r *RedisCache) Close() error {
	return r.rdb.Close()
}
