package hashtable

import (
	"context"
	"errors"
	"strconv"

	"github.com/allegro/bigcache/v3"
)

// ResolveCache wraps a Tables with a bounded, TTL-evicted cache of
// hash->string lookups, for callers that resolve the same hashes
// repeatedly across a large reference walk (C8) or bumpath scan (C9) and
// want to avoid repeated map lookups/lock contention on the shared
// Tables. Modeled directly on huge-cache/cache.go's use of
// allegro/bigcache for memoizing repeated lookups by formatted key.
type ResolveCache struct {
	tables *Tables
	cache  *bigcache.BigCache
}

// NewResolveCache wraps tables with a bigcache.DefaultConfig-sized cache.
func NewResolveCache(ctx context.Context, tables *Tables) (*ResolveCache, error) {
	cache, err := bigcache.New(ctx, bigcache.DefaultConfig(0))
	if err != nil {
		return nil, err
	}
	return &ResolveCache{tables: tables, cache: cache}, nil
}

func key32(h uint32) string { return "32-" + strconv.FormatUint(uint64(h), 16) }
func key64(h uint64) string { return "64-" + strconv.FormatUint(h, 16) }

// ResolveHash32 resolves h, consulting the cache first.
func (c *ResolveCache) ResolveHash32(h uint32) string {
	k := key32(h)
	if v, err := c.cache.Get(k); err == nil {
		return string(v)
	} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
		return c.tables.ResolveHash32(h)
	}
	s := c.tables.ResolveHash32(h)
	_ = c.cache.Set(k, []byte(s))
	return s
}

// ResolveHash64 resolves h, consulting the cache first.
func (c *ResolveCache) ResolveHash64(h uint64) string {
	k := key64(h)
	if v, err := c.cache.Get(k); err == nil {
		return string(v)
	} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
		return c.tables.ResolveHash64(h)
	}
	s := c.tables.ResolveHash64(h)
	_ = c.cache.Set(k, []byte(s))
	return s
}
