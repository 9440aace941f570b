package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMemoryEntries bounds the in-process cache when no size is given.
const DefaultMemoryEntries = 4096

// MemoryCache is an in-process Cache bounded by entry count.
// An entry expires at the earlier of its Set ttl and the cache-wide ttl.
type MemoryCache struct {
	lru *expirable.LRU[string, memoryEntry]
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means only the LRU TTL applies
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates an LRU cache holding at most size entries for ttl.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = DefaultMemoryEntries
	}
	return &MemoryCache{lru: expirable.NewLRU[string, memoryEntry](size, nil, ttl)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, error) {
	e, ok := m.lru.Get(key)
	if !ok {
		return "", ErrMiss
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		m.lru.Remove(key)
		return "", ErrMiss
	}
	return e.value, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.lru.Add(key, e)
	return nil
}

func (m *MemoryCache) Del(_ context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		if m.lru.Remove(k) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryCache) Ping(context.Context) error { return nil }

func (m *MemoryCache) Close() error {
	m.lru.Purge()
	return nil
}
