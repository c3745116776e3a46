package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/handiism/paletti/internal/model"
)

// FetchFunc loads the metadata behind url on a cache miss.
type FetchFunc func(ctx context.Context, url string) (*model.MediaItem, error)

// Stats reports cache usage.
type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
}

// MetadataCache memoizes metadata lookups by exact URL for the lifetime of
// the process. There is no eviction.
//
// Concurrent misses for the same URL share one fetch. Failed fetches are
// not stored, so the next call retries.
//
// Example:
//
//	c := cache.New(log)
//	item, err := c.GetOrFetch(ctx, url, plugin.Metadata)
type MetadataCache struct {
	mu      sync.RWMutex
	entries map[string]*model.MediaItem
	group   singleflight.Group
	hits    atomic.Int64
	misses  atomic.Int64
	log     *zap.Logger
}

// New creates an empty cache.
func New(log *zap.Logger) *MetadataCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &MetadataCache{
		entries: make(map[string]*model.MediaItem),
		log:     log,
	}
}

// GetOrFetch returns the item stored for url, calling fetch once to fill
// the entry on a miss. Callers share the returned pointer.
func (c *MetadataCache) GetOrFetch(ctx context.Context, url string, fetch FetchFunc) (*model.MediaItem, error) {
	if item, ok := c.lookup(url); ok {
		c.hits.Add(1)
		return item, nil
	}

	v, err, shared := c.group.Do(url, func() (any, error) {
		// A concurrent caller may have filled the entry between lookup and Do.
		if item, ok := c.lookup(url); ok {
			return item, nil
		}

		c.misses.Add(1)
		item, err := fetch(ctx, url)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[url] = item
		c.mu.Unlock()

		c.log.Debug("metadata cached", zap.String("url", url))
		return item, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.hits.Add(1)
	}
	return v.(*model.MediaItem), nil
}

// Get returns the stored item for url without fetching.
func (c *MetadataCache) Get(url string) (*model.MediaItem, bool) {
	return c.lookup(url)
}

// Len returns the number of stored items.
func (c *MetadataCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters.
func (c *MetadataCache) Stats() Stats {
	return Stats{
		Entries: c.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

func (c *MetadataCache) lookup(url string) (*model.MediaItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.entries[url]
	return item, ok
}
