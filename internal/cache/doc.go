// Package cache provides the process-wide metadata cache consulted by the
// dispatcher before asking a plugin to crawl a page.
//
// # Lookups
//
// Items are keyed by the exact URL the caller passed in. No normalization
// is applied, so "https://a.bandcamp.com/track/x" and the same URL with a
// trailing slash are two entries:
//
//	c := cache.New(log)
//	item, err := c.GetOrFetch(ctx, url, plugin.Metadata)
//	if err != nil {
//	    return err
//	}
//
// Get reads an entry without fetching:
//
//	if item, ok := c.Get(url); ok {
//	    fmt.Println(item.Title)
//	}
//
// # Concurrency
//
// The cache is safe for concurrent use. Concurrent misses for one URL
// share a single fetch; every caller receives the same *model.MediaItem,
// which must be treated as read-only.
//
// # Errors
//
// A failed fetch is returned to every caller waiting on it and is not
// stored. The next GetOrFetch for that URL fetches again.
//
// # Lifetime
//
// Entries live as long as the process. There is no eviction or expiry.
// Stats reports the entry count along with hits and misses:
//
//	s := c.Stats()
//	log.Info("cache", zap.Int("entries", s.Entries), zap.Int64("hits", s.Hits))
package cache
