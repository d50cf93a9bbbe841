package geocode

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/example/taxi-dispatch/internal/models"
)

// Cached is a small TTL cache in front of a Geocoder. Only successful
// lookups are stored.
type Cached struct {
	next Geocoder
	ttl  time.Duration
	now  func() time.Time

	mu    sync.RWMutex
	store map[string]cacheEntry
}

type cacheEntry struct {
	c  models.Coord
	ts time.Time
}

func NewCached(next Geocoder, ttl time.Duration) *Cached {
	return &Cached{next: next, ttl: ttl, now: time.Now, store: make(map[string]cacheEntry)}
}

func keyFor(place string) string { return strings.ToLower(strings.TrimSpace(place)) }

func (c *Cached) Lookup(ctx context.Context, place string) (models.Coord, error) {
	if v, ok := c.get(place); ok {
		return v, nil
	}
	v, err := c.next.Lookup(ctx, place)
	if err != nil {
		return models.Coord{}, err
	}
	c.set(place, v)
	return v, nil
}

func (c *Cached) get(place string) (models.Coord, bool) {
	k := keyFor(place)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return models.Coord{}, false
	}
	if c.now().Sub(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return models.Coord{}, false
	}
	return e.c, true
}

func (c *Cached) set(place string, v models.Coord) {
	c.mu.Lock()
	c.store[keyFor(place)] = cacheEntry{c: v, ts: c.now()}
	c.mu.Unlock()
}
