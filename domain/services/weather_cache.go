package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"skywager/domain/entities"
	"skywager/domain/interfaces"
)

// WeatherCache memoizes current conditions per city for the lifetime of one settlement run.
// Concurrent callers for the same city share a single fetch, and a failed fetch is
// remembered so the city is not retried until the next run.
type WeatherCache struct {
	provider interfaces.WeatherProvider
	mu       sync.Mutex
	entries  map[string]*weatherEntry
	fetches  atomic.Int64
}

type weatherEntry struct {
	once     sync.Once
	snapshot *entities.WeatherSnapshot
	err      error
}

// NewWeatherCache creates an empty cache over provider
func NewWeatherCache(provider interfaces.WeatherProvider) *WeatherCache {
	return &WeatherCache{
		provider: provider,
		entries:  make(map[string]*weatherEntry),
	}
}

// Get returns the snapshot for city, fetching it at most once per cache
func (c *WeatherCache) Get(ctx context.Context, city string) (*entities.WeatherSnapshot, error) {
	key := NormalizeCity(city)

	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		entry = &weatherEntry{}
		c.entries[key] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		c.fetches.Add(1)
		entry.snapshot, entry.err = c.provider.Current(ctx, city)
		if entry.err == nil && entry.snapshot == nil {
			entry.err = ErrWeatherUnavailable
		}
	})
	return entry.snapshot, entry.err
}

// GetAll resolves every city, returning the snapshots keyed by normalized city.
// The first failure aborts and is returned.
func (c *WeatherCache) GetAll(ctx context.Context, cities []string) (map[string]*entities.WeatherSnapshot, error) {
	snapshots := make(map[string]*entities.WeatherSnapshot, len(cities))
	for _, city := range cities {
		snapshot, err := c.Get(ctx, city)
		if err != nil {
			return nil, err
		}
		snapshots[NormalizeCity(city)] = snapshot
	}
	return snapshots, nil
}

// Fetches returns how many provider calls the cache has made
func (c *WeatherCache) Fetches() int {
	return int(c.fetches.Load())
}

// NormalizeCity returns the key used for per-city maps and lookups
func NormalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
