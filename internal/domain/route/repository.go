package route

import (
	"context"
	"encoding/json"
	"time"
)

// CacheRepository persists cached routes keyed by Key.
type CacheRepository interface {
	// EnsureSchema creates the backing table if absent. Safe to call repeatedly.
	EnsureSchema(ctx context.Context) error

	// Lookup returns the most recently updated route for key, ErrCacheMiss
	// when none exists, or a *StoreError.
	Lookup(ctx context.Context, key Key) (*CachedRoute, error)

	// Insert stores a route, overwriting any existing row with the same key.
	Insert(ctx context.Context, record *CachedRoute) error

	// Stats summarises the cache contents.
	Stats(ctx context.Context) (CacheStats, error)
}

// CacheStats summarises the cache table.
type CacheStats struct {
	CachedRoutes int64      `json:"cached_routes"`
	Oldest       *time.Time `json:"oldest,omitempty"`
	Newest       *time.Time `json:"newest,omitempty"`
}

// ProviderRoute is the first route of a successful provider answer, in the
// provider's units.
type ProviderRoute struct {
	Geometry        json.RawMessage
	DistanceMeters  float64
	DurationSeconds float64
}

// Provider computes a driving route between two points.
type Provider interface {
	// Route returns the route for the raw (unrounded) pair or a *ProviderError.
	Route(ctx context.Context, pair Pair) (*ProviderRoute, error)
}
