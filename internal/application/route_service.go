package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	routeDomain "github.com/moplan-logistics/service-routing/internal/domain/route"
	"github.com/moplan-logistics/service-routing/internal/events"
	"go.uber.org/zap"
)

// RouteService resolves coordinate pairs into routes through the local cache.
type RouteService struct {
	cache     routeDomain.CacheRepository
	provider  routeDomain.Provider
	publisher *events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewRouteService creates a new RouteService. The cache schema must already
// exist; call EnsureSchema once at startup.
func NewRouteService(
	cache routeDomain.CacheRepository,
	provider routeDomain.Provider,
	publisher *events.Publisher,
	logger *zap.Logger,
) *RouteService {
	return &RouteService{
		cache:     cache,
		provider:  provider,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// EnsureSchema prepares the cache table.
func (s *RouteService) EnsureSchema(ctx context.Context) error {
	return s.cache.EnsureSchema(ctx)
}

// Resolve returns the route for pair, from the cache when present,
// otherwise from the provider (and then cached). It either returns a
// complete result or an error: a *route.StoreError when the cache cannot
// be read or written, a *route.ProviderError when no route could be obtained.
func (s *RouteService) Resolve(ctx context.Context, pair routeDomain.Pair) (*routeDomain.Result, error) {
	key := routeDomain.DeriveKey(pair)
	log := s.logger.With(zap.String("route_key", key.String()))

	cached, err := s.cache.Lookup(ctx, key)
	switch {
	case err == nil:
		result, decodeErr := cached.ToResult()
		if decodeErr == nil {
			log.Debug("route served from cache")
			return result, nil
		}
		// A row that cannot be decoded is refetched and overwritten.
		log.Warn("cached route unreadable, refetching", zap.Error(decodeErr))
	case errors.Is(err, routeDomain.ErrCacheMiss):
		log.Info("route not cached, querying routing provider")
	default:
		log.Error("route cache lookup failed", zap.Error(err))
		return nil, err
	}

	fetched, err := s.provider.Route(ctx, pair)
	if err != nil {
		log.Warn("routing provider returned no route", zap.Error(err))
		return nil, err
	}

	geom, err := routeDomain.DecodeGeometry(fetched.Geometry)
	if err != nil {
		return nil, &routeDomain.ProviderError{Err: fmt.Errorf("malformed response: %w", err)}
	}
	if err := fetched.ValidateMeasures(); err != nil {
		return nil, &routeDomain.ProviderError{Err: fmt.Errorf("malformed response: %w", err)}
	}

	record := &routeDomain.CachedRoute{
		Key:         key,
		Geometry:    fetched.Geometry,
		DistanceKm:  routeDomain.MetersToKm(fetched.DistanceMeters),
		DurationMin: routeDomain.SecondsToMinutes(fetched.DurationSeconds),
		UpdatedAt:   s.now(),
	}
	if err := s.cache.Insert(ctx, record); err != nil {
		log.Error("failed to store route in cache", zap.Error(err))
		return nil, err
	}

	log.Info("route stored in cache",
		zap.Float64("distance_km", record.DistanceKm),
		zap.Float64("duration_min", record.DurationMin),
	)
	s.publisher.RouteCached(ctx, pair, record)

	return &routeDomain.Result{
		Key:         key,
		Geometry:    geom,
		DistanceKm:  record.DistanceKm,
		DurationMin: record.DurationMin,
	}, nil
}

// CacheStats returns a summary of the cache table.
func (s *RouteService) CacheStats(ctx context.Context) (routeDomain.CacheStats, error) {
	return s.cache.Stats(ctx)
}
