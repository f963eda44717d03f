package application

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	routeDomain "github.com/moplan-logistics/service-routing/internal/domain/route"
	"github.com/moplan-logistics/service-routing/internal/platform/apperr"
)

var (
	madridValencia = routeDomain.Pair{OriginLon: -3.7038, OriginLat: 40.4168, DestLon: -0.3763, DestLat: 39.4699}
	lineGeometry   = json.RawMessage(`{"type":"LineString","coordinates":[[-3.7038,40.4168],[-2.1,40.0],[-0.3763,39.4699]]}`)
)

func newTestRouteService(cache *memoryCache, provider *stubProvider) *RouteService {
	svc := NewRouteService(cache, provider, nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestResolve_MadridValencia(t *testing.T) {
	cache := newMemoryCache()
	provider := &stubProvider{route: &routeDomain.ProviderRoute{
		Geometry:        lineGeometry,
		DistanceMeters:  506000,
		DurationSeconds: 16800,
	}}
	svc := newTestRouteService(cache, provider)

	result, err := svc.Resolve(context.Background(), madridValencia)
	require.NoError(t, err)

	assert.Equal(t, 506.0, result.DistanceKm)
	assert.Equal(t, 280.0, result.DurationMin)
	assert.False(t, result.Cached)
	assert.Len(t, result.LineString(), 3)

	key := routeDomain.Key("cb618f6baa5bdccfc0e0936989ea6a0f")
	assert.Equal(t, key, result.Key)
	row, ok := cache.rows[key]
	require.True(t, ok, "row should be keyed by the canonical md5")
	assert.Equal(t, 506.0, row.DistanceKm)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), row.UpdatedAt)
}

func TestResolve_CacheHitSkipsProvider(t *testing.T) {
	cache := newMemoryCache()
	key := routeDomain.DeriveKey(madridValencia)
	cache.rows[key] = &routeDomain.CachedRoute{
		Key:         key,
		Geometry:    lineGeometry,
		DistanceKm:  506,
		DurationMin: 280,
	}
	provider := &stubProvider{err: errors.New("must not be called")}
	svc := newTestRouteService(cache, provider)

	result, err := svc.Resolve(context.Background(), madridValencia)
	require.NoError(t, err)
	assert.True(t, result.Cached)
	assert.Equal(t, 506.0, result.DistanceKm)
	assert.Empty(t, provider.calls)
}

func TestResolve_MissThenHit(t *testing.T) {
	cache := newMemoryCache()
	provider := &stubProvider{route: &routeDomain.ProviderRoute{Geometry: lineGeometry, DistanceMeters: 1000, DurationSeconds: 60}}
	svc := newTestRouteService(cache, provider)
	ctx := context.Background()

	first, err := svc.Resolve(ctx, madridValencia)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	// Differs only below the rounding precision.
	nearby := madridValencia
	nearby.OriginLon += 0.000001
	second, err := svc.Resolve(ctx, nearby)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Key, second.Key)

	assert.Len(t, provider.calls, 1)
	assert.Equal(t, 1, cache.inserts)
}

func TestResolve_UnitConversion(t *testing.T) {
	cache := newMemoryCache()
	provider := &stubProvider{route: &routeDomain.ProviderRoute{Geometry: lineGeometry, DistanceMeters: 12345, DurationSeconds: 678}}
	svc := newTestRouteService(cache, provider)

	result, err := svc.Resolve(context.Background(), madridValencia)
	require.NoError(t, err)
	assert.Equal(t, 12.35, result.DistanceKm)
	assert.Equal(t, 11.3, result.DurationMin)
}

func TestResolve_NoRouteInsertsNothing(t *testing.T) {
	cache := newMemoryCache()
	provider := &stubProvider{err: &routeDomain.ProviderError{Code: "NoRoute", Err: routeDomain.ErrNoRoute}}
	svc := newTestRouteService(cache, provider)

	result, err := svc.Resolve(context.Background(), madridValencia)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, routeDomain.ErrNoRoute)
	assert.Equal(t, apperr.KindNoRoute, apperr.KindOf(err))
	assert.Zero(t, cache.inserts)
	assert.Empty(t, cache.rows)
}

func TestResolve_MalformedGeometry(t *testing.T) {
	cache := newMemoryCache()
	provider := &stubProvider{route: &routeDomain.ProviderRoute{Geometry: json.RawMessage(`{"type":"Point","coordinates":[1,2]}`)}}
	svc := newTestRouteService(cache, provider)

	_, err := svc.Resolve(context.Background(), madridValencia)
	var perr *routeDomain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Zero(t, cache.inserts)
}

func TestResolve_InvalidMeasuresAreNotCached(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		duration float64
	}{
		{name: "negative distance", distance: -1, duration: 60},
		{name: "nan duration", distance: 1000, duration: math.NaN()},
		{name: "infinite distance", distance: math.Inf(1), duration: 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newMemoryCache()
			provider := &stubProvider{route: &routeDomain.ProviderRoute{
				Geometry:        lineGeometry,
				DistanceMeters:  tt.distance,
				DurationSeconds: tt.duration,
			}}
			svc := newTestRouteService(cache, provider)

			res, err := svc.Resolve(context.Background(), madridValencia)
			assert.Nil(t, res)
			var perr *routeDomain.ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Zero(t, cache.inserts)
		})
	}
}

func TestResolve_StoreFailures(t *testing.T) {
	t.Run("lookup failure is not a miss", func(t *testing.T) {
		cache := newMemoryCache()
		cache.lookupErr = errors.New("connection refused")
		provider := &stubProvider{route: &routeDomain.ProviderRoute{Geometry: lineGeometry}}
		svc := newTestRouteService(cache, provider)

		_, err := svc.Resolve(context.Background(), madridValencia)
		var serr *routeDomain.StoreError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
		assert.Empty(t, provider.calls)
	})

	t.Run("insert failure", func(t *testing.T) {
		cache := newMemoryCache()
		cache.insertErr = errors.New("disk full")
		provider := &stubProvider{route: &routeDomain.ProviderRoute{Geometry: lineGeometry, DistanceMeters: 1000}}
		svc := newTestRouteService(cache, provider)

		result, err := svc.Resolve(context.Background(), madridValencia)
		assert.Nil(t, result)
		var serr *routeDomain.StoreError
		require.ErrorAs(t, err, &serr)
		assert.Len(t, provider.calls, 1)
	})
}

func TestResolve_UnreadableCachedRowIsRefetched(t *testing.T) {
	cache := newMemoryCache()
	key := routeDomain.DeriveKey(madridValencia)
	cache.rows[key] = &routeDomain.CachedRoute{Key: key, Geometry: json.RawMessage(`"garbage"`)}
	provider := &stubProvider{route: &routeDomain.ProviderRoute{Geometry: lineGeometry, DistanceMeters: 2000, DurationSeconds: 120}}
	svc := newTestRouteService(cache, provider)

	result, err := svc.Resolve(context.Background(), madridValencia)
	require.NoError(t, err)
	assert.Equal(t, 2.0, result.DistanceKm)
	assert.Len(t, provider.calls, 1)
	assert.Equal(t, 2.0, cache.rows[key].DistanceKm)
}

func TestResolve_ProviderReceivesRawCoordinates(t *testing.T) {
	cache := newMemoryCache()
	provider := &stubProvider{route: &routeDomain.ProviderRoute{Geometry: lineGeometry}}
	svc := newTestRouteService(cache, provider)

	raw := routeDomain.Pair{OriginLon: -3.70381234, OriginLat: 40.41681234, DestLon: -0.37631234, DestLat: 39.46991234}
	_, err := svc.Resolve(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, provider.calls, 1)
	assert.Equal(t, raw, provider.calls[0])
}

func TestCacheStats(t *testing.T) {
	cache := newMemoryCache()
	provider := &stubProvider{route: &routeDomain.ProviderRoute{Geometry: lineGeometry}}
	svc := newTestRouteService(cache, provider)

	_, err := svc.Resolve(context.Background(), madridValencia)
	require.NoError(t, err)

	stats, err := svc.CacheStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.CachedRoutes)
}
