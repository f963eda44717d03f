package application

import (
	"context"
	"errors"
	"sort"
	"sync"

	planningDomain "github.com/moplan-logistics/service-routing/internal/domain/planning"
	routeDomain "github.com/moplan-logistics/service-routing/internal/domain/route"
	"github.com/moplan-logistics/service-routing/internal/platform/apperr"
)

type memoryCache struct {
	mu        sync.Mutex
	rows      map[routeDomain.Key]*routeDomain.CachedRoute
	inserts   int
	lookupErr error
	insertErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{rows: make(map[routeDomain.Key]*routeDomain.CachedRoute)}
}

func (m *memoryCache) EnsureSchema(context.Context) error { return nil }

func (m *memoryCache) Lookup(_ context.Context, key routeDomain.Key) (*routeDomain.CachedRoute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return nil, &routeDomain.StoreError{Op: "lookup", Err: m.lookupErr}
	}
	row, ok := m.rows[key]
	if !ok {
		return nil, routeDomain.ErrCacheMiss
	}
	cp := *row
	return &cp, nil
}

func (m *memoryCache) Insert(_ context.Context, record *routeDomain.CachedRoute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return &routeDomain.StoreError{Op: "insert", Err: m.insertErr}
	}
	cp := *record
	m.rows[record.Key] = &cp
	m.inserts++
	return nil
}

func (m *memoryCache) Stats(context.Context) (routeDomain.CacheStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return routeDomain.CacheStats{CachedRoutes: int64(len(m.rows))}, nil
}

type stubProvider struct {
	mu    sync.Mutex
	route *routeDomain.ProviderRoute
	err   error
	calls []routeDomain.Pair
}

func (s *stubProvider) Route(_ context.Context, pair routeDomain.Pair) (*routeDomain.ProviderRoute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, pair)
	if s.err != nil {
		return nil, s.err
	}
	return s.route, nil
}

type memoryPlanning struct {
	origins      []planningDomain.Origin
	destinations []planningDomain.Destination
	plans        []planningDomain.Plan
	replaceErr   error
}

func (m *memoryPlanning) ReplaceOrigins(_ context.Context, origins []planningDomain.Origin) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.origins = origins
	return nil
}

func (m *memoryPlanning) ReplaceDestinations(_ context.Context, destinations []planningDomain.Destination) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.destinations = destinations
	return nil
}

func (m *memoryPlanning) ReplacePlans(_ context.Context, plans []planningDomain.Plan) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.plans = plans
	return nil
}

func (m *memoryPlanning) ListOrders(context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var orders []string
	for _, p := range m.plans {
		if !seen[p.Order] {
			seen[p.Order] = true
			orders = append(orders, p.Order)
		}
	}
	sort.Strings(orders)
	return orders, nil
}

func (m *memoryPlanning) FindOrderRoute(_ context.Context, order string) (*planningDomain.OrderRoute, error) {
	for _, p := range m.plans {
		if p.Order != order {
			continue
		}
		out := &planningDomain.OrderRoute{Order: p.Order, PlantCode: p.PlantCode, LoadingBayCode: p.LoadingBayCode}
		for _, o := range m.origins {
			if o.Code == p.LoadingBayCode {
				out.OriginLat, out.OriginLon = o.Lat, o.Lon
			}
		}
		for _, d := range m.destinations {
			if d.PlantCode == p.PlantCode {
				out.DestLat, out.DestLon = d.Lat, d.Lon
			}
		}
		return out, nil
	}
	return nil, apperr.NewNotFoundError("order", order)
}

type stubSource struct {
	origins      []planningDomain.Origin
	destinations []planningDomain.Destination
	plans        []planningDomain.Plan
	originsErr   error
	destErr      error
	plansErr     error
}

func (s *stubSource) FetchOrigins(context.Context) ([]planningDomain.Origin, error) {
	return s.origins, s.originsErr
}

func (s *stubSource) FetchDestinations(context.Context) ([]planningDomain.Destination, error) {
	return s.destinations, s.destErr
}

func (s *stubSource) FetchPlans(context.Context) ([]planningDomain.Plan, error) {
	return s.plans, s.plansErr
}

var errUpstream = errors.New("upstream unreachable")

func ptr(v float64) *float64 { return &v }
