package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	planningDomain "github.com/moplan-logistics/service-routing/internal/domain/planning"
	routeDomain "github.com/moplan-logistics/service-routing/internal/domain/route"
	"github.com/moplan-logistics/service-routing/internal/events"
	"github.com/moplan-logistics/service-routing/internal/platform/apperr"
)

// DefaultMapCenter is the map center (lat, lon) used before an order is
// selected: the middle of the Iberian peninsula.
var DefaultMapCenter = [2]float64{40.4167, -3.7037}

// RouteResolver resolves a coordinate pair into a route.
type RouteResolver interface {
	Resolve(ctx context.Context, pair routeDomain.Pair) (*routeDomain.Result, error)
}

// SyncReport summarises a planning import.
type SyncReport struct {
	Origins      int       `json:"origins"`
	Destinations int       `json:"destinations"`
	Plans        int       `json:"plans"`
	Skipped      []string  `json:"skipped,omitempty"`
	Trigger      string    `json:"trigger"`
	SyncedAt     time.Time `json:"synced_at"`
}

// MarkerDTO is a labelled map point.
type MarkerDTO struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// OrderRouteDTO is everything the dashboard needs to draw an order's route.
type OrderRouteDTO struct {
	Order          string           `json:"order"`
	PlantCode      string           `json:"plant_code"`
	LoadingBayCode string           `json:"loading_bay_code"`
	Origin         MarkerDTO        `json:"origin"`
	Destination    MarkerDTO        `json:"destination"`
	Route          *geojson.Feature `json:"route"`
	DistanceKm     float64          `json:"distance_km"`
	DurationMin    float64          `json:"duration_min"`
	Center         [2]float64       `json:"center"`
	Cached         bool             `json:"cached"`
}

// PlanningService imports planning data and assembles order routes.
type PlanningService struct {
	repo      planningDomain.Repository
	source    planningDomain.Source
	routes    RouteResolver
	publisher *events.Publisher
	logger    *zap.Logger

	syncing sync.Mutex
}

// NewPlanningService creates a new PlanningService.
func NewPlanningService(
	repo planningDomain.Repository,
	source planningDomain.Source,
	routes RouteResolver,
	publisher *events.Publisher,
	logger *zap.Logger,
) *PlanningService {
	return &PlanningService{
		repo:      repo,
		source:    source,
		routes:    routes,
		publisher: publisher,
		logger:    logger,
	}
}

// Sync fetches loading bays, plants and plans and replaces the local
// tables. A set that fails to fetch or comes back empty is skipped and
// its table left untouched; Sync fails only when nothing could be fetched
// or the store rejects a write. Only one Sync runs at a time.
func (s *PlanningService) Sync(ctx context.Context, trigger string) (*SyncReport, error) {
	if !s.syncing.TryLock() {
		return nil, apperr.NewConflictError("a planning sync is already running")
	}
	defer s.syncing.Unlock()

	report := &SyncReport{Trigger: trigger}
	var fetchErrs []error

	origins, err := s.source.FetchOrigins(ctx)
	if err != nil {
		fetchErrs = append(fetchErrs, err)
	}
	if !s.skip(report, "maestro_origenes", len(origins), err) {
		if err := s.repo.ReplaceOrigins(ctx, origins); err != nil {
			return nil, apperr.NewUnavailableError("failed to store loading bays", err)
		}
		report.Origins = len(origins)
	}

	destinations, err := s.source.FetchDestinations(ctx)
	if err != nil {
		fetchErrs = append(fetchErrs, err)
	}
	if !s.skip(report, "maestro_destinos", len(destinations), err) {
		if err := s.repo.ReplaceDestinations(ctx, destinations); err != nil {
			return nil, apperr.NewUnavailableError("failed to store plants", err)
		}
		report.Destinations = len(destinations)
	}

	plans, err := s.source.FetchPlans(ctx)
	if err != nil {
		fetchErrs = append(fetchErrs, err)
	}
	if !s.skip(report, "planificaciones", len(plans), err) {
		if err := s.repo.ReplacePlans(ctx, plans); err != nil {
			return nil, apperr.NewUnavailableError("failed to store plans", err)
		}
		report.Plans = len(plans)
	}

	if len(fetchErrs) == 3 {
		return nil, fmt.Errorf("planning sync failed: %w", errors.Join(fetchErrs...))
	}

	report.SyncedAt = time.Now().UTC()
	s.logger.Info("planning data synced",
		zap.Int("origins", report.Origins),
		zap.Int("destinations", report.Destinations),
		zap.Int("plans", report.Plans),
		zap.Strings("skipped", report.Skipped),
		zap.String("trigger", trigger),
	)

	s.publisher.PlanningSynced(ctx, events.PlanningSyncedEvent{
		Origins:      report.Origins,
		Destinations: report.Destinations,
		Plans:        report.Plans,
		Trigger:      trigger,
		OccurredAt:   report.SyncedAt,
	})
	return report, nil
}

// RunSync runs Sync and discards the report.
func (s *PlanningService) RunSync(ctx context.Context, trigger string) error {
	_, err := s.Sync(ctx, trigger)
	return err
}

func (s *PlanningService) skip(report *SyncReport, table string, n int, err error) bool {
	switch {
	case err != nil:
		s.logger.Error("failed to fetch planning data", zap.String("table", table), zap.Error(err))
	case n == 0:
		s.logger.Warn("planning API returned no rows, keeping existing data", zap.String("table", table))
	default:
		return false
	}
	report.Skipped = append(report.Skipped, table)
	return true
}

// ListOrders returns the distinct order codes.
func (s *PlanningService) ListOrders(ctx context.Context) ([]string, error) {
	return s.repo.ListOrders(ctx)
}

// GetOrderRoute joins the order with its coordinates and resolves the route.
func (s *PlanningService) GetOrderRoute(ctx context.Context, order string) (*OrderRouteDTO, error) {
	if order == "" {
		return nil, apperr.NewValidationError("order is required")
	}

	joined, err := s.repo.FindOrderRoute(ctx, order)
	if err != nil {
		return nil, err
	}

	pair, err := joined.Pair()
	if err != nil {
		s.logger.Error("order has invalid coordinates", zap.String("order", order), zap.Error(err))
		return nil, err
	}

	result, err := s.routes.Resolve(ctx, pair)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order route resolved",
		zap.String("order", order),
		zap.Bool("cached", result.Cached),
	)

	return &OrderRouteDTO{
		Order:          joined.Order,
		PlantCode:      joined.PlantCode,
		LoadingBayCode: joined.LoadingBayCode,
		Origin:         MarkerDTO{Label: "Origen: " + joined.LoadingBayCode, Lat: pair.OriginLat, Lon: pair.OriginLon},
		Destination:    MarkerDTO{Label: "Destino: " + joined.PlantCode, Lat: pair.DestLat, Lon: pair.DestLon},
		Route:          result.Feature(),
		DistanceKm:     result.DistanceKm,
		DurationMin:    result.DurationMin,
		Center:         [2]float64{pair.OriginLat, pair.OriginLon},
		Cached:         result.Cached,
	}, nil
}
