package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	routeDomain "github.com/moplan-logistics/service-routing/internal/domain/route"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RouteCacheModel is the GORM model for the cache_rutas table.
type RouteCacheModel struct {
	RouteID     string          `gorm:"column:route_id;primaryKey;size:32"`
	Geometria   json.RawMessage `gorm:"column:geometria;type:jsonb;not null"`
	DistanciaKm float64         `gorm:"column:distancia_km;type:double precision;not null"`
	DuracionMin float64         `gorm:"column:duracion_min;type:double precision;not null"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;type:timestamptz;not null;index"`
}

// TableName returns the table name for the GORM model.
func (RouteCacheModel) TableName() string {
	return "cache_rutas"
}

// GormRouteCacheRepository is the GORM-based implementation of route.CacheRepository.
type GormRouteCacheRepository struct {
	db *gorm.DB
}

// NewGormRouteCacheRepository creates a new GormRouteCacheRepository.
func NewGormRouteCacheRepository(db *gorm.DB) *GormRouteCacheRepository {
	return &GormRouteCacheRepository{db: db}
}

// EnsureSchema creates cache_rutas and its indexes if they do not exist.
func (r *GormRouteCacheRepository) EnsureSchema(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&RouteCacheModel{}); err != nil {
		return &routeDomain.StoreError{Op: "ensure schema", Err: err}
	}
	return nil
}

// Lookup returns the newest row for key.
func (r *GormRouteCacheRepository) Lookup(ctx context.Context, key routeDomain.Key) (*routeDomain.CachedRoute, error) {
	var model RouteCacheModel
	err := r.db.WithContext(ctx).
		Where("route_id = ?", key.String()).
		Order("updated_at DESC").
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, routeDomain.ErrCacheMiss
		}
		return nil, &routeDomain.StoreError{Op: "lookup", Err: err}
	}
	return toDomainCachedRoute(&model), nil
}

// Insert upserts the record on route_id so concurrent misses for the same
// key leave a single row.
func (r *GormRouteCacheRepository) Insert(ctx context.Context, record *routeDomain.CachedRoute) error {
	model := toRouteCacheModel(record)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "route_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"geometria", "distancia_km", "duracion_min", "updated_at"}),
		}).
		Create(model).Error
	if err != nil {
		return &routeDomain.StoreError{Op: "insert", Err: err}
	}
	return nil
}

// Stats returns the row count and the update time range.
func (r *GormRouteCacheRepository) Stats(ctx context.Context) (routeDomain.CacheStats, error) {
	var row struct {
		CachedRoutes int64
		Oldest       *time.Time
		Newest       *time.Time
	}
	if err := r.db.WithContext(ctx).Model(&RouteCacheModel{}).
		Select("count(*) AS cached_routes, min(updated_at) AS oldest, max(updated_at) AS newest").
		Scan(&row).Error; err != nil {
		return routeDomain.CacheStats{}, &routeDomain.StoreError{Op: "stats", Err: err}
	}
	return routeDomain.CacheStats{
		CachedRoutes: row.CachedRoutes,
		Oldest:       row.Oldest,
		Newest:       row.Newest,
	}, nil
}

// --- Conversion Helpers ---

func toRouteCacheModel(c *routeDomain.CachedRoute) *RouteCacheModel {
	updatedAt := c.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	return &RouteCacheModel{
		RouteID:     c.Key.String(),
		Geometria:   c.Geometry,
		DistanciaKm: c.DistanceKm,
		DuracionMin: c.DurationMin,
		UpdatedAt:   updatedAt,
	}
}

func toDomainCachedRoute(m *RouteCacheModel) *routeDomain.CachedRoute {
	return &routeDomain.CachedRoute{
		Key:         routeDomain.Key(m.RouteID),
		Geometry:    m.Geometria,
		DistanceKm:  m.DistanciaKm,
		DurationMin: m.DuracionMin,
		UpdatedAt:   m.UpdatedAt,
	}
}
