package repository

import (
	"context"
	"encoding/json"
	"fmt"

	planningDomain "github.com/moplan-logistics/service-routing/internal/domain/planning"
	"github.com/moplan-logistics/service-routing/internal/platform/apperr"
	"gorm.io/gorm"
)

const insertBatchSize = 500

// OriginModel is the GORM model for the maestro_origenes table.
type OriginModel struct {
	ID       uint64          `gorm:"primaryKey;autoIncrement"`
	Codigo   string          `gorm:"column:codigo;size:50;index;not null"`
	Nombre   string          `gorm:"column:nombre;size:200"`
	Latitud  *float64        `gorm:"column:latitud;type:double precision"`
	Longitud *float64        `gorm:"column:longitud;type:double precision"`
	Raw      json.RawMessage `gorm:"column:raw;type:jsonb"`
}

func (OriginModel) TableName() string { return "maestro_origenes" }

// DestinationModel is the GORM model for the maestro_destinos table.
type DestinationModel struct {
	ID           uint64          `gorm:"primaryKey;autoIncrement"`
	CodigoPlanta string          `gorm:"column:codigo_planta;size:50;index;not null"`
	Nombre       string          `gorm:"column:nombre;size:200"`
	Latitud      *float64        `gorm:"column:latitud;type:double precision"`
	Longitud     *float64        `gorm:"column:longitud;type:double precision"`
	Raw          json.RawMessage `gorm:"column:raw;type:jsonb"`
}

func (DestinationModel) TableName() string { return "maestro_destinos" }

// PlanModel is the GORM model for the planificaciones table.
type PlanModel struct {
	ID              uint64          `gorm:"primaryKey;autoIncrement"`
	Pedido          string          `gorm:"column:pedido;size:50;index;not null"`
	CodigoPlanta    string          `gorm:"column:codigo_planta;size:50"`
	CodigoCargadero string          `gorm:"column:codigo_cargadero;size:50"`
	Raw             json.RawMessage `gorm:"column:raw;type:jsonb"`
}

func (PlanModel) TableName() string { return "planificaciones" }

// PlanningModels lists the models owned by the planning repository, for AutoMigrate.
func PlanningModels() []interface{} {
	return []interface{}{&OriginModel{}, &DestinationModel{}, &PlanModel{}}
}

// GormPlanningRepository implements planning.Repository using GORM.
type GormPlanningRepository struct {
	db *gorm.DB
}

func NewGormPlanningRepository(db *gorm.DB) *GormPlanningRepository {
	return &GormPlanningRepository{db: db}
}

func (r *GormPlanningRepository) ReplaceOrigins(ctx context.Context, origins []planningDomain.Origin) error {
	models := make([]OriginModel, len(origins))
	for i, o := range origins {
		models[i] = OriginModel{Codigo: o.Code, Nombre: o.Name, Latitud: o.Lat, Longitud: o.Lon, Raw: o.Raw}
	}
	return replaceTable(ctx, r.db, &OriginModel{}, models)
}

func (r *GormPlanningRepository) ReplaceDestinations(ctx context.Context, destinations []planningDomain.Destination) error {
	models := make([]DestinationModel, len(destinations))
	for i, d := range destinations {
		models[i] = DestinationModel{CodigoPlanta: d.PlantCode, Nombre: d.Name, Latitud: d.Lat, Longitud: d.Lon, Raw: d.Raw}
	}
	return replaceTable(ctx, r.db, &DestinationModel{}, models)
}

func (r *GormPlanningRepository) ReplacePlans(ctx context.Context, plans []planningDomain.Plan) error {
	models := make([]PlanModel, len(plans))
	for i, p := range plans {
		models[i] = PlanModel{Pedido: p.Order, CodigoPlanta: p.PlantCode, CodigoCargadero: p.LoadingBayCode, Raw: p.Raw}
	}
	return replaceTable(ctx, r.db, &PlanModel{}, models)
}

func (r *GormPlanningRepository) ListOrders(ctx context.Context) ([]string, error) {
	var orders []string
	if err := r.db.WithContext(ctx).
		Model(&PlanModel{}).
		Distinct("pedido").
		Order("pedido").
		Pluck("pedido", &orders).Error; err != nil {
		return nil, apperr.NewUnavailableError("failed to list orders", err)
	}
	return orders, nil
}

type orderRouteRow struct {
	Pedido          string
	CodigoPlanta    string
	CodigoCargadero string
	LongitudOrigen  *float64
	LatitudOrigen   *float64
	LongitudDestino *float64
	LatitudDestino  *float64
}

// FindOrderRoute returns the first planning row for order joined with its
// loading bay and plant coordinates.
func (r *GormPlanningRepository) FindOrderRoute(ctx context.Context, order string) (*planningDomain.OrderRoute, error) {
	var rows []orderRouteRow
	if err := r.db.WithContext(ctx).
		Table("planificaciones AS p").
		Select(`p.pedido, p.codigo_planta, p.codigo_cargadero,
			o.longitud AS longitud_origen, o.latitud AS latitud_origen,
			d.longitud AS longitud_destino, d.latitud AS latitud_destino`).
		Joins("LEFT JOIN maestro_origenes o ON p.codigo_cargadero = o.codigo").
		Joins("LEFT JOIN maestro_destinos d ON p.codigo_planta = d.codigo_planta").
		Where("p.pedido = ?", order).
		Order("p.id").
		Limit(1).
		Scan(&rows).Error; err != nil {
		return nil, apperr.NewUnavailableError("failed to load order route", err)
	}
	if len(rows) == 0 {
		return nil, apperr.NewNotFoundError("Order", order)
	}

	row := rows[0]
	return &planningDomain.OrderRoute{
		Order:          row.Pedido,
		PlantCode:      row.CodigoPlanta,
		LoadingBayCode: row.CodigoCargadero,
		OriginLon:      row.LongitudOrigen,
		OriginLat:      row.LatitudOrigen,
		DestLon:        row.LongitudDestino,
		DestLat:        row.LatitudDestino,
	}, nil
}

// replaceTable deletes every row of model's table and inserts rows in one transaction.
func replaceTable[T any](ctx context.Context, db *gorm.DB, model interface{}, rows []T) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("failed to clear table: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&rows, insertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert rows: %w", err)
		}
		return nil
	})
}
