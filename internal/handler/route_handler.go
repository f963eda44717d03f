package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"

	"github.com/moplan-logistics/service-routing/internal/application"
	routeDomain "github.com/moplan-logistics/service-routing/internal/domain/route"
	"github.com/moplan-logistics/service-routing/internal/platform/apperr"
	"github.com/moplan-logistics/service-routing/internal/platform/response"
)

// RouteQuery is the coordinate pair accepted by the route endpoints.
type RouteQuery struct {
	FromLon *float64 `form:"from_lon"`
	FromLat *float64 `form:"from_lat"`
	ToLon   *float64 `form:"to_lon"`
	ToLat   *float64 `form:"to_lat"`
}

// Pair validates the query and returns the coordinate pair.
func (q RouteQuery) Pair() (routeDomain.Pair, error) {
	if q.FromLon == nil || q.FromLat == nil || q.ToLon == nil || q.ToLat == nil {
		return routeDomain.Pair{}, apperr.NewValidationErrorCode(
			"missing_coordinates",
			"from_lon, from_lat, to_lon and to_lat are required",
		)
	}
	pair := routeDomain.NewPair(orb.Point{*q.FromLon, *q.FromLat}, orb.Point{*q.ToLon, *q.ToLat})
	if err := pair.Validate(); err != nil {
		return routeDomain.Pair{}, err
	}
	return pair, nil
}

// RouteHandler handles HTTP requests for route resolution.
type RouteHandler struct {
	service *application.RouteService
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(service *application.RouteService) *RouteHandler {
	return &RouteHandler{service: service}
}

// RegisterRoutes registers the route endpoints.
func (h *RouteHandler) RegisterRoutes(r *gin.RouterGroup) {
	routes := r.Group("/api/v1/routes")
	{
		routes.GET("", h.Resolve)
		routes.GET("/key", h.Key)
	}
}

// Resolve handles GET /api/v1/routes.
func (h *RouteHandler) Resolve(c *gin.Context) {
	pair, ok := bindPair(c)
	if !ok {
		return
	}

	result, err := h.service.Resolve(c.Request.Context(), pair)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Key handles GET /api/v1/routes/key.
func (h *RouteHandler) Key(c *gin.Context) {
	pair, ok := bindPair(c)
	if !ok {
		return
	}

	response.Success(c, gin.H{
		"key":       routeDomain.DeriveKey(pair),
		"canonical": routeDomain.CanonicalString(pair),
	})
}

func bindPair(c *gin.Context) (routeDomain.Pair, bool) {
	var q RouteQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "coordinates must be decimal numbers")
		return routeDomain.Pair{}, false
	}
	pair, err := q.Pair()
	if err != nil {
		response.Error(c, err)
		return routeDomain.Pair{}, false
	}
	return pair, true
}
