package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/moplan-logistics/service-routing/internal/application"
	"github.com/moplan-logistics/service-routing/internal/platform/auth"
	"github.com/moplan-logistics/service-routing/internal/platform/middleware"
	"github.com/moplan-logistics/service-routing/internal/platform/response"
)

// AdminHandler handles admin HTTP requests: planning imports and cache stats.
type AdminHandler struct {
	routes   *application.RouteService
	planning *application.PlanningService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(routes *application.RouteService, planning *application.PlanningService) *AdminHandler {
	return &AdminHandler{routes: routes, planning: planning}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.POST("/sync", h.Sync)
		admin.GET("/stats/cache", h.CacheStats)
	}
}

// Sync handles POST /api/v1/admin/sync.
func (h *AdminHandler) Sync(c *gin.Context) {
	trigger := "admin"
	if userID, ok := middleware.GetUserID(c); ok {
		trigger = "admin:" + userID.String()
	}

	report, err := h.planning.Sync(c.Request.Context(), trigger)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, report)
}

// CacheStats handles GET /api/v1/admin/stats/cache.
func (h *AdminHandler) CacheStats(c *gin.Context) {
	stats, err := h.routes.CacheStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}
