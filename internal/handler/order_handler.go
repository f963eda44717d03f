package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/moplan-logistics/service-routing/internal/application"
	"github.com/moplan-logistics/service-routing/internal/platform/response"
)

// OrderHandler handles HTTP requests for planned orders.
type OrderHandler struct {
	service *application.PlanningService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *application.PlanningService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes registers the order endpoints.
func (h *OrderHandler) RegisterRoutes(r *gin.RouterGroup) {
	orders := r.Group("/api/v1/orders")
	{
		orders.GET("", h.ListOrders)
		orders.GET("/:order/route", h.GetOrderRoute)
	}
}

// ListOrders handles GET /api/v1/orders.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.service.ListOrders(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if orders == nil {
		orders = []string{}
	}

	response.Success(c, gin.H{
		"orders":         orders,
		"default_center": application.DefaultMapCenter,
	})
}

// GetOrderRoute handles GET /api/v1/orders/:order/route.
func (h *OrderHandler) GetOrderRoute(c *gin.Context) {
	result, err := h.service.GetOrderRoute(c.Request.Context(), c.Param("order"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
