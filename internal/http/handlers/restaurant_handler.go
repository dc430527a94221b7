// README: Restaurant-facing handlers: kitchen queue and ready notifications.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/modules/order"
	"dispatch/internal/types"
)

type RestaurantHandler struct {
	orders *order.Service
}

func NewRestaurantHandler(orders *order.Service) *RestaurantHandler {
	return &RestaurantHandler{orders: orders}
}

func (h *RestaurantHandler) MarkReady(c *gin.Context) {
	expiresAt, err := h.orders.MarkReady(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"status":                order.StatusReady,
		"acceptance_expires_at": expiresAt,
	})
}

func (h *RestaurantHandler) Queue(c *gin.Context) {
	restaurantID := c.Query("restaurant_id")
	if restaurantID == "" {
		writeError(c, http.StatusBadRequest, "missing restaurant_id")
		return
	}
	orders, err := h.orders.ListRestaurantQueue(c.Request.Context(), types.ID(restaurantID))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": orders})
}
