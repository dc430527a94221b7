// README: Dispatcher-facing handlers: the decision board, manual assignment,
// reopening stalled orders, and window introspection.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/modules/order"
	"dispatch/internal/types"
)

type DispatcherHandler struct {
	orders *order.Service
}

func NewDispatcherHandler(orders *order.Service) *DispatcherHandler {
	return &DispatcherHandler{orders: orders}
}

func (h *DispatcherHandler) PendingDecisions(c *gin.Context) {
	board, err := h.orders.PendingDecisions(c.Request.Context())
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"pending": board})
}

type decideReq struct {
	CourierID string `json:"courier_id"`
}

func (h *DispatcherHandler) Decide(c *gin.Context) {
	var req decideReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	err := h.orders.Decide(c.Request.Context(), order.DecideCommand{
		OrderID:   types.ID(c.Param("id")),
		CourierID: types.ID(req.CourierID),
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": order.StatusAssigned, "courier_id": req.CourierID})
}

func (h *DispatcherHandler) Reopen(c *gin.Context) {
	expiresAt, err := h.orders.Reopen(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"acceptance_expires_at": expiresAt})
}

func (h *DispatcherHandler) WindowStatus(c *gin.Context) {
	kind, remaining, ok := h.orders.WindowStatus(c.Request.Context(), types.ID(c.Param("id")))
	if !ok {
		writeJSON(c, http.StatusOK, gin.H{"active": false})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"active":            true,
		"window":            kind,
		"remaining_seconds": remaining.Round(time.Second).Seconds(),
	})
}
