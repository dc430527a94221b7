// README: Courier-facing handlers: registration, position reports, interest,
// and delivery completion.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/modules/courier"
	"dispatch/internal/modules/order"
	"dispatch/internal/types"
)

type CourierHandler struct {
	couriers *courier.Service
	orders   *order.Service
}

func NewCourierHandler(couriers *courier.Service, orders *order.Service) *CourierHandler {
	return &CourierHandler{couriers: couriers, orders: orders}
}

type registerCourierReq struct {
	CourierID string `json:"courier_id"`
}

func (h *CourierHandler) Register(c *gin.Context) {
	var req registerCourierReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.couriers.Register(c.Request.Context(), types.ID(req.CourierID)); err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"courier_id": req.CourierID})
}

type positionReq struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (h *CourierHandler) ReportPosition(c *gin.Context) {
	var req positionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	id := types.ID(c.Param("id"))
	if err := h.couriers.ReportPosition(c.Request.Context(), id, types.Point{Lng: req.Lon, Lat: req.Lat}); err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"courier_id": id})
}

func (h *CourierHandler) Profile(c *gin.Context) {
	profile, err := h.couriers.Profile(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, profile)
}

func (h *CourierHandler) Stats(c *gin.Context) {
	st, err := h.couriers.Stats(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, st)
}

type interestReq struct {
	CourierID string `json:"courier_id"`
}

func (h *CourierHandler) RegisterInterest(c *gin.Context) {
	var req interestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	err := h.orders.RegisterInterest(c.Request.Context(), order.InterestCommand{
		OrderID:   types.ID(c.Param("id")),
		CourierID: types.ID(req.CourierID),
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"registered": true})
}

func (h *CourierHandler) MarkDelivered(c *gin.Context) {
	if err := h.orders.MarkDelivered(c.Request.Context(), types.ID(c.Param("id"))); err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": order.StatusDelivered})
}

// Available lists the orders a courier can still volunteer for.
func (h *CourierHandler) Available(c *gin.Context) {
	orders, err := h.orders.ListOpenForInterest(c.Request.Context())
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": orders})
}

// Assigned lists the courier's open deliveries.
func (h *CourierHandler) Assigned(c *gin.Context) {
	orders, err := h.orders.ListAssigned(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": orders})
}
