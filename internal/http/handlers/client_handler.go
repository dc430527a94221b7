// README: Client-facing handlers: place, track, cancel, and rate orders.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/modules/order"
	"dispatch/internal/types"
)

type ClientHandler struct {
	orders *order.Service
}

func NewClientHandler(orders *order.Service) *ClientHandler {
	return &ClientHandler{orders: orders}
}

type createOrderReq struct {
	ClientID      string   `json:"client_id"`
	RestaurantID  string   `json:"restaurant_id"`
	RestaurantLat float64  `json:"restaurant_lat"`
	RestaurantLon float64  `json:"restaurant_lon"`
	Items         []string `json:"items"`
}

func (h *ClientHandler) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	id, err := h.orders.Create(c.Request.Context(), order.CreateCommand{
		ClientID:     types.ID(req.ClientID),
		RestaurantID: types.ID(req.RestaurantID),
		Restaurant:   types.Point{Lng: req.RestaurantLon, Lat: req.RestaurantLat},
		Items:        req.Items,
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"order_id": id, "status": order.StatusPending})
}

func (h *ClientHandler) Get(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *ClientHandler) List(c *gin.Context) {
	clientID := c.Query("client_id")
	if clientID == "" {
		writeError(c, http.StatusBadRequest, "missing client_id")
		return
	}
	orders, err := h.orders.ListByClient(c.Request.Context(), types.ID(clientID))
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": orders})
}

type cancelReq struct {
	ClientID string `json:"client_id"`
}

func (h *ClientHandler) Cancel(c *gin.Context) {
	var req cancelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	err := h.orders.Cancel(c.Request.Context(), order.CancelCommand{
		OrderID:  types.ID(c.Param("id")),
		ClientID: types.ID(req.ClientID),
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": order.StatusCancelled})
}

type rateReq struct {
	ClientID string `json:"client_id"`
	Rating   int    `json:"rating"`
}

func (h *ClientHandler) Rate(c *gin.Context) {
	var req rateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	err := h.orders.Rate(c.Request.Context(), order.RateCommand{
		OrderID:  types.ID(c.Param("id")),
		ClientID: types.ID(req.ClientID),
		Rating:   req.Rating,
	})
	if err != nil {
		writeAppError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"rated": true})
}
