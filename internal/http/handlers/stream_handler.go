// README: Server-sent event streams bridging the notification bus to HTTP
// subscribers.
package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"dispatch/internal/bus"
	"dispatch/internal/types"
)

type StreamHandler struct {
	bus *bus.Bus
}

func NewStreamHandler(b *bus.Bus) *StreamHandler {
	return &StreamHandler{bus: b}
}

// OrderStatus streams one order's status changes as SSE until the client
// disconnects.
func (h *StreamHandler) OrderStatus(c *gin.Context) {
	ctx := c.Request.Context()
	stream := h.bus.SubscribeOrder(ctx, types.ID(c.Param("id")))
	defer stream.Close()

	c.Stream(func(w io.Writer) bool {
		select {
		case status, ok := <-stream.C:
			if !ok {
				return false
			}
			c.SSEvent("status", status)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// Assignments streams the order ids assigned to one courier.
func (h *StreamHandler) Assignments(c *gin.Context) {
	ctx := c.Request.Context()
	stream := h.bus.SubscribeDriver(ctx, types.ID(c.Param("id")))
	defer stream.Close()

	c.Stream(func(w io.Writer) bool {
		select {
		case orderID, ok := <-stream.C:
			if !ok {
				return false
			}
			c.SSEvent("assignment", string(orderID))
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// NewOrders streams the ids of newly announced orders to listening couriers.
func (h *StreamHandler) NewOrders(c *gin.Context) {
	ctx := c.Request.Context()
	stream := h.bus.SubscribeNewOrders(ctx)
	defer stream.Close()

	c.Stream(func(w io.Writer) bool {
		select {
		case orderID, ok := <-stream.C:
			if !ok {
				return false
			}
			c.SSEvent("order", string(orderID))
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// Events streams every tagged event in the system, for the dispatcher console.
func (h *StreamHandler) Events(c *gin.Context) {
	ctx := c.Request.Context()
	stream := h.bus.SubscribeEvents(ctx)
	defer stream.Close()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-stream.C:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev)
			return true
		case <-ctx.Done():
			return false
		}
	})
}
