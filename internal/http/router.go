// README: HTTP router registration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/bus"
	"dispatch/internal/http/handlers"
	"dispatch/internal/http/middleware"
	"dispatch/internal/modules/courier"
	"dispatch/internal/modules/order"
)

type RouterDeps struct {
	Orders   *order.Service
	Couriers *courier.Service
	Bus      *bus.Bus
	Log      *slog.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logging(log))

	client := handlers.NewClientHandler(deps.Orders)
	restaurant := handlers.NewRestaurantHandler(deps.Orders)
	courierH := handlers.NewCourierHandler(deps.Couriers, deps.Orders)
	dispatcher := handlers.NewDispatcherHandler(deps.Orders)
	streams := handlers.NewStreamHandler(deps.Bus)

	api := r.Group("/api")

	api.POST("/client/orders", client.Create)
	api.GET("/client/orders", client.List)
	api.POST("/client/orders/:id/cancel", client.Cancel)
	api.POST("/client/orders/:id/rating", client.Rate)

	api.GET("/orders/:id", client.Get)
	api.GET("/orders/:id/window", dispatcher.WindowStatus)
	api.GET("/orders/:id/stream", streams.OrderStatus)

	api.POST("/restaurant/orders/:id/ready", restaurant.MarkReady)
	api.GET("/restaurant/orders", restaurant.Queue)

	api.POST("/couriers", courierH.Register)
	api.GET("/couriers/:id", courierH.Profile)
	api.PUT("/couriers/:id/position", courierH.ReportPosition)
	api.GET("/couriers/:id/stats", courierH.Stats)
	api.GET("/couriers/:id/orders", courierH.Assigned)
	api.GET("/couriers/:id/stream", streams.Assignments)
	api.GET("/courier/orders/available", courierH.Available)
	api.GET("/courier/orders/stream", streams.NewOrders)
	api.POST("/courier/orders/:id/interest", courierH.RegisterInterest)
	api.POST("/courier/orders/:id/delivered", courierH.MarkDelivered)

	api.GET("/dispatch/pending", dispatcher.PendingDecisions)
	api.POST("/dispatch/orders/:id/assign", dispatcher.Decide)
	api.POST("/dispatch/orders/:id/reopen", dispatcher.Reopen)
	api.GET("/dispatch/events", streams.Events)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
