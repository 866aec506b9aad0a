// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"ridewave/internal/http/handlers"
	"ridewave/internal/http/middleware"
	"ridewave/internal/modules/notify"
	"ridewave/internal/modules/user"
)

type RouterDeps struct {
	Rides   handlers.RideService
	Push    notify.Sender
	Auth    middleware.Authenticator
	Gateway http.Handler
	Metrics http.Handler
	Log     zerolog.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logging(deps.Log), middleware.Recovery(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}
	if deps.Gateway != nil {
		r.GET("/ws", gin.WrapH(deps.Gateway))
	}

	rideHandler := handlers.NewRideHandler(deps.Rides)
	r.POST("/api/fares/quote", rideHandler.Quote)

	api := r.Group("/api", middleware.Auth(deps.Auth))
	api.POST("/rides", middleware.RequireRole(user.RoleCustomer), rideHandler.Create)
	api.GET("/rides/:id", rideHandler.Get)

	notificationHandler := handlers.NewNotificationHandler(deps.Push)
	api.POST("/notifications", notificationHandler.Send)

	return r
}
