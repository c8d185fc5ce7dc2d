// Package router registers the HTTP routes and their middleware.
package router

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/table-booking/internal/config"
	"github.com/iliyamo/table-booking/internal/handler"
	"github.com/iliyamo/table-booking/internal/middleware"
)

// Handlers bundles everything the routes dispatch to.  Realtime may be nil
// to run without the WebSocket endpoint.
type Handlers struct {
	Reservations *handler.ReservationHandler
	Occupancy    *handler.OccupancyHandler
	Settings     *handler.SettingsHandler
	Realtime     *handler.RealtimeHandler
	Health       echo.HandlerFunc
}

// Options carries the Redis-backed middleware settings.  A nil Redis client
// turns rate limiting and caching off.
type Options struct {
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Logger    *slog.Logger
}

// RegisterRoutes mounts the API under /api, the health check at /healthz and
// the WebSocket endpoint at /ws.
func RegisterRoutes(e *echo.Echo, h Handlers, opts Options) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(opts.Logger))
	e.Use(echomw.Recover())
	// The desktop app loads from file:// and the admin pages may be served
	// from another host.
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	}))

	health := h.Health
	if health == nil {
		health = handler.Health(nil)
	}
	e.GET("/healthz", health)

	if h.Realtime != nil {
		e.GET("/ws", h.Realtime.Connect)
	}

	api := e.Group("/api")
	api.Use(middleware.NewTokenBucket(opts.RateLimit, opts.Redis))

	res := api.Group("/reservations")
	res.Use(middleware.PurgeOnWrite(opts.Cache, opts.Redis))
	res.POST("", h.Reservations.Create)
	res.GET("", h.Reservations.List)
	res.GET("/:id", h.Reservations.Get)
	res.PUT("/:id", h.Reservations.Update)
	res.DELETE("/:id", h.Reservations.Cancel)

	api.POST("/notifications/reminder/:id", h.Reservations.Reminder)

	cached := middleware.NewRedisCache(opts.Cache, opts.Redis)
	api.GET("/occupancy", h.Occupancy.Get, cached)
	api.GET("/settings", h.Settings.Get, cached)
	api.PUT("/settings", h.Settings.Put, middleware.PurgeOnWrite(opts.Cache, opts.Redis))
}
