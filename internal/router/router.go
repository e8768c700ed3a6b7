package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/screening-seat-engine/internal/handler"
	"github.com/iliyamo/screening-seat-engine/internal/middleware"
	"github.com/iliyamo/screening-seat-engine/internal/utils"
)

// RegisterRoutes registers routes that need no identity at all.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterScreenings registers the public seat endpoints.  limiter guards
// the mutating routes and cache wraps the catalog read; either may be a
// pass-through when redis is unavailable.
func RegisterScreenings(e *echo.Echo, h *handler.ScreeningHandler, limiter, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/screenings", middleware.ClientToken())
	g.GET("/:id", h.GetScreening, cache)
	g.GET("/:id/seat-map", h.SeatMap)
	g.POST("/:id/hold", h.Hold, limiter)
	g.POST("/:id/release", h.Release, limiter)
	g.POST("/:id/reserve", h.Reserve, limiter)
}

// RegisterLive registers the websocket change stream.  Both spellings of
// the path are accepted since some clients drop the trailing slash.
func RegisterLive(e *echo.Echo, h *handler.LiveHandler) {
	e.GET("/ws/screenings/:id/", h.Stream)
	e.GET("/ws/screenings/:id", h.Stream)
}

// RegisterAdmin registers the operator endpoints.  Login is open; the
// rest require an ADMIN access token.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	e.POST("/v1/admin/login", h.Login)
	g := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleAdmin),
	)
	g.GET("/screenings/:id/reservations", h.Reservations)
}
