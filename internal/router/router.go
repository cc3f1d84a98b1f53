package router // package router registers the HTTP routes of the booking server

import (
	"github.com/labstack/echo/v4"

	"github.com/Yusuf8760/bus-booking-frontend/internal/handler"
	"github.com/Yusuf8760/bus-booking-frontend/internal/middleware"
)

// Middlewares are the optional Redis-backed middlewares.  A nil entry is
// skipped.
type Middlewares struct {
	RateLimit echo.MiddlewareFunc
	BusCache  echo.MiddlewareFunc
}

// RegisterRoutes registers the unauthenticated probes.
func RegisterRoutes(e *echo.Echo, ready *handler.ReadyHandler) {
	e.GET("/healthz", handler.Health)
	if ready != nil {
		e.GET("/readyz", ready.Ready)
	}
}

// RegisterSession registers the booking API.  Starting a session and
// listing buses need no token; everything under /v1/session runs behind
// SessionAuth.
func RegisterSession(e *echo.Echo, h *handler.SessionHandler, jwtSecret string, mw Middlewares) {
	public := e.Group("/v1", compact(mw.RateLimit)...)
	public.POST("/sessions", h.CreateSession)
	public.GET("/buses", h.ListBuses, compact(mw.BusCache)...)

	// Auth runs before the limiter so buckets are keyed by session.
	s := e.Group("/v1/session", compact(middleware.SessionAuth(jwtSecret), mw.RateLimit)...)
	s.GET("", h.State)
	s.DELETE("", h.EndSession)
	s.POST("/bus", h.SelectBus)
	s.GET("/seats", h.Seats)
	s.POST("/seats/refresh", h.RefreshSeats)
	s.POST("/seats/:id/toggle", h.ToggleSeat)
	s.POST("/checkout", h.Checkout)
	s.GET("/checkout-options", h.CheckoutOptions)
	s.POST("/payment/callback", h.PaymentCallback)
	s.POST("/cancel", h.Cancel)
	s.GET("/bookings", h.Bookings)
}

func compact(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := mws[:0]
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
