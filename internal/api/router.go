// internal/api/router.go
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// NewRouter builds and returns the chi router with all routes configured.
// Rate limiting is applied globally, per client IP, per minute.
func NewRouter(handlers *Handlers, requestsPerMinute int) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httprate.LimitByIP(requestsPerMinute, time.Minute))

	r.Get("/health", Health)
	r.Get("/api/tools", handlers.GetTools)
	r.Get("/api/weather/{city}", handlers.GetWeather)

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
