// internal/api/handlers.go
// Package api exposes the weather core over REST. Every response uses the
// {success, data|error} envelope; all core failures map to HTTP 500.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mvenner/skycast/internal/logging"
	"github.com/mvenner/skycast/internal/wttr"
	"github.com/mvenner/skycast/servers/mcp/tools"
)

// WeatherService is the single operation the REST surface needs from the core.
type WeatherService interface {
	Lookup(ctx context.Context, query string, detail wttr.Detail) (*wttr.Weather, error)
}

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	weather WeatherService
	detail  wttr.Detail
}

// NewHandlers constructs Handlers around the weather core.
func NewHandlers(weather WeatherService, detail wttr.Detail) *Handlers {
	return &Handlers{weather: weather, detail: detail}
}

// envelope is the REST response wrapper shared by every endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GetWeather handles GET /api/weather/{city}.
func (h *Handlers) GetWeather(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")

	weather, err := h.weather.Lookup(r.Context(), city, h.detail)
	if err != nil {
		logging.LogEvent("REST lookup failed: city=%s err=%v", city, err)
		writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: weather})
}

// GetTools handles GET /api/tools with the static tool catalog.
func (h *Handlers) GetTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{"tools": tools.Catalog()}})
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
