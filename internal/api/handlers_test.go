package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvenner/skycast/internal/wttr"
)

type stubWeatherService struct {
	weather *wttr.Weather
	err     error

	gotQuery  string
	gotDetail wttr.Detail
}

func (s *stubWeatherService) Lookup(_ context.Context, query string, detail wttr.Detail) (*wttr.Weather, error) {
	s.gotQuery = query
	s.gotDetail = detail
	return s.weather, s.err
}

func newTestRouter(svc *stubWeatherService) http.Handler {
	return NewRouter(NewHandlers(svc, wttr.DetailFull), 1000)
}

func TestGetWeatherSuccess(t *testing.T) {
	svc := &stubWeatherService{
		weather: &wttr.Weather{
			Location: wttr.Location{City: "London", Country: "United Kingdom"},
			Current:  wttr.Current{TemperatureC: 15, Condition: "Cloudy", HumidityPct: 70},
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/weather/London", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "London", svc.gotQuery)
	assert.Equal(t, wttr.DetailFull, svc.gotDetail)

	var resp struct {
		Success bool         `json:"success"`
		Data    wttr.Weather `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "London", resp.Data.Location.City)
	assert.Equal(t, "Cloudy", resp.Data.Current.Condition)
}

func TestGetWeatherPathEscapedCity(t *testing.T) {
	svc := &stubWeatherService{weather: &wttr.Weather{}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/weather/New%20York", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "New York", svc.gotQuery)
}

func TestGetWeatherFailure(t *testing.T) {
	svc := &stubWeatherService{
		err: errors.New("Failed to get weather for Atlantis: no current conditions in response"),
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/weather/Atlantis", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Failed to get weather for Atlantis: no current conditions in response", resp.Error)
}

func TestGetTools(t *testing.T) {
	router := newTestRouter(&stubWeatherService{})

	req := httptest.NewRequest(http.MethodGet, "/api/tools", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	names := map[string]bool{}
	for _, tool := range resp.Data.Tools {
		names[tool.Name] = true
	}
	assert.True(t, names["get_weather"], "catalog should advertise get_weather, got %v", names)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&stubWeatherService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestRateLimitRejectsBursts(t *testing.T) {
	router := NewRouter(NewHandlers(&stubWeatherService{}, wttr.DetailFull), 2)

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
