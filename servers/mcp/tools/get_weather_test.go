package tools

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mvenner/skycast/internal/wttr"
)

const stubJ1 = `{
  "current_condition": [{
    "temp_C": "15", "temp_F": "59",
    "FeelsLikeC": "14", "FeelsLikeF": "57",
    "weatherDesc": [{"value": "Cloudy"}],
    "humidity": "70",
    "windspeedKmph": "13", "windspeedMiles": "8",
    "winddirDegree": "230",
    "pressure": "1012", "visibility": "10", "uvIndex": "4"
  }],
  "nearest_area": [{
    "areaName": [{"value": "London"}],
    "country": [{"value": "United Kingdom"}],
    "region": [{"value": "City of London, Greater London"}]
  }],
  "weather": []
}`

func withStubProvider(t *testing.T, status int, body string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	prevClient, prevTimeout := weatherClient, weatherTimeout
	SetWeatherClient(wttr.NewClient(wttr.ClientOptions{BaseURL: srv.URL}), 5*time.Second)
	t.Cleanup(func() {
		srv.Close()
		weatherClient, weatherTimeout = prevClient, prevTimeout
	})
}

func TestValidateGetWeatherData(t *testing.T) {
	valid := `{"arguments":{"city":"London"}}`
	ok, err := ValidateGetWeatherData(valid)
	if err != nil || !ok {
		t.Fatalf("expected valid payload, got ok=%v err=%v", ok, err)
	}

	missingArgs := `{"foo":"bar"}`
	ok, err = ValidateGetWeatherData(missingArgs)
	if err == nil || ok {
		t.Fatalf("expected invalid payload, got ok=%v err=%v", ok, err)
	}

	wrongType := `{"arguments":{"city":42}}`
	ok, err = ValidateGetWeatherData(wrongType)
	if err == nil || ok {
		t.Fatalf("expected schema rejection, got ok=%v err=%v", ok, err)
	}
}

func TestGetWeatherArgumentErrors(t *testing.T) {
	if _, err := GetWeather(map[string]any{}); err == nil {
		t.Fatal("expected error for missing city")
	}
	if _, err := GetWeather(map[string]any{"city": 7}); err == nil {
		t.Fatal("expected error for non-string city")
	}
	if _, err := GetWeather(map[string]any{"city": "  "}); err == nil {
		t.Fatal("expected error for empty city")
	}
}

func TestGetWeatherReturnsJSONAndInterpretParts(t *testing.T) {
	withStubProvider(t, http.StatusOK, stubJ1)

	parts, err := GetWeather(map[string]any{"city": "London"})
	if err != nil {
		t.Fatalf("GetWeather returned error: %v", err)
	}
	if len(parts) != 2 || parts[0].Type != "json" || parts[1].Type != "interpret" {
		t.Fatalf("expected json+interpret parts, got %+v", parts)
	}

	var weather wttr.Weather
	if err := json.Unmarshal([]byte(parts[0].Text), &weather); err != nil {
		t.Fatalf("json part does not decode: %v", err)
	}
	if weather.Location.City != "London" || weather.Current.Condition != "Cloudy" {
		t.Fatalf("unexpected weather payload: %+v", weather)
	}
}

func TestGetWeatherSurfacesLookupFailure(t *testing.T) {
	withStubProvider(t, http.StatusBadGateway, "oops")

	_, err := GetWeather(map[string]any{"city": "London"})
	if err == nil {
		t.Fatal("expected error from failing provider")
	}
	if !strings.HasPrefix(err.Error(), "Failed to get weather for London: ") {
		t.Fatalf("unexpected diagnostic: %q", err.Error())
	}
}

func TestCatalogListsAllTools(t *testing.T) {
	defs := Catalog()
	if len(defs) != 3 {
		t.Fatalf("expected 3 tool definitions, got %d", len(defs))
	}
	names := map[string]bool{}
	for _, def := range defs {
		names[def.Name] = true
	}
	for _, want := range []string{AvailableToolsName, CurrentTimeName, GetWeatherName} {
		if !names[want] {
			t.Fatalf("catalog missing %q", want)
		}
	}
}

func TestAvailableToolsPayload(t *testing.T) {
	parts, err := AvailableTools(map[string]any{})
	if err != nil {
		t.Fatalf("AvailableTools returned error: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("expected 2 content parts, got %d", len(parts))
	}
	if !strings.Contains(parts[0].Text, GetWeatherName) {
		t.Fatalf("expected weather tool in payload, got %s", parts[0].Text)
	}
}
