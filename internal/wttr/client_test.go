package wttr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fixtureJ1 mirrors the provider's j1 document for London: one
// current-condition entry, one nearest-area entry, four forecast days.
const fixtureJ1 = `{
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
  "weather": [
    {"date": "2026-08-24", "maxtempC": "21", "mintempC": "13", "maxtempF": "70", "mintempF": "55",
     "hourly": [{"weatherDesc": [{"value": "Partly cloudy"}]}]},
    {"date": "2026-08-25", "maxtempC": "22", "mintempC": "14", "maxtempF": "72", "mintempF": "57",
     "hourly": [{"weatherDesc": [{"value": "Sunny"}]}]},
    {"date": "2026-08-26", "maxtempC": "19", "mintempC": "12", "maxtempF": "66", "mintempF": "54",
     "hourly": [{"weatherDesc": [{"value": "Light rain"}]}]},
    {"date": "2026-08-27", "maxtempC": "18", "mintempC": "11", "maxtempF": "64", "mintempF": "52",
     "hourly": [{"weatherDesc": [{"value": "Overcast"}]}]}
  ]
}`

func newStubServer(t *testing.T, status int, body string) (*httptest.Server, *[]*http.Request) {
	t.Helper()
	var seen []*http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clone := r.Clone(r.Context())
		seen = append(seen, clone)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestRequestURLEncodesQuery(t *testing.T) {
	c := NewClient(ClientOptions{BaseURL: "https://wttr.in"})
	got := c.RequestURL("New York")
	want := "https://wttr.in/New%20York?format=j1"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	// Same query, same URL: the builder is a pure function of its input.
	if again := c.RequestURL("New York"); again != got {
		t.Fatalf("expected stable URL, got %q then %q", got, again)
	}
}

func TestFetchIssuesExactlyOneRequest(t *testing.T) {
	srv, seen := newStubServer(t, http.StatusOK, fixtureJ1)
	c := NewClient(ClientOptions{BaseURL: srv.URL, UserAgent: "curl/7.68.0"})

	report, err := c.Fetch(context.Background(), "New York")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if report == nil || len(report.CurrentCondition) != 1 {
		t.Fatalf("expected decoded report with one current condition")
	}
	if len(*seen) != 1 {
		t.Fatalf("expected exactly one outbound request, got %d", len(*seen))
	}
	req := (*seen)[0]
	if req.URL.EscapedPath() != "/New%20York" {
		t.Fatalf("expected URL-encoded path segment, got %q", req.URL.EscapedPath())
	}
	if req.URL.Query().Get("format") != "j1" {
		t.Fatalf("expected format=j1, got %q", req.URL.RawQuery)
	}
	if req.Header.Get("User-Agent") != "curl/7.68.0" {
		t.Fatalf("expected curl User-Agent, got %q", req.Header.Get("User-Agent"))
	}
}

func TestFetchEmptyQuery(t *testing.T) {
	c := NewClient(ClientOptions{})
	if _, err := c.Fetch(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestFetchNetworkFailure(t *testing.T) {
	srv, _ := newStubServer(t, http.StatusOK, fixtureJ1)
	srv.Close()
	c := NewClient(ClientOptions{BaseURL: srv.URL})

	_, err := c.Fetch(context.Background(), "London")
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestFetchNonOKStatusIsNetworkError(t *testing.T) {
	srv, _ := newStubServer(t, http.StatusServiceUnavailable, "nope")
	c := NewClient(ClientOptions{BaseURL: srv.URL})

	_, err := c.Fetch(context.Background(), "London")
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError for non-200 status, got %v", err)
	}
}

func TestFetchNonJSONBodyIsParseError(t *testing.T) {
	srv, _ := newStubServer(t, http.StatusOK, "<html>not json</html>")
	c := NewClient(ClientOptions{BaseURL: srv.URL})

	_, err := c.Fetch(context.Background(), "London")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestLookupEndToEnd(t *testing.T) {
	srv, _ := newStubServer(t, http.StatusOK, fixtureJ1)
	c := NewClient(ClientOptions{BaseURL: srv.URL})

	weather, err := c.Lookup(context.Background(), "London", DetailFull)
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if weather.Location.City != "London" || weather.Location.Country != "United Kingdom" {
		t.Fatalf("unexpected location: %+v", weather.Location)
	}
	if weather.Current.TemperatureC != 15 || weather.Current.TemperatureF != 59 {
		t.Fatalf("unexpected temperatures: %+v", weather.Current)
	}
	if weather.Current.Condition != "Cloudy" || weather.Current.HumidityPct != 70 {
		t.Fatalf("unexpected condition/humidity: %+v", weather.Current)
	}
	if len(weather.Forecast) != 3 {
		t.Fatalf("expected forecast truncated to 3 days, got %d", len(weather.Forecast))
	}
}

func TestLookupFailureMessageForm(t *testing.T) {
	srv, _ := newStubServer(t, http.StatusOK, "not json")
	c := NewClient(ClientOptions{BaseURL: srv.URL})

	_, err := c.Lookup(context.Background(), "London", DetailFull)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "Failed to get weather for London: ") {
		t.Fatalf("unexpected diagnostic form: %q", err.Error())
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected wrapped ParseError, got %v", err)
	}
}
