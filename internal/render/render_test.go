package render

import (
	"strings"
	"testing"

	"github.com/mvenner/skycast/internal/wttr"
)

func TestReportIncludesCoreFields(t *testing.T) {
	feels := 14.0
	weather := &wttr.Weather{
		Location: wttr.Location{City: "London", Country: "United Kingdom"},
		Current: wttr.Current{
			TemperatureC: 15,
			TemperatureF: 59,
			Condition:    "Cloudy",
			HumidityPct:  70,
			WindSpeedKmh: 13,
			FeelsLikeC:   &feels,
			FeelsLikeF:   &feels,
		},
		Forecast: []wttr.ForecastEntry{
			{Date: "2026-08-24", MinTempC: 11, MaxTempC: 18, Condition: "Sunny"},
		},
	}

	out := Report(weather)
	for _, want := range []string{"London, United Kingdom", "Cloudy", "70%", "Forecast", "2026-08-24", "Sunny"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestReportMinimalOmitsOptionalRows(t *testing.T) {
	weather := &wttr.Weather{
		Location: wttr.Location{City: "Oslo", Country: "Norway"},
		Current:  wttr.Current{TemperatureC: 3, Condition: "Snow", HumidityPct: 80},
	}

	out := Report(weather)
	if strings.Contains(out, "Feels like") || strings.Contains(out, "Pressure") || strings.Contains(out, "Forecast") {
		t.Fatalf("optional rows leaked into minimal report:\n%s", out)
	}
}

func TestReportNil(t *testing.T) {
	if out := Report(nil); out != "" {
		t.Fatalf("expected empty output for nil weather, got %q", out)
	}
}
