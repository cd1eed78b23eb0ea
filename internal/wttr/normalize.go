// internal/wttr/normalize.go
package wttr

import (
	"fmt"
	"strconv"
	"strings"
)

// Detail selects how much of the provider document Normalize projects into
// the result.
type Detail int

const (
	// DetailMinimal covers location, temperature, condition, humidity and
	// wind speed.
	DetailMinimal Detail = iota
	// DetailFull covers every current-condition field plus the short-range
	// forecast.
	DetailFull
)

// maxForecastDays caps the normalized forecast; the provider returns more
// days than the adapters expose.
const maxForecastDays = 3

// ParseDetail maps a configuration string onto a Detail level.
func ParseDetail(s string) (Detail, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return DetailFull, nil
	case "minimal":
		return DetailMinimal, nil
	}
	return DetailFull, fmt.Errorf("unknown detail level %q (want minimal or full)", s)
}

func (d Detail) String() string {
	if d == DetailMinimal {
		return "minimal"
	}
	return "full"
}

// firstOf unwraps the provider's one-element collection convention. Every
// field access goes through it so an empty collection always surfaces as a
// MalformedPayloadError instead of a silent zero value.
func firstOf[T any](field string, seq []T) (T, error) {
	if len(seq) == 0 {
		var zero T
		return zero, &MalformedPayloadError{Field: field}
	}
	return seq[0], nil
}

// firstValue unwraps a [{"value": ...}] attribute to its scalar.
func firstValue(field string, seq []rawValue) (string, error) {
	v, err := firstOf(field, seq)
	if err != nil {
		return "", err
	}
	return v.Value, nil
}

// parseNumber converts one of the provider's stringly-typed numeric fields.
// Provider precision is kept as-is; nothing is rounded. A non-numeric value
// is a payload defect, not a parse error, because the body already decoded
// as JSON.
func parseNumber(field, s string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &MalformedPayloadError{Field: fmt.Sprintf("%s=%q", field, s)}
	}
	return n, nil
}

// Normalize projects a raw j1 report into the stable Weather shape. It is a
// pure function: no I/O, no retained state, and it never returns a
// partially-filled document alongside an error.
func Normalize(report *RawWeatherReport, detail Detail) (*Weather, error) {
	if report == nil {
		return nil, &MalformedPayloadError{Field: "report"}
	}

	cond, err := firstOf("current_condition", report.CurrentCondition)
	if err != nil {
		return nil, err
	}
	area, err := firstOf("nearest_area", report.NearestArea)
	if err != nil {
		return nil, err
	}

	loc, err := normalizeLocation(area)
	if err != nil {
		return nil, err
	}
	current, err := normalizeCurrent(cond, detail)
	if err != nil {
		return nil, err
	}

	weather := &Weather{Location: loc, Current: current}

	if detail == DetailFull {
		forecast, err := normalizeForecast(report.Weather)
		if err != nil {
			return nil, err
		}
		weather.Forecast = forecast
	}

	return weather, nil
}

func normalizeLocation(area RawNearestArea) (Location, error) {
	city, err := firstValue("nearest_area.areaName", area.AreaName)
	if err != nil {
		return Location{}, err
	}
	country, err := firstValue("nearest_area.country", area.Country)
	if err != nil {
		return Location{}, err
	}
	region, err := firstValue("nearest_area.region", area.Region)
	if err != nil {
		return Location{}, err
	}
	return Location{City: city, Country: country, Region: region}, nil
}

func normalizeCurrent(cond RawCurrentCondition, detail Detail) (Current, error) {
	condition, err := firstValue("current_condition.weatherDesc", cond.WeatherDesc)
	if err != nil {
		return Current{}, err
	}

	var current Current
	current.Condition = condition

	numbers := []struct {
		field string
		raw   string
		dst   *float64
	}{
		{"current_condition.temp_C", cond.TempC, &current.TemperatureC},
		{"current_condition.temp_F", cond.TempF, &current.TemperatureF},
		{"current_condition.humidity", cond.Humidity, &current.HumidityPct},
		{"current_condition.windspeedKmph", cond.WindspeedKmph, &current.WindSpeedKmh},
		{"current_condition.windspeedMiles", cond.WindspeedMiles, &current.WindSpeedMph},
	}
	for _, n := range numbers {
		v, err := parseNumber(n.field, n.raw)
		if err != nil {
			return Current{}, err
		}
		*n.dst = v
	}

	if detail != DetailFull {
		return current, nil
	}

	extras := []struct {
		field string
		raw   string
		dst   **float64
	}{
		{"current_condition.FeelsLikeC", cond.FeelsLikeC, &current.FeelsLikeC},
		{"current_condition.FeelsLikeF", cond.FeelsLikeF, &current.FeelsLikeF},
		{"current_condition.winddirDegree", cond.WinddirDegree, &current.WindDirectionDeg},
		{"current_condition.pressure", cond.Pressure, &current.Pressure},
		{"current_condition.visibility", cond.Visibility, &current.Visibility},
		{"current_condition.uvIndex", cond.UVIndex, &current.UVIndex},
	}
	for _, n := range extras {
		v, err := parseNumber(n.field, n.raw)
		if err != nil {
			return Current{}, err
		}
		*n.dst = &v
	}

	return current, nil
}

// normalizeForecast keeps at most the first three provider days, in order.
// The provider has no single best summary per day; the first hourly
// reading's weather description is the adopted tie-break. An empty provider
// collection yields an empty (non-nil) slice so the forecast contract stays
// "ordered sequence, possibly empty".
func normalizeForecast(days []RawForecastDay) ([]ForecastEntry, error) {
	limit := len(days)
	if limit > maxForecastDays {
		limit = maxForecastDays
	}

	entries := make([]ForecastEntry, 0, limit)
	for i := 0; i < limit; i++ {
		day := days[i]
		prefix := fmt.Sprintf("weather[%d]", i)

		hour, err := firstOf(prefix+".hourly", day.Hourly)
		if err != nil {
			return nil, err
		}
		condition, err := firstValue(prefix+".hourly.weatherDesc", hour.WeatherDesc)
		if err != nil {
			return nil, err
		}

		entry := ForecastEntry{Date: day.Date, Condition: condition}
		numbers := []struct {
			field string
			raw   string
			dst   *float64
		}{
			{prefix + ".maxtempC", day.MaxTempC, &entry.MaxTempC},
			{prefix + ".mintempC", day.MinTempC, &entry.MinTempC},
			{prefix + ".maxtempF", day.MaxTempF, &entry.MaxTempF},
			{prefix + ".mintempF", day.MinTempF, &entry.MinTempF},
		}
		for _, n := range numbers {
			v, err := parseNumber(n.field, n.raw)
			if err != nil {
				return nil, err
			}
			*n.dst = v
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
