// internal/wttr/types.go
package wttr

// The j1 schema wraps nearly every scalar attribute in a one-element array
// of {"value": ...} objects. rawValue models that wrapper; firstValue in
// normalize.go unwraps it.

type rawValue struct {
	Value string `json:"value"`
}

// RawWeatherReport is the provider's j1 document, decoded but not yet
// validated. Only the fields the normalizer reads are declared; everything
// else in the body is dropped during decoding.
type RawWeatherReport struct {
	CurrentCondition []RawCurrentCondition `json:"current_condition"`
	NearestArea      []RawNearestArea      `json:"nearest_area"`
	Weather          []RawForecastDay      `json:"weather"`
}

// RawCurrentCondition is the provider's snapshot of present weather. All
// numeric attributes arrive as strings.
type RawCurrentCondition struct {
	TempC          string     `json:"temp_C"`
	TempF          string     `json:"temp_F"`
	FeelsLikeC     string     `json:"FeelsLikeC"`
	FeelsLikeF     string     `json:"FeelsLikeF"`
	WeatherDesc    []rawValue `json:"weatherDesc"`
	Humidity       string     `json:"humidity"`
	WindspeedKmph  string     `json:"windspeedKmph"`
	WindspeedMiles string     `json:"windspeedMiles"`
	WinddirDegree  string     `json:"winddirDegree"`
	Pressure       string     `json:"pressure"`
	Visibility     string     `json:"visibility"`
	UVIndex        string     `json:"uvIndex"`
}

// RawNearestArea is the provider's resolved location metadata for the
// free-text query.
type RawNearestArea struct {
	AreaName []rawValue `json:"areaName"`
	Country  []rawValue `json:"country"`
	Region   []rawValue `json:"region"`
}

// RawForecastDay is one day of the provider's daily forecast collection.
type RawForecastDay struct {
	Date     string      `json:"date"`
	MaxTempC string      `json:"maxtempC"`
	MinTempC string      `json:"mintempC"`
	MaxTempF string      `json:"maxtempF"`
	MinTempF string      `json:"mintempF"`
	Hourly   []RawHourly `json:"hourly"`
}

// RawHourly carries the per-hour weather description used as a day's
// representative condition.
type RawHourly struct {
	WeatherDesc []rawValue `json:"weatherDesc"`
}

// Weather is the normalized, adapter-agnostic document every surface
// returns. It is a value object owned by the calling adapter for one
// request cycle; nothing here is cached or shared.
type Weather struct {
	Location Location        `json:"location"`
	Current  Current         `json:"current"`
	Forecast []ForecastEntry `json:"forecast,omitempty"`
}

// Location identifies the resolved place for the query.
type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
	Region  string `json:"region"`
}

// Current holds present conditions. The always-present fields cover the
// minimal detail level; the pointer fields are populated only at full
// detail and omitted from JSON otherwise.
type Current struct {
	TemperatureC     float64  `json:"temperature_c"`
	TemperatureF     float64  `json:"temperature_f"`
	Condition        string   `json:"condition"`
	HumidityPct      float64  `json:"humidity_pct"`
	WindSpeedKmh     float64  `json:"wind_speed_kmh"`
	WindSpeedMph     float64  `json:"wind_speed_mph"`
	FeelsLikeC       *float64 `json:"feels_like_c,omitempty"`
	FeelsLikeF       *float64 `json:"feels_like_f,omitempty"`
	WindDirectionDeg *float64 `json:"wind_direction_deg,omitempty"`
	Pressure         *float64 `json:"pressure,omitempty"`
	Visibility       *float64 `json:"visibility,omitempty"`
	UVIndex          *float64 `json:"uv_index,omitempty"`
}

// ForecastEntry is one normalized forecast day, in provider order.
type ForecastEntry struct {
	Date     string  `json:"date"`
	MaxTempC float64 `json:"max_temp_c"`
	MinTempC float64 `json:"min_temp_c"`
	MaxTempF float64 `json:"max_temp_f"`
	MinTempF float64 `json:"min_temp_f"`
	Condition string `json:"condition"`
}
