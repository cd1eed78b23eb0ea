// internal/render/render.go

// Package render formats normalized weather reports for terminal output.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mvenner/skycast/internal/wttr"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginTop(1)
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 2)
)

func row(label, value string) string {
	return labelStyle.Render(label) + " " + valueStyle.Render(value)
}

// Report renders a weather report as a bordered terminal block.
func Report(weather *wttr.Weather) string {
	if weather == nil {
		return ""
	}

	var b strings.Builder

	location := weather.Location.City
	if weather.Location.Country != "" {
		location += ", " + weather.Location.Country
	}
	b.WriteString(titleStyle.Render(location))
	b.WriteString("\n\n")

	cur := weather.Current
	b.WriteString(row("Condition", cur.Condition))
	b.WriteString("\n")
	b.WriteString(row("Temperature", fmt.Sprintf("%.0f°C / %.0f°F", cur.TemperatureC, cur.TemperatureF)))
	b.WriteString("\n")
	if cur.FeelsLikeC != nil && cur.FeelsLikeF != nil {
		b.WriteString(row("Feels like", fmt.Sprintf("%.0f°C / %.0f°F", *cur.FeelsLikeC, *cur.FeelsLikeF)))
		b.WriteString("\n")
	}
	b.WriteString(row("Humidity", fmt.Sprintf("%.0f%%", cur.HumidityPct)))
	b.WriteString("\n")
	wind := fmt.Sprintf("%.0f km/h", cur.WindSpeedKmh)
	if cur.WindDirectionDeg != nil {
		wind += fmt.Sprintf(" (%.0f°)", *cur.WindDirectionDeg)
	}
	b.WriteString(row("Wind", wind))
	if cur.Pressure != nil {
		b.WriteString("\n")
		b.WriteString(row("Pressure", fmt.Sprintf("%.0f hPa", *cur.Pressure)))
	}
	if cur.Visibility != nil {
		b.WriteString("\n")
		b.WriteString(row("Visibility", fmt.Sprintf("%.0f km", *cur.Visibility)))
	}
	if cur.UVIndex != nil {
		b.WriteString("\n")
		b.WriteString(row("UV index", fmt.Sprintf("%.0f", *cur.UVIndex)))
	}

	if len(weather.Forecast) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("Forecast"))
		for _, day := range weather.Forecast {
			b.WriteString("\n")
			line := fmt.Sprintf("%.0f–%.0f°C  %s", day.MinTempC, day.MaxTempC, day.Condition)
			b.WriteString(row(day.Date, line))
		}
	}

	return boxStyle.Render(b.String())
}
