package entities

import (
	"strings"
	"time"
)

// WeatherSnapshot is a point-in-time observation or forecast for a city.
// Wind speed is in m/s, precipitation in mm, pressure in hPa, temperature in Celsius.
type WeatherSnapshot struct {
	City                     string
	Temperature              float64
	Humidity                 float64
	Pressure                 float64
	WindSpeed                float64
	Clouds                   float64
	Precipitation            float64
	PrecipitationProbability float64 // forecasts only, 0..1
	Conditions               []string
	ObservedAt               time.Time
	IsForecast               bool
}

// ConditionText returns the lowercased condition descriptions joined by spaces
func (w *WeatherSnapshot) ConditionText() string {
	return strings.ToLower(strings.Join(w.Conditions, " "))
}
