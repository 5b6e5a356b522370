// Package weather fetches current conditions and forecasts and grades how
// they affect driving.
package weather

import (
	"context"
	"time"

	"trafficaz/internal/location"
)

//go:generate mockgen -destination=mocks/mock_source.go -package=mocks trafficaz/internal/weather Source

// Condition is a coarse weather category.
type Condition string

const (
	Clear        Condition = "clear"
	Cloudy       Condition = "cloudy"
	Rain         Condition = "rain"
	Thunderstorm Condition = "thunderstorm"
	Fog          Condition = "fog"
)

// Current is the weather now.
type Current struct {
	TemperatureC    float64   `json:"temperature_c"`
	Condition       Condition `json:"condition"`
	Description     string    `json:"description"`
	Humidity        int       `json:"humidity"`
	WindKmh         float64   `json:"wind_kmh"`
	VisibilityKm    float64   `json:"visibility_km"`
	PrecipitationMm float64   `json:"precipitation_mm"`
	ObservedAt      time.Time `json:"observed_at"`
}

// Period is one forecast step.
type Period struct {
	At                  time.Time `json:"at"`
	TemperatureC        float64   `json:"temperature_c"`
	Condition           Condition `json:"condition"`
	PrecipitationChance int       `json:"precipitation_chance"`
}

// Source answers weather questions.
type Source interface {
	Current(ctx context.Context, fix location.Fix) (Current, error)
	Forecast(ctx context.Context, fix location.Fix, hours int) ([]Period, error)
}
