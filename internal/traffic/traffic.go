// Package traffic talks to the traffic analysis backend.
package traffic

import (
	"context"
	"time"

	"trafficaz/internal/location"
)

//go:generate mockgen -destination=mocks/mock_source.go -package=mocks trafficaz/internal/traffic Source

// Level grades congestion.
type Level string

const (
	LevelLight    Level = "light"
	LevelModerate Level = "moderate"
	LevelHeavy    Level = "heavy"
	LevelSevere   Level = "severe"
)

// Conditions is the traffic analysis for a trip.
type Conditions struct {
	Destination     string    `json:"destination"`
	Level           Level     `json:"level"`
	DelayMinutes    int       `json:"delay_minutes"`
	AverageSpeedKmh float64   `json:"average_speed_kmh"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Alert is an active incident near the user.
type Alert struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	Description string  `json:"description"`
	Location    string  `json:"location"`
	DistanceKm  float64 `json:"distance_km"`
	Severity    Level   `json:"severity"`
}

// Report is an incident submitted by the user.
type Report struct {
	Kind       string       `json:"kind"`
	Transcript string       `json:"transcript"`
	Fix        location.Fix `json:"fix"`
}

// Route is the state of the trip to a destination.
type Route struct {
	Destination string `json:"destination"`
	Status      Level  `json:"status"`
	EtaMinutes  int    `json:"eta_minutes"`
	Incidents   int    `json:"incidents"`
	Suggestion  string `json:"suggestion,omitempty"`
}

// Source answers traffic questions.
type Source interface {
	Conditions(ctx context.Context, fix location.Fix, destination string) (Conditions, error)
	Alerts(ctx context.Context, fix location.Fix, radiusKm float64) ([]Alert, error)
	Submit(ctx context.Context, r Report) (string, error)
	Route(ctx context.Context, fix location.Fix, destination string) (Route, error)
}
