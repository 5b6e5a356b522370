package location

import (
	"context"
	"errors"
	"fmt"
	"time"
)

//go:generate mockgen -destination=mocks/mock_locator.go -package=mocks trafficaz/internal/location Locator

// ErrPermissionDenied is returned when the user has not granted location access.
var ErrPermissionDenied = errors.New("location permission denied")

// Fix is a single position reading.
type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"` // meters
	Timestamp time.Time `json:"timestamp"`
}

func (f Fix) String() string {
	return fmt.Sprintf("%.5f,%.5f", f.Latitude, f.Longitude)
}

// Locator returns the current position. Fixes are requested per command and
// never cached by callers.
type Locator interface {
	Locate(ctx context.Context) (Fix, error)
}

// Static reports a configured position, stamped with the time of the call.
type Static struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Now       func() time.Time
}

func (s Static) Locate(ctx context.Context) (Fix, error) {
	if err := ctx.Err(); err != nil {
		return Fix{}, err
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	return Fix{
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Accuracy:  s.Accuracy,
		Timestamp: now(),
	}, nil
}

// Denied always refuses, as a device without location permission does.
type Denied struct{}

func (Denied) Locate(context.Context) (Fix, error) {
	return Fix{}, ErrPermissionDenied
}
