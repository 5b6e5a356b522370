package traffic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficaz/internal/backend"
	"trafficaz/internal/location"
)

var melen = location.Fix{Latitude: 3.8634, Longitude: 11.4982, Accuracy: 15}

func TestSimulatedIsDeterministicPerSeed(t *testing.T) {
	a := NewSimulated(7, 0)
	b := NewSimulated(7, 0)

	ca, err := a.Conditions(context.Background(), melen, "Melen")
	require.NoError(t, err)
	cb, err := b.Conditions(context.Background(), melen, "Melen")
	require.NoError(t, err)

	assert.Equal(t, ca.Level, cb.Level)
	assert.Equal(t, ca.DelayMinutes, cb.DelayMinutes)
	assert.Equal(t, "Melen", ca.Destination)
	assert.Contains(t, levels, ca.Level)
}

func TestSimulatedAlertsWithinRadius(t *testing.T) {
	s := NewSimulated(3, 0)
	for range 20 {
		alerts, err := s.Alerts(context.Background(), melen, 2)
		require.NoError(t, err)
		for _, a := range alerts {
			assert.NotEmpty(t, a.ID)
			assert.LessOrEqual(t, a.DistanceKm, 2.0)
		}
	}
}

func TestSimulatedHonoursContext(t *testing.T) {
	s := NewSimulated(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Route(ctx, melen, "Work")
	assert.ErrorIs(t, err, context.Canceled)
}

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	api, err := backend.New(srv.URL, "tok", srv.Client())
	require.NoError(t, err)
	return NewClient(api)
}

func TestClientConditions(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/traffic/analyze", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var in tripRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "Melen", in.Destination)
		assert.InDelta(t, 3.8634, in.Latitude, 1e-9)

		_ = json.NewEncoder(w).Encode(Conditions{Level: LevelHeavy, DelayMinutes: 22})
	})

	got, err := c.Conditions(context.Background(), melen, "Melen")
	require.NoError(t, err)
	assert.Equal(t, LevelHeavy, got.Level)
	assert.Equal(t, 22, got.DelayMinutes)
	assert.Equal(t, "Melen", got.Destination)
}

func TestClientAlerts(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/traffic/alerts", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("radius_km"))
		_, _ = w.Write([]byte(`{"alerts":[{"id":"a1","kind":"accident","distance_km":1.2}]}`))
	})

	alerts, err := c.Alerts(context.Background(), melen, 5)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "accident", alerts[0].Kind)
}

func TestClientSubmitError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"reports disabled"}`))
	})

	_, err := c.Submit(context.Background(), Report{Kind: "accident", Fix: melen})
	var apiErr *backend.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "reports disabled", apiErr.Message)
}

func TestClientRoute(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/traffic/route-check", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"moderate","eta_minutes":25,"incidents":1}`))
	})

	got, err := c.Route(context.Background(), melen, "Work")
	require.NoError(t, err)
	assert.Equal(t, Route{Destination: "Work", Status: LevelModerate, EtaMinutes: 25, Incidents: 1}, got)
}
