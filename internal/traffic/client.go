package traffic

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"trafficaz/internal/backend"
	"trafficaz/internal/location"
)

// Client is the REST traffic source.
type Client struct {
	api *backend.Client
}

func NewClient(api *backend.Client) *Client {
	return &Client{api: api}
}

type tripRequest struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Destination string  `json:"destination"`
}

func (c *Client) Conditions(ctx context.Context, fix location.Fix, destination string) (Conditions, error) {
	var out Conditions
	err := c.api.Post(ctx, "/traffic/analyze", tripRequest{
		Latitude:    fix.Latitude,
		Longitude:   fix.Longitude,
		Destination: destination,
	}, &out)
	if err != nil {
		return Conditions{}, fmt.Errorf("analyze traffic: %w", err)
	}
	if out.Destination == "" {
		out.Destination = destination
	}
	return out, nil
}

func (c *Client) Alerts(ctx context.Context, fix location.Fix, radiusKm float64) ([]Alert, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(fix.Latitude, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(fix.Longitude, 'f', 6, 64))
	q.Set("radius_km", strconv.FormatFloat(radiusKm, 'f', -1, 64))

	var out struct {
		Alerts []Alert `json:"alerts"`
	}
	if err := c.api.Get(ctx, "/traffic/alerts", q, &out); err != nil {
		return nil, fmt.Errorf("fetch alerts: %w", err)
	}
	return out.Alerts, nil
}

func (c *Client) Submit(ctx context.Context, r Report) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.api.Post(ctx, "/traffic/reports", r, &out); err != nil {
		return "", fmt.Errorf("submit report: %w", err)
	}
	return out.ID, nil
}

func (c *Client) Route(ctx context.Context, fix location.Fix, destination string) (Route, error) {
	var out Route
	err := c.api.Post(ctx, "/traffic/route-check", tripRequest{
		Latitude:    fix.Latitude,
		Longitude:   fix.Longitude,
		Destination: destination,
	}, &out)
	if err != nil {
		return Route{}, fmt.Errorf("check route: %w", err)
	}
	if out.Destination == "" {
		out.Destination = destination
	}
	return out, nil
}
