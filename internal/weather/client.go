package weather

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"trafficaz/internal/backend"
	"trafficaz/internal/location"
)

// Client is the REST weather source.
type Client struct {
	api *backend.Client
}

func NewClient(api *backend.Client) *Client {
	return &Client{api: api}
}

func coords(fix location.Fix) url.Values {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(fix.Latitude, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(fix.Longitude, 'f', 6, 64))
	return q
}

func (c *Client) Current(ctx context.Context, fix location.Fix) (Current, error) {
	var out Current
	if err := c.api.Get(ctx, "/weather/current", coords(fix), &out); err != nil {
		return Current{}, fmt.Errorf("current weather: %w", err)
	}
	return out, nil
}

func (c *Client) Forecast(ctx context.Context, fix location.Fix, hours int) ([]Period, error) {
	q := coords(fix)
	q.Set("hours", strconv.Itoa(hours))

	var out struct {
		Periods []Period `json:"periods"`
	}
	if err := c.api.Get(ctx, "/weather/forecast", q, &out); err != nil {
		return nil, fmt.Errorf("weather forecast: %w", err)
	}
	return out.Periods, nil
}
