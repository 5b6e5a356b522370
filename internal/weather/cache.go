package weather

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"trafficaz/internal/location"
)

// Cached keeps recent answers per area (coordinates rounded to ~1 km) so a
// burst of weather questions costs one backend call.
type Cached struct {
	src      Source
	current  *expirable.LRU[string, Current]
	forecast *expirable.LRU[string, []Period]
}

func NewCached(src Source, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = 64
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &Cached{
		src:      src,
		current:  expirable.NewLRU[string, Current](size, nil, ttl),
		forecast: expirable.NewLRU[string, []Period](size, nil, ttl),
	}
}

func areaKey(fix location.Fix) string {
	round := func(v float64) float64 { return math.Round(v*100) / 100 }
	return fmt.Sprintf("%.2f,%.2f", round(fix.Latitude), round(fix.Longitude))
}

func (c *Cached) Current(ctx context.Context, fix location.Fix) (Current, error) {
	key := areaKey(fix)
	if v, ok := c.current.Get(key); ok {
		return v, nil
	}

	v, err := c.src.Current(ctx, fix)
	if err != nil {
		return Current{}, err
	}
	c.current.Add(key, v)
	return v, nil
}

func (c *Cached) Forecast(ctx context.Context, fix location.Fix, hours int) ([]Period, error) {
	key := fmt.Sprintf("%s/%d", areaKey(fix), hours)
	if v, ok := c.forecast.Get(key); ok {
		return slices.Clone(v), nil
	}

	v, err := c.src.Forecast(ctx, fix, hours)
	if err != nil {
		return nil, err
	}
	c.forecast.Add(key, slices.Clone(v))
	return v, nil
}
