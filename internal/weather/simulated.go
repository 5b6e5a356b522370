package weather

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"trafficaz/internal/location"
)

// Simulated produces random tropical weather.
type Simulated struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewSimulated(seed uint64) *Simulated {
	return &Simulated{
		rng: rand.New(rand.NewPCG(seed, ^seed)),
		now: time.Now,
	}
}

var conditions = []struct {
	c    Condition
	desc string
}{
	{Clear, "clear skies"},
	{Cloudy, "partly cloudy"},
	{Rain, "light rain"},
	{Thunderstorm, "thunderstorms"},
	{Fog, "morning fog"},
}

func (s *Simulated) pick() (Condition, string, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := conditions[s.rng.IntN(len(conditions))]
	temp := 20 + float64(s.rng.IntN(140))/10
	return c.c, c.desc, temp
}

func (s *Simulated) Current(ctx context.Context, _ location.Fix) (Current, error) {
	if err := ctx.Err(); err != nil {
		return Current{}, err
	}

	c, desc, temp := s.pick()
	cur := Current{
		TemperatureC: temp,
		Condition:    c,
		Description:  desc,
		Humidity:     60 + int(temp)%35,
		WindKmh:      5 + temp/2,
		VisibilityKm: 10,
		ObservedAt:   s.now(),
	}
	switch c {
	case Rain:
		cur.PrecipitationMm = 4
	case Thunderstorm:
		cur.PrecipitationMm = 18
	case Fog:
		cur.VisibilityKm = 0.8
	}
	return cur, nil
}

func (s *Simulated) Forecast(ctx context.Context, _ location.Fix, hours int) ([]Period, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if hours <= 0 {
		hours = 12
	}

	start := s.now().Truncate(time.Hour)
	out := make([]Period, 0, hours/3+1)
	for h := 3; h <= hours; h += 3 {
		c, _, temp := s.pick()
		p := Period{At: start.Add(time.Duration(h) * time.Hour), TemperatureC: temp, Condition: c}
		if c == Rain || c == Thunderstorm {
			p.PrecipitationChance = 60 + int(temp)%40
		}
		out = append(out, p)
	}
	return out, nil
}
