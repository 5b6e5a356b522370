package traffic

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"trafficaz/internal/location"
)

// Simulated answers with random but plausible data, the way the app behaved
// before a backend existed. Latency imitates a network round trip.
type Simulated struct {
	Latency time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulated(seed uint64, latency time.Duration) *Simulated {
	return &Simulated{
		Latency: latency,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

var levels = []Level{LevelLight, LevelModerate, LevelHeavy, LevelSevere}

var alertTemplates = []Alert{
	{Kind: "accident", Description: "Accident blocking one lane", Location: "Carrefour Warda"},
	{Kind: "congestion", Description: "Heavy congestion", Location: "Rond-point Nlongkak"},
	{Kind: "roadblock", Description: "Road works, expect detours", Location: "Boulevard du 20 Mai"},
	{Kind: "flooding", Description: "Flooded road after heavy rain", Location: "Mokolo market"},
	{Kind: "police checkpoint", Description: "Police checkpoint slowing traffic", Location: "Melen"},
}

func (s *Simulated) wait(ctx context.Context) error {
	if s.Latency <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(s.Latency)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Simulated) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *Simulated) level() Level {
	return levels[s.intn(len(levels))]
}

func delayFor(l Level, jitter int) int {
	switch l {
	case LevelLight:
		return jitter % 5
	case LevelModerate:
		return 5 + jitter%10
	case LevelHeavy:
		return 15 + jitter%15
	default:
		return 30 + jitter%30
	}
}

func (s *Simulated) Conditions(ctx context.Context, _ location.Fix, destination string) (Conditions, error) {
	if err := s.wait(ctx); err != nil {
		return Conditions{}, err
	}

	l := s.level()
	return Conditions{
		Destination:     destination,
		Level:           l,
		DelayMinutes:    delayFor(l, s.intn(60)),
		AverageSpeedKmh: float64(10 + s.intn(50)),
		UpdatedAt:       time.Now(),
	}, nil
}

func (s *Simulated) Alerts(ctx context.Context, _ location.Fix, radiusKm float64) ([]Alert, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	n := s.intn(len(alertTemplates) + 1)
	out := make([]Alert, 0, n)
	for i := 0; i < n; i++ {
		a := alertTemplates[(s.intn(len(alertTemplates))+i)%len(alertTemplates)]
		a.ID = uuid.NewString()
		a.Severity = s.level()
		a.DistanceKm = float64(s.intn(int(radiusKm*10)+1)) / 10
		out = append(out, a)
	}
	return out, nil
}

func (s *Simulated) Submit(ctx context.Context, _ Report) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	return uuid.NewString(), nil
}

func (s *Simulated) Route(ctx context.Context, _ location.Fix, destination string) (Route, error) {
	if err := s.wait(ctx); err != nil {
		return Route{}, err
	}

	l := s.level()
	r := Route{
		Destination: destination,
		Status:      l,
		EtaMinutes:  10 + delayFor(l, s.intn(60)),
		Incidents:   s.intn(4),
	}
	if l == LevelHeavy || l == LevelSevere {
		r.Suggestion = "Take the Boulevard de l'Independance instead."
	}
	return r, nil
}
