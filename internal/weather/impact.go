package weather

import "fmt"

// Severity grades the traffic impact of the weather.
type Severity string

const (
	ImpactNone     Severity = "none"
	ImpactLow      Severity = "low"
	ImpactModerate Severity = "moderate"
	ImpactHigh     Severity = "high"
)

// Impact is the driving advice derived from current conditions.
type Impact struct {
	Severity    Severity `json:"severity"`
	ExtraDelay  int      `json:"extra_delay_minutes"`
	Advice      string   `json:"advice"`
	Description string   `json:"description"`
}

// Assess grades conditions. The worst factor wins.
func Assess(c Current) Impact {
	im := Impact{
		Severity: ImpactNone,
		Advice:   "Driving conditions are good.",
	}

	raise := func(s Severity, delay int, advice string) {
		if rank(s) > rank(im.Severity) {
			im.Severity = s
			im.ExtraDelay = delay
			im.Advice = advice
		}
	}

	switch c.Condition {
	case Thunderstorm:
		raise(ImpactHigh, 20, "Thunderstorms are likely to cause flooding and long delays. Avoid travel if you can.")
	case Rain:
		if c.PrecipitationMm >= 10 {
			raise(ImpactHigh, 20, "Heavy rain may flood low roads. Expect long delays.")
		} else {
			raise(ImpactModerate, 10, "Rain is slowing traffic. Leave a little earlier and drive carefully.")
		}
	case Fog:
		raise(ImpactModerate, 10, "Fog is reducing visibility. Use your headlights and keep your distance.")
	}

	if c.VisibilityKm > 0 && c.VisibilityKm < 1 {
		raise(ImpactHigh, 15, "Visibility is very low. Slow down and use your headlights.")
	}
	if c.WindKmh >= 60 {
		raise(ImpactModerate, 5, "Strong winds may bring down branches. Watch the road.")
	}
	if c.TemperatureC >= 35 {
		raise(ImpactLow, 0, "It is very hot. Keep water in the car.")
	}

	im.Description = fmt.Sprintf("%s impact on traffic", im.Severity)
	return im
}

func rank(s Severity) int {
	switch s {
	case ImpactLow:
		return 1
	case ImpactModerate:
		return 2
	case ImpactHigh:
		return 3
	default:
		return 0
	}
}
