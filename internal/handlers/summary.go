package handlers

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"trafficaz/internal/traffic"
	"trafficaz/internal/weather"
)

func describeConditions(dest string, c traffic.Conditions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Traffic to %s is %s.", dest, c.Level)

	if c.DelayMinutes > 0 {
		fmt.Fprintf(&b, " Expect about %s of delay", minutes(c.DelayMinutes))
		if c.AverageSpeedKmh > 0 {
			fmt.Fprintf(&b, ", with an average speed of %.0f kilometres per hour", c.AverageSpeedKmh)
		}
		b.WriteString(".")
	} else {
		b.WriteString(" The road is clear.")
	}
	return b.String()
}

func describeAlerts(alerts []traffic.Alert) string {
	if len(alerts) == 0 {
		return "There are no traffic alerts near you."
	}

	closest := alerts[0]
	for _, a := range alerts[1:] {
		if a.DistanceKm < closest.DistanceKm {
			closest = a
		}
	}

	head := "You have one traffic alert nearby."
	if len(alerts) > 1 {
		head = fmt.Sprintf("You have %d traffic alerts nearby.", len(alerts))
	}

	what := closest.Description
	if what == "" {
		what = closest.Kind
	}
	where := ""
	if closest.Location != "" {
		where = " at " + closest.Location
	}
	return fmt.Sprintf("%s The closest is %s%s, %.1f kilometres away.", head, what, where, closest.DistanceKm)
}

func describeRoute(dest string, r traffic.Route) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your route to %s has %s traffic. It should take about %s", dest, r.Status, minutes(r.EtaMinutes))

	switch r.Incidents {
	case 0:
		b.WriteString(".")
	case 1:
		b.WriteString(", with one incident on the way.")
	default:
		fmt.Fprintf(&b, ", with %d incidents on the way.", r.Incidents)
	}

	if s := sentence(r.Suggestion); s != "" {
		b.WriteString(" ")
		b.WriteString(s)
	}
	return b.String()
}

// sentence capitalises s and closes it with a full stop when it has no
// terminal punctuation.
func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	r, n := utf8.DecodeRuneInString(s)
	s = string(unicode.ToUpper(r)) + s[n:]
	if !strings.ContainsAny(s[len(s)-1:], ".!?") {
		s += "."
	}
	return s
}

func describeWeather(c weather.Current) string {
	what := c.Description
	if what == "" {
		what = string(c.Condition)
	}
	return fmt.Sprintf("It is %.0f degrees with %s. Humidity is %d percent.", c.TemperatureC, what, c.Humidity)
}

func describeImpact(c weather.Current, im weather.Impact) string {
	what := c.Description
	if what == "" {
		what = string(c.Condition)
	}

	s := fmt.Sprintf("Right now it is %s. %s", what, im.Advice)
	if im.ExtraDelay > 0 {
		s += fmt.Sprintf(" Expect about %s of extra travel time.", minutes(im.ExtraDelay))
	}
	return s
}

func describeForecast(hours int, periods []weather.Period) string {
	if len(periods) == 0 {
		return "I don't have a forecast for your area yet."
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	rain := 0
	counts := make(map[weather.Condition]int)
	var likely weather.Condition

	for _, p := range periods {
		lo = math.Min(lo, p.TemperatureC)
		hi = math.Max(hi, p.TemperatureC)
		rain = max(rain, p.PrecipitationChance)
		counts[p.Condition]++
		if counts[p.Condition] > counts[likely] {
			likely = p.Condition
		}
	}

	temps := fmt.Sprintf("%.0f to %.0f degrees", lo, hi)
	if math.Round(lo) == math.Round(hi) {
		temps = fmt.Sprintf("around %.0f degrees", lo)
	}

	s := fmt.Sprintf("Over the next %d hours expect mostly %s, %s.", hours, likely, temps)
	if rain >= 30 {
		s += fmt.Sprintf(" There is up to a %d percent chance of rain.", rain)
	}
	return s
}

func describeEmergency(e Emergency) string {
	var parts []string
	if e.Police != "" {
		parts = append(parts, "police "+e.Police)
	}
	if e.Ambulance != "" {
		parts = append(parts, "ambulance "+e.Ambulance)
	}
	if e.Fire != "" {
		parts = append(parts, "fire brigade "+e.Fire)
	}
	if len(parts) == 0 {
		return "Please call your local emergency services."
	}
	return "For emergencies call " + strings.Join(parts, ", ") + ". Stay safe."
}

func minutes(n int) string {
	if n == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", n)
}
