// Package intent holds the ordered command table that maps a transcript to
// the handler of the first matching intent.
package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trafficaz/pkg/util"
)

// Name identifies an intent.
type Name string

const (
	TrafficQuery    Name = "traffic_query"
	TrafficReport   Name = "traffic_report"
	CheckAlerts     Name = "check_alerts"
	OpenMap         Name = "open_map"
	RouteCheck      Name = "route_check"
	WeatherImpact   Name = "weather_impact"
	WeatherForecast Name = "weather_forecast"
	WeatherQuery    Name = "weather_query"
	Emergency       Name = "emergency"

	Unknown Name = "unknown"
)

// Responder is how a handler talks back to the user.
type Responder interface {
	// Say voices text. It is a no-op once the session that ran the handler
	// has ended.
	Say(ctx context.Context, text string) error
	// Navigate asks the front end to show a screen.
	Navigate(ctx context.Context, screen string)
}

// Request is what a handler receives.
type Request struct {
	Session    uint64
	Intent     Name
	Pattern    string // empty when the intent came from the classifier
	Transcript string
	Reply      Responder
}

// Handler runs one intent.
type Handler func(ctx context.Context, req Request) error

// Entry binds an intent to its patterns and handler.
type Entry struct {
	Intent   Name
	Patterns []string
	Handler  Handler
}

// Match is the result of a table lookup.
type Match struct {
	Entry   Entry
	Pattern string
}

// Table is an immutable, ordered command table. Entry order is priority order.
type Table struct {
	entries []Entry
}

// NewTable validates entries and normalizes their patterns.
func NewTable(entries []Entry) (*Table, error) {
	if len(entries) == 0 {
		return nil, errors.New("command table is empty")
	}

	seen := make(map[Name]bool, len(entries))
	t := &Table{entries: make([]Entry, 0, len(entries))}

	for i, e := range entries {
		if e.Intent == "" {
			return nil, fmt.Errorf("entry %d: intent is empty", i)
		}
		if seen[e.Intent] {
			return nil, fmt.Errorf("entry %d: duplicate intent %q", i, e.Intent)
		}
		seen[e.Intent] = true

		if e.Handler == nil {
			return nil, fmt.Errorf("intent %q: no handler", e.Intent)
		}

		patterns := make([]string, 0, len(e.Patterns))
		for _, p := range e.Patterns {
			if p = util.Normalize(p); p != "" {
				patterns = append(patterns, p)
			}
		}
		if len(patterns) == 0 {
			return nil, fmt.Errorf("intent %q: no patterns", e.Intent)
		}

		t.entries = append(t.entries, Entry{
			Intent:   e.Intent,
			Patterns: patterns,
			Handler:  e.Handler,
		})
	}

	return t, nil
}

// Match returns the first entry, in table order, with a pattern contained in
// text. Within an entry patterns are tried in listed order.
func (t *Table) Match(text string) (Match, bool) {
	text = util.Normalize(text)
	if text == "" {
		return Match{}, false
	}

	for _, e := range t.entries {
		for _, p := range e.Patterns {
			if strings.Contains(text, p) {
				return Match{Entry: e, Pattern: p}, true
			}
		}
	}

	return Match{}, false
}

// Lookup finds an entry by intent name.
func (t *Table) Lookup(name Name) (Entry, bool) {
	for _, e := range t.entries {
		if e.Intent == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Intents lists intent names in priority order.
func (t *Table) Intents() []Name {
	out := make([]Name, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Intent
	}
	return out
}
