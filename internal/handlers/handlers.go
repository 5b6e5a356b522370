// Package handlers implements one handler per voice intent. A handler
// acknowledges the request, gets a location fix, asks a traffic or weather
// source and speaks a summary.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"trafficaz/internal/intent"
	"trafficaz/internal/location"
	"trafficaz/internal/traffic"
	"trafficaz/internal/weather"
)

// Emergency holds the numbers read out by the emergency intent.
type Emergency struct {
	Police    string `yaml:"police" json:"police"`
	Ambulance string `yaml:"ambulance" json:"ambulance"`
	Fire      string `yaml:"fire" json:"fire"`
}

type Config struct {
	Destinations  intent.Keywords
	Incidents     intent.Keywords
	AlertRadiusKm float64
	ForecastHours int
	Emergency     Emergency
}

func DefaultConfig() Config {
	return Config{
		Destinations:  intent.DefaultDestinations(),
		Incidents:     intent.DefaultIncidents(),
		AlertRadiusKm: 5,
		ForecastHours: 6,
		Emergency: Emergency{
			Police:    "117",
			Ambulance: "119",
			Fire:      "118",
		},
	}
}

const (
	sayNoLocation   = "I need access to your location for that. Please allow it in your settings."
	sayLocateFailed = "Sorry, I couldn't find your location."
	sayTrafficDown  = "Sorry, I couldn't get traffic information right now."
	sayWeatherDown  = "Sorry, I couldn't get the weather right now."
)

// Set is the full set of handlers sharing one locator and data sources.
type Set struct {
	cfg     Config
	locator location.Locator
	traffic traffic.Source
	weather weather.Source
	log     *slog.Logger
}

func New(cfg Config, locator location.Locator, tr traffic.Source, wx weather.Source, logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Destinations) == 0 {
		cfg.Destinations = intent.DefaultDestinations()
	}
	if len(cfg.Incidents) == 0 {
		cfg.Incidents = intent.DefaultIncidents()
	}
	if cfg.AlertRadiusKm <= 0 {
		cfg.AlertRadiusKm = 5
	}
	if cfg.ForecastHours <= 0 {
		cfg.ForecastHours = 6
	}
	return &Set{cfg: cfg, locator: locator, traffic: tr, weather: wx, log: logger}
}

// Handlers maps every known intent to its handler.
func (s *Set) Handlers() map[intent.Name]intent.Handler {
	return map[intent.Name]intent.Handler{
		intent.TrafficQuery:    s.TrafficQuery,
		intent.TrafficReport:   s.TrafficReport,
		intent.CheckAlerts:     s.CheckAlerts,
		intent.OpenMap:         s.OpenMap,
		intent.RouteCheck:      s.RouteCheck,
		intent.WeatherImpact:   s.WeatherImpact,
		intent.WeatherForecast: s.WeatherForecast,
		intent.WeatherQuery:    s.WeatherQuery,
		intent.Emergency:       s.Emergency,
	}
}

// Table binds pattern specs to handlers, keeping spec order.
func (s *Set) Table(specs []intent.Spec) (*intent.Table, error) {
	hs := s.Handlers()
	entries := make([]intent.Entry, 0, len(specs))
	for _, sp := range specs {
		h, ok := hs[sp.Intent]
		if !ok {
			return nil, fmt.Errorf("no handler for intent %q", sp.Intent)
		}
		entries = append(entries, intent.Entry{Intent: sp.Intent, Patterns: sp.Patterns, Handler: h})
	}
	return intent.NewTable(entries)
}

// locate gets a fix. On failure the user has already been told and ok is
// false; err is nil when the failure was a permission refusal.
func (s *Set) locate(ctx context.Context, req intent.Request) (fix location.Fix, ok bool, err error) {
	fix, err = s.locator.Locate(ctx)
	if err == nil {
		return fix, true, nil
	}

	if errors.Is(err, location.ErrPermissionDenied) {
		s.log.Info("Location permission refused", "intent", req.Intent)
		return fix, false, req.Reply.Say(ctx, sayNoLocation)
	}

	_ = req.Reply.Say(ctx, sayLocateFailed)
	return fix, false, fmt.Errorf("locate: %w", err)
}

func (s *Set) TrafficQuery(ctx context.Context, req intent.Request) error {
	dest := s.cfg.Destinations.Destination(req.Transcript)
	if err := req.Reply.Say(ctx, fmt.Sprintf("Checking traffic to %s...", dest)); err != nil {
		return err
	}

	fix, ok, err := s.locate(ctx, req)
	if !ok {
		return err
	}

	c, err := s.traffic.Conditions(ctx, fix, dest)
	if err != nil {
		_ = req.Reply.Say(ctx, sayTrafficDown)
		return fmt.Errorf("traffic conditions to %s: %w", dest, err)
	}

	return req.Reply.Say(ctx, describeConditions(dest, c))
}

func (s *Set) TrafficReport(ctx context.Context, req intent.Request) error {
	kind := s.cfg.Incidents.Find(req.Transcript, "incident")

	fix, ok, err := s.locate(ctx, req)
	if !ok {
		return err
	}

	id, err := s.traffic.Submit(ctx, traffic.Report{Kind: kind, Transcript: req.Transcript, Fix: fix})
	if err != nil {
		_ = req.Reply.Say(ctx, "Sorry, I couldn't send your report. Please try again.")
		return fmt.Errorf("submit %s report: %w", kind, err)
	}

	s.log.Info("Report submitted", "id", id, "kind", kind, "at", fix.String())
	return req.Reply.Say(ctx, fmt.Sprintf("Thanks. Your %s report has been shared with other drivers.", kind))
}

func (s *Set) CheckAlerts(ctx context.Context, req intent.Request) error {
	fix, ok, err := s.locate(ctx, req)
	if !ok {
		return err
	}

	alerts, err := s.traffic.Alerts(ctx, fix, s.cfg.AlertRadiusKm)
	if err != nil {
		_ = req.Reply.Say(ctx, "Sorry, I couldn't check your alerts right now.")
		return fmt.Errorf("alerts: %w", err)
	}

	return req.Reply.Say(ctx, describeAlerts(alerts))
}

func (s *Set) OpenMap(ctx context.Context, req intent.Request) error {
	req.Reply.Navigate(ctx, "map")
	return req.Reply.Say(ctx, "Opening the traffic map.")
}

func (s *Set) RouteCheck(ctx context.Context, req intent.Request) error {
	dest := s.cfg.Destinations.Destination(req.Transcript)
	if err := req.Reply.Say(ctx, fmt.Sprintf("Checking your route to %s...", dest)); err != nil {
		return err
	}

	fix, ok, err := s.locate(ctx, req)
	if !ok {
		return err
	}

	r, err := s.traffic.Route(ctx, fix, dest)
	if err != nil {
		_ = req.Reply.Say(ctx, sayTrafficDown)
		return fmt.Errorf("route to %s: %w", dest, err)
	}

	return req.Reply.Say(ctx, describeRoute(dest, r))
}

func (s *Set) WeatherQuery(ctx context.Context, req intent.Request) error {
	c, ok, err := s.current(ctx, req)
	if !ok {
		return err
	}
	return req.Reply.Say(ctx, describeWeather(c))
}

func (s *Set) WeatherImpact(ctx context.Context, req intent.Request) error {
	c, ok, err := s.current(ctx, req)
	if !ok {
		return err
	}
	return req.Reply.Say(ctx, describeImpact(c, weather.Assess(c)))
}

func (s *Set) WeatherForecast(ctx context.Context, req intent.Request) error {
	fix, ok, err := s.locate(ctx, req)
	if !ok {
		return err
	}

	periods, err := s.weather.Forecast(ctx, fix, s.cfg.ForecastHours)
	if err != nil {
		_ = req.Reply.Say(ctx, sayWeatherDown)
		return fmt.Errorf("forecast: %w", err)
	}

	return req.Reply.Say(ctx, describeForecast(s.cfg.ForecastHours, periods))
}

func (s *Set) Emergency(ctx context.Context, req intent.Request) error {
	req.Reply.Navigate(ctx, "emergency")
	return req.Reply.Say(ctx, describeEmergency(s.cfg.Emergency))
}

func (s *Set) current(ctx context.Context, req intent.Request) (weather.Current, bool, error) {
	fix, ok, err := s.locate(ctx, req)
	if !ok {
		return weather.Current{}, false, err
	}

	c, err := s.weather.Current(ctx, fix)
	if err != nil {
		_ = req.Reply.Say(ctx, sayWeatherDown)
		return weather.Current{}, false, fmt.Errorf("current weather: %w", err)
	}
	return c, true, nil
}
