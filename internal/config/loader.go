package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"trafficaz/internal/intent"
	"trafficaz/pkg/util"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads path over the defaults. An empty path returns the validated
// defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// interpolateEnv replaces ${VAR} with its value. Undefined variables are left
// in place so validation can name them.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return match
	})
}

func unresolved(field, value string) error {
	if m := envVarPattern.FindStringSubmatch(value); m != nil {
		return fmt.Errorf("%s: environment variable ${%s} is not set", field, m[1])
	}
	return nil
}

var knownIntents = map[intent.Name]bool{
	intent.TrafficQuery:    true,
	intent.TrafficReport:   true,
	intent.CheckAlerts:     true,
	intent.OpenMap:         true,
	intent.RouteCheck:      true,
	intent.WeatherImpact:   true,
	intent.WeatherForecast: true,
	intent.WeatherQuery:    true,
	intent.Emergency:       true,
}

func validate(cfg *Config) error {
	if util.Normalize(cfg.WakePhrase) == "" {
		return errors.New("wake_phrase is required")
	}
	if err := cfg.Voice.Validate(); err != nil {
		return fmt.Errorf("voice: %w", err)
	}

	if cfg.Timing.ResetDelay <= 0 || cfg.Timing.AwakeTimeout <= 0 || cfg.Timing.RestartDelay <= 0 || cfg.Timing.TurnTimeout <= 0 {
		return errors.New("timing: reset_delay, awake_timeout, restart_delay and turn_timeout must be positive")
	}

	if len(cfg.Commands) == 0 {
		return errors.New("commands: at least one command is required")
	}
	seen := make(map[intent.Name]bool)
	for i, c := range cfg.Commands {
		if !knownIntents[c.Intent] {
			return fmt.Errorf("commands[%d]: unknown intent %q", i, c.Intent)
		}
		if seen[c.Intent] {
			return fmt.Errorf("commands[%d]: duplicate intent %q", i, c.Intent)
		}
		seen[c.Intent] = true
		if len(c.Patterns) == 0 {
			return fmt.Errorf("commands[%d]: %s has no patterns", i, c.Intent)
		}
	}

	switch cfg.Location.Mode {
	case LocationStatic:
		if cfg.Location.Latitude < -90 || cfg.Location.Latitude > 90 ||
			cfg.Location.Longitude < -180 || cfg.Location.Longitude > 180 {
			return errors.New("location: coordinates out of range")
		}
	case LocationDenied:
	default:
		return fmt.Errorf("location.mode must be one of: static, denied (got %q)", cfg.Location.Mode)
	}

	switch cfg.Backend.Mode {
	case BackendSimulated:
	case BackendHTTP:
		if cfg.Backend.URL == "" {
			return errors.New("backend.url is required in http mode")
		}
		if err := unresolved("backend.token", cfg.Backend.Token); err != nil {
			return err
		}
	default:
		return fmt.Errorf("backend.mode must be one of: simulated, http (got %q)", cfg.Backend.Mode)
	}
	if cfg.Backend.AlertRadiusKm <= 0 || cfg.Backend.ForecastHours <= 0 {
		return errors.New("backend: alert_radius_km and forecast_hours must be positive")
	}

	if cfg.History.Enabled && cfg.History.Path == "" {
		return errors.New("history.path is required")
	}

	if cfg.API.Enabled {
		if cfg.API.Listen == "" {
			return errors.New("api.listen is required")
		}
		if err := unresolved("api.token", cfg.API.Token); err != nil {
			return err
		}
	}

	if cfg.IPC.Enabled && cfg.IPC.Socket == "" {
		return errors.New("ipc.socket is required")
	}

	if cfg.Hub.Enabled {
		if cfg.Hub.URL == "" {
			return errors.New("hub.url is required")
		}
		if cfg.Hub.Shard == "" || strings.Contains(cfg.Hub.Shard, ":") {
			return fmt.Errorf("hub.shard %q is not a valid shard name", cfg.Hub.Shard)
		}
	}

	switch cfg.Speech.Recognizer {
	case RecognizerFeed:
	case RecognizerWS:
		if cfg.Feed.URL == "" {
			return errors.New("feed.url is required for the ws recognizer")
		}
	case RecognizerMic:
		if cfg.Speech.Model == "" {
			return errors.New("speech.model is required for the mic recognizer")
		}
	default:
		return fmt.Errorf("speech.recognizer must be one of: feed, ws, mic (got %q)", cfg.Speech.Recognizer)
	}
	if cfg.Speech.Recorder.SampleRate <= 0 || cfg.Speech.Recorder.FrameSize <= 0 {
		return errors.New("speech.recorder: sample_rate and frame_size must be positive")
	}
	if cfg.Speech.Duck.Enabled && (cfg.Speech.Duck.Factor < 0 || cfg.Speech.Duck.Factor > 1) {
		return errors.New("speech.duck.factor must be within [0, 1]")
	}

	if cfg.NLU.Enabled {
		if err := unresolved("nlu.api_key", cfg.NLU.APIKey); err != nil {
			return err
		}
		if cfg.NLU.APIKey == "" {
			return errors.New("nlu.api_key is required when nlu is enabled")
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Log.Level] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error (got %q)", cfg.Log.Level)
	}

	return nil
}
