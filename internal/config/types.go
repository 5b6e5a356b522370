// Package config loads the daemon's YAML configuration.
package config

import (
	"time"

	"trafficaz/internal/assistant"
	"trafficaz/internal/handlers"
	"trafficaz/internal/intent"
	"trafficaz/internal/speech"
)

type Config struct {
	WakePhrase   string             `yaml:"wake_phrase"`
	WakeAliases  []string           `yaml:"wake_aliases"`
	Voice        speech.Settings    `yaml:"voice"`
	Messages     assistant.Messages `yaml:"messages"`
	Timing       Timing             `yaml:"timing"`
	Commands     []intent.Spec      `yaml:"commands"`
	Destinations intent.Keywords    `yaml:"destinations"`
	Incidents    intent.Keywords    `yaml:"incidents"`
	Emergency    handlers.Emergency `yaml:"emergency"`
	Location     Location           `yaml:"location"`
	Backend      Backend            `yaml:"backend"`
	History      History            `yaml:"history"`
	API          API                `yaml:"api"`
	IPC          IPC                `yaml:"ipc"`
	Hub          Hub                `yaml:"hub"`
	Feed         Feed               `yaml:"feed"`
	Speech       Speech             `yaml:"speech"`
	NLU          NLU                `yaml:"nlu"`
	Log          Log                `yaml:"log"`
}

type Timing struct {
	ResetDelay   time.Duration `yaml:"reset_delay"`
	AwakeTimeout time.Duration `yaml:"awake_timeout"`
	RestartDelay time.Duration `yaml:"restart_delay"`
	TurnTimeout  time.Duration `yaml:"turn_timeout"`
}

const (
	LocationStatic = "static"
	LocationDenied = "denied"
)

// Location is where the device is assumed to be. "denied" behaves like a
// phone without location permission.
type Location struct {
	Mode      string  `yaml:"mode"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Accuracy  float64 `yaml:"accuracy"`
}

const (
	BackendSimulated = "simulated"
	BackendHTTP      = "http"
)

type Backend struct {
	Mode    string        `yaml:"mode"`
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Proxy   string        `yaml:"proxy"` // socks5 host:port
	Timeout time.Duration `yaml:"timeout"`

	// simulated mode
	Seed    uint64        `yaml:"seed"`
	Latency time.Duration `yaml:"latency"`

	AlertRadiusKm float64       `yaml:"alert_radius_km"`
	ForecastHours int           `yaml:"forecast_hours"`
	CacheSize     int           `yaml:"cache_size"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
}

type History struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type API struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Token   string `yaml:"token"`
}

type IPC struct {
	Enabled bool   `yaml:"enabled"`
	Socket  string `yaml:"socket"`
}

// Hub is the websocket message hub other shards talk through.
type Hub struct {
	Enabled        bool          `yaml:"enabled"`
	URL            string        `yaml:"url"`
	Shard          string        `yaml:"shard"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// Feed is a remote recognizer streaming transcripts over a websocket.
type Feed struct {
	URL string `yaml:"url"`
}

const (
	RecognizerFeed = "feed" // transcripts pushed through the API or ipc
	RecognizerWS   = "ws"
	RecognizerMic  = "mic"
)

type Speech struct {
	Recognizer string   `yaml:"recognizer"`
	Model      string   `yaml:"model"`
	Whisper    Whisper  `yaml:"whisper"`
	Recorder   Recorder `yaml:"recorder"`
	TTS        bool     `yaml:"tts"`
	Chime      string   `yaml:"chime"`
	Notify     bool     `yaml:"notify"`
	Duck       Duck     `yaml:"duck"`
}

type Whisper struct {
	Language      string `yaml:"language"`
	Translate     bool   `yaml:"translate"`
	Threads       int    `yaml:"threads"`
	InitialPrompt string `yaml:"initial_prompt"`
	BeamSize      int    `yaml:"beam_size"`
}

// Recorder tunes microphone capture and end-of-utterance detection.
type Recorder struct {
	SampleRate int           `yaml:"sample_rate"`
	FrameSize  int           `yaml:"frame_size"`
	SilenceRMS float64       `yaml:"silence_rms"`
	Trailing   time.Duration `yaml:"trailing"`
	MaxLength  time.Duration `yaml:"max_length"`
}

// Duck turns other applications down while the assistant talks.
type Duck struct {
	Enabled   bool          `yaml:"enabled"`
	Factor    float64       `yaml:"factor"`
	Fade      time.Duration `yaml:"fade"`
	MinVolume int           `yaml:"min_volume"`
}

type NLU struct {
	Enabled bool          `yaml:"enabled"`
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Proxy   string        `yaml:"proxy"`
	Timeout time.Duration `yaml:"timeout"`
}

type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Defaults returns a configuration that runs headless: simulated backends,
// transcripts pushed over the API and the control socket.
func Defaults() *Config {
	ac := assistant.DefaultConfig()
	hc := handlers.DefaultConfig()

	return &Config{
		WakePhrase: assistant.DefaultWakePhrase,
		Voice:      speech.DefaultSettings(),
		Messages:   assistant.DefaultMessages(),
		Timing: Timing{
			ResetDelay:   ac.ResetDelay,
			AwakeTimeout: ac.AwakeTimeout,
			RestartDelay: ac.RestartDelay,
			TurnTimeout:  ac.TurnTimeout,
		},
		Commands:     intent.DefaultSpecs(),
		Destinations: hc.Destinations,
		Incidents:    hc.Incidents,
		Emergency:    hc.Emergency,
		Location: Location{
			Mode:      LocationStatic,
			Latitude:  3.8480,
			Longitude: 11.5021,
			Accuracy:  25,
		},
		Backend: Backend{
			Mode:          BackendSimulated,
			Timeout:       15 * time.Second,
			Latency:       300 * time.Millisecond,
			AlertRadiusKm: hc.AlertRadiusKm,
			ForecastHours: hc.ForecastHours,
			CacheSize:     64,
			CacheTTL:      10 * time.Minute,
		},
		History: History{Enabled: true, Path: "trafficaz.db"},
		API:     API{Enabled: true, Listen: "127.0.0.1:8093"},
		IPC:     IPC{Enabled: true, Socket: "/tmp/trafficaz.sock"},
		Hub: Hub{
			Shard:          "TRAFFICAZ",
			ReconnectDelay: 2 * time.Second,
			WriteTimeout:   5 * time.Second,
		},
		Speech: Speech{
			Recognizer: RecognizerFeed,
			Whisper:    Whisper{Language: "auto"},
			Recorder: Recorder{
				SampleRate: 16000,
				FrameSize:  320,
				SilenceRMS: 0.015,
				Trailing:   600 * time.Millisecond,
				MaxLength:  10 * time.Second,
			},
			Duck: Duck{
				Factor:    0.3,
				Fade:      150 * time.Millisecond,
				MinVolume: 5,
			},
		},
		NLU: NLU{
			Model:   "gpt-5-nano",
			Timeout: 20 * time.Second,
		},
		Log: Log{Level: "info"},
	}
}

// AssistantConfig maps the voice sections onto the dispatcher configuration.
func (c *Config) AssistantConfig() assistant.Config {
	return assistant.Config{
		WakePhrase:   c.WakePhrase,
		WakeAliases:  c.WakeAliases,
		ResetDelay:   c.Timing.ResetDelay,
		AwakeTimeout: c.Timing.AwakeTimeout,
		RestartDelay: c.Timing.RestartDelay,
		TurnTimeout:  c.Timing.TurnTimeout,
		Settings:     c.Voice,
		Messages:     c.Messages,
	}
}

// HandlersConfig maps the command sections onto the handler set.
func (c *Config) HandlersConfig() handlers.Config {
	return handlers.Config{
		Destinations:  c.Destinations,
		Incidents:     c.Incidents,
		AlertRadiusKm: c.Backend.AlertRadiusKm,
		ForecastHours: c.Backend.ForecastHours,
		Emergency:     c.Emergency,
	}
}
