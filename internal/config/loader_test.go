package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trafficaz/internal/intent"
	"trafficaz/internal/speech"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trafficaz.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "hey trafficaz", cfg.WakePhrase)
	assert.Equal(t, speech.DefaultSettings(), cfg.Voice)
	assert.Equal(t, intent.DefaultSpecs(), cfg.Commands)
	assert.Equal(t, 10*time.Second, cfg.Timing.AwakeTimeout)
	assert.Equal(t, RecognizerFeed, cfg.Speech.Recognizer)

	ac := cfg.AssistantConfig()
	assert.Equal(t, 2*time.Second, ac.ResetDelay)
	assert.Equal(t, time.Second, ac.RestartDelay)
	assert.Equal(t, 15*time.Second, ac.TurnTimeout)
	assert.Equal(t, "117", cfg.HandlersConfig().Emergency.Police)
}

func TestLoadOverridesAndExpandsEnv(t *testing.T) {
	t.Setenv("TRAFFICAZ_BACKEND_TOKEN", "s3cret")

	path := writeConfig(t, `
wake_phrase: "Hey Traffic!"
wake_aliases: ["hey trafic"]
voice:
  language: fr-FR
  pitch: 1.2
  rate: 1.1
timing:
  awake_timeout: 5s
backend:
  mode: http
  url: https://api.trafficaz.example
  token: ${TRAFFICAZ_BACKEND_TOKEN}
commands:
  - intent: weather_query
    patterns: ["meteo", "weather"]
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Hey Traffic!", cfg.WakePhrase)
	assert.Equal(t, []string{"hey trafic"}, cfg.WakeAliases)
	assert.Equal(t, speech.Settings{Language: "fr-FR", Pitch: 1.2, Rate: 1.1}, cfg.Voice)
	assert.Equal(t, 5*time.Second, cfg.Timing.AwakeTimeout)
	assert.Equal(t, 2*time.Second, cfg.Timing.ResetDelay)
	assert.Equal(t, "s3cret", cfg.Backend.Token)
	assert.Equal(t, []intent.Spec{{Intent: intent.WeatherQuery, Patterns: []string{"meteo", "weather"}}}, cfg.Commands)
	assert.Equal(t, "debug", cfg.Log.Level)
	// untouched sections keep their defaults
	assert.Equal(t, 64, cfg.Backend.CacheSize)
}

func TestLoadSpeechTuning(t *testing.T) {
	path := writeConfig(t, `
timing:
  turn_timeout: 8s
speech:
  recognizer: mic
  model: /models/ggml-base.bin
  whisper:
    language: fr
    threads: 4
    beam_size: 5
  recorder:
    silence_rms: 0.02
    trailing: 800ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, Whisper{Language: "fr", Threads: 4, BeamSize: 5}, cfg.Speech.Whisper)
	assert.Equal(t, Recorder{
		SampleRate: 16000,
		FrameSize:  320,
		SilenceRMS: 0.02,
		Trailing:   800 * time.Millisecond,
		MaxLength:  10 * time.Second,
	}, cfg.Speech.Recorder)
	assert.Equal(t, 8*time.Second, cfg.AssistantConfig().TurnTimeout)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty wake phrase", `wake_phrase: "!!"`, "wake_phrase"},
		{"bad voice", "voice: {language: en-US, rate: 0}", "voice"},
		{"unknown intent", "commands: [{intent: teleport, patterns: [beam]}]", "unknown intent"},
		{"duplicate intent", "commands: [{intent: open_map, patterns: [a]}, {intent: open_map, patterns: [b]}]", "duplicate"},
		{"no patterns", "commands: [{intent: open_map}]", "no patterns"},
		{"http without url", "backend: {mode: http}", "backend.url"},
		{"unset token", "backend: {mode: http, url: 'http://x', token: '${TRAFFICAZ_UNSET_FOR_TEST}'}", "TRAFFICAZ_UNSET_FOR_TEST"},
		{"bad location", "location: {mode: gps}", "location.mode"},
		{"ws without url", "speech: {recognizer: ws}", "feed.url"},
		{"mic without model", "speech: {recognizer: mic}", "speech.model"},
		{"hub shard", "hub: {enabled: true, url: 'ws://hub', shard: 'A:B'}", "hub.shard"},
		{"nlu without key", "nlu: {enabled: true}", "nlu.api_key"},
		{"log level", "log: {level: loud}", "log.level"},
		{"timing", "timing: {reset_delay: 0s}", "timing"},
		{"turn timeout", "timing: {turn_timeout: 0s}", "turn_timeout"},
		{"recorder rate", "speech: {recorder: {sample_rate: 0}}", "speech.recorder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestInterpolateEnvLeavesUnknown(t *testing.T) {
	t.Setenv("TRAFFICAZ_SET", "yes")
	assert.Equal(t, "yes ${TRAFFICAZ_NOT_SET}", interpolateEnv("${TRAFFICAZ_SET} ${TRAFFICAZ_NOT_SET}"))
}
