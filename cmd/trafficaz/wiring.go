package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	log "log/slog"

	"trafficaz/internal/api"
	"trafficaz/internal/assistant"
	"trafficaz/internal/audio"
	"trafficaz/internal/backend"
	"trafficaz/internal/config"
	"trafficaz/internal/handlers"
	"trafficaz/internal/history"
	"trafficaz/internal/listen"
	"trafficaz/internal/location"
	tlog "trafficaz/internal/log"
	"trafficaz/internal/nlu"
	"trafficaz/internal/notify"
	"trafficaz/internal/proxy"
	"trafficaz/internal/speech"
	"trafficaz/internal/traffic"
	"trafficaz/internal/tts"
	"trafficaz/internal/weather"
	"trafficaz/pkg/audioconv"
	"trafficaz/pkg/stt"
)

type daemon struct {
	disp    *assistant.Dispatcher
	speaker speech.Speaker
	store   *history.Store
	closers []io.Closer
}

func (d *daemon) history() api.History {
	if d.store == nil {
		return nil
	}
	return d.store
}

func (d *daemon) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			log.Warn("Close failed", "err", err)
		}
	}
}

func build(ctx context.Context, cfg *config.Config, replay []string) (*daemon, error) {
	d := &daemon{}
	ok := false
	defer func() {
		if !ok {
			d.close()
		}
	}()

	locator := buildLocator(cfg.Location)

	tr, wx, err := buildSources(cfg.Backend)
	if err != nil {
		return nil, err
	}

	set := handlers.New(cfg.HandlersConfig(), locator, tr, wx, tlog.WithComponent("handlers"))
	table, err := set.Table(cfg.Commands)
	if err != nil {
		return nil, fmt.Errorf("build command table: %w", err)
	}
	log.Debug("Loaded command table", "intents", len(table.Intents()))

	deps := assistant.Deps{
		Table:  table,
		Logger: tlog.WithComponent("assistant"),
	}

	if cfg.NLU.Enabled {
		client, err := proxy.NewHTTPClient(cfg.NLU.Proxy, cfg.NLU.Timeout)
		if err != nil {
			return nil, fmt.Errorf("nlu proxy: %w", err)
		}
		deps.Classifier = nlu.New(nlu.Options{
			APIKey:     cfg.NLU.APIKey,
			BaseURL:    cfg.NLU.BaseURL,
			Model:      cfg.NLU.Model,
			HTTPClient: client,
		}, tlog.WithComponent("nlu"))
		log.Debug("Loaded classifier", "model", cfg.NLU.Model)
	}

	if cfg.History.Enabled {
		store, err := history.Open(ctx, cfg.History.Path)
		if err != nil {
			return nil, err
		}
		d.store = store
		d.closers = append(d.closers, store)
		deps.History = store
		log.Debug("Opened history", "path", cfg.History.Path)
	}

	if err := d.buildRecognizer(cfg, replay, &deps); err != nil {
		return nil, err
	}

	d.speaker = buildSpeaker(cfg.Speech)
	deps.Speaker = d.speaker
	deps.OnWake = onWake(ctx, cfg.Speech)

	disp, err := assistant.New(cfg.AssistantConfig(), deps)
	if err != nil {
		return nil, err
	}
	d.disp = disp

	ok = true
	return d, nil
}

func buildLocator(cfg config.Location) location.Locator {
	if cfg.Mode == config.LocationDenied {
		return location.Denied{}
	}
	return location.Static{
		Latitude:  cfg.Latitude,
		Longitude: cfg.Longitude,
		Accuracy:  cfg.Accuracy,
	}
}

func buildSources(cfg config.Backend) (traffic.Source, weather.Source, error) {
	var (
		tr traffic.Source
		wx weather.Source
	)

	switch cfg.Mode {
	case config.BackendHTTP:
		client, err := proxy.NewHTTPClient(cfg.Proxy, cfg.Timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("backend proxy: %w", err)
		}
		bc, err := backend.New(cfg.URL, cfg.Token, client)
		if err != nil {
			return nil, nil, err
		}
		tr, wx = traffic.NewClient(bc), weather.NewClient(bc)
	default:
		seed := cfg.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		tr, wx = traffic.NewSimulated(seed, cfg.Latency), weather.NewSimulated(seed+1)
	}

	return tr, weather.NewCached(wx, cfg.CacheSize, cfg.CacheTTL), nil
}

func (d *daemon) buildRecognizer(cfg *config.Config, replay []string, deps *assistant.Deps) error {
	logger := tlog.WithComponent("recognizer")

	if len(replay) > 0 || cfg.Speech.Recognizer == config.RecognizerMic {
		whisper, err := stt.NewTranscriber(cfg.Speech.Model, whisperOptions(cfg.Speech.Whisper))
		if err != nil {
			return fmt.Errorf("load whisper: %w", err)
		}
		d.closers = append(d.closers, whisper)
		log.Debug("Loaded whisper", "model", cfg.Speech.Model)

		if len(replay) > 0 {
			decode := func(ctx context.Context, path string) ([]float32, error) {
				return audioconv.DecodeFile(ctx, path, audioconv.Options{})
			}
			r, err := listen.NewReplay(replay, decode, whisper, logger)
			if err != nil {
				return err
			}
			deps.Recognizer = r
			return nil
		}

		rec := audio.NewRecorder(recorderConfig(cfg.Speech.Recorder))
		d.closers = append(d.closers, rec)
		mic := listen.NewMic(rec, whisper, logger)
		d.closers = append(d.closers, mic)
		deps.Recognizer = mic
		deps.Permissions = mic
		return nil
	}

	switch cfg.Speech.Recognizer {
	case config.RecognizerWS:
		feed, err := speech.NewWSFeed(cfg.Feed.URL, logger)
		if err != nil {
			return err
		}
		deps.Recognizer = feed
	default:
		deps.Recognizer = speech.NewFeed()
	}
	deps.Permissions = speech.AllowAll{}
	return nil
}

func whisperOptions(w config.Whisper) stt.Options {
	return stt.Options{
		Language:      w.Language,
		Translate:     w.Translate,
		Threads:       w.Threads,
		InitialPrompt: w.InitialPrompt,
		BeamSize:      w.BeamSize,
	}
}

func recorderConfig(r config.Recorder) audio.RecorderConfig {
	return audio.RecorderConfig{
		SampleRate: r.SampleRate,
		FrameSize:  r.FrameSize,
		SilenceRMS: r.SilenceRMS,
		Trailing:   r.Trailing,
		MaxLength:  r.MaxLength,
	}
}

func buildSpeaker(cfg config.Speech) speech.Speaker {
	logger := tlog.WithComponent("speaker")

	var sp speech.Speaker = speech.SpeakerFunc(func(_ context.Context, text string, s speech.Settings) error {
		logger.Info("Say", "text", text, "language", s.Language)
		return nil
	})
	if cfg.TTS {
		sp = tts.NewEspeak()
	}

	if cfg.Duck.Enabled {
		sp = &speech.Ducked{
			Speaker: sp,
			Ducker:  audio.NewDucker(audio.Pactl{}, []string{"trafficaz", "espeak"}, cfg.Duck.MinVolume),
			Factor:  cfg.Duck.Factor,
			Fade:    cfg.Duck.Fade,
			Logger:  logger,
		}
	}
	return sp
}

// onWake plays the chime and raises a notification off the dispatcher loop.
func onWake(ctx context.Context, cfg config.Speech) func(uint64) {
	if cfg.Chime == "" && !cfg.Notify {
		return nil
	}

	logger := tlog.WithComponent("notify")
	var chime *notify.Chime
	if cfg.Chime != "" {
		chime = notify.NewChime(cfg.Chime)
	}
	desktop := notify.Desktop{App: "trafficaz", Icon: "audio-input-microphone"}

	return func(session uint64) {
		go func() {
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			if cfg.Notify {
				if err := desktop.Notify(ctx, "Listening...", ""); err != nil {
					logger.Debug("Notification failed", "session", session, "err", err)
				}
			}
			if chime != nil {
				if err := chime.Play(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn("Chime failed", "session", session, "err", err)
				}
			}
		}()
	}
}
