package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	log "log/slog"

	"trafficaz/internal/api"
	"trafficaz/internal/assistant"
	"trafficaz/internal/bridge"
	"trafficaz/internal/config"
	"trafficaz/internal/ipc"
	tlog "trafficaz/internal/log"
	"trafficaz/pkg/protocol"
)

func main() {
	configFile := cli.StringP("config", "c", "", "Config file path")
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "", "Log level, overrides the config")
	replay := cli.StringSlice("replay", nil, "Audio files to transcribe instead of listening")
	cli.Parse()

	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load(*envFile)

	cfg, err := config.Load(*configFile)
	if err != nil {
		tlog.Setup("info", "")
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	tlog.Setup(cfg.Log.Level, cfg.Log.File)

	log.Info("Booting up", "wake_phrase", cfg.WakePhrase, "recognizer", cfg.Speech.Recognizer, "backend", cfg.Backend.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *replay); err != nil {
		log.Error("Daemon failed", "err", err)
		os.Exit(1)
	}
	log.Info("Shut down")
}

func run(ctx context.Context, cfg *config.Config, replay []string) error {
	d, err := build(ctx, cfg, replay)
	if err != nil {
		return err
	}
	defer d.close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.disp.Run(ctx)
	})

	if cfg.API.Enabled {
		srv := api.New(api.Config{Listen: cfg.API.Listen, Token: cfg.API.Token}, d.disp, d.history(), tlog.WithComponent("api"))
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	if cfg.IPC.Enabled {
		srv := ipc.NewServer(cfg.IPC.Socket, ipc.Commands(d.disp, d.speaker), tlog.WithComponent("ipc"))
		g.Go(func() error {
			return srv.Serve(ctx)
		})
	}

	if cfg.Hub.Enabled {
		link, err := protocol.Dial(ctx, protocol.Config{
			Shard:          cfg.Hub.Shard,
			URL:            cfg.Hub.URL,
			ReconnectDelay: cfg.Hub.ReconnectDelay,
			WriteTimeout:   cfg.Hub.WriteTimeout,
		}, tlog.WithComponent("hub"))
		if err != nil {
			return err
		}

		b := bridge.New(link, d.disp, cfg.Hub.Shard, tlog.WithComponent("bridge"))
		events, cancel := d.disp.Subscribe()
		g.Go(func() error {
			defer cancel()
			return b.Forward(ctx, events)
		})
		g.Go(func() error {
			return link.Run(ctx, func(m *protocol.Message) {
				b.Handle(ctx, m)
			})
		})
	}

	if replay != nil || cfg.Speech.Recognizer != config.RecognizerFeed {
		// on-device and remote recognizers start listening right away
		g.Go(func() error {
			if err := d.disp.Start(ctx); err != nil && !errors.Is(err, assistant.ErrNotRunning) {
				log.Warn("Voice activation did not start", "err", err)
			}
			return nil
		})
	}

	log.Info("Boot up - successful")

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
