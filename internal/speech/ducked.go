package speech

import (
	"context"
	"log/slog"
	"time"
)

// Ducker lowers and restores the volume of other audio streams.
type Ducker interface {
	DuckOthers(ctx context.Context, factor float64, fade time.Duration) error
	UnduckOthers(ctx context.Context, fade time.Duration) error
}

// Ducked wraps a Speaker so other audio is turned down while it talks.
type Ducked struct {
	Speaker Speaker
	Ducker  Ducker
	Factor  float64
	Fade    time.Duration
	Logger  *slog.Logger
}

func (d *Ducked) Speak(ctx context.Context, text string, s Settings) error {
	if err := d.Ducker.DuckOthers(ctx, d.Factor, d.Fade); err != nil {
		// speaking matters more than the volume of other apps
		d.logger().Warn("Failed to duck other streams", "err", err)
	}

	err := d.Speaker.Speak(ctx, text, s)

	// restore even when ctx is already cancelled
	if uerr := d.Ducker.UnduckOthers(context.WithoutCancel(ctx), d.Fade); uerr != nil {
		d.logger().Warn("Failed to restore other streams", "err", uerr)
	}

	return err
}

func (d *Ducked) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}
