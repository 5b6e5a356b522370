package audio

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"
)

const maxVolume = 150

// Stream is one playback stream of the sound server.
type Stream struct {
	ID      int
	Volume  int // percent
	AppName string
}

// Mixer lists playback streams and sets their volume.
type Mixer interface {
	Streams(ctx context.Context) ([]Stream, error)
	SetVolume(ctx context.Context, id, percent int) error
}

type fadeTarget struct {
	id   int
	from int
	to   int
}

// Ducker lowers every playback stream except our own while the assistant
// talks, and restores them afterwards.
type Ducker struct {
	mixer     Mixer
	selfNames []string // application.name values left alone
	minVolume int
	step      time.Duration

	mu       sync.Mutex
	active   bool
	original map[int]int // stream id -> volume before ducking
}

func NewDucker(mixer Mixer, selfNames []string, minVolume int) *Ducker {
	return &Ducker{
		mixer:     mixer,
		selfNames: append([]string(nil), selfNames...),
		minVolume: min(max(minVolume, 0), maxVolume),
		step:      10 * time.Millisecond,
		original:  make(map[int]int),
	}
}

// DuckOthers fades foreign streams to volume*factor, never below the
// configured minimum. Calling it while already ducked does nothing.
func (d *Ducker) DuckOthers(ctx context.Context, factor float64, fade time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	streams, err := d.mixer.Streams(ctx)
	if err != nil {
		return fmt.Errorf("list streams: %w", err)
	}

	d.original = make(map[int]int)
	var targets []fadeTarget
	for _, s := range streams {
		if slices.Contains(d.selfNames, s.AppName) {
			continue
		}
		to := math.Max(float64(s.Volume)*factor, float64(d.minVolume))
		to = math.Min(to, maxVolume)

		d.original[s.ID] = s.Volume
		targets = append(targets, fadeTarget{id: s.ID, from: s.Volume, to: int(math.Round(to))})
	}

	if err := d.fade(ctx, targets, fade); err != nil {
		return err
	}
	d.active = true
	return nil
}

// UnduckOthers fades ducked streams back. Streams that appeared after
// ducking are not touched.
func (d *Ducker) UnduckOthers(ctx context.Context, fade time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	streams, err := d.mixer.Streams(ctx)
	if err != nil {
		return fmt.Errorf("list streams: %w", err)
	}

	var targets []fadeTarget
	for _, s := range streams {
		orig, ok := d.original[s.ID]
		if !ok || slices.Contains(d.selfNames, s.AppName) {
			continue
		}
		targets = append(targets, fadeTarget{id: s.ID, from: s.Volume, to: orig})
	}

	if err := d.fade(ctx, targets, fade); err != nil {
		return err
	}
	d.original = make(map[int]int)
	d.active = false
	return nil
}

func (d *Ducker) fade(ctx context.Context, targets []fadeTarget, fade time.Duration) error {
	if len(targets) == 0 {
		return nil
	}

	steps := max(int(fade/d.step), 1)
	pause := fade / time.Duration(steps)

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		frac := float64(i) / float64(steps)
		for _, t := range targets {
			v := int(math.Round(float64(t.from) + float64(t.to-t.from)*frac))
			if err := d.mixer.SetVolume(ctx, t.id, v); err != nil {
				return fmt.Errorf("set volume id=%d: %w", t.id, err)
			}
		}

		if i < steps && pause > 0 {
			time.Sleep(pause)
		}
	}
	return nil
}
