package audio

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sinkInputs = `Sink Input #42
	Driver: protocol-native.c
	Volume: front-left: 52428 /  80% / -5.81 dB,   front-right: 52428 /  80% / -5.81 dB
	Properties:
		application.name = "Firefox"
Sink Input #43
	Volume: front-left: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "trafficaz"
Sink Input #bogus
	Volume: 10%
Sink Input #44
	Volume: mono: 32768 /  50% / -18.06 dB
	Properties:
		application.name = "mpv"
`

func TestParseSinkInputs(t *testing.T) {
	got := parseSinkInputs(sinkInputs)
	assert.Equal(t, []Stream{
		{ID: 42, Volume: 80, AppName: "Firefox"},
		{ID: 43, Volume: 100, AppName: "trafficaz"},
		{ID: 44, Volume: 50, AppName: "mpv"},
	}, got)

	assert.Nil(t, parseSinkInputs("no inputs here"))
}

type fakeMixer struct {
	mu      sync.Mutex
	streams []Stream
	set     map[int][]int
	err     error
}

func (m *fakeMixer) Streams(context.Context) ([]Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Stream(nil), m.streams...), m.err
}

func (m *fakeMixer) SetVolume(_ context.Context, id, percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.set == nil {
		m.set = make(map[int][]int)
	}
	m.set[id] = append(m.set[id], percent)
	for i := range m.streams {
		if m.streams[i].ID == id {
			m.streams[i].Volume = percent
		}
	}
	return nil
}

func (m *fakeMixer) volume(id int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.streams {
		if s.ID == id {
			return s.Volume
		}
	}
	return -1
}

func TestDuckAndRestore(t *testing.T) {
	mixer := &fakeMixer{streams: parseSinkInputs(sinkInputs)}
	d := NewDucker(mixer, []string{"trafficaz"}, 20)
	ctx := context.Background()

	require.NoError(t, d.DuckOthers(ctx, 0.3, 0))
	assert.Equal(t, 24, mixer.volume(42))
	assert.Equal(t, 20, mixer.volume(44), "floored at the minimum")
	assert.Equal(t, 100, mixer.volume(43), "own stream untouched")

	// second duck is a no-op
	require.NoError(t, d.DuckOthers(ctx, 0.1, 0))
	assert.Equal(t, 24, mixer.volume(42))

	require.NoError(t, d.UnduckOthers(ctx, 0))
	assert.Equal(t, 80, mixer.volume(42))
	assert.Equal(t, 50, mixer.volume(44))

	require.NoError(t, d.UnduckOthers(ctx, 0))
}

func TestDuckFadesInSteps(t *testing.T) {
	mixer := &fakeMixer{streams: []Stream{{ID: 1, Volume: 100, AppName: "vlc"}}}
	d := NewDucker(mixer, nil, 0)
	d.step = 1

	require.NoError(t, d.DuckOthers(context.Background(), 0.5, 4))
	assert.Equal(t, []int{88, 75, 63, 50}, mixer.set[1])
}

func TestDuckListError(t *testing.T) {
	d := NewDucker(&fakeMixer{err: errors.New("no pulse")}, nil, 0)
	assert.Error(t, d.DuckOthers(context.Background(), 0.5, 0))
}
