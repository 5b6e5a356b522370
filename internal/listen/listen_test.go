package listen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tlog "trafficaz/internal/log"
	"trafficaz/internal/speech"
)

type scriptedCapture struct {
	mu      sync.Mutex
	clips   [][]float32
	err     error
	openErr error
}

func (c *scriptedCapture) Open() error { return c.openErr }

func (c *scriptedCapture) Record(ctx context.Context) ([]float32, error) {
	c.mu.Lock()
	if len(c.clips) > 0 {
		clip := c.clips[0]
		c.clips = c.clips[1:]
		c.mu.Unlock()
		return clip, nil
	}
	err := c.err
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

type mapTranscriber map[int]string

func (m mapTranscriber) Transcribe(_ context.Context, pcm []float32) (string, error) {
	text, ok := m[len(pcm)]
	if !ok {
		return "", errors.New("unknown clip")
	}
	return text, nil
}

type sink struct {
	results chan speech.Result
	errs    chan error
}

func newSink() *sink {
	return &sink{results: make(chan speech.Result, 8), errs: make(chan error, 8)}
}

func (s *sink) onResult(r speech.Result) { s.results <- r }
func (s *sink) onError(err error)        { s.errs <- err }

func (s *sink) result(t *testing.T) speech.Result {
	t.Helper()
	select {
	case r := <-s.results:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no result")
		return speech.Result{}
	}
}

func (s *sink) err(t *testing.T) error {
	t.Helper()
	select {
	case err := <-s.errs:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("no error")
		return nil
	}
}

func TestMicDeliversFinalResults(t *testing.T) {
	capture := &scriptedCapture{clips: [][]float32{make([]float32, 1), make([]float32, 2), nil, make([]float32, 3)}}
	tr := mapTranscriber{1: "  hey trafficaz ", 2: "   ", 3: "weather"}
	mic := NewMic(capture, tr, tlog.Discard())

	s := newSink()
	require.NoError(t, mic.Start(context.Background(), s.onResult, s.onError))
	defer mic.Close()

	assert.Equal(t, speech.Result{Text: "hey trafficaz", Final: true}, s.result(t))
	assert.Equal(t, speech.Result{Text: "weather", Final: true}, s.result(t))
}

func TestMicReportsCaptureError(t *testing.T) {
	capture := &scriptedCapture{err: errors.New("device unplugged")}
	mic := NewMic(capture, mapTranscriber{}, tlog.Discard())

	s := newSink()
	require.NoError(t, mic.Start(context.Background(), s.onResult, s.onError))
	assert.ErrorContains(t, s.err(t), "device unplugged")
	require.NoError(t, mic.Close())
}

func TestMicReportsTranscribeError(t *testing.T) {
	capture := &scriptedCapture{clips: [][]float32{make([]float32, 9)}}
	mic := NewMic(capture, mapTranscriber{}, tlog.Discard())

	s := newSink()
	require.NoError(t, mic.Start(context.Background(), s.onResult, s.onError))
	assert.ErrorContains(t, s.err(t), "transcribe")
	require.NoError(t, mic.Close())
}

func TestMicStopIsQuiet(t *testing.T) {
	mic := NewMic(&scriptedCapture{}, mapTranscriber{}, tlog.Discard())

	s := newSink()
	require.NoError(t, mic.Start(context.Background(), s.onResult, s.onError))
	require.NoError(t, mic.Stop())
	require.NoError(t, mic.Close())

	assert.Empty(t, s.results)
	assert.Empty(t, s.errs)
}

func TestMicPermissions(t *testing.T) {
	mic := NewMic(&scriptedCapture{openErr: errors.New("no input device")}, mapTranscriber{}, nil)
	err := mic.RequestMicrophone(context.Background())
	assert.ErrorIs(t, err, speech.ErrPermissionDenied)
	assert.ErrorContains(t, err, "no input device")

	mic = NewMic(&scriptedCapture{}, mapTranscriber{}, nil)
	assert.NoError(t, mic.RequestMicrophone(context.Background()))
}

func fakeDecode(clips map[string]int) DecodeFunc {
	return func(_ context.Context, path string) ([]float32, error) {
		n, ok := clips[path]
		if !ok {
			return nil, errors.New("no such file")
		}
		return make([]float32, n), nil
	}
}

func TestReplay(t *testing.T) {
	_, err := NewReplay(nil, fakeDecode(nil), mapTranscriber{}, nil)
	require.Error(t, err)

	r, err := NewReplay(
		[]string{"wake.wav", "cmd.wav", "broken.wav"},
		fakeDecode(map[string]int{"wake.wav": 1, "cmd.wav": 2}),
		mapTranscriber{1: "hey trafficaz", 2: "any alerts"},
		tlog.Discard(),
	)
	require.NoError(t, err)

	s := newSink()
	require.NoError(t, r.Start(context.Background(), s.onResult, s.onError))
	assert.Equal(t, "hey trafficaz", s.result(t).Text)
	assert.Equal(t, "any alerts", s.result(t).Text)
	assert.ErrorContains(t, s.err(t), "broken.wav")
	require.NoError(t, r.Stop())
}
