package audioconv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownmix(t *testing.T) {
	assert.Equal(t, []float32{0.5, 0}, Downmix([]float32{1, 0, 0.5, -0.5}, 2))
	in := []float32{1, 2}
	assert.Equal(t, in, Downmix(in, 1))
}

func TestResample(t *testing.T) {
	up := Resample([]float32{0, 1}, 8000, 16000)
	assert.Equal(t, []float32{0, 0.5, 1, 1}, up)

	down := Resample([]float32{0, 1, 2, 3}, 32000, 16000)
	assert.Equal(t, []float32{0, 2}, down)

	same := []float32{1}
	assert.Equal(t, same, Resample(same, 16000, 16000))
}

func writeWAV(t *testing.T, path string, rate, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func TestDecodeWAV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stereo.wav")
	// 4 stereo frames at 8 kHz
	writeWAV(t, path, 8000, 2, []int{16384, 16384, -16384, -16384, 0, 0, 32767, 32767})

	pcm, err := DecodeFile(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, pcm, 8)
	assert.InDelta(t, 0.5, pcm[0], 1e-3)
	assert.InDelta(t, -0.5, pcm[2], 1e-3)

	pcm, err = DecodeFile(context.Background(), path, Options{MaxSamples: 3})
	require.NoError(t, err)
	assert.Len(t, pcm, 3)
}

func TestDecodeSniffsWithoutExtension(t *testing.T) {
	dir := t.TempDir()
	wavPath := filepath.Join(dir, "clip.wav")
	writeWAV(t, wavPath, 16000, 1, []int{0, 100, 200})

	raw, err := os.ReadFile(wavPath)
	require.NoError(t, err)
	noExt := filepath.Join(dir, "clip")
	require.NoError(t, os.WriteFile(noExt, raw, 0o644))

	pcm, err := DecodeFile(context.Background(), noExt, Options{})
	require.NoError(t, err)
	assert.Len(t, pcm, 3)
}

func TestDecodeUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hey trafficaz"), 0o644))

	_, err := DecodeFile(context.Background(), path, Options{})
	assert.Error(t, err)
}
