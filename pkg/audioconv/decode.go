// Package audioconv decodes wav, mp3 and ogg (vorbis or opus) files into
// 16 kHz mono float32 PCM, the input whisper expects.
package audioconv

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

// TargetRate is the output sample rate.
const TargetRate = 16000

type Options struct {
	MaxSamples int // 0 keeps everything
}

// DecodeFile picks a decoder by extension, falling back to sniffing the
// first bytes.
func DecodeFile(ctx context.Context, path string, opt Options) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pcm []float32
	switch format := detect(f, path); format {
	case "wav":
		pcm, err = decodeWAV(f)
	case "mp3":
		pcm, err = decodeMP3(f)
	case "ogg":
		pcm, err = decodeOgg(f)
	default:
		return nil, fmt.Errorf("unsupported format %q (supported: wav, mp3, ogg vorbis/opus)", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	if opt.MaxSamples > 0 && len(pcm) > opt.MaxSamples {
		pcm = pcm[:opt.MaxSamples]
	}
	return pcm, nil
}

func detect(f io.ReadSeeker, path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "wav"
	case ".mp3":
		return "mp3"
	case ".ogg", ".oga", ".opus":
		return "ogg"
	}

	magic, _ := bufio.NewReader(f).Peek(4)
	_, _ = f.Seek(0, io.SeekStart)
	switch {
	case string(magic) == "RIFF":
		return "wav"
	case string(magic) == "OggS":
		return "ogg"
	case len(magic) >= 3 && string(magic[:3]) == "ID3":
		return "mp3"
	}
	return ""
}

func decodeWAV(r io.ReadSeeker) ([]float32, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}
	channels, rate := 1, 44100
	if buf.Format != nil {
		channels = max(buf.Format.NumChannels, 1)
		if buf.Format.SampleRate > 0 {
			rate = buf.Format.SampleRate
		}
	}

	return toMono16k(intsToFloat(buf.Data, depth), channels, rate), nil
}

func decodeMP3(r io.Reader) ([]float32, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, err
	}

	// go-mp3 always yields 16-bit little endian stereo.
	samples := make([]int16, raw.Len()/2)
	if err := binary.Read(&raw, binary.LittleEndian, samples); err != nil {
		return nil, err
	}

	rate := dec.SampleRate()
	if rate <= 0 {
		rate = 44100
	}
	return toMono16k(int16sToFloat(samples), 2, rate), nil
}

// decodeOgg tries vorbis first, then opus.
func decodeOgg(f io.ReadSeeker) ([]float32, error) {
	pcm, format, verr := oggvorbis.ReadAll(f)
	if verr == nil && format != nil && format.Channels > 0 && format.SampleRate > 0 {
		return toMono16k(pcm, format.Channels, format.SampleRate), nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	out, oerr := decodeOpus(f)
	if oerr != nil {
		return nil, fmt.Errorf("not vorbis (%v) or opus (%w)", verr, oerr)
	}
	return out, nil
}

func decodeOpus(rs io.ReadSeeker) ([]float32, error) {
	dec, err := popus.NewDecoder(rs)
	if err != nil {
		return nil, err
	}
	defer dec.Destroy()

	channels := max(dec.ChannelCount(), 1)

	// libopusfile decodes at 48 kHz.
	var pcm []float32
	buf := make([]int16, 24000*channels)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, int16sToFloat(buf[:n*channels])...)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if len(pcm) == 0 {
		return nil, errors.New("empty opus stream")
	}
	return toMono16k(pcm, channels, 48000), nil
}
