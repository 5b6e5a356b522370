// Package tts voices replies through libespeak-ng.
package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

int
trafficaz_say(const char *text, const char *voice, const char *lang, int rate, int pitch)
{
	if (!text)
	{ return -1; }

	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -2; }

	int ok = voice && voice[0] && espeak_SetVoiceByName(voice) == EE_OK;
	if (!ok)
	{
		espeak_VOICE specs;
		memset(&specs, 0, sizeof(specs));
		specs.languages = lang;
		espeak_SetVoiceByProperties(&specs);
	}

	espeak_SetParameter(espeakRATE, rate, 0);
	espeak_SetParameter(espeakPITCH, pitch, 0);

	espeak_ERROR rc = espeak_Synth(text, strlen(text) + 1, 0, POS_CHARACTER, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return rc == EE_OK ? 0 : -3;
}
*/
import "C"

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"trafficaz/internal/speech"
)

// espeak's neutral rate in words per minute and its neutral pitch.
const (
	baseRate  = 175
	basePitch = 50
)

// Espeak is a speech.Speaker. Utterances are played synchronously, one at a
// time.
type Espeak struct {
	mu sync.Mutex
}

func NewEspeak() *Espeak {
	return &Espeak{}
}

func (e *Espeak) Speak(ctx context.Context, text string, s speech.Settings) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	cvoice := C.CString(s.Voice)
	defer C.free(unsafe.Pointer(cvoice))
	clang := C.CString(strings.ToLower(s.Language))
	defer C.free(unsafe.Pointer(clang))

	rate, pitch := params(s)
	rc := C.trafficaz_say(ctext, cvoice, clang, C.int(rate), C.int(pitch))
	if rc != 0 {
		return fmt.Errorf("espeak: synth failed: %d", int(rc))
	}
	return nil
}

// params maps the 1.0-neutral rate and pitch onto espeak's units.
func params(s speech.Settings) (rate, pitch int) {
	rate = clamp(int(baseRate*s.Rate), 80, 450)
	pitch = clamp(int(basePitch*s.Pitch), 0, 100)
	return rate, pitch
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
