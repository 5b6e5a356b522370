package assistant

import "trafficaz/pkg/util"

// DefaultWakePhrase is what the user says to get the assistant's attention.
const DefaultWakePhrase = "hey trafficaz"

// WakeDetector spots the wake phrase in transcripts. Matching ignores case
// and punctuation. Aliases cover recognizer spellings such as
// "hey traffic az".
type WakeDetector struct {
	phrases []string
}

func NewWakeDetector(phrase string, aliases ...string) *WakeDetector {
	w := &WakeDetector{}
	for _, p := range append([]string{phrase}, aliases...) {
		if p = util.Normalize(p); p != "" {
			w.phrases = append(w.phrases, p)
		}
	}
	if len(w.phrases) == 0 {
		w.phrases = []string{DefaultWakePhrase}
	}
	return w
}

// Phrase is the primary wake phrase.
func (w *WakeDetector) Phrase() string { return w.phrases[0] }

// Detect reports whether text contains any wake phrase.
func (w *WakeDetector) Detect(text string) bool {
	for _, p := range w.phrases {
		if util.ContainsPhrase(text, p) {
			return true
		}
	}
	return false
}

// Strip removes the first wake phrase found in text and returns the
// normalized remainder.
func (w *WakeDetector) Strip(text string) string {
	for _, p := range w.phrases {
		if util.ContainsPhrase(text, p) {
			return util.RemovePhrase(text, p)
		}
	}
	return util.Normalize(text)
}
