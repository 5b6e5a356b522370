package util

import (
	"strings"
	"unicode"
)

// Normalize lowercases s, turns punctuation into spaces and collapses runs of
// whitespace, so "Hey, TrafficAZ!" and "hey trafficaz" compare equal.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range strings.ToLower(s) {
		switch {
		case r == '\'' || r == '’':
			// drop apostrophes: "what's" -> "whats"
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// ContainsPhrase reports whether the normalized text contains the normalized
// phrase. An empty phrase never matches.
func ContainsPhrase(text, phrase string) bool {
	phrase = Normalize(phrase)
	if phrase == "" {
		return false
	}
	return strings.Contains(Normalize(text), phrase)
}

// RemovePhrase drops the first occurrence of phrase from text. Both are
// normalized; the remainder is returned normalized.
func RemovePhrase(text, phrase string) string {
	text = Normalize(text)
	phrase = Normalize(phrase)
	if phrase == "" {
		return text
	}

	i := strings.Index(text, phrase)
	if i < 0 {
		return text
	}

	return Normalize(text[:i] + " " + text[i+len(phrase):])
}
