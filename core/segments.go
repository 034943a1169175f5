package assistant

import (
	"strings"
	"unicode"
)

// SplitSegments breaks text into sentences for interruptible playback.
// Sentences with fewer than minWords words are merged into the next one and
// a short final sentence is appended to the previous one.
func SplitSegments(text string, minWords int) []string {
	var out []string
	pending := ""
	for _, sentence := range sentences(text) {
		if pending != "" {
			sentence = pending + " " + sentence
		}
		if len(strings.Fields(sentence)) < minWords {
			pending = sentence
			continue
		}
		out = append(out, sentence)
		pending = ""
	}

	if pending != "" {
		if len(out) == 0 {
			return []string{pending}
		}
		out[len(out)-1] += " " + pending
	}
	return out
}

func sentences(text string) []string {
	var (
		out     []string
		current strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			out = append(out, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		if !isTerminator(runes[i]) {
			continue
		}
		// keep runs like "?!" or "..." together
		for i+1 < len(runes) && isTerminator(runes[i+1]) {
			i++
			current.WriteRune(runes[i])
		}
		// "3.5" is not the end of a sentence
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		flush()
	}
	flush()
	return out
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
