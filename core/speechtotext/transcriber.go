package speechtotext

import (
	"context"
	"strings"

	"github.com/koscakluka/ziggy/core/audio"
)

// Result is what a session reports after being fed a frame. Text is empty
// when the engine has nothing new to say about the audio so far.
type Result struct {
	Text  string
	Final bool
}

func (r Result) IsZero() bool { return r.Text == "" && !r.Final }

// Recognizer creates recognition sessions. Sessions are stateful and are
// never shared: every recording window gets a fresh one.
type Recognizer interface {
	NewSession(ctx context.Context, opts ...TranscriptionOption) (Session, error)
}

type Session interface {
	// Feed hands one frame to the engine and returns the latest partial or
	// final hypothesis, if any.
	Feed(ctx context.Context, frame audio.Frame) (Result, error)
	// Finish flushes the engine and returns every final segment of the
	// session joined into one transcript.
	Finish(ctx context.Context) (string, error)
	Close() error
}

// Transcript accumulates the final segments of one session.
type Transcript struct {
	segments []string
}

func (t *Transcript) Add(segment string) {
	if segment = strings.TrimSpace(segment); segment != "" {
		t.segments = append(t.segments, segment)
	}
}

func (t *Transcript) Segments() []string { return t.segments }

func (t *Transcript) Text() string { return strings.Join(t.segments, " ") }

// Utterance is the normalized text used for routing.
func (t *Transcript) Utterance() string { return NormalizeUtterance(t.Text()) }

func (t *Transcript) Reset() { t.segments = nil }

// NormalizeUtterance lowercases and trims a transcript.
func NormalizeUtterance(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
