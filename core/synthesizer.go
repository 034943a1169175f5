package assistant

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/koscakluka/ziggy/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var errInterrupted = errors.New("speech interrupted")

// interruptible reports whether text is long enough, in characters, to be
// spoken in interruptible segments.
func interruptible(text string, threshold int) bool {
	return utf8.RuneCountInString(text) >= threshold
}

// Synthesizer speaks text through a speech engine. Long text can be spoken
// in sentence segments so an [InterruptFlag] can cut it short.
type Synthesizer struct {
	engine texttospeech.Engine

	interruptibleThreshold int
	minSegmentWords        int
	retry                  deviceRetry
}

type SynthesizerOption func(*Synthesizer)

func WithInterruptibleThreshold(chars int) SynthesizerOption {
	return func(s *Synthesizer) { s.interruptibleThreshold = chars }
}

func WithMinSegmentWords(words int) SynthesizerOption {
	return func(s *Synthesizer) { s.minSegmentWords = words }
}

// WithPlaybackRetry sets how often starting playback is retried and the
// first backoff interval.
func WithPlaybackRetry(retries int, initial time.Duration) SynthesizerOption {
	return func(s *Synthesizer) { s.retry = deviceRetry{retries: retries, initial: initial} }
}

func NewSynthesizer(engine texttospeech.Engine, opts ...SynthesizerOption) *Synthesizer {
	defaults := DefaultConfig()
	s := &Synthesizer{
		engine:                 engine,
		interruptibleThreshold: defaults.InterruptibleThreshold,
		minSegmentWords:        defaults.MinSegmentWords,
		retry:                  deviceRetry{retries: defaults.DeviceRetries, initial: defaults.DeviceRetryBackoff},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Speak plays text and blocks until it finished or was interrupted.
//
// Text shorter than the interruptible threshold, or any text when
// allowInterruption is false, is played in one piece and flag is ignored.
// Otherwise the flag is checked before and after every segment and cancels
// the segment that is playing when it is set. The returned bool reports
// whether the flag was set by the time Speak returned.
func (s *Synthesizer) Speak(ctx context.Context, text string, allowInterruption bool, flag *InterruptFlag) (bool, error) {
	ctx, span := tracer.Start(ctx, "speak")
	defer span.End()
	span.SetAttributes(attribute.Int("speech.length", utf8.RuneCountInString(text)))

	if !allowInterruption || flag == nil || !interruptible(text, s.interruptibleThreshold) {
		if err := s.play(ctx, text, nil); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to speak")
			return false, err
		}
		return false, nil
	}

	segments := SplitSegments(text, s.minSegmentWords)
	span.SetAttributes(attribute.Int("speech.segments", len(segments)))
	for i, segment := range segments {
		if flag.IsSet() {
			span.SetAttributes(attribute.Int("speech.interrupted_at", i))
			return true, nil
		}

		if err := s.play(ctx, segment, flag); err != nil {
			if errors.Is(err, errInterrupted) {
				span.SetAttributes(attribute.Int("speech.interrupted_at", i))
				return true, nil
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to speak segment")
			return false, err
		}
	}

	return flag.IsSet(), nil
}

func (s *Synthesizer) play(ctx context.Context, text string, flag *InterruptFlag) error {
	if text == "" {
		return nil
	}

	var playback texttospeech.Playback
	err := s.retry.do(ctx, "start playback", func() error {
		p, err := s.engine.Play(ctx, text)
		if err != nil {
			return err
		}
		playback = p
		return nil
	})
	if err != nil {
		return err
	}

	select {
	case <-playback.Done():
	case <-flag.Done():
		playback.Cancel()
		<-playback.Done()
		return errInterrupted
	case <-ctx.Done():
		playback.Cancel()
		<-playback.Done()
		return ctx.Err()
	}

	if err := playback.Err(); err != nil && !errors.Is(err, texttospeech.ErrCancelled) {
		return err
	}
	return nil
}
