package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/koscakluka/ziggy/core/texttospeech"
)

const longText = "The first sentence is long enough to stand alone. " +
	"The second sentence is also long enough here. " +
	"The third sentence closes the whole response."

func TestSpeakShortTextIsNotSegmented(t *testing.T) {
	engine := &fakeEngine{}
	synth := NewSynthesizer(engine)
	flag := NewInterruptFlag()
	flag.Set(InterruptWakeWord)

	interrupted, err := synth.Speak(context.Background(), "Yes?", true, flag)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if interrupted {
		t.Fatalf("expected short text not to be interruptible")
	}
	if engine.said() != "Yes?" {
		t.Fatalf("expected %q, got %q", "Yes?", engine.said())
	}
}

func TestSpeakWithoutInterruptionPlaysOnce(t *testing.T) {
	engine := &fakeEngine{}
	synth := NewSynthesizer(engine)

	interrupted, err := synth.Speak(context.Background(), longText, false, NewInterruptFlag())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if interrupted {
		t.Fatalf("expected no interruption")
	}
	if engine.said() != longText {
		t.Fatalf("expected one playback of the whole text, got %q", engine.said())
	}
}

func TestSpeakPlaysSegments(t *testing.T) {
	engine := &fakeEngine{}
	synth := NewSynthesizer(engine)

	interrupted, err := synth.Speak(context.Background(), longText, true, NewInterruptFlag())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if interrupted {
		t.Fatalf("expected no interruption")
	}
	if len(engine.spoken) != 3 {
		t.Fatalf("expected 3 segments, got %q", engine.spoken)
	}
}

func TestSpeakFlagSetBeforeStart(t *testing.T) {
	engine := &fakeEngine{}
	synth := NewSynthesizer(engine)
	flag := NewInterruptFlag()
	flag.Set(InterruptShutdown)

	interrupted, err := synth.Speak(context.Background(), longText, true, flag)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !interrupted {
		t.Fatalf("expected interruption")
	}
	if len(engine.spoken) != 0 {
		t.Fatalf("expected nothing to be played, got %q", engine.spoken)
	}
}

func TestSpeakCancelsPlayingSegment(t *testing.T) {
	engine := &fakeEngine{block: func(text string) bool { return strings.HasPrefix(text, "The second") }}
	synth := NewSynthesizer(engine)
	flag := NewInterruptFlag()

	go func() {
		for !strings.Contains(engine.said(), "The second") {
			time.Sleep(time.Millisecond)
		}
		flag.Set(InterruptWakeWord)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	interrupted, err := synth.Speak(ctx, longText, true, flag)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !interrupted {
		t.Fatalf("expected interruption")
	}
	if engine.cancelledCount() != 1 {
		t.Fatalf("expected 1 cancelled playback, got %d", engine.cancelledCount())
	}
	if strings.Contains(engine.said(), "The third") {
		t.Fatalf("expected remaining segments to be dropped, got %q", engine.said())
	}
}

type flaggingEngine struct {
	fakeEngine
	flag *InterruptFlag
}

func (e *flaggingEngine) Play(ctx context.Context, text string) (texttospeech.Playback, error) {
	playback, err := e.fakeEngine.Play(ctx, text)
	if strings.HasPrefix(text, "The third") {
		<-playback.Done()
		e.flag.Set(InterruptWakeWord)
	}
	return playback, err
}

func TestSpeakFlagSetAfterLastSegment(t *testing.T) {
	flag := NewInterruptFlag()
	engine := &flaggingEngine{flag: flag}
	synth := NewSynthesizer(engine)

	interrupted, err := synth.Speak(context.Background(), longText, true, flag)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !interrupted {
		t.Fatalf("expected a flag set after the last segment to count as interrupted")
	}
	if engine.cancelledCount() != 0 {
		t.Fatalf("expected nothing to be cancelled, got %d", engine.cancelledCount())
	}
}

func TestSpeakRetriesPlaybackStart(t *testing.T) {
	engine := &fakeEngine{playErr: errors.New("no audio device")}
	synth := NewSynthesizer(engine, WithPlaybackRetry(2, time.Millisecond))

	_, err := synth.Speak(context.Background(), "Hello.", false, nil)
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected %v, got %v", ErrDeviceUnavailable, err)
	}
}

func TestSpeakContextCancelled(t *testing.T) {
	engine := &fakeEngine{block: func(string) bool { return true }}
	synth := NewSynthesizer(engine)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := synth.Speak(ctx, "Hello there.", false, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected %v, got %v", context.Canceled, err)
	}
	if engine.cancelledCount() != 1 {
		t.Fatalf("expected playback to be cancelled, got %d", engine.cancelledCount())
	}
}

func TestInterruptibleCountsCharacters(t *testing.T) {
	testCases := []struct {
		name      string
		text      string
		threshold int
		expected  bool
	}{
		{"ascii below", "short", 6, false},
		{"ascii at threshold", "sixsix", 6, true},
		{"accented below", "ééééé", 6, false},
		{"accented at threshold", "éééééé", 6, true},
		{"cjk below", "量子计算", 5, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := interruptible(tc.text, tc.threshold); got != tc.expected {
				t.Fatalf("expected %v for %q, got %v", tc.expected, tc.text, got)
			}
		})
	}
}
