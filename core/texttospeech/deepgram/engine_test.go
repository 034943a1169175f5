package deepgram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ziggy/core/audio"
	"github.com/koscakluka/ziggy/core/texttospeech"
)

func fakeSpeakServer(t *testing.T, chunk []byte, gotText chan<- string) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		for {
			var msg speakMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			switch msg.Type {
			case "Speak":
				gotText <- msg.Text
			case "Flush":
				_ = conn.WriteMessage(websocket.BinaryMessage, chunk)
				_ = conn.WriteJSON(websocketMessage{Type: "Flushed"})
			case "Close":
				return
			}
		}
	}))
}

func TestEnginePlaysFlushedAudio(t *testing.T) {
	gotText := make(chan string, 1)
	server := fakeSpeakServer(t, audio.SamplesToBytes([]int16{5, -5, 7}), gotText)
	defer server.Close()

	device := &fakePlaybackDevice{}
	engine, err := NewEngine("",
		WithAPIKey("test-key"),
		WithURL("ws"+strings.TrimPrefix(server.URL, "http")),
		WithEngineOptions(texttospeech.WithPlaybackDevice(device)),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	playback, err := engine.Play(context.Background(), "Hello there")
	if err != nil {
		t.Fatalf("unexpected play error: %v", err)
	}
	if err := texttospeech.Wait(context.Background(), playback); err != nil {
		t.Fatalf("unexpected playback error: %v", err)
	}

	if text := <-gotText; text != "Hello there" {
		t.Fatalf("expected %q, got %q", "Hello there", text)
	}
	if got := device.stream.written(); !slices.Equal(got, []int16{5, -5, 7}) {
		t.Fatalf("expected samples to be played, got %v", got)
	}
	if !device.stream.isClosed() {
		t.Fatalf("expected playback stream to be closed")
	}
}

func TestNewEngineValidatesConfiguration(t *testing.T) {
	if _, err := NewEngine("not-a-voice", WithEngineOptions(texttospeech.WithPlaybackDevice(&fakePlaybackDevice{}))); err == nil {
		t.Fatalf("expected invalid voice error")
	}
	if _, err := NewEngine(VoiceOrion); err == nil {
		t.Fatalf("expected error without playback device")
	}
}

func TestPlayFailsWithoutAPIKey(t *testing.T) {
	engine, err := NewEngine(VoiceOrion,
		WithAPIKey(""),
		WithEngineOptions(texttospeech.WithPlaybackDevice(&fakePlaybackDevice{})),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := engine.Play(context.Background(), "hi"); err == nil {
		t.Fatalf("expected missing key error")
	}
}

type fakePlaybackDevice struct {
	stream *fakePlaybackStream
}

func (d *fakePlaybackDevice) OpenPlayback(audio.StreamConfig) (audio.PlaybackStream, error) {
	d.stream = &fakePlaybackStream{}
	return d.stream, nil
}

type fakePlaybackStream struct {
	mu      sync.Mutex
	samples []int16
	stopped bool
	closed  bool
}

func (s *fakePlaybackStream) Write(_ context.Context, samples []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return audio.ErrPlaybackStopped
	}
	s.samples = append(s.samples, samples...)
	return nil
}

func (s *fakePlaybackStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *fakePlaybackStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakePlaybackStream) written() []int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.samples)
}

func (s *fakePlaybackStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
