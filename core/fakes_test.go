package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/koscakluka/ziggy/core/audio"
	"github.com/koscakluka/ziggy/core/llms"
	"github.com/koscakluka/ziggy/core/speechtotext"
	"github.com/koscakluka/ziggy/core/texttospeech"
)

type fakeCaptureDevice struct {
	mu        sync.Mutex
	failOpens int // negative fails forever
	failReads bool
	opens     int
	open      int
	maxOpen   int
	reads     int
}

func (d *fakeCaptureDevice) OpenCapture(cfg audio.StreamConfig) (audio.CaptureStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	if d.failOpens != 0 {
		if d.failOpens > 0 {
			d.failOpens--
		}
		return nil, errors.New("device busy")
	}
	d.open++
	d.maxOpen = max(d.maxOpen, d.open)
	return &fakeCaptureStream{device: d, cfg: cfg.WithDefaults()}, nil
}

func (d *fakeCaptureDevice) readCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}

func (d *fakeCaptureDevice) stats() (opens, open, maxOpen int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens, d.open, d.maxOpen
}

type fakeCaptureStream struct {
	device *fakeCaptureDevice
	cfg    audio.StreamConfig
	once   sync.Once
}

func (s *fakeCaptureStream) Read(ctx context.Context) (audio.Frame, error) {
	select {
	case <-ctx.Done():
		return audio.Frame{}, ctx.Err()
	case <-time.After(time.Millisecond):
	}

	s.device.mu.Lock()
	s.device.reads++
	failReads := s.device.failReads
	s.device.mu.Unlock()
	if failReads {
		return audio.Frame{}, errors.New("input overflowed")
	}
	return audio.Frame{
		Samples:    make([]int16, s.cfg.FrameSize),
		SampleRate: s.cfg.SampleRate,
		Channels:   s.cfg.Channels,
	}, nil
}

func (s *fakeCaptureStream) Close() error {
	s.once.Do(func() {
		s.device.mu.Lock()
		s.device.open--
		s.device.mu.Unlock()
	})
	return nil
}

// sessionScript drives one transcriber session: results are returned by
// consecutive Feed calls, transcript by Finish.
type sessionScript struct {
	results    []speechtotext.Result
	transcript string
}

func wakeSession() sessionScript {
	return sessionScript{results: []speechtotext.Result{{}, {Text: "hey ziggy"}}}
}

func shutdownSession() sessionScript {
	return sessionScript{results: []speechtotext.Result{{Text: "take a break", Final: true}}}
}

func utteranceSession(text string) sessionScript {
	return sessionScript{transcript: text}
}

type fakeRecognizer struct {
	mu      sync.Mutex
	scripts []sessionScript
	started int
}

func (r *fakeRecognizer) NewSession(ctx context.Context, opts ...speechtotext.TranscriptionOption) (speechtotext.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
	if len(r.scripts) == 0 {
		return &fakeSession{}, nil
	}
	script := r.scripts[0]
	r.scripts = r.scripts[1:]
	return &fakeSession{script: script}, nil
}

type fakeSession struct {
	script sessionScript
	fed    int
}

func (s *fakeSession) Feed(ctx context.Context, frame audio.Frame) (speechtotext.Result, error) {
	if s.fed >= len(s.script.results) {
		return speechtotext.Result{}, nil
	}
	result := s.script.results[s.fed]
	s.fed++
	return result, nil
}

func (s *fakeSession) Finish(ctx context.Context) (string, error) { return s.script.transcript, nil }

func (s *fakeSession) Close() error { return nil }

type fakeEngine struct {
	mu     sync.Mutex
	spoken []string

	// block makes playback of matching text last until it is cancelled.
	block     func(text string) bool
	cancelled []string
	playErr   error
}

func (e *fakeEngine) Play(ctx context.Context, text string) (texttospeech.Playback, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playErr != nil {
		return nil, e.playErr
	}
	e.spoken = append(e.spoken, text)

	var handle *texttospeech.PlaybackHandle
	handle = texttospeech.NewPlaybackHandle(func() {
		e.mu.Lock()
		e.cancelled = append(e.cancelled, text)
		e.mu.Unlock()
		handle.Finish(nil)
	})
	if e.block == nil || !e.block(text) {
		handle.Finish(nil)
	}
	return handle, nil
}

func (e *fakeEngine) said() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return strings.Join(e.spoken, "|")
}

func (e *fakeEngine) cancelledCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cancelled)
}

type fakeLLM struct {
	mu       sync.Mutex
	response string
	err      error
	hang     bool // blocks until the prompt context ends
	prompts  []string
}

func (l *fakeLLM) Prompt(ctx context.Context, prompt string, opts ...llms.PromptOption) (*llms.Response, error) {
	l.mu.Lock()
	l.prompts = append(l.prompts, prompt)
	hang := l.hang
	l.mu.Unlock()
	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return &llms.Response{Content: l.response, Model: "fake"}, nil
}

func (l *fakeLLM) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prompts)
}

type fakeBrowser struct {
	queries []string
	err     error
}

func (b *fakeBrowser) Search(ctx context.Context, query string) (string, error) {
	b.queries = append(b.queries, query)
	return "https://duckduckgo.com/?q=" + query, b.err
}

func testConfig() Config {
	config := DefaultConfig()
	config.DeviceRetryBackoff = time.Millisecond
	config.RemoteTimeout = time.Second
	return config
}

type stateRecorder struct {
	mu          sync.Mutex
	transitions []string
}

func (r *stateRecorder) record(from, to State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, from.String()+">"+to.String())
}

func (r *stateRecorder) visited(state State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.transitions {
		if strings.HasSuffix(t, ">"+state.String()) {
			return true
		}
	}
	return false
}

func (r *stateRecorder) saw(from, to State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.transitions {
		if t == from.String()+">"+to.String() {
			return true
		}
	}
	return false
}
