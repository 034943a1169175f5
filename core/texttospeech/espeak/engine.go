// Package espeak speaks through the espeak command line synthesizer.
//
// By default espeak plays the audio itself. When a playback device is
// configured the engine asks espeak for a WAV stream on stdout and writes
// the samples to the device, so Cancel also drops audio already queued.
package espeak

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/koscakluka/ziggy/core/audio"
	"github.com/koscakluka/ziggy/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultBinary = "espeak"
	DefaultVoice  = "en"
	DefaultSpeed  = 150
)

type Engine struct {
	binary string
	voice  string
	speed  int

	options texttospeech.EngineOptions
}

type EngineOption func(*Engine)

func WithBinary(binary string) EngineOption {
	return func(e *Engine) {
		if binary != "" {
			e.binary = binary
		}
	}
}

func WithVoice(voice string) EngineOption {
	return func(e *Engine) {
		if voice != "" {
			e.voice = voice
		}
	}
}

// WithSpeed sets the speaking rate in words per minute.
func WithSpeed(wpm int) EngineOption {
	return func(e *Engine) {
		if wpm > 0 {
			e.speed = wpm
		}
	}
}

func WithEngineOptions(opts ...texttospeech.EngineOption) EngineOption {
	return func(e *Engine) {
		for _, opt := range opts {
			opt(&e.options)
		}
	}
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		binary:  DefaultBinary,
		voice:   DefaultVoice,
		speed:   DefaultSpeed,
		options: texttospeech.NewEngineOptions(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) args(text string) []string {
	args := []string{"-s", strconv.Itoa(e.speed), "-v", e.voice}
	if e.options.PlaybackDevice != nil {
		args = append(args, "--stdout")
	}
	return append(args, text)
}

func (e *Engine) Play(ctx context.Context, text string) (texttospeech.Playback, error) {
	ctx, span := tracer.Start(ctx, "espeak play")
	span.SetAttributes(
		attribute.Int("text.length", len(text)),
		attribute.Bool("espeak.rendered", e.options.PlaybackDevice != nil),
	)

	// The process outlives Play, so it is not bound to ctx; Cancel kills it.
	cmd := exec.Command(e.binary, e.args(text)...)

	var stdout io.ReadCloser
	if e.options.PlaybackDevice != nil {
		var err error
		if stdout, err = cmd.StdoutPipe(); err != nil {
			span.End()
			return nil, fmt.Errorf("failed to open espeak stdout: %w", err)
		}
	}

	if err := cmd.Start(); err != nil {
		err = fmt.Errorf("failed to start espeak: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}

	target := &renderTarget{}
	handle := texttospeech.NewPlaybackHandle(func() {
		target.stop()
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	})

	go func() {
		defer span.End()

		var err error
		if stdout != nil {
			err = e.render(ctx, stdout, target)
			if err != nil {
				_ = cmd.Process.Kill()
			}
		}
		if waitErr := cmd.Wait(); err == nil && waitErr != nil && !handle.Cancelled() {
			err = fmt.Errorf("espeak exited: %w", waitErr)
		}

		if err != nil && !handle.Cancelled() {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.options.ErrorCallback(err)
		}
		handle.Finish(err)
	}()

	return handle, nil
}

// renderChunkSamples is how many samples are handed to the device at once,
// which bounds how much audio plays after a cancel.
const renderChunkSamples = 2048

// render streams espeak's WAV output to a playback stream opened for it.
func (e *Engine) render(ctx context.Context, stdout io.Reader, target *renderTarget) error {
	reader := bufio.NewReader(stdout)
	format, err := readWAVHeader(reader)
	if err != nil {
		return err
	}
	if format.Channels != 1 {
		return fmt.Errorf("unsupported espeak channel count %d", format.Channels)
	}

	resampler, err := audio.NewResampler(int(format.SampleRate), e.options.EncodingInfo.SampleRate)
	if err != nil {
		return err
	}

	s, err := e.options.PlaybackDevice.OpenPlayback(audio.StreamConfig{
		SampleRate: e.options.EncodingInfo.SampleRate,
		Channels:   1,
		FrameSize:  renderChunkSamples / 2,
	})
	if err != nil {
		return fmt.Errorf("failed to open playback: %w", err)
	}
	defer s.Close()
	if !target.set(s) {
		return texttospeech.ErrCancelled
	}

	buf := make([]byte, renderChunkSamples*2)
	for {
		n, readErr := io.ReadFull(reader, buf)
		if n > 0 {
			samples, err := resampler.Process(audio.BytesToSamples(buf[:n]))
			if err != nil {
				return err
			}
			if err := s.Write(ctx, samples); err != nil {
				if errors.Is(err, audio.ErrPlaybackStopped) {
					return texttospeech.ErrCancelled
				}
				return fmt.Errorf("failed to write speech audio: %w", err)
			}
		}

		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			return nil
		} else if readErr != nil {
			return fmt.Errorf("failed to read espeak output: %w", readErr)
		}
	}
}

// renderTarget hands the playback stream opened by the render goroutine to
// whoever cancels the playback.
type renderTarget struct {
	mu      sync.Mutex
	stream  audio.PlaybackStream
	stopped bool
}

// set reports false if the playback was already stopped.
func (t *renderTarget) set(stream audio.PlaybackStream) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stream = stream
	return !t.stopped
}

func (t *renderTarget) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.stream != nil {
		_ = t.stream.Stop()
	}
}
