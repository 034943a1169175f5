package portaudio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ziggy/core/audio"
)

// Device is the PortAudio backed [audio.Device]. PortAudio is initialized
// once per Device and terminated on Close.
type Device struct {
	mu     sync.Mutex
	closed bool
}

func NewDevice() (*Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &Device{}, nil
}

func (d *Device) OpenCapture(cfg audio.StreamConfig) (audio.CaptureStream, error) {
	cfg = cfg.WithDefaults()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, audio.ErrStreamClosed
	}

	in := make([]int16, cfg.FrameSize*cfg.Channels)
	stream, err := portaudio.OpenDefaultStream(cfg.Channels, 0, float64(cfg.SampleRate), cfg.FrameSize, in)
	if err != nil {
		return nil, fmt.Errorf("failed to open PortAudio capture stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("failed to start PortAudio capture stream: %w", err)
	}

	logger.Debug("capture stream opened", "sample_rate", cfg.SampleRate, "frame_size", cfg.FrameSize)
	return &captureStream{cfg: cfg, stream: stream, in: in}, nil
}

func (d *Device) OpenPlayback(cfg audio.StreamConfig) (audio.PlaybackStream, error) {
	cfg = cfg.WithDefaults()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, audio.ErrStreamClosed
	}

	out := make([]int16, cfg.FrameSize*cfg.Channels)
	stream, err := portaudio.OpenDefaultStream(0, cfg.Channels, float64(cfg.SampleRate), cfg.FrameSize, out)
	if err != nil {
		return nil, fmt.Errorf("failed to open PortAudio playback stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("failed to start PortAudio playback stream: %w", err)
	}

	logger.Debug("playback stream opened", "sample_rate", cfg.SampleRate, "frame_size", cfg.FrameSize)
	return &playbackStream{stream: stream, out: out}, nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

type captureStream struct {
	cfg    audio.StreamConfig
	stream *portaudio.Stream
	in     []int16

	mu     sync.Mutex
	closed bool
}

// Read blocks on the device for one buffer. The context is only checked
// before the read since PortAudio has no way to abort a blocking read.
func (s *captureStream) Read(ctx context.Context) (audio.Frame, error) {
	if err := ctx.Err(); err != nil {
		return audio.Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return audio.Frame{}, audio.ErrStreamClosed
	}

	// Overflows only mean we dropped input and are reported as errors by
	// PortAudio, the buffer is still usable.
	if err := s.stream.Read(); err != nil && err != portaudio.InputOverflowed {
		return audio.Frame{}, fmt.Errorf("failed to read from PortAudio stream: %w", err)
	}

	samples := make([]int16, len(s.in))
	copy(samples, s.in)
	return audio.Frame{Samples: samples, SampleRate: s.cfg.SampleRate, Channels: s.cfg.Channels}, nil
}

func (s *captureStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	_ = s.stream.Stop()
	return s.stream.Close()
}

type playbackStream struct {
	stream *portaudio.Stream
	out    []int16

	stopped atomic.Bool

	mu     sync.Mutex
	closed bool
}

func (s *playbackStream) Write(ctx context.Context, samples []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return audio.ErrStreamClosed
	}

	for len(samples) > 0 {
		if s.stopped.Load() {
			return audio.ErrPlaybackStopped
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		n := copy(s.out, samples)
		clear(s.out[n:])
		samples = samples[n:]

		if err := s.stream.Write(); err != nil && err != portaudio.OutputUnderflowed {
			if s.stopped.Load() {
				return audio.ErrPlaybackStopped
			}
			return fmt.Errorf("failed to write to PortAudio stream: %w", err)
		}
	}
	return nil
}

// Stop makes the current and later writes return without playing the rest
// of their samples. The stream cannot be restarted.
func (s *playbackStream) Stop() error {
	s.stopped.Store(true)
	return nil
}

func (s *playbackStream) Close() error {
	s.stopped.Store(true)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	_ = s.stream.Abort()
	return s.stream.Close()
}
