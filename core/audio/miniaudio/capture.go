package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ziggy/core/audio"
)

// capturedChunkBacklog bounds how many device callbacks can queue up before
// audio is dropped.
const capturedChunkBacklog = 64

type captureStream struct {
	cfg    audio.StreamConfig
	device *malgo.Device

	chunks  chan []int16
	pending []int16

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newCaptureStream(audioContext *malgo.AllocatedContext, cfg audio.StreamConfig) (*captureStream, error) {
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * cfg.Channels

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(cfg.SampleRate)
	config.Capture.Format = format
	config.Capture.Channels = uint32(cfg.Channels)
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = 480
	config.Periods = 3

	s := &captureStream{
		cfg:    cfg,
		chunks: make(chan []int16, capturedChunkBacklog),
		done:   make(chan struct{}),
	}

	var err error
	s.device, err = malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}

			select {
			case s.chunks <- audio.BytesToSamples(pInput[:n]):
			default:
				logger.Warn("capture backlog full, dropping audio", "frames", frameCount)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}

	if err := s.device.Start(); err != nil {
		s.device.Uninit()
		return nil, fmt.Errorf("failed to start capture device: %w", err)
	}

	return s, nil
}

// Read collects device callbacks until a full frame is available.
func (s *captureStream) Read(ctx context.Context) (audio.Frame, error) {
	want := s.cfg.FrameSize * s.cfg.Channels
	for len(s.pending) < want {
		select {
		case <-ctx.Done():
			return audio.Frame{}, ctx.Err()
		case <-s.done:
			return audio.Frame{}, audio.ErrStreamClosed
		case chunk := <-s.chunks:
			s.pending = append(s.pending, chunk...)
		}
	}

	samples := make([]int16, want)
	copy(samples, s.pending)
	s.pending = s.pending[want:]
	return audio.Frame{Samples: samples, SampleRate: s.cfg.SampleRate, Channels: s.cfg.Channels}, nil
}

func (s *captureStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)

	var err error
	if s.device.IsStarted() {
		if stopErr := s.device.Stop(); stopErr != nil {
			err = fmt.Errorf("failed to stop capture device: %w", stopErr)
		}
	}
	s.device.Uninit()
	return err
}
