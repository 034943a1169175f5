package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ziggy/core/audio"
)

type playbackStream struct {
	device *malgo.Device

	queued []byte
	marks  []playbackMark

	stopped bool
	closed  bool

	mu sync.Mutex
}

// playbackMark fires once the device has consumed every byte queued before
// it was placed.
type playbackMark struct {
	position int
	reached  chan struct{}
}

func newPlaybackStream(audioContext *malgo.AllocatedContext, cfg audio.StreamConfig) (*playbackStream, error) {
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * cfg.Channels

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(cfg.SampleRate)
	config.Playback.Format = format
	config.Playback.Channels = uint32(cfg.Channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = uint32(cfg.SampleRate / 10) // ~100ms of audio
	config.Periods = 4

	s := &playbackStream{}

	var err error
	if s.device, err = malgo.InitDevice(
		audioContext.Context,
		config,
		malgo.DeviceCallbacks{Data: s.processAudio(bytesPerFrame)},
	); err != nil {
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := s.device.Start(); err != nil {
		s.device.Uninit()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	return s, nil
}

// Write queues samples and waits until the device has played them.
func (s *playbackStream) Write(ctx context.Context, samples []int16) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return audio.ErrStreamClosed
	} else if s.stopped {
		s.mu.Unlock()
		return audio.ErrPlaybackStopped
	}

	s.queued = append(s.queued, audio.SamplesToBytes(samples)...)
	mark := playbackMark{position: len(s.queued), reached: make(chan struct{})}
	s.marks = append(s.marks, mark)
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-mark.reached:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return audio.ErrPlaybackStopped
	}
	return nil
}

// Stop drops the queued audio and releases every waiting Write.
func (s *playbackStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	s.queued = nil
	for _, mark := range s.marks {
		close(mark.reached)
	}
	s.marks = nil
	return nil
}

func (s *playbackStream) Close() error {
	_ = s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.device.IsStarted() {
		if stopErr := s.device.Stop(); stopErr != nil {
			err = fmt.Errorf("failed to stop playback device: %w", stopErr)
		}
	}
	s.device.Uninit()
	return err
}

func (s *playbackStream) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame

		s.mu.Lock()
		defer s.mu.Unlock()

		n := copy(pOutput[:need], s.queued)
		clear(pOutput[n:need])
		s.queued = s.queued[n:]
		s.processMarks(n)
	}
}

// processMarks must be called with the lock held.
func (s *playbackStream) processMarks(consumed int) {
	passed := 0
	for i := range s.marks {
		s.marks[i].position -= consumed
		if s.marks[i].position <= 0 {
			close(s.marks[i].reached)
			passed++
		}
	}
	s.marks = s.marks[passed:]
}
