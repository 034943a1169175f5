package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ziggy/core/audio"
)

// Device is the miniaudio backed [audio.Device]. It owns the malgo context,
// each opened stream owns its own malgo device.
type Device struct {
	// audioContext is only kept to uninitialize it on Close
	audioContext *malgo.AllocatedContext

	mu     sync.Mutex
	closed bool
}

func NewDevice() (*Device, error) {
	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("malgo context initialization failed: %w", err)
	}

	return &Device{audioContext: audioCtx}, nil
}

func (d *Device) OpenCapture(cfg audio.StreamConfig) (audio.CaptureStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, audio.ErrStreamClosed
	}

	stream, err := newCaptureStream(d.audioContext, cfg.WithDefaults())
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func (d *Device) OpenPlayback(cfg audio.StreamConfig) (audio.PlaybackStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, audio.ErrStreamClosed
	}

	stream, err := newPlaybackStream(d.audioContext, cfg.WithDefaults())
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	err := d.audioContext.Uninit()
	d.audioContext.Free()
	if err != nil {
		return fmt.Errorf("failed to uninitialize malgo context: %w", err)
	}
	return nil
}
