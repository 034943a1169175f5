package audio

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrStreamClosed    = errors.New("audio stream closed")
	ErrPlaybackStopped = errors.New("audio playback stopped")
)

type Direction int

const (
	DirectionCapture Direction = iota
	DirectionPlayback
)

func (d Direction) String() string {
	switch d {
	case DirectionCapture:
		return "capture"
	case DirectionPlayback:
		return "playback"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

type StreamConfig struct {
	SampleRate int
	Channels   int
	// FrameSize is the number of samples per channel delivered by one Read
	// or consumed by one device buffer on playback.
	FrameSize int
}

func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
		FrameSize:  DefaultFrameSize,
	}
}

// WithDefaults fills zero fields with the package defaults.
func (c StreamConfig) WithDefaults() StreamConfig {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Channels <= 0 {
		c.Channels = DefaultChannels
	}
	if c.FrameSize <= 0 {
		c.FrameSize = DefaultFrameSize
	}
	return c
}

// CaptureStream is an open capture handle. Read blocks until a full frame
// is available.
type CaptureStream interface {
	Read(ctx context.Context) (Frame, error)
	Close() error
}

// PlaybackStream is an open playback handle.
//
// Write blocks until the samples have been handed to the device or the
// stream is stopped. Stop may be called from another goroutine and makes
// any in-flight and future Write return [ErrPlaybackStopped].
type PlaybackStream interface {
	Write(ctx context.Context, samples []int16) error
	Stop() error
	Close() error
}

type CaptureDevice interface {
	OpenCapture(cfg StreamConfig) (CaptureStream, error)
}

type PlaybackDevice interface {
	OpenPlayback(cfg StreamConfig) (PlaybackStream, error)
}

// Device owns the audio hardware. Capture and playback handles are distinct
// so one of each can be open at the same time.
type Device interface {
	CaptureDevice
	PlaybackDevice
	Close() error
}
