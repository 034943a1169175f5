package assistant

import (
	"time"

	"github.com/koscakluka/ziggy/core/audio"
	"github.com/koscakluka/ziggy/core/router"
)

type Config struct {
	WakeWord       string
	ShutdownPhrase string

	SampleRate int
	// FrameSize is the number of samples read from the microphone at once.
	FrameSize  int

	RecordingWindow  time.Duration
	PermissionWindow time.Duration
	// TrailingSilence ends a recording early once speech was followed by
	// this much silence.
	TrailingSilence  time.Duration
	RemoteTimeout    time.Duration

	// Responses shorter than InterruptibleThreshold characters are spoken in
	// one piece and cannot be interrupted.
	InterruptibleThreshold int
	MinSegmentWords        int

	DeviceRetries      int
	DeviceRetryBackoff time.Duration
}

func DefaultConfig() Config {
	return Config{
		WakeWord:               "ziggy",
		ShutdownPhrase:         router.DefaultShutdownPhrase,
		SampleRate:             audio.DefaultSampleRate,
		FrameSize:              audio.DefaultFrameSize,
		RecordingWindow:        5 * time.Second,
		PermissionWindow:       3 * time.Second,
		TrailingSilence:        time.Second,
		RemoteTimeout:          15 * time.Second,
		InterruptibleThreshold: 100,
		MinSegmentWords:        5,
		DeviceRetries:          3,
		DeviceRetryBackoff:     200 * time.Millisecond,
	}
}

func (c Config) streamConfig() audio.StreamConfig {
	return audio.StreamConfig{
		SampleRate: c.SampleRate,
		Channels:   audio.DefaultChannels,
		FrameSize:  c.FrameSize,
	}
}

func (c Config) encodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: c.SampleRate, Format: audio.FormatLinear16}
}

// framesFor is how many microphone frames cover d, rounded up.
func (c Config) framesFor(d time.Duration) int {
	perSecond := float64(c.SampleRate) / float64(c.FrameSize)
	frames := int(d.Seconds()*perSecond + 0.999)
	return max(frames, 1)
}
