package texttospeech

import "github.com/koscakluka/ziggy/core/audio"

// EngineOptions are shared by engines that render audio themselves and
// hand it to a playback device.
type EngineOptions struct {
	PlaybackDevice audio.PlaybackDevice
	EncodingInfo   audio.EncodingInfo
	// ErrorCallback is called when a playback ends with an error other than
	// a cancellation.
	ErrorCallback func(error)
}

type EngineOption func(*EngineOptions)

func NewEngineOptions(opts ...EngineOption) EngineOptions {
	options := EngineOptions{
		EncodingInfo:  audio.DefaultEncodingInfo(),
		ErrorCallback: func(error) {},
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// WithPlaybackDevice makes the engine write PCM to the device instead of
// letting the synthesizer play the audio on its own.
func WithPlaybackDevice(device audio.PlaybackDevice) EngineOption {
	return func(o *EngineOptions) { o.PlaybackDevice = device }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) EngineOption {
	return func(o *EngineOptions) {
		if encodingInfo.IsZero() {
			logger.Warn("ignoring incomplete encoding info", "sample_rate", encodingInfo.SampleRate, "format", encodingInfo.Format)
			return
		}
		o.EncodingInfo = encodingInfo
	}
}

func WithErrorCallback(callback func(error)) EngineOption {
	return func(o *EngineOptions) {
		if callback != nil {
			o.ErrorCallback = callback
		}
	}
}
