package audio

import "time"

const (
	DefaultSampleRate = 16000
	DefaultChannels   = 1
	// DefaultFrameSize is 250ms of mono audio at the default sample rate.
	DefaultFrameSize = 4000
)

// Format names a sample encoding the way speech providers expect it on the
// wire.
type Format string

const (
	FormatLinear16 Format = "linear16"
	FormatMulaw    Format = "mulaw"
	FormatALaw     Format = "alaw"
)

func (f Format) Name() string { return string(f) }

func (f Format) BytesPerSample() int {
	switch f {
	case FormatMulaw, FormatALaw:
		return 1
	case FormatLinear16:
		return 2
	}
	return 0
}

// Silence is the byte that encodes a zero sample.
func (f Format) Silence() byte {
	switch f {
	case FormatALaw:
		return 0x55
	case FormatMulaw:
		return 0xFF
	}
	return 0
}

// EncodingInfo describes a mono byte stream handed to speech providers.
type EncodingInfo struct {
	SampleRate int
	Format     Format
}

func DefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: FormatLinear16}
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format == ""
}

// SilenceChunk returns d worth of encoded silence.
func (e EncodingInfo) SilenceChunk(d time.Duration) []byte {
	n := int(int64(e.SampleRate) * int64(e.Format.BytesPerSample()) * d.Milliseconds() / 1000)
	chunk := make([]byte, n)
	if s := e.Format.Silence(); s != 0 {
		for i := range chunk {
			chunk[i] = s
		}
	}
	return chunk
}
