package espeak

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var errNotWAV = errors.New("not a RIFF/WAVE stream")

type wavFormat struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// readWAVHeader consumes everything up to the start of the data chunk. The
// data chunk size is ignored since espeak writes a placeholder when it
// streams to stdout.
func readWAVHeader(r io.Reader) (wavFormat, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return wavFormat{}, fmt.Errorf("failed to read wav header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return wavFormat{}, errNotWAV
	}

	var (
		format    wavFormat
		hasFormat bool
	)
	for {
		var chunk struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			return wavFormat{}, fmt.Errorf("failed to read wav chunk: %w", err)
		}

		switch string(chunk.ID[:]) {
		case "fmt ":
			if chunk.Size < 16 {
				return wavFormat{}, fmt.Errorf("wav fmt chunk too short: %d", chunk.Size)
			}
			var raw struct {
				AudioFormat   uint16
				Channels      uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
				return wavFormat{}, fmt.Errorf("failed to read wav fmt chunk: %w", err)
			}
			if _, err := io.CopyN(io.Discard, r, int64(chunk.Size-16+chunk.Size%2)); err != nil {
				return wavFormat{}, fmt.Errorf("failed to skip wav fmt extension: %w", err)
			}
			format = wavFormat{
				AudioFormat:   raw.AudioFormat,
				Channels:      raw.Channels,
				SampleRate:    raw.SampleRate,
				BitsPerSample: raw.BitsPerSample,
			}
			hasFormat = true

		case "data":
			if !hasFormat {
				return wavFormat{}, errors.New("wav data chunk before fmt chunk")
			}
			if format.AudioFormat != 1 || format.BitsPerSample != 16 {
				return wavFormat{}, fmt.Errorf("unsupported wav encoding: format %d, %d bits", format.AudioFormat, format.BitsPerSample)
			}
			return format, nil

		default:
			if _, err := io.CopyN(io.Discard, r, int64(chunk.Size+chunk.Size%2)); err != nil {
				return wavFormat{}, fmt.Errorf("failed to skip wav chunk %q: %w", chunk.ID[:], err)
			}
		}
	}
}
