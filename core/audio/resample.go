package audio

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler converts mono PCM16 between sample rates. It keeps filter state
// across calls so a stream can be converted chunk by chunk.
type Resampler struct {
	from, to  int
	resampler resampling.Resampler
}

func NewResampler(from, to int) (*Resampler, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("invalid sample rates %d -> %d", from, to)
	}

	r := &Resampler{from: from, to: to}
	if from == to {
		return r, nil
	}

	var err error
	r.resampler, err = resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}
	return r, nil
}

func (r *Resampler) Process(samples []int16) ([]int16, error) {
	if r.resampler == nil {
		return samples, nil
	}

	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s) / 32768.0
	}

	output, err := r.resampler.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}

	out := make([]int16, len(output))
	for i, s := range output {
		out[i] = int16(math.Max(-32768, math.Min(32767, s*32767.0)))
	}
	return out, nil
}
