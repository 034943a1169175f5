package audio

import "testing"

func TestResamplerPassesThroughEqualRates(t *testing.T) {
	r, err := NewResampler(DefaultSampleRate, DefaultSampleRate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	samples := []int16{1, 2, 3}
	out, err := r.Process(samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 || out[2] != 3 {
		t.Fatalf("expected samples unchanged, got %v", out)
	}
}

func TestNewResamplerRejectsInvalidRates(t *testing.T) {
	if _, err := NewResampler(0, DefaultSampleRate); err == nil {
		t.Fatalf("expected error for zero input rate")
	}
}
