package audio

import (
	"math"
	"time"
)

// SilenceDetector is an RMS energy detector with hysteresis. It reports the
// end of an utterance once speech has been heard and the signal then stays
// below the silence threshold for the trailing duration.
type SilenceDetector struct {
	SpeechThreshold  float64
	SilenceThreshold float64
	Trailing         time.Duration

	inSpeech    bool
	heardSpeech bool
	silentFor   time.Duration
	endOfSpeech bool
}

func NewSilenceDetector(trailing time.Duration) *SilenceDetector {
	return &SilenceDetector{
		SpeechThreshold:  500,
		SilenceThreshold: 300,
		Trailing:         trailing,
	}
}

// Observe feeds one frame and reports whether the frame counts as speech.
func (d *SilenceDetector) Observe(frame Frame) bool {
	level := RMS(frame.Samples)

	if d.inSpeech {
		if level < d.SilenceThreshold {
			d.silentFor += frame.Duration()
			if d.silentFor >= d.Trailing {
				d.inSpeech = false
				d.endOfSpeech = true
			}
		} else {
			d.silentFor = 0
		}
		return d.inSpeech
	}

	if level >= d.SpeechThreshold {
		d.inSpeech = true
		d.heardSpeech = true
		d.endOfSpeech = false
		d.silentFor = 0
	}
	return d.inSpeech
}

// EndOfSpeech is true after speech was followed by enough silence.
func (d *SilenceDetector) EndOfSpeech() bool { return d.heardSpeech && d.endOfSpeech }

func (d *SilenceDetector) Reset() {
	d.inSpeech = false
	d.heardSpeech = false
	d.silentFor = 0
	d.endOfSpeech = false
}

func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		f := float64(s)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}
