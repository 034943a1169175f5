// Package config loads the process configuration. Every value has a default;
// a .env file in the working directory and ZIGGY_* environment variables can
// override them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	assistant "github.com/koscakluka/ziggy/core"
	"github.com/koscakluka/ziggy/core/llms/openaicompat"
	"github.com/koscakluka/ziggy/core/speechtotext/vosk"
	"github.com/koscakluka/ziggy/core/texttospeech/espeak"
)

const (
	AudioBackendPortAudio = "portaudio"
	AudioBackendMiniaudio = "miniaudio"

	ProviderVosk     = "vosk"
	ProviderDeepgram = "deepgram"
	ProviderEspeak   = "espeak"
)

type Config struct {
	Assistant assistant.Config

	AudioBackend string

	SpeechToText SpeechToTextConfig
	TextToSpeech TextToSpeechConfig
	LLM          LLMConfig

	// BrowserCommand opens search URLs instead of the system browser.
	BrowserCommand string
	LogStdout      bool
}

type SpeechToTextConfig struct {
	Provider string
	VoskURL  string
}

type TextToSpeechConfig struct {
	Provider string

	EspeakVoice string
	EspeakSpeed int
	// EspeakDevice renders espeak output through the audio backend instead
	// of letting espeak play it.
	EspeakDevice bool

	DeepgramVoice string
}

type LLMConfig struct {
	EndpointURL string
	Model       string
	APIKey      string
}

func Default() Config {
	return Config{
		Assistant:    assistant.DefaultConfig(),
		AudioBackend: AudioBackendPortAudio,
		SpeechToText: SpeechToTextConfig{
			Provider: ProviderVosk,
			VoskURL:  vosk.DefaultURL,
		},
		TextToSpeech: TextToSpeechConfig{
			Provider:    ProviderEspeak,
			EspeakVoice: espeak.DefaultVoice,
			EspeakSpeed: espeak.DefaultSpeed,
		},
		LLM: LLMConfig{
			EndpointURL: openaicompat.DefaultEndpoint,
		},
	}
}

// Load reads .env if there is one and applies the environment on top of
// the defaults. Malformed or unsupported values are errors.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	env := envReader{}

	env.stringVar("ZIGGY_WAKE_WORD", &cfg.Assistant.WakeWord)
	env.stringVar("ZIGGY_SHUTDOWN_PHRASE", &cfg.Assistant.ShutdownPhrase)
	env.durationVar("ZIGGY_RECORDING_WINDOW", &cfg.Assistant.RecordingWindow)
	env.durationVar("ZIGGY_PERMISSION_WINDOW", &cfg.Assistant.PermissionWindow)
	env.durationVar("ZIGGY_REMOTE_TIMEOUT", &cfg.Assistant.RemoteTimeout)

	env.oneOfVar("ZIGGY_AUDIO_BACKEND", &cfg.AudioBackend, AudioBackendPortAudio, AudioBackendMiniaudio)

	env.oneOfVar("ZIGGY_STT", &cfg.SpeechToText.Provider, ProviderVosk, ProviderDeepgram)
	env.stringVar("ZIGGY_VOSK_URL", &cfg.SpeechToText.VoskURL)

	env.oneOfVar("ZIGGY_TTS", &cfg.TextToSpeech.Provider, ProviderEspeak, ProviderDeepgram)
	env.stringVar("ZIGGY_ESPEAK_VOICE", &cfg.TextToSpeech.EspeakVoice)
	env.intVar("ZIGGY_ESPEAK_SPEED", &cfg.TextToSpeech.EspeakSpeed)
	env.boolVar("ZIGGY_ESPEAK_DEVICE", &cfg.TextToSpeech.EspeakDevice)
	env.stringVar("ZIGGY_DEEPGRAM_VOICE", &cfg.TextToSpeech.DeepgramVoice)

	env.stringVar("ZIGGY_ENDPOINT_URL", &cfg.LLM.EndpointURL)
	env.stringVar("ZIGGY_MODEL", &cfg.LLM.Model)
	env.stringVar("ZIGGY_API_KEY", &cfg.LLM.APIKey)

	env.stringVar("ZIGGY_BROWSER", &cfg.BrowserCommand)
	env.boolVar("ZIGGY_LOG_STDOUT", &cfg.LogStdout)

	if err := env.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type envReader struct {
	errs []error
}

func (r *envReader) err() error { return errors.Join(r.errs...) }

func (r *envReader) fail(key, value, reason string) {
	r.errs = append(r.errs, fmt.Errorf("invalid %s=%q: %s", key, value, reason))
}

func lookup(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func (r *envReader) stringVar(key string, dst *string) {
	if value, ok := lookup(key); ok {
		*dst = value
	}
}

func (r *envReader) oneOfVar(key string, dst *string, allowed ...string) {
	value, ok := lookup(key)
	if !ok {
		return
	}
	value = strings.ToLower(value)
	for _, a := range allowed {
		if value == a {
			*dst = value
			return
		}
	}
	r.fail(key, value, "expected one of "+strings.Join(allowed, ", "))
}

func (r *envReader) intVar(key string, dst *int) {
	value, ok := lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		r.fail(key, value, "expected a positive integer")
		return
	}
	*dst = n
}

func (r *envReader) boolVar(key string, dst *bool) {
	value, ok := lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		r.fail(key, value, "expected true or false")
		return
	}
	*dst = b
}

// durationVar accepts Go durations ("1500ms") and plain seconds ("5", "2.5").
func (r *envReader) durationVar(key string, dst *time.Duration) {
	value, ok := lookup(key)
	if !ok {
		return
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		seconds, floatErr := strconv.ParseFloat(value, 64)
		if floatErr != nil {
			r.fail(key, value, "expected a duration")
			return
		}
		d = time.Duration(seconds * float64(time.Second))
	}
	if d <= 0 {
		r.fail(key, value, "expected a positive duration")
		return
	}
	*dst = d
}
