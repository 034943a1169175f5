package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	assistant "github.com/koscakluka/ziggy/core"
	"github.com/koscakluka/ziggy/core/audio"
	"github.com/koscakluka/ziggy/core/audio/miniaudio"
	"github.com/koscakluka/ziggy/core/audio/portaudio"
	"github.com/koscakluka/ziggy/core/browser"
	"github.com/koscakluka/ziggy/core/llms/openaicompat"
	"github.com/koscakluka/ziggy/core/speechtotext"
	deepgramstt "github.com/koscakluka/ziggy/core/speechtotext/deepgram"
	"github.com/koscakluka/ziggy/core/speechtotext/vosk"
	"github.com/koscakluka/ziggy/core/texttospeech"
	deepgramtts "github.com/koscakluka/ziggy/core/texttospeech/deepgram"
	"github.com/koscakluka/ziggy/core/texttospeech/espeak"
	"github.com/koscakluka/ziggy/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("ziggy: "+err.Error()))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.LogStdout {
		shutdown, err := setupLogging()
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				fmt.Fprintln(os.Stderr, "failed to flush logs:", err)
			}
		}()
	}

	device, err := openAudio(cfg.AudioBackend)
	if err != nil {
		return err
	}
	defer device.Close()

	engine, err := newSpeechEngine(cfg, device)
	if err != nil {
		return err
	}

	llmOptions := []openaicompat.ClientOption{}
	if cfg.LLM.Model != "" {
		llmOptions = append(llmOptions, openaicompat.WithModel(cfg.LLM.Model))
	}
	if cfg.LLM.APIKey != "" {
		llmOptions = append(llmOptions, openaicompat.WithAPIKey(cfg.LLM.APIKey))
	}

	ziggy := assistant.New(
		assistant.WithConfig(cfg.Assistant),
		assistant.WithAudioInput(device),
		assistant.WithRecognizer(newRecognizer(cfg)),
		assistant.WithSpeechEngine(engine),
		assistant.WithLLM(openaicompat.NewClient(cfg.LLM.EndpointURL, llmOptions...)),
		assistant.WithBrowser(browser.New(browser.WithCommand(cfg.BrowserCommand))),
	)

	console := newConsole(os.Stdout)
	console.Banner(cfg)
	err = ziggy.Run(ctx,
		assistant.WithStateChangedCallback(console.StateChanged),
		assistant.WithTranscriptionCallback(console.Transcript),
		assistant.WithResponseCallback(console.Response),
		assistant.WithInterruptionCallback(console.Interruption),
	)
	if errors.Is(err, assistant.ErrDeviceUnavailable) {
		return fmt.Errorf("check the microphone and speakers: %w", err)
	}
	return err
}

func openAudio(backend string) (audio.Device, error) {
	if backend == config.AudioBackendMiniaudio {
		device, err := miniaudio.NewDevice()
		if err != nil {
			return nil, err
		}
		return device, nil
	}

	device, err := portaudio.NewDevice()
	if err != nil {
		return nil, err
	}
	return device, nil
}

func newRecognizer(cfg config.Config) speechtotext.Recognizer {
	switch cfg.SpeechToText.Provider {
	case config.ProviderDeepgram:
		return deepgramstt.NewRecognizer()
	default:
		return vosk.NewRecognizer(vosk.WithURL(cfg.SpeechToText.VoskURL))
	}
}

func newSpeechEngine(cfg config.Config, device audio.PlaybackDevice) (texttospeech.Engine, error) {
	playback := []texttospeech.EngineOption{
		texttospeech.WithPlaybackDevice(device),
		texttospeech.WithEncodingInfo(audio.EncodingInfo{SampleRate: cfg.Assistant.SampleRate, Format: audio.FormatLinear16}),
	}

	switch cfg.TextToSpeech.Provider {
	case config.ProviderDeepgram:
		voice, err := deepgramtts.ParseVoice(cfg.TextToSpeech.DeepgramVoice)
		if err != nil {
			return nil, err
		}
		engine, err := deepgramtts.NewEngine(voice, deepgramtts.WithEngineOptions(playback...))
		if err != nil {
			return nil, err
		}
		return engine, nil

	default:
		opts := []espeak.EngineOption{
			espeak.WithVoice(cfg.TextToSpeech.EspeakVoice),
			espeak.WithSpeed(cfg.TextToSpeech.EspeakSpeed),
		}
		if cfg.TextToSpeech.EspeakDevice {
			opts = append(opts, espeak.WithEngineOptions(playback...))
		}
		return espeak.NewEngine(opts...), nil
	}
}
