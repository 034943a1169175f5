package assistant

import (
	"context"

	"github.com/koscakluka/ziggy/core/audio"
	"github.com/koscakluka/ziggy/core/llms"
	"github.com/koscakluka/ziggy/core/router"
	"github.com/koscakluka/ziggy/core/speechtotext"
	"github.com/koscakluka/ziggy/core/texttospeech"
)

type AssistantOption func(*Assistant)

func WithConfig(config Config) AssistantOption {
	return func(a *Assistant) { a.config = config }
}

func WithAudioInput(device audio.CaptureDevice) AssistantOption {
	return func(a *Assistant) { a.capture = device }
}

func WithRecognizer(recognizer speechtotext.Recognizer) AssistantOption {
	return func(a *Assistant) { a.recognizer = recognizer }
}

func WithSpeechEngine(engine texttospeech.Engine) AssistantOption {
	return func(a *Assistant) { a.speechEngine = engine }
}

type LLM interface {
	Prompt(ctx context.Context, prompt string, opts ...llms.PromptOption) (*llms.Response, error)
}

// WithLLM sets the remote model asked when no local handler can answer.
// Without one, remote questions are answered with an apology.
func WithLLM(client LLM) AssistantOption {
	return func(a *Assistant) { a.llm = client }
}

type Browser interface {
	Search(ctx context.Context, query string) (string, error)
}

func WithBrowser(browser Browser) AssistantOption {
	return func(a *Assistant) { a.browser = browser }
}

func WithRouter(r *router.Router) AssistantOption {
	return func(a *Assistant) { a.router = r }
}

type RunOptions struct {
	onStateChanged  func(from, to State)
	onTranscription func(transcript string)
	onResponse      func(response string)
	onInterruption  func(reason InterruptReason)
}

type RunOption func(*RunOptions)

// WithStateChangedCallback registers a callback for every state transition,
// including the transient [StateWakeDetected].
func WithStateChangedCallback(callback func(from, to State)) RunOption {
	return func(o *RunOptions) {
		o.onStateChanged = callback
	}
}

// WithTranscriptionCallback registers a callback for every recorded
// utterance, empty ones included.
func WithTranscriptionCallback(callback func(transcript string)) RunOption {
	return func(o *RunOptions) {
		o.onTranscription = callback
	}
}

func WithResponseCallback(callback func(response string)) RunOption {
	return func(o *RunOptions) {
		o.onResponse = callback
	}
}

// WithInterruptionCallback registers a callback for interruptions heard
// while a response was playing. It is called from the listener goroutine.
func WithInterruptionCallback(callback func(reason InterruptReason)) RunOption {
	return func(o *RunOptions) {
		o.onInterruption = callback
	}
}
