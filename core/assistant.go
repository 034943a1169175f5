package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ziggy/core/audio"
	"github.com/koscakluka/ziggy/core/llms"
	"github.com/koscakluka/ziggy/core/router"
	"github.com/koscakluka/ziggy/core/speechtotext"
	"github.com/koscakluka/ziggy/core/texttospeech"
	"github.com/koscakluka/ziggy/internal/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var ErrAlreadyRunning = errors.New("assistant is already running")

type Assistant struct {
	config Config

	capture      audio.CaptureDevice
	recognizer   speechtotext.Recognizer
	speechEngine texttospeech.Engine
	synth        *Synthesizer
	llm          LLM
	browser      Browser
	router       *router.Router

	runOptions RunOptions
	running    atomic.Bool

	mu    sync.Mutex
	state State
	turns []Turn

	closeOnce sync.Once
	closeErr  error
}

func New(opts ...AssistantOption) *Assistant {
	a := &Assistant{config: DefaultConfig()}
	for _, opt := range opts {
		opt(a)
	}

	if a.router == nil {
		a.router = router.New(router.WithShutdownPhrase(a.config.ShutdownPhrase))
	}
	a.synth = NewSynthesizer(a.speechEngine,
		WithInterruptibleThreshold(a.config.InterruptibleThreshold),
		WithMinSegmentWords(a.config.MinSegmentWords),
		WithPlaybackRetry(a.config.DeviceRetries, a.config.DeviceRetryBackoff),
	)
	return a
}

func (a *Assistant) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Assistant) transition(to State) {
	a.mu.Lock()
	from := a.state
	a.state = to
	a.mu.Unlock()

	if from == to {
		return
	}
	logger.Debug("state changed", "from", from.String(), "to", to.String())
	if a.runOptions.onStateChanged != nil {
		a.runOptions.onStateChanged(from, to)
	}
}

func (a *Assistant) validate() error {
	switch {
	case a.capture == nil:
		return errors.New("no audio input configured")
	case a.recognizer == nil:
		return errors.New("no speech recognizer configured")
	case a.speechEngine == nil:
		return errors.New("no speech engine configured")
	}
	return nil
}

// Run speaks the welcome message and then serves voice commands until the
// shutdown phrase is heard or ctx is cancelled. Both end with a nil error;
// only the shutdown phrase gets a spoken farewell. Audio devices that keep
// failing end Run with an error wrapping [ErrDeviceUnavailable].
//
// Run closes the assistant before returning.
func (a *Assistant) Run(ctx context.Context, opts ...RunOption) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("failed to close assistant", "error", closeErr)
		}
	}()

	for _, opt := range opts {
		opt(&a.runOptions)
	}
	if err := a.validate(); err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "run assistant")
	defer span.End()

	a.transition(StateSpeaking)
	if err := a.say(ctx, welcomeMessage); err != nil {
		return a.stop(ctx, span, false, err)
	}

	recognitionBackOff := newRecognitionBackOff(a.config.DeviceRetryBackoff)

	next := StateListening
	for next != StateShuttingDown {
		var err error
		switch next {
		case StateRecording:
			next, err = a.takeTurn(ctx)

		default:
			next, err = a.listen(ctx)
			if errors.Is(err, errRecognition) {
				wait := recognitionBackOff.NextBackOff()
				logger.Warn("failed to listen for wake word", "error", err, "retry_in", wait)
				select {
				case <-ctx.Done():
				case <-time.After(wait):
				}
				next, err = StateListening, nil
			} else if err == nil {
				recognitionBackOff.Reset()
			}
		}

		if err != nil {
			return a.stop(ctx, span, false, err)
		}
		if ctx.Err() != nil {
			return a.stop(ctx, span, false, nil)
		}
	}

	return a.stop(ctx, span, true, nil)
}

// stop moves to ShuttingDown. Cancellation is a clean exit; the farewell is
// only spoken when the user asked to stop.
func (a *Assistant) stop(ctx context.Context, span trace.Span, farewell bool, err error) error {
	a.transition(StateShuttingDown)

	if err != nil && ctx.Err() != nil {
		err = nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assistant stopped")
		logger.Error("assistant stopped", "error", err)
		return err
	}

	if farewell && ctx.Err() == nil {
		if err := a.say(ctx, router.Farewell); err != nil && ctx.Err() == nil {
			logger.Warn("failed to say farewell", "error", err)
		}
	}
	logger.Info("assistant stopped")
	return nil
}

func (a *Assistant) listen(ctx context.Context) (State, error) {
	a.transition(StateListening)

	reason, err := a.watch(ctx, nil)
	if err != nil {
		return StateListening, err
	}

	switch reason {
	case InterruptShutdown:
		return StateShuttingDown, nil
	case InterruptWakeWord:
		a.transition(StateWakeDetected)
		return StateRecording, nil
	default:
		return StateListening, nil
	}
}

// takeTurn runs one turn from the acknowledgement to the end of the spoken
// response and returns the state to continue in.
func (a *Assistant) takeTurn(ctx context.Context) (next State, err error) {
	turn := Turn{ID: uuid.NewString(), StartedAt: time.Now()}
	ctx, span := tracer.Start(ctx, "turn", trace.WithAttributes(attribute.String("turn.id", turn.ID)))
	defer func() {
		if err != nil && ctx.Err() == nil {
			turn.Err = err
			span.RecordError(err)
			span.SetStatus(codes.Error, "turn failed")
		}
		a.recordTurn(turn)
		span.End()
	}()

	a.transition(StateRecording)
	if err := a.say(ctx, acknowledgement); err != nil {
		return StateShuttingDown, err
	}

	utterance, err := a.record(ctx, a.config.RecordingWindow)
	if err != nil {
		return StateShuttingDown, err
	}
	turn.Utterance = utterance
	span.SetAttributes(attribute.String("turn.utterance", utterance))
	if a.runOptions.onTranscription != nil {
		a.runOptions.onTranscription(utterance)
	}

	if utterance == "" {
		return a.respond(ctx, &turn, notUnderstood)
	}

	a.transition(StateRouting)
	decision := a.router.Route(utterance)
	turn.Route = decision
	span.SetAttributes(attribute.String("turn.route", decision.Kind.String()))
	logger.Info("routed utterance", "utterance", utterance, "decision", decision.String())

	switch decision.Kind {
	case router.KindShutdown:
		turn.Response = decision.Text
		return StateShuttingDown, nil
	case router.KindLocalAnswer:
		return a.respond(ctx, &turn, decision.Text)
	}

	a.transition(StateAwaitingPermission)
	permission, err := a.RequestPermission(ctx, permissionReason(decision.Target))
	if err != nil {
		return StateShuttingDown, err
	}
	turn.Permission = utils.Ptr(permission)
	if !permission.Allows() {
		return a.respond(ctx, &turn, stayingLocal)
	}

	response := a.fulfil(ctx, decision)
	if ctx.Err() != nil {
		return StateShuttingDown, ctx.Err()
	}
	return a.respond(ctx, &turn, response)
}

// fulfil performs a permitted remote query and returns what to say about it.
func (a *Assistant) fulfil(ctx context.Context, decision router.Decision) string {
	if decision.Target == router.TargetWebSearch {
		if a.browser == nil {
			return browserFailed
		}
		if _, err := a.browser.Search(ctx, decision.Text); err != nil {
			logger.Warn("failed to open web search", "query", decision.Text, "error", err)
			return browserFailed
		}
		return webSearchOpened + decision.Text
	}

	if a.llm == nil {
		logger.Warn("no language model configured")
		return remoteErrorApology
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.RemoteTimeout)
	defer cancel()
	response, err := a.llm.Prompt(ctx, remotePromptPrefix+decision.Text)
	if err != nil {
		logger.Warn("remote query failed", "error", err)
		if errors.Is(err, llms.ErrUnexpectedStatus) {
			return remoteStatusApology
		}
		return remoteErrorApology
	}
	return response.Content
}

func (a *Assistant) respond(ctx context.Context, turn *Turn, response string) (State, error) {
	a.transition(StateSpeaking)
	turn.Response = response
	if a.runOptions.onResponse != nil {
		a.runOptions.onResponse(response)
	}

	reason, err := a.speakResponse(ctx, response)
	if err != nil {
		return StateShuttingDown, err
	}
	turn.Interrupted = reason != InterruptNone

	switch reason {
	case InterruptWakeWord:
		return StateRecording, nil
	case InterruptShutdown:
		return StateShuttingDown, nil
	default:
		return StateListening, nil
	}
}

// speakResponse plays a response. Long responses run the interruption
// listener next to the speech; it has released the microphone by the time
// speakResponse returns.
func (a *Assistant) speakResponse(ctx context.Context, response string) (InterruptReason, error) {
	if !interruptible(response, a.config.InterruptibleThreshold) {
		return InterruptNone, a.say(ctx, response)
	}

	flag := NewInterruptFlag()
	speechDone := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return panicSafeNamedWorker("speech", func(ctx context.Context) error {
			defer close(speechDone)
			_, err := a.synth.Speak(ctx, response, true, flag)
			return a.speechError(ctx, err)
		})(gctx)
	})
	g.Go(func() error {
		return panicSafeNamedWorker("interruption listener", func(ctx context.Context) error {
			return a.listenForInterruption(ctx, flag, speechDone)
		})(gctx)
	})

	if err := g.Wait(); err != nil {
		return InterruptNone, err
	}
	if ctx.Err() != nil {
		return InterruptNone, ctx.Err()
	}
	return flag.Reason(), nil
}

// say speaks text without interruption.
func (a *Assistant) say(ctx context.Context, text string) error {
	_, err := a.synth.Speak(ctx, text, false, nil)
	return a.speechError(ctx, err)
}

// speechError keeps the errors that have to stop the assistant. Anything
// else went wrong with a single utterance and is only logged.
func (a *Assistant) speechError(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, ErrDeviceUnavailable):
		return err
	default:
		logger.Warn("failed to speak", "error", err)
		return nil
	}
}

// Close releases the audio input, recognizer and speech engine if they hold
// resources. It is safe to call more than once.
func (a *Assistant) Close() error {
	a.closeOnce.Do(func() {
		var errs []error
		for _, c := range []any{a.capture, a.recognizer, a.speechEngine} {
			closer, ok := c.(io.Closer)
			if !ok {
				continue
			}
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close %T: %w", c, err))
			}
		}
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}
