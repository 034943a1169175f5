package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/koscakluka/ziggy/core/llms"
	"github.com/koscakluka/ziggy/core/router"
	"github.com/koscakluka/ziggy/core/speechtotext"
)

type harness struct {
	capture    *fakeCaptureDevice
	recognizer *fakeRecognizer
	engine     *fakeEngine
	llm        *fakeLLM
	browser    *fakeBrowser
	states     *stateRecorder
	assistant  *Assistant
}

func newHarness(scripts ...sessionScript) *harness {
	h := &harness{
		capture:    &fakeCaptureDevice{},
		recognizer: &fakeRecognizer{scripts: scripts},
		engine:     &fakeEngine{},
		llm:        &fakeLLM{response: "Quantum computers use qubits."},
		browser:    &fakeBrowser{},
		states:     &stateRecorder{},
	}
	h.assistant = New(
		WithConfig(testConfig()),
		WithAudioInput(h.capture),
		WithRecognizer(h.recognizer),
		WithSpeechEngine(h.engine),
		WithLLM(h.llm),
		WithBrowser(h.browser),
	)
	return h
}

func (h *harness) run(t *testing.T) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := h.assistant.Run(ctx, WithStateChangedCallback(h.states.record))
	if ctx.Err() != nil {
		t.Fatalf("assistant did not stop in time, said %q", h.engine.said())
	}
	return err
}

func TestRunAnswersConversionLocally(t *testing.T) {
	h := newHarness(
		wakeSession(),
		utteranceSession("convert 100 celsius to fahrenheit"),
		shutdownSession(),
	)

	if err := h.run(t); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}

	if h.states.visited(StateAwaitingPermission) {
		t.Fatalf("expected no permission request for a conversion")
	}
	said := h.engine.said()
	if !strings.Contains(said, "100.0 degrees Celsius is 212.0 degrees Fahrenheit") {
		t.Fatalf("expected conversion answer to be spoken, got %q", said)
	}
	if !strings.HasPrefix(said, welcomeMessage+"|"+acknowledgement) {
		t.Fatalf("expected welcome and acknowledgement first, got %q", said)
	}
	if !strings.HasSuffix(said, router.Farewell) {
		t.Fatalf("expected farewell last, got %q", said)
	}

	turns := h.assistant.Turns()
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	if turns[0].Route.Kind != router.KindLocalAnswer {
		t.Fatalf("expected local answer, got %s", turns[0].Route.Kind)
	}
	if turns[0].Permission != nil {
		t.Fatalf("expected no permission on a local turn, got %s", *turns[0].Permission)
	}
	if h.llm.calls() != 0 {
		t.Fatalf("expected no remote calls, got %d", h.llm.calls())
	}
}

func TestRunDeniedPermissionStaysLocal(t *testing.T) {
	h := newHarness(
		wakeSession(),
		utteranceSession("explain quantum computing"),
		utteranceSession("no thanks"),
		shutdownSession(),
	)

	if err := h.run(t); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}

	if h.llm.calls() != 0 {
		t.Fatalf("expected no remote calls after denial, got %d", h.llm.calls())
	}
	if !strings.Contains(h.engine.said(), stayingLocal) {
		t.Fatalf("expected fallback message, got %q", h.engine.said())
	}
	turns := h.assistant.Turns()
	if len(turns) != 1 || turns[0].Permission == nil || *turns[0].Permission != PermissionDenied {
		t.Fatalf("expected one denied turn, got %+v", turns)
	}
}

func TestRunUnclearPermissionStaysLocal(t *testing.T) {
	h := newHarness(
		wakeSession(),
		utteranceSession("explain quantum computing"),
		utteranceSession(""),
		shutdownSession(),
	)

	if err := h.run(t); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
	if h.llm.calls() != 0 {
		t.Fatalf("expected no remote calls without an answer, got %d", h.llm.calls())
	}
	if !strings.Contains(h.engine.said(), stayingLocal) {
		t.Fatalf("expected fallback message, got %q", h.engine.said())
	}
}

func TestRunGrantedPermissionAsksRemote(t *testing.T) {
	h := newHarness(
		wakeSession(),
		utteranceSession("explain quantum computing"),
		utteranceSession("yes please"),
		shutdownSession(),
	)

	if err := h.run(t); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}

	if h.llm.calls() != 1 {
		t.Fatalf("expected 1 remote call, got %d", h.llm.calls())
	}
	expectedPrompt := remotePromptPrefix + "explain quantum computing"
	if h.llm.prompts[0] != expectedPrompt {
		t.Fatalf("expected prompt %q, got %q", expectedPrompt, h.llm.prompts[0])
	}
	if !strings.Contains(h.engine.said(), permissionQuestion(PermissionReasonAI)) {
		t.Fatalf("expected permission question, got %q", h.engine.said())
	}
	if !strings.Contains(h.engine.said(), "Quantum computers use qubits.") {
		t.Fatalf("expected remote answer to be spoken, got %q", h.engine.said())
	}
}

func TestRunRemoteFailureApologizes(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected string
	}{
		{"status", &llms.StatusError{StatusCode: 500, Status: "500 Internal Server Error"}, remoteStatusApology},
		{"transport", errors.New("connection refused"), remoteErrorApology},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(
				wakeSession(),
				utteranceSession("explain quantum computing"),
				utteranceSession("yes"),
				shutdownSession(),
			)
			h.llm.err = tc.err

			if err := h.run(t); err != nil {
				t.Fatalf("expected clean shutdown, got %v", err)
			}
			if !strings.Contains(h.engine.said(), tc.expected) {
				t.Fatalf("expected %q to be spoken, got %q", tc.expected, h.engine.said())
			}
			if !h.states.saw(StateSpeaking, StateListening) {
				t.Fatalf("expected to return to listening after the apology")
			}
		})
	}
}

func TestRunRemoteTimeoutApologizes(t *testing.T) {
	h := newHarness(
		wakeSession(),
		utteranceSession("explain quantum computing"),
		utteranceSession("yes"),
		shutdownSession(),
	)
	h.llm.hang = true
	h.assistant.config.RemoteTimeout = 20 * time.Millisecond

	if err := h.run(t); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
	if h.llm.calls() != 1 {
		t.Fatalf("expected 1 remote call, got %d", h.llm.calls())
	}
	if !strings.Contains(h.engine.said(), remoteErrorApology) {
		t.Fatalf("expected %q to be spoken, got %q", remoteErrorApology, h.engine.said())
	}
	if !h.states.saw(StateSpeaking, StateListening) {
		t.Fatalf("expected to return to listening after the apology")
	}

	turns := h.assistant.Turns()
	if len(turns) != 1 || turns[0].Response != remoteErrorApology {
		t.Fatalf("expected one turn answered with the apology, got %+v", turns)
	}
}

func TestRunEmptyUtterance(t *testing.T) {
	h := newHarness(
		wakeSession(),
		utteranceSession("   "),
		shutdownSession(),
	)

	if err := h.run(t); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
	if !strings.Contains(h.engine.said(), notUnderstood) {
		t.Fatalf("expected %q, got %q", notUnderstood, h.engine.said())
	}
	if h.states.visited(StateRouting) {
		t.Fatalf("expected empty utterance not to be routed")
	}
}

func TestRunWebSearchNeedsPermission(t *testing.T) {
	h := newHarness(
		wakeSession(),
		utteranceSession("search golang generics"),
		utteranceSession("go ahead"),
		shutdownSession(),
	)

	if err := h.run(t); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
	if len(h.browser.queries) != 1 || h.browser.queries[0] != "golang generics" {
		t.Fatalf("expected one search for %q, got %v", "golang generics", h.browser.queries)
	}
	if !strings.Contains(h.engine.said(), permissionQuestion(PermissionReasonWebSearch)) {
		t.Fatalf("expected web search permission question, got %q", h.engine.said())
	}
	if !strings.Contains(h.engine.said(), webSearchOpened+"golang generics") {
		t.Fatalf("expected search confirmation, got %q", h.engine.said())
	}
}

func TestRunBrowserFailure(t *testing.T) {
	h := newHarness(
		wakeSession(),
		utteranceSession("look up the weather"),
		utteranceSession("yes"),
		shutdownSession(),
	)
	h.browser.err = errors.New("no browser")

	if err := h.run(t); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
	if !strings.Contains(h.engine.said(), browserFailed) {
		t.Fatalf("expected %q, got %q", browserFailed, h.engine.said())
	}
}

func TestRunShutdownPhraseWhileRecording(t *testing.T) {
	h := newHarness(
		wakeSession(),
		utteranceSession("okay ziggy take a break"),
	)

	if err := h.run(t); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
	if !strings.HasSuffix(h.engine.said(), router.Farewell) {
		t.Fatalf("expected farewell, got %q", h.engine.said())
	}
	if h.assistant.State() != StateShuttingDown {
		t.Fatalf("expected %s, got %s", StateShuttingDown, h.assistant.State())
	}
	if !h.states.saw(StateRouting, StateShuttingDown) {
		t.Fatalf("expected shutdown from routing")
	}
}

func TestRunDeviceUnavailable(t *testing.T) {
	h := newHarness()
	h.capture.failOpens = -1

	err := h.run(t)
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected %v, got %v", ErrDeviceUnavailable, err)
	}

	opens, _, _ := h.capture.stats()
	expected := testConfig().DeviceRetries + 1
	if opens != expected {
		t.Fatalf("expected %d open attempts, got %d", expected, opens)
	}
	if strings.Contains(h.engine.said(), router.Farewell) {
		t.Fatalf("expected no farewell on device failure")
	}
}

func TestRunCaptureReadFailures(t *testing.T) {
	h := newHarness(shutdownSession())
	h.capture.failReads = true

	start := time.Now()
	err := h.run(t)
	elapsed := time.Since(start)
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected %v, got %v", ErrDeviceUnavailable, err)
	}

	expected := testConfig().DeviceRetries + 1
	if reads := h.capture.readCount(); reads != expected {
		t.Fatalf("expected %d reads, got %d", expected, reads)
	}
	if elapsed > time.Second {
		t.Fatalf("expected retries to start at %v, took %v", testConfig().DeviceRetryBackoff, elapsed)
	}
	if _, open, _ := h.capture.stats(); open != 0 {
		t.Fatalf("expected capture streams to be closed, %d still open", open)
	}
	if strings.Contains(h.engine.said(), router.Farewell) {
		t.Fatalf("expected no farewell on device failure")
	}
}

func TestRunRecoversFromTransientDeviceFailure(t *testing.T) {
	h := newHarness(shutdownSession())
	h.capture.failOpens = 2

	if err := h.run(t); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}

func TestRunContextCancelled(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := h.assistant.Run(ctx, WithStateChangedCallback(func(from, to State) {
		if to == StateListening {
			cancel()
		}
	}))
	if err != nil {
		t.Fatalf("expected nil error on cancellation, got %v", err)
	}
	if strings.Contains(h.engine.said(), router.Farewell) {
		t.Fatalf("expected no farewell on cancellation, got %q", h.engine.said())
	}
	if _, open, _ := h.capture.stats(); open != 0 {
		t.Fatalf("expected capture streams to be closed, %d still open", open)
	}
}

func TestRunWakeWordInterruptsLongResponse(t *testing.T) {
	long := "Quantum computing uses qubits instead of bits. " +
		"A qubit can be in a superposition of states at once. " +
		"Entanglement links qubits so that measuring one tells you about another."
	h := newHarness(
		wakeSession(),
		utteranceSession("explain quantum computing"),
		utteranceSession("yes"),
		sessionScript{results: append(make([]speechtotext.Result, 10), speechtotext.Result{Text: "ziggy"})},
		utteranceSession("take a break"),
	)
	h.llm.response = long
	h.engine.block = func(text string) bool { return strings.Contains(long, text) }

	var interruptions []InterruptReason
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := h.assistant.Run(ctx,
		WithStateChangedCallback(h.states.record),
		WithInterruptionCallback(func(reason InterruptReason) { interruptions = append(interruptions, reason) }),
	)
	if err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}

	if !h.states.saw(StateSpeaking, StateRecording) {
		t.Fatalf("expected to go straight from speaking to recording, got %v", h.states.transitions)
	}
	if len(interruptions) != 1 || interruptions[0] != InterruptWakeWord {
		t.Fatalf("expected one wake word interruption, got %v", interruptions)
	}
	if h.engine.cancelledCount() != 1 {
		t.Fatalf("expected 1 cancelled segment, got %d", h.engine.cancelledCount())
	}
	if strings.Contains(h.engine.said(), "Entanglement") {
		t.Fatalf("expected remaining segments to be dropped, got %q", h.engine.said())
	}
	if _, _, maxOpen := h.capture.stats(); maxOpen != 1 {
		t.Fatalf("expected one capture stream at a time, got %d", maxOpen)
	}

	turns := h.assistant.Turns()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if !turns[0].Interrupted {
		t.Fatalf("expected first turn to be interrupted")
	}
	if turns[1].Route.Kind != router.KindShutdown {
		t.Fatalf("expected second turn to shut down, got %s", turns[1].Route.Kind)
	}
}

func TestRunShutdownPhraseInterruptsLongResponse(t *testing.T) {
	long := "Quantum computing uses qubits instead of bits. " +
		"A qubit can be in a superposition of states at once. " +
		"Entanglement links qubits so that measuring one tells you about another."
	h := newHarness(
		wakeSession(),
		utteranceSession("explain quantum computing"),
		utteranceSession("yes"),
		sessionScript{results: append(make([]speechtotext.Result, 10), speechtotext.Result{Text: "take a break"})},
	)
	h.llm.response = long
	h.engine.block = func(text string) bool { return strings.Contains(long, text) }

	var interruptions []InterruptReason
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := h.assistant.Run(ctx,
		WithStateChangedCallback(h.states.record),
		WithInterruptionCallback(func(reason InterruptReason) { interruptions = append(interruptions, reason) }),
	)
	if err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}

	if len(interruptions) != 1 || interruptions[0] != InterruptShutdown {
		t.Fatalf("expected one shutdown interruption, got %v", interruptions)
	}
	if h.engine.cancelledCount() != 1 {
		t.Fatalf("expected 1 cancelled segment, got %d", h.engine.cancelledCount())
	}
	if !h.states.saw(StateSpeaking, StateShuttingDown) {
		t.Fatalf("expected to shut down straight from speaking, got %v", h.states.transitions)
	}
	if h.states.saw(StateSpeaking, StateRecording) {
		t.Fatalf("expected no recording after the shutdown phrase, got %v", h.states.transitions)
	}
	said := h.engine.said()
	if strings.Contains(said, "Entanglement") {
		t.Fatalf("expected remaining segments to be dropped, got %q", said)
	}
	if !strings.HasSuffix(said, router.Farewell) {
		t.Fatalf("expected farewell last, got %q", said)
	}
	if h.assistant.State() != StateShuttingDown {
		t.Fatalf("expected %s, got %s", StateShuttingDown, h.assistant.State())
	}

	turns := h.assistant.Turns()
	if len(turns) != 1 || !turns[0].Interrupted {
		t.Fatalf("expected one interrupted turn, got %+v", turns)
	}
}

func TestRunTwiceFails(t *testing.T) {
	h := newHarness(shutdownSession())
	if err := h.run(t); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
	if err := h.assistant.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected %v, got %v", ErrAlreadyRunning, err)
	}
}

func TestTurnsReturnsCopy(t *testing.T) {
	a := New()
	a.recordTurn(Turn{ID: "1", Utterance: "what time is it"})

	turns := a.Turns()
	turns[0].Utterance = "changed"
	if a.Turns()[0].Utterance != "what time is it" {
		t.Fatalf("expected stored turn to be unchanged, got %q", a.Turns()[0].Utterance)
	}
}
