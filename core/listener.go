package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/koscakluka/ziggy/core/speechtotext"
)

// errRecognition marks transcriber failures. They are never fatal.
var errRecognition = errors.New("speech recognition failed")

// detect reports what an utterance asks for. The shutdown phrase wins over
// the wake word.
func (a *Assistant) detect(text string) InterruptReason {
	text = speechtotext.NormalizeUtterance(text)
	switch {
	case text == "":
		return InterruptNone
	case a.router.IsShutdown(text):
		return InterruptShutdown
	case strings.Contains(text, a.wakeWord()):
		return InterruptWakeWord
	default:
		return InterruptNone
	}
}

func (a *Assistant) wakeWord() string {
	return speechtotext.NormalizeUtterance(a.config.WakeWord)
}

// watch streams the microphone into a fresh transcriber session until the
// wake word or the shutdown phrase is heard. It returns InterruptNone when
// stop is closed first. The capture stream is closed before watch returns.
func (a *Assistant) watch(ctx context.Context, stop <-chan struct{}) (InterruptReason, error) {
	reader, err := a.openCapture(ctx)
	if err != nil {
		return InterruptNone, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Warn("failed to close capture stream", "error", err)
		}
	}()

	session, err := a.recognizer.NewSession(ctx, speechtotext.WithEncodingInfo(a.config.encodingInfo()))
	if err != nil {
		return InterruptNone, fmt.Errorf("%w: failed to start session: %w", errRecognition, err)
	}
	defer session.Close()

	for {
		select {
		case <-stop:
			return InterruptNone, nil
		default:
		}

		frame, err := reader.Read(ctx)
		if err != nil {
			return InterruptNone, err
		}

		result, err := session.Feed(ctx, frame)
		if err != nil {
			if ctx.Err() != nil {
				return InterruptNone, ctx.Err()
			}
			return InterruptNone, fmt.Errorf("%w: %w", errRecognition, err)
		}
		if reason := a.detect(result.Text); reason != InterruptNone {
			logger.Debug("heard command", "reason", reason.String(), "text", result.Text, "final", result.Final)
			return reason, nil
		}
	}
}

// listenForInterruption watches the microphone while a response plays and
// raises flag when the wake word or the shutdown phrase is heard. It only
// ever sets the flag; the speaker reacts to it.
func (a *Assistant) listenForInterruption(ctx context.Context, flag *InterruptFlag, speechDone <-chan struct{}) error {
	reason, err := a.watch(ctx, speechDone)
	switch {
	case errors.Is(err, errRecognition):
		logger.Warn("interruption listener stopped", "error", err)
		return nil
	case err != nil:
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	if reason != InterruptNone && flag.Set(reason) {
		logger.Info("speech interrupted", "reason", reason.String())
		if a.runOptions.onInterruption != nil {
			a.runOptions.onInterruption(reason)
		}
	}
	return nil
}
