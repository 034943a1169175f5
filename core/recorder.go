package assistant

import (
	"context"
	"time"

	"github.com/koscakluka/ziggy/core/audio"
	"github.com/koscakluka/ziggy/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
)

const finishTimeout = 3 * time.Second

// record captures up to window of audio into a fresh transcriber session
// and returns the normalized utterance. Recording stops early on a final
// result or on trailing silence after speech.
//
// Transcriber failures yield an empty utterance; only device failures and
// cancellation are returned as errors.
func (a *Assistant) record(ctx context.Context, window time.Duration) (string, error) {
	ctx, span := tracer.Start(ctx, "record")
	defer span.End()

	reader, err := a.openCapture(ctx)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Warn("failed to close capture stream", "error", err)
		}
	}()

	session, err := a.recognizer.NewSession(ctx, speechtotext.WithEncodingInfo(a.config.encodingInfo()))
	if err != nil {
		logger.Warn("failed to start transcription session", "error", err)
		span.RecordError(err)
		return "", nil
	}
	defer session.Close()

	detector := audio.NewSilenceDetector(a.config.TrailingSilence)
	frames := a.config.framesFor(window)
	read := 0
	for ; read < frames; read++ {
		frame, err := reader.Read(ctx)
		if err != nil {
			span.RecordError(err)
			return "", err
		}
		detector.Observe(frame)

		result, err := session.Feed(ctx, frame)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			logger.Warn("failed to transcribe audio", "error", err)
			span.RecordError(err)
			break
		}
		if result.Final || detector.EndOfSpeech() {
			read++
			break
		}
	}
	span.SetAttributes(attribute.Int("record.frames", read))

	finishCtx, cancel := context.WithTimeout(ctx, finishTimeout)
	defer cancel()
	transcript, err := session.Finish(finishCtx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.Warn("failed to finish transcription", "error", err)
		span.RecordError(err)
	}

	utterance := speechtotext.NormalizeUtterance(transcript)
	span.SetAttributes(attribute.String("record.utterance", utterance))
	return utterance, nil
}
