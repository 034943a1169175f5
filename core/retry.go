package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/koscakluka/ziggy/core/audio"
)

// ErrDeviceUnavailable is returned by Run once an audio device kept failing
// after all retries.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

type deviceRetry struct {
	retries int
	initial time.Duration
}

func (r deviceRetry) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(r.retries, 0))), ctx)
}

// newRecognitionBackOff paces wake word recognition restarts. It never
// stops on its own.
func newRecognitionBackOff(initial time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// do runs op until it succeeds or the retries run out.
func (r deviceRetry) do(ctx context.Context, what string, op func() error) error {
	err := backoff.RetryNotify(op, r.backOff(ctx), func(err error, next time.Duration) {
		logger.Warn("audio device operation failed, retrying", "operation", what, "error", err, "retry_in", next)
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: failed to %s: %w", ErrDeviceUnavailable, what, err)
}

func (a *Assistant) deviceRetry() deviceRetry {
	return deviceRetry{retries: a.config.DeviceRetries, initial: a.config.DeviceRetryBackoff}
}

func (a *Assistant) openCapture(ctx context.Context) (*frameReader, error) {
	var stream audio.CaptureStream
	err := a.deviceRetry().do(ctx, "open capture stream", func() error {
		s, err := a.capture.OpenCapture(a.config.streamConfig())
		if err != nil {
			return err
		}
		stream = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &frameReader{stream: stream, retry: a.deviceRetry()}, nil
}

// frameReader reads microphone frames and tolerates a bounded number of
// consecutive read failures.
type frameReader struct {
	stream audio.CaptureStream
	retry  deviceRetry

	failures backoff.BackOff
}

func (r *frameReader) Read(ctx context.Context) (audio.Frame, error) {
	for {
		frame, err := r.stream.Read(ctx)
		if err == nil {
			r.failures = nil
			return frame, nil
		}
		if ctx.Err() != nil {
			return audio.Frame{}, ctx.Err()
		}

		if r.failures == nil {
			r.failures = r.retry.backOff(ctx)
		}
		next := r.failures.NextBackOff()
		if next == backoff.Stop {
			return audio.Frame{}, fmt.Errorf("%w: failed to read audio: %w", ErrDeviceUnavailable, err)
		}
		logger.Warn("failed to read audio, retrying", "error", err, "retry_in", next)

		select {
		case <-ctx.Done():
			return audio.Frame{}, ctx.Err()
		case <-time.After(next):
		}
	}
}

func (r *frameReader) Close() error { return r.stream.Close() }
