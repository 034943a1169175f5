// Package vosk talks to a local Vosk server (vosk-server's websocket
// endpoint) so recognition stays on the machine.
package vosk

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ziggy/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultURL = "ws://localhost:2700"

type Recognizer struct {
	url    string
	dialer *websocket.Dialer
}

type RecognizerOption func(*Recognizer)

func WithURL(url string) RecognizerOption {
	return func(r *Recognizer) {
		if url != "" {
			r.url = url
		}
	}
}

func WithDialer(dialer *websocket.Dialer) RecognizerOption {
	return func(r *Recognizer) { r.dialer = dialer }
}

func NewRecognizer(opts ...RecognizerOption) *Recognizer {
	r := &Recognizer{
		url:    DefaultURL,
		dialer: websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recognizer) NewSession(ctx context.Context, opts ...speechtotext.TranscriptionOption) (speechtotext.Session, error) {
	ctx, span := tracer.Start(ctx, "open vosk session")
	defer span.End()

	options := speechtotext.NewTranscriptionOptions(opts...)
	span.SetAttributes(
		attribute.String("vosk.url", r.url),
		attribute.Int("audio.sample_rate", options.EncodingInfo.SampleRate),
	)

	conn, _, err := r.dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		err = fmt.Errorf("failed to connect to vosk server: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := conn.WriteJSON(configMessage{Config: recognizerConfig{SampleRate: options.EncodingInfo.SampleRate}}); err != nil {
		_ = conn.Close()
		err = fmt.Errorf("failed to configure vosk recognizer: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return &session{conn: conn, options: options}, nil
}

type configMessage struct {
	Config recognizerConfig `json:"config"`
}

type recognizerConfig struct {
	SampleRate int `json:"sample_rate"`
}

type eofMessage struct {
	EOF int `json:"eof"`
}

// response is either a partial hypothesis or a finished segment, never
// both.
type response struct {
	Partial *string `json:"partial,omitempty"`
	Text    *string `json:"text,omitempty"`
}
