package deepgram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ziggy/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const listenURL = "wss://api.deepgram.com/v1/listen"

type Recognizer struct {
	apiKey string
	url    string
	model  string
}

type RecognizerOption func(*Recognizer)

func WithAPIKey(apiKey string) RecognizerOption {
	return func(r *Recognizer) { r.apiKey = apiKey }
}

func WithModel(model string) RecognizerOption {
	return func(r *Recognizer) { r.model = model }
}

// WithURL points the recognizer at a different listen endpoint.
func WithURL(url string) RecognizerOption {
	return func(r *Recognizer) { r.url = url }
}

// NewRecognizer reads the key from DEEPGRAM_API_KEY unless one is given.
func NewRecognizer(opts ...RecognizerOption) *Recognizer {
	r := &Recognizer{
		apiKey: os.Getenv("DEEPGRAM_API_KEY"),
		url:    listenURL,
		model:  "nova-3",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recognizer) NewSession(ctx context.Context, opts ...speechtotext.TranscriptionOption) (speechtotext.Session, error) {
	ctx, span := tracer.Start(ctx, "open deepgram session")
	defer span.End()

	options := speechtotext.NewTranscriptionOptions(opts...)
	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		err = fmt.Errorf("invalid encoding: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	conn, err := r.connectWebsocket(ctx, connectionOptions{
		sampleRate:        encoding.SampleRate,
		encoding:          encoding.Format.Name(),
		detectSpeechStart: options.SpeechStartedCallback != nil,
	})
	if err != nil {
		err = fmt.Errorf("failed to open websocket: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("deepgram.model", r.model))

	s := newSession(conn, options)
	go s.readMessages()
	return s, nil
}

type connectionOptions struct {
	sampleRate int
	encoding   string

	detectSpeechStart bool
}

func (r *Recognizer) connectWebsocket(ctx context.Context, options connectionOptions) (*websocket.Conn, error) {
	if r.apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	listenUrl, err := url.Parse(r.url)
	if err != nil {
		return nil, fmt.Errorf("invalid listen url: %w", err)
	}
	queryParams := listenUrl.Query()
	queryParams.Set("encoding", options.encoding)
	queryParams.Set("sample_rate", strconv.Itoa(options.sampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", r.model)
	queryParams.Set("language", "en-US")
	queryParams.Set("smart_format", "true")
	queryParams.Set("interim_results", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("endpointing", "300")
	if options.detectSpeechStart {
		queryParams.Set("vad_events", "true")
	}

	listenUrl.RawQuery = queryParams.Encode()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, listenUrl.String(),
		http.Header{"Authorization": {"Token " + r.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}
