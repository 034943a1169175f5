package deepgram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ziggy/core/audio"
	"github.com/koscakluka/ziggy/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Engine struct {
	apiKey string
	voice  deepgramVoice
	url    string

	options texttospeech.EngineOptions
}

type EngineOption func(*Engine)

func WithAPIKey(apiKey string) EngineOption {
	return func(e *Engine) { e.apiKey = apiKey }
}

// WithURL points the engine at a different speak endpoint.
func WithURL(url string) EngineOption {
	return func(e *Engine) { e.url = url }
}

func WithEngineOptions(opts ...texttospeech.EngineOption) EngineOption {
	return func(e *Engine) {
		for _, opt := range opts {
			opt(&e.options)
		}
	}
}

// NewEngine needs a playback device, Deepgram only returns audio. The key is
// read from DEEPGRAM_API_KEY unless one is given.
func NewEngine(voice deepgramVoice, opts ...EngineOption) (*Engine, error) {
	if voice == "" {
		voice = defaultVoice
	} else if !slices.Contains(GetAvailableVoices(), voice) {
		return nil, fmt.Errorf("invalid voice %q", voice)
	}

	e := &Engine{
		apiKey:  os.Getenv("DEEPGRAM_API_KEY"),
		voice:   voice,
		url:     "wss://api.deepgram.com/v1/speak",
		options: texttospeech.NewEngineOptions(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.options.PlaybackDevice == nil {
		return nil, fmt.Errorf("deepgram speech needs a playback device")
	}
	if e.options.EncodingInfo.Format != audio.FormatLinear16 {
		return nil, fmt.Errorf("unsupported playback encoding %q", e.options.EncodingInfo.Format)
	}
	return e, nil
}

func (e *Engine) Play(ctx context.Context, text string) (texttospeech.Playback, error) {
	ctx, span := tracer.Start(ctx, "deepgram speak")
	span.SetAttributes(
		attribute.String("deepgram.voice", string(e.voice)),
		attribute.Int("text.length", len(text)),
	)

	conn, err := e.connectWebsocket(ctx)
	if err != nil {
		err = fmt.Errorf("failed to open websocket: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}

	stream, err := e.options.PlaybackDevice.OpenPlayback(audio.StreamConfig{
		SampleRate: e.options.EncodingInfo.SampleRate,
		Channels:   1,
		FrameSize:  1024,
	})
	if err != nil {
		_ = conn.Close()
		err = fmt.Errorf("failed to open playback: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}

	req := newSpeechRequest(conn, stream)
	if err := req.speak(text); err != nil {
		req.close()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}

	go func() {
		defer span.End()
		err := req.processIncomingMessages(ctx)
		if err != nil && !req.handle.Cancelled() {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.options.ErrorCallback(err)
		}
		req.handle.Finish(err)
	}()

	return req.handle, nil
}

func (e *Engine) connectWebsocket(ctx context.Context) (*websocket.Conn, error) {
	if e.apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	speakUrl, err := url.Parse(e.url)
	if err != nil {
		return nil, fmt.Errorf("invalid speak url: %w", err)
	}
	urlValues := url.Values{}
	urlValues.Set("encoding", e.options.EncodingInfo.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(e.options.EncodingInfo.SampleRate))
	urlValues.Set("model", string(e.voice))
	urlValues.Set("container", "none")
	speakUrl.RawQuery = urlValues.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, speakUrl.String(),
		http.Header{"Authorization": {"token " + e.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}
