package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ziggy/core/audio"
	"github.com/koscakluka/ziggy/core/speechtotext"
)

var errSessionClosed = errors.New("deepgram session closed")

// resultBacklog bounds how many results can pile up between two Feed calls.
const resultBacklog = 32

// session streams audio to Deepgram. Results arrive asynchronously and are
// handed out on the next Feed.
type session struct {
	conn    *websocket.Conn
	options speechtotext.TranscriptionOptions

	results chan speechtotext.Result
	done    chan struct{}

	// guarded by mu
	transcript     speechtotext.Transcript
	pending        string
	unendedSegment bool
	readErr        error
	closed         bool
	finishing      bool

	mu     sync.Mutex
	connMu sync.Mutex
}

func newSession(conn *websocket.Conn, options speechtotext.TranscriptionOptions) *session {
	return &session{
		conn:    conn,
		options: options,
		results: make(chan speechtotext.Result, resultBacklog),
		done:    make(chan struct{}),
	}
}

// Feed writes the frame and returns the most useful result received so far:
// a final one if there is one, otherwise the latest partial.
func (s *session) Feed(ctx context.Context, frame audio.Frame) (speechtotext.Result, error) {
	if err := ctx.Err(); err != nil {
		return speechtotext.Result{}, err
	}

	s.mu.Lock()
	if s.closed || s.finishing {
		s.mu.Unlock()
		return speechtotext.Result{}, errSessionClosed
	}
	if s.readErr != nil {
		err := s.readErr
		s.mu.Unlock()
		return speechtotext.Result{}, err
	}
	s.mu.Unlock()

	if err := s.write(websocket.BinaryMessage, frame.Bytes()); err != nil {
		return speechtotext.Result{}, fmt.Errorf("failed to write to deepgram client: %w", err)
	}

	return s.drainResults(), nil
}

func (s *session) drainResults() speechtotext.Result {
	var latest speechtotext.Result
	for {
		select {
		case result := <-s.results:
			if !latest.Final || result.Final {
				latest = result
			}
		default:
			return latest
		}
	}
}

// Finish asks Deepgram to flush and waits for the server to close the
// stream.
func (s *session) Finish(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", errSessionClosed
	}
	alreadyFinishing := s.finishing
	s.finishing = true
	s.mu.Unlock()

	if !alreadyFinishing {
		if err := s.writeJSON(controlMessage{Type: string(api.TypeCloseStreamResponse)}); err != nil {
			return s.text(), fmt.Errorf("failed to close deepgram stream: %w", err)
		}
	}

	select {
	case <-ctx.Done():
		return s.text(), ctx.Err()
	case <-s.done:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushPending()
	return s.transcript.Text(), s.readErr
}

func (s *session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.conn.Close()
}

func (s *session) text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Text()
}

type controlMessage struct {
	Type string `json:"type"`
}

func (s *session) write(messageType int, data []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn.WriteMessage(messageType, data)
}

func (s *session) writeJSON(v any) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *session) readMessages() {
	defer close(s.done)

	for {
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			if !s.closed && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Error("failed to read deepgram websocket message", "error", err)
				s.readErr = fmt.Errorf("failed to read deepgram message: %w", err)
			}
			s.mu.Unlock()
			return
		}
		if msgType != websocket.BinaryMessage {
			s.processMessage(msg)
		}
	}
}

func (s *session) processMessage(msg []byte) {
	var parsedMsg controlMessage
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Warn("failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram message", "error", err)
			return
		}

		transcript := ""
		if len(msgResp.Channel.Alternatives) > 0 {
			transcript = strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
		}

		if !msgResp.IsFinal {
			if transcript != "" {
				if s.options.PartialTranscriptionCallback != nil {
					s.options.PartialTranscriptionCallback(transcript)
				}
				s.publish(speechtotext.Result{Text: transcript})
			}
			return
		}

		s.mu.Lock()
		if transcript != "" {
			s.pending = strings.TrimSpace(s.pending + " " + transcript)
		}
		s.mu.Unlock()
		if msgResp.SpeechFinal {
			s.onSpeechEnded()
		}

	case api.TypeUtteranceEndResponse:
		s.mu.Lock()
		unended := s.unendedSegment
		s.mu.Unlock()
		if unended {
			s.onSpeechEnded()
		}

	case api.TypeSpeechStartedResponse:
		s.mu.Lock()
		s.unendedSegment = true
		s.mu.Unlock()
		if s.options.SpeechStartedCallback != nil {
			s.options.SpeechStartedCallback()
		}
	}
}

func (s *session) onSpeechEnded() {
	s.mu.Lock()
	s.unendedSegment = false
	segment := s.flushPending()
	s.mu.Unlock()

	if segment != "" {
		if s.options.TranscriptionCallback != nil {
			s.options.TranscriptionCallback(segment)
		}
		s.publish(speechtotext.Result{Text: segment, Final: true})
	}
	if s.options.SpeechEndedCallback != nil {
		s.options.SpeechEndedCallback()
	}
}

// flushPending must be called with mu held.
func (s *session) flushPending() string {
	segment := s.pending
	s.pending = ""
	s.transcript.Add(segment)
	return segment
}

func (s *session) publish(result speechtotext.Result) {
	select {
	case s.results <- result:
	default:
		logger.Warn("dropping deepgram result, nobody is feeding the session", "final", result.Final)
	}
}
