package vosk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ziggy/core/audio"
	"github.com/koscakluka/ziggy/core/speechtotext"
)

var errSessionClosed = errors.New("vosk session closed")

// session is synchronous: every chunk written is answered by exactly one
// message from the server.
type session struct {
	conn    *websocket.Conn
	options speechtotext.TranscriptionOptions

	transcript    speechtotext.Transcript
	lastPartial   string
	speechStarted bool

	mu       sync.Mutex
	closed   bool
	finished bool
}

func (s *session) Feed(ctx context.Context, frame audio.Frame) (speechtotext.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.finished {
		return speechtotext.Result{}, errSessionClosed
	}

	s.applyDeadline(ctx)
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame.Bytes()); err != nil {
		return speechtotext.Result{}, fmt.Errorf("failed to write audio to vosk: %w", err)
	}

	resp, err := s.readResponse()
	if err != nil {
		return speechtotext.Result{}, err
	}
	return s.process(resp), nil
}

func (s *session) Finish(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", errSessionClosed
	}
	if s.finished {
		return s.transcript.Text(), nil
	}
	s.finished = true

	s.applyDeadline(ctx)
	if err := s.conn.WriteJSON(eofMessage{EOF: 1}); err != nil {
		return s.transcript.Text(), fmt.Errorf("failed to flush vosk recognizer: %w", err)
	}

	resp, err := s.readResponse()
	if err != nil {
		return s.transcript.Text(), err
	}
	s.process(resp)
	return s.transcript.Text(), nil
}

func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	_ = s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}

func (s *session) applyDeadline(ctx context.Context) {
	deadline, _ := ctx.Deadline()
	_ = s.conn.SetWriteDeadline(deadline)
	_ = s.conn.SetReadDeadline(deadline)
}

func (s *session) readResponse() (response, error) {
	var resp response
	if err := s.conn.ReadJSON(&resp); err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			return response{}, errSessionClosed
		}
		return response{}, fmt.Errorf("failed to read vosk response: %w", err)
	}
	return resp, nil
}

func (s *session) process(resp response) speechtotext.Result {
	switch {
	case resp.Text != nil:
		text := strings.TrimSpace(*resp.Text)
		s.lastPartial = ""
		if text == "" {
			return speechtotext.Result{}
		}

		s.transcript.Add(text)
		if s.options.TranscriptionCallback != nil {
			s.options.TranscriptionCallback(text)
		}
		if s.speechStarted {
			s.speechStarted = false
			if s.options.SpeechEndedCallback != nil {
				s.options.SpeechEndedCallback()
			}
		}
		return speechtotext.Result{Text: text, Final: true}

	case resp.Partial != nil:
		partial := strings.TrimSpace(*resp.Partial)
		if partial == "" || partial == s.lastPartial {
			return speechtotext.Result{}
		}
		s.lastPartial = partial

		if !s.speechStarted {
			s.speechStarted = true
			if s.options.SpeechStartedCallback != nil {
				s.options.SpeechStartedCallback()
			}
		}
		if s.options.PartialTranscriptionCallback != nil {
			s.options.PartialTranscriptionCallback(partial)
		}
		return speechtotext.Result{Text: partial}
	}

	logger.Debug("ignoring vosk message without text")
	return speechtotext.Result{}
}
