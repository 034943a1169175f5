package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ziggy/core/audio"
	"github.com/koscakluka/ziggy/core/texttospeech"
)

type websocketMessage struct {
	Type string `json:"type"`
}

type speakMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	clearMsg = websocketMessage{Type: "Clear"}
	closeMsg = websocketMessage{Type: "Close"}
)

// speechRequest is one Play call: the text is spoken and flushed once, the
// audio goes straight to the playback stream.
type speechRequest struct {
	ws     *websocket.Conn
	stream audio.PlaybackStream
	handle *texttospeech.PlaybackHandle

	mu     sync.Mutex
	closed bool
}

func newSpeechRequest(ws *websocket.Conn, stream audio.PlaybackStream) *speechRequest {
	r := &speechRequest{ws: ws, stream: stream}
	r.handle = texttospeech.NewPlaybackHandle(r.cancel)
	return r
}

func (r *speechRequest) speak(text string) error {
	if err := r.sendWebsocketMessage(speakMessage{Type: "Speak", Text: text}); err != nil {
		return fmt.Errorf("failed to send text to deepgram: %w", err)
	}
	if err := r.sendWebsocketMessage(flushMsg); err != nil {
		return fmt.Errorf("failed to flush deepgram buffer: %w", err)
	}
	return nil
}

// processIncomingMessages returns once the flushed speech has been played,
// the request was cancelled or the connection broke.
func (r *speechRequest) processIncomingMessages(ctx context.Context) error {
	defer r.close()

	for {
		msgType, msg, err := r.ws.ReadMessage()
		if err != nil {
			if r.handle.Cancelled() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("deepgram websocket read error: %w", err)
		}

		switch msgType {
		case websocket.BinaryMessage:
			if len(msg) == 0 {
				continue
			}
			if err := r.stream.Write(ctx, audio.BytesToSamples(msg)); err != nil {
				if errors.Is(err, audio.ErrPlaybackStopped) {
					return texttospeech.ErrCancelled
				}
				return fmt.Errorf("failed to play deepgram audio: %w", err)
			}

		case websocket.TextMessage:
			var parsedMsg websocketMessage
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				logger.Warn("failed to unmarshal deepgram message", "error", err)
				continue
			}

			switch parsedMsg.Type {
			case "Flushed":
				return nil
			case "Cleared":
				return texttospeech.ErrCancelled
			case "Warning", "Error":
				logger.Warn("deepgram speak message", "type", parsedMsg.Type, "message", string(msg))
			}
		}
	}
}

func (r *speechRequest) cancel() {
	_ = r.stream.Stop()
	_ = r.sendWebsocketMessage(clearMsg)
	r.close()
}

func (r *speechRequest) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true

	if err := r.ws.WriteJSON(closeMsg); err != nil {
		logger.Debug("failed to send close message to deepgram", "error", err)
	}
	_ = r.ws.Close()
	_ = r.stream.Close()
}

func (r *speechRequest) sendWebsocketMessage(msg any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("websocket connection closed")
	}

	if err := r.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write to websocket: %w", err)
	}
	return nil
}
