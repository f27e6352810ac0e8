package server

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/sagelab/go-sage/pkg/tts"
)

const speechBridgeTimeout = 5 * time.Minute

// speechRequest is the single control frame a browser sends on /ws/speech.
type speechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// handleSpeechWS bridges one browser connection to one synthesis stream.
// The client sends one JSON {text, voice} frame; binary audio frames are
// relayed back in arrival order, then the connection closes. One stream
// per connection keeps the single-stream rule on the server side.
func (s *Server) handleSpeechWS(c *websocket.Conn) {
	defer c.Close()

	var req speechRequest
	if err := c.ReadJSON(&req); err != nil {
		s.logger.Warn("speech bridge: bad control frame", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), speechBridgeTimeout)
	defer cancel()

	// The stream's read loop is the only writer to the client until it
	// reaches a terminal state, so relaying from callbacks is safe.
	failed := make(chan error, 1)
	stream, err := s.streamer.OpenStream(ctx, req.Text, req.Voice, tts.StreamCallbacks{
		OnChunk: func(audio []byte) {
			if err := c.WriteMessage(websocket.BinaryMessage, audio); err != nil {
				select {
				case failed <- err:
				default:
				}
			}
		},
		OnError: func(err error) {
			select {
			case failed <- err:
			default:
			}
		},
	})
	if err != nil {
		s.logger.Warn("speech bridge: open failed", "error", err)
		c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "synthesis unavailable"))
		return
	}
	defer stream.Close()

	select {
	case <-stream.Done():
		select {
		case err := <-failed:
			s.logger.Warn("speech bridge: stream failed", "error", err)
			c.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "stream failed"))
		default:
			c.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		}
	case err := <-failed:
		s.logger.Warn("speech bridge: relay failed", "error", err)
	case <-ctx.Done():
		s.logger.Warn("speech bridge: timed out")
	}
}
