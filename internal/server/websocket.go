package server

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/nao1215/scrapeflow/internal/model"
	"github.com/nao1215/scrapeflow/internal/pipeline"
)

// writeWait is the time allowed to write one message to the peer.
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Message types sent on /ws/run.
const (
	messageStep   = "step"
	messageResult = "result"
	messageError  = "error"
)

// wsMessage is one server to client message.
type wsMessage struct {
	Type   string              `json:"type"`
	Step   *pipeline.StepEvent `json:"step,omitempty"`
	Output string              `json:"output,omitempty"`
	Run    *model.Run          `json:"run,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// handleWebSocket runs one workflow per {url} message received and streams
// step events followed by the result.
// The run executes on the handler goroutine, so writes never overlap.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	send := func(msg wsMessage) error {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		return conn.WriteJSON(msg)
	}

	for {
		var req runRequest
		if err := conn.ReadJSON(&req); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				s.logger.Debug("websocket read failed", "error", err)
			}
			return
		}

		var writeErr error
		progress := pipeline.ObserverFunc(func(e pipeline.StepEvent) {
			if writeErr != nil {
				return
			}
			writeErr = send(wsMessage{Type: messageStep, Step: &e})
		})

		run, err := s.execute(c.Request.Context(), req.URL, progress)
		if errors.Is(err, ErrEmptyURL) {
			if err := send(wsMessage{Type: messageError, Error: EmptyURLMessage}); err != nil {
				return
			}
			continue
		}
		if writeErr != nil {
			s.logger.Debug("websocket write failed", "error", writeErr)
			return
		}

		if err := send(wsMessage{Type: messageResult, Output: run.Output(), Run: run}); err != nil {
			s.logger.Debug("websocket write failed", "error", err)
			return
		}
	}
}
