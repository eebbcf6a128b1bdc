package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/agenthands/reviewgraph/internal/agent"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Frame is what the chat socket sends: tool progress, the final answer, or an error.
type Frame struct {
	Type      string           `json:"type"`
	SessionID string           `json:"session_id,omitempty"`
	Answer    string           `json:"answer,omitempty"`
	Tool      *agent.ToolEvent `json:"tool,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// ChatSocket serves one chat per connection. Each incoming ChatRequest frame
// produces zero or more "tool" frames followed by a "response" or "error" frame.
func (s *Server) ChatSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	if err := conn.WriteJSON(Frame{Type: "session", SessionID: sessionID}); err != nil {
		return
	}

	for {
		var req ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket closed", "session_id", sessionID, "error", err)
			}
			return
		}
		if req.SessionID != "" {
			sessionID = req.SessionID
		}
		if strings.TrimSpace(req.Message) == "" {
			if conn.WriteJSON(Frame{Type: "error", SessionID: sessionID, Error: "message is required"}) != nil {
				return
			}
			continue
		}

		var writeErr error
		onTool := func(ev agent.ToolEvent) {
			if writeErr == nil {
				writeErr = conn.WriteJSON(Frame{Type: "tool", SessionID: sessionID, Tool: &ev})
			}
		}
		resp, err := s.Agent.Ask(c.Request.Context(), sessionID, req.Message, onTool)
		if writeErr != nil {
			return
		}

		frame := Frame{Type: "response", SessionID: sessionID, Answer: resp.Answer}
		if err != nil {
			frame = Frame{Type: "error", SessionID: sessionID, Error: "Failed to answer message"}
		}
		if err := conn.WriteJSON(frame); err != nil {
			return
		}
	}
}
