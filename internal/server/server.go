package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agenthands/reviewgraph/internal/agent"
	"github.com/agenthands/reviewgraph/internal/logger"
	"github.com/agenthands/reviewgraph/internal/store"
	"github.com/agenthands/reviewgraph/internal/tools"
)

// Chatter answers chat messages. *agent.Agent implements it.
type Chatter interface {
	Ask(ctx context.Context, sessionID, message string, onTool func(agent.ToolEvent)) (agent.Response, error)
	Reset(ctx context.Context, sessionID string) error
	Prime(ctx context.Context, sessionID, seed string) error
}

type Server struct {
	Agent Chatter
	Tools *tools.Registry
	Stats store.Reader
	// Cards is nil when product cards are disabled.
	Cards         CardMaker
	MaxImageBytes int64
	log           *logger.Logger
}

func NewServer(chat Chatter, registry *tools.Registry, reader store.Reader, log *logger.Logger) *Server {
	return &Server{
		Agent: chat,
		Tools: registry,
		Stats: reader,
		log:   log,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.Health)
	r.GET("/stats", s.GraphStats)
	r.POST("/chat", s.Chat)
	r.POST("/chat/clear", s.ClearChat)
	r.POST("/chat/image", s.ImageCard)
	r.POST("/product-card", s.PromptCard)
	r.GET("/ws/chat", s.ChatSocket)
	r.GET("/tools", s.ListTools)
	r.POST("/tools/:name", s.CallTool)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.Debug("request", "method", c.Request.Method, "path", c.FullPath(), "status", c.Writer.Status())
	}
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	SessionID string            `json:"session_id"`
	Answer    string            `json:"answer"`
	ToolCalls []agent.ToolEvent `json:"tool_calls"`
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) GraphStats(c *gin.Context) {
	stats, err := s.Stats.Stats(c.Request.Context())
	if err != nil {
		s.log.Error("failed to get stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get graph statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	resp, err := s.Agent.Ask(c.Request.Context(), req.SessionID, req.Message, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to answer message", "session_id": req.SessionID})
		return
	}
	c.JSON(http.StatusOK, ChatResponse{SessionID: req.SessionID, Answer: resp.Answer, ToolCalls: resp.ToolCalls})
}

func (s *Server) ClearChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}
	if err := s.Agent.Reset(c.Request.Context(), req.SessionID); err != nil {
		s.log.Error("failed to clear session", "session_id", req.SessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared", "session_id": req.SessionID})
}

func (s *Server) ListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": s.Tools.Specs()})
}

// CallTool runs one tool directly. The body is either a JSON argument object or plain text.
func (s *Server) CallTool(c *gin.Context) {
	name := c.Param("name")
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	out, err := s.Tools.Call(c.Request.Context(), name, string(body))
	if errors.Is(err, tools.ErrUnknownTool) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.log.Error("tool failed", "tool", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Tool failed", "tool": name})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tool": name, "result": out})
}
