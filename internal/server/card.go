package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agenthands/reviewgraph/internal/card"
	"github.com/agenthands/reviewgraph/internal/llm"
)

const defaultMaxImageBytes = 10 << 20

// CardMaker builds product cards. *card.Generator implements it.
type CardMaker interface {
	FromImage(ctx context.Context, message string, img llm.ImageInput) (card.Card, error)
	FromText(ctx context.Context, prompt string) (card.Card, error)
}

type CardRequest struct {
	SessionID string `json:"session_id"`
	Prompt    string `json:"prompt"`
}

type CardResponse struct {
	SessionID string    `json:"session_id"`
	Card      card.Card `json:"card"`
	Error     string    `json:"error,omitempty"`
}

// WithCards enables the product card routes.
func (s *Server) WithCards(maker CardMaker, maxImageBytes int64) *Server {
	s.Cards = maker
	s.MaxImageBytes = maxImageBytes
	return s
}

// ImageCard builds a card from a multipart upload: field "image", optional
// "message" and "session_id". The session is reset and seeded with the card.
func (s *Server) ImageCard(c *gin.Context) {
	if s.Cards == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "product cards are not enabled"})
		return
	}
	maxBytes := s.MaxImageBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxImageBytes
	}

	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open image", "detail": err.Error()})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image", "detail": err.Error()})
		return
	}
	if int64(len(data)) > maxBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is too large", "max_bytes": maxBytes})
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is empty"})
		return
	}
	mime := imageType(fh.Header.Get("Content-Type"), data)
	if mime == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is not an image"})
		return
	}

	sessionID := c.PostForm("session_id")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	result, err := s.Cards.FromImage(c.Request.Context(), c.PostForm("message"), llm.ImageInput{MIMEType: mime, Data: data})
	s.respondCard(c, sessionID, result, err)
}

// PromptCard builds a card from a text prompt and seeds the session with it.
func (s *Server) PromptCard(c *gin.Context) {
	if s.Cards == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "product cards are not enabled"})
		return
	}
	var req CardRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}
	result, err := s.Cards.FromText(c.Request.Context(), req.Prompt)
	s.respondCard(c, req.SessionID, result, err)
}

func (s *Server) respondCard(c *gin.Context, sessionID string, result card.Card, err error) {
	log := s.log.With("session_id", sessionID)
	if err != nil {
		log.Error("failed to build product card", "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, card.ErrNoVision) {
			status = http.StatusNotImplemented
		}
		c.JSON(status, CardResponse{SessionID: sessionID, Card: card.ErrorCard(err), Error: err.Error()})
		return
	}
	if err := s.Agent.Prime(c.Request.Context(), sessionID, result.Seed()); err != nil {
		log.Warn("failed to seed session with product card", "error", err)
	}
	log.Info("built product card", "product_id", result.ProductID)
	c.JSON(http.StatusOK, CardResponse{SessionID: sessionID, Card: result})
}

// imageType trusts an image/* part header and sniffs the bytes otherwise.
func imageType(header string, data []byte) string {
	if strings.HasPrefix(header, "image/") {
		return header
	}
	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	return ""
}
