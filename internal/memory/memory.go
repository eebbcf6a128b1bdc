// Package memory keeps per-session chat history for the agent.
package memory

import (
	"context"
	"sync"

	"github.com/agenthands/reviewgraph/internal/llm"
)

const DefaultLimit = 20

// Store holds the conversation of each session, oldest message first.
type Store interface {
	Messages(ctx context.Context, sessionID string) ([]llm.Message, error)
	Append(ctx context.Context, sessionID string, messages ...llm.Message) error
	Clear(ctx context.Context, sessionID string) error
}

// InMemory keeps the last limit messages of each session in process memory.
type InMemory struct {
	mu       sync.RWMutex
	limit    int
	sessions map[string][]llm.Message
}

func NewInMemory(limit int) *InMemory {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &InMemory{limit: limit, sessions: make(map[string][]llm.Message)}
}

func (m *InMemory) Messages(ctx context.Context, sessionID string) ([]llm.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.sessions[sessionID]
	out := make([]llm.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *InMemory) Append(ctx context.Context, sessionID string, messages ...llm.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := append(m.sessions[sessionID], messages...)
	if len(msgs) > m.limit {
		msgs = append([]llm.Message(nil), msgs[len(msgs)-m.limit:]...)
	}
	m.sessions[sessionID] = msgs
	return nil
}

func (m *InMemory) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}
