package llm

import (
	"context"
)

type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type EmbedderClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder embeds several texts in one request. Vectors come back in input order.
type BatchEmbedder interface {
	EmbedderClient
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ToolCaller is a chat model that can request tool invocations.
type ToolCaller interface {
	ChatWithTools(ctx context.Context, messages []Message, tools []ToolSpec) (Message, error)
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSpec describes a callable tool. Parameters is a JSON schema object.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ImageInput is an inline image attached to a prompt.
type ImageInput struct {
	MIMEType string
	Data     []byte
}

// VisionClient answers a prompt about one or more images.
type VisionClient interface {
	GenerateWithImages(ctx context.Context, prompt string, images []ImageInput) (string, error)
}
