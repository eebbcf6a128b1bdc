// Package agent answers chat messages with the graph tools, keeping history per session.
package agent

import (
	"context"
	"fmt"

	"github.com/agenthands/reviewgraph/internal/llm"
	"github.com/agenthands/reviewgraph/internal/logger"
	"github.com/agenthands/reviewgraph/internal/memory"
	"github.com/agenthands/reviewgraph/internal/tools"
)

const DefaultMaxSteps = 5

// ToolEvent reports one tool invocation while a message is answered.
type ToolEvent struct {
	Name   string `json:"name"`
	Input  string `json:"input"`
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

type Response struct {
	Answer    string      `json:"answer"`
	ToolCalls []ToolEvent `json:"tool_calls"`
}

type Options struct {
	SystemPrompt string
	MaxSteps     int
}

// Agent runs a function-calling loop when the model supports it and falls back
// to keyword routing otherwise.
type Agent struct {
	caller   llm.ToolCaller
	registry *tools.Registry
	router   *tools.Router
	memory   memory.Store
	opts     Options
	log      *logger.Logger
}

// New builds an agent. caller may be nil.
func New(caller llm.ToolCaller, registry *tools.Registry, mem memory.Store, opts Options, log *logger.Logger) *Agent {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if mem == nil {
		mem = memory.NewInMemory(memory.DefaultLimit)
	}
	return &Agent{
		caller:   caller,
		registry: registry,
		router:   tools.NewRouter(registry),
		memory:   mem,
		opts:     opts,
		log:      log,
	}
}

func (a *Agent) Tools() *tools.Registry { return a.registry }

// Ask answers message within sessionID. onTool, when set, is called after every tool run.
func (a *Agent) Ask(ctx context.Context, sessionID, message string, onTool func(ToolEvent)) (Response, error) {
	if onTool == nil {
		onTool = func(ToolEvent) {}
	}
	log := a.log.With("session_id", sessionID)

	var resp Response
	var err error
	if a.caller == nil {
		resp, err = a.route(ctx, message, onTool)
	} else {
		resp, err = a.loop(ctx, sessionID, message, onTool)
	}
	if err != nil {
		log.Error("failed to answer", "error", err)
		return Response{}, err
	}

	if err := a.memory.Append(ctx, sessionID,
		llm.Message{Role: llm.RoleUser, Content: message},
		llm.Message{Role: llm.RoleAssistant, Content: resp.Answer},
	); err != nil {
		log.Warn("failed to store conversation", "error", err)
	}
	log.Info("answered", "tool_calls", len(resp.ToolCalls))
	return resp, nil
}

func (a *Agent) Reset(ctx context.Context, sessionID string) error {
	return a.memory.Clear(ctx, sessionID)
}

// Prime clears sessionID and seeds it with text the next questions refer to.
func (a *Agent) Prime(ctx context.Context, sessionID, seed string) error {
	if err := a.memory.Clear(ctx, sessionID); err != nil {
		return err
	}
	return a.memory.Append(ctx, sessionID, llm.Message{Role: llm.RoleAssistant, Content: seed})
}

func (a *Agent) route(ctx context.Context, message string, onTool func(ToolEvent)) (Response, error) {
	name := a.router.Route(message)
	ev := a.call(ctx, name, message)
	onTool(ev)
	answer := ev.Output
	if ev.Error != "" {
		answer = "Sorry, I could not answer that: " + ev.Error
	}
	return Response{Answer: answer, ToolCalls: []ToolEvent{ev}}, nil
}

func (a *Agent) loop(ctx context.Context, sessionID, message string, onTool func(ToolEvent)) (Response, error) {
	history, err := a.memory.Messages(ctx, sessionID)
	if err != nil {
		a.log.Warn("failed to load history, continuing without it", "session_id", sessionID, "error", err)
		history = nil
	}

	messages := make([]llm.Message, 0, len(history)+2)
	if a.opts.SystemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: a.opts.SystemPrompt})
	}
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	specs := a.registry.Specs()
	var resp Response
	for step := 0; step < a.opts.MaxSteps; step++ {
		reply, err := a.caller.ChatWithTools(ctx, messages, specs)
		if err != nil {
			return Response{}, fmt.Errorf("failed to chat with tools: %w", err)
		}
		if len(reply.ToolCalls) == 0 {
			resp.Answer = reply.Content
			return resp, nil
		}

		messages = append(messages, reply)
		for _, tc := range reply.ToolCalls {
			ev := a.call(ctx, tc.Name, tc.Arguments)
			onTool(ev)
			resp.ToolCalls = append(resp.ToolCalls, ev)

			content := ev.Output
			if ev.Error != "" {
				content = "Error: " + ev.Error
			}
			messages = append(messages, llm.Message{Role: llm.RoleTool, ToolCallID: tc.ID, Name: tc.Name, Content: content})
		}
	}

	// out of steps: one last turn without tools forces a text answer
	reply, err := a.caller.ChatWithTools(ctx, messages, nil)
	if err != nil {
		return Response{}, fmt.Errorf("failed to chat with tools: %w", err)
	}
	resp.Answer = reply.Content
	return resp, nil
}

func (a *Agent) call(ctx context.Context, name, input string) ToolEvent {
	ev := ToolEvent{Name: name, Input: input}
	out, err := a.registry.Call(ctx, name, input)
	if err != nil {
		a.log.Warn("tool failed", "tool", name, "error", err)
		ev.Error = err.Error()
		return ev
	}
	ev.Output = out
	return ev
}
