package translate

import (
	"context"
)

type MockLLMClient struct {
	Response      string
	ResponseQueue []string
	Prompts       []string
	Err           error
	FailOn        int
}

func (m *MockLLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil && (m.FailOn == 0 || m.FailOn == len(m.Prompts)) {
		return "", m.Err
	}
	if len(m.ResponseQueue) > 0 {
		resp := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return resp, nil
	}
	return m.Response, nil
}
