package mocks

import (
	"context"
	"sync"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
)

// MockGenerator implements ports.Generator with canned responses.
type MockGenerator struct {
	mu sync.Mutex

	// Response is returned for every prompt unless Responses has an entry for
	// the prompt name.
	Response  string
	Responses map[string]string

	GenerateError error

	Prompts []ports.Prompt
}

var _ ports.Generator = (*MockGenerator)(nil)

func NewMockGenerator(response string) *MockGenerator {
	return &MockGenerator{Response: response, Responses: make(map[string]string)}
}

func (m *MockGenerator) Generate(ctx context.Context, prompt ports.Prompt) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, prompt)
	if m.GenerateError != nil {
		return "", m.GenerateError
	}
	if r, ok := m.Responses[prompt.Name]; ok {
		return r, nil
	}
	return m.Response, nil
}

func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// LastPrompt returns the most recent prompt, or the zero value.
func (m *MockGenerator) LastPrompt() ports.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Prompts) == 0 {
		return ports.Prompt{}
	}
	return m.Prompts[len(m.Prompts)-1]
}
