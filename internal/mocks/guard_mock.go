package mocks

import (
	"context"
	"sync"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
)

// MockInFlightGuard implements ports.InFlightGuard with a key set.
type MockInFlightGuard struct {
	mu   sync.Mutex
	held map[string]bool

	AcquireCalls []string
	ReleaseCalls []string

	AcquireError error
}

var _ ports.InFlightGuard = (*MockInFlightGuard)(nil)

func NewMockInFlightGuard() *MockInFlightGuard {
	return &MockInFlightGuard{held: make(map[string]bool)}
}

func (m *MockInFlightGuard) Acquire(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AcquireCalls = append(m.AcquireCalls, key)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.held[key] {
		return false, nil
	}
	m.held[key] = true
	return true, nil
}

func (m *MockInFlightGuard) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReleaseCalls = append(m.ReleaseCalls, key)
	delete(m.held, key)
	return nil
}

// Hold marks key as in flight, as if another submission were running.
func (m *MockInFlightGuard) Hold(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[key] = true
}

func (m *MockInFlightGuard) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[key]
}
