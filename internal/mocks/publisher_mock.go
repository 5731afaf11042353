package mocks

import (
	"context"
	"sync"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
)

// MockRequestEventPublisher implements ports.RequestEventPublisher without a
// RabbitMQ connection.
type MockRequestEventPublisher struct {
	mu sync.RWMutex

	// Track published events for verification
	PublishedEvents []ports.BloodRequestCreatedEvent

	// Error injection for testing error scenarios
	PublishError error

	PublishCallCount int
}

var _ ports.RequestEventPublisher = (*MockRequestEventPublisher)(nil)

func NewMockRequestEventPublisher() *MockRequestEventPublisher {
	return &MockRequestEventPublisher{
		PublishedEvents: make([]ports.BloodRequestCreatedEvent, 0),
	}
}

func (m *MockRequestEventPublisher) PublishRequestCreated(ctx context.Context, evt ports.BloodRequestCreatedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishCallCount++

	if m.PublishError != nil {
		return m.PublishError
	}

	m.PublishedEvents = append(m.PublishedEvents, evt)
	return nil
}

// GetPublishedEvents returns a copy of everything published so far.
func (m *MockRequestEventPublisher) GetPublishedEvents() []ports.BloodRequestCreatedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]ports.BloodRequestCreatedEvent, len(m.PublishedEvents))
	copy(events, m.PublishedEvents)
	return events
}

func (m *MockRequestEventPublisher) GetPublishCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PublishCallCount
}
