package services

import (
	"context"
	"sync"
)

// MockEventPublisher records published events for tests
type MockEventPublisher struct {
	mu     sync.Mutex
	events []TradeEvent
	err    error
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

// FailWith makes every later Publish return err (the event is still recorded)
func (m *MockEventPublisher) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *MockEventPublisher) Publish(_ context.Context, event TradeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func (m *MockEventPublisher) Close() error { return nil }

// Events returns a copy of everything published so far
func (m *MockEventPublisher) Events() []TradeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TradeEvent, len(m.events))
	copy(out, m.events)
	return out
}
