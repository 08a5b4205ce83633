package events

import (
	"context"
	"log/slog"
	"sync"
)

// MockEventPublisher keeps events in memory. Used when no broker is configured and in tests.
type MockEventPublisher struct {
	mu     sync.RWMutex
	events []*Event
	logger *slog.Logger
	// FailWith makes Publish return the given error for matching event types
	FailWith map[EventType]error
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{logger: logger}
}

func (m *MockEventPublisher) Publish(ctx context.Context, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.FailWith[event.Type]; ok {
		return err
	}

	m.events = append(m.events, event)
	if m.logger != nil {
		m.logger.Debug("Event recorded", "event_id", event.ID, "type", event.Type)
	}
	return nil
}

func (m *MockEventPublisher) GetPublishedEvents() []*Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Event, len(m.events))
	copy(out, m.events)
	return out
}

// EventsOfType filters the recorded events
func (m *MockEventPublisher) EventsOfType(eventType EventType) []*Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Event
	for _, e := range m.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

func (m *MockEventPublisher) Close() error { return nil }
