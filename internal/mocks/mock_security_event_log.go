package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/you/fueltrack/domain"
)

// MockSecurityEventLog implements domain.SecurityEventLog interface for testing.
// Recorded events are kept for assertions.
type MockSecurityEventLog struct {
	RecordFunc          func(ctx context.Context, event *domain.SecurityEvent) error
	ListFunc            func(ctx context.Context, filter domain.SecurityEventFilter) ([]domain.SecurityEvent, int64, error)
	EventTypesFunc      func(ctx context.Context) ([]domain.SecurityEventType, error)
	CountFunc           func(ctx context.Context, since time.Time) (int64, error)
	DeleteOlderThanFunc func(ctx context.Context, before time.Time) (int64, error)

	mu     sync.Mutex
	events []domain.SecurityEvent
}

// NewMockSecurityEventLog creates a new MockSecurityEventLog with default behaviors
func NewMockSecurityEventLog() *MockSecurityEventLog {
	return &MockSecurityEventLog{}
}

// Record appends an event
func (m *MockSecurityEventLog) Record(ctx context.Context, event *domain.SecurityEvent) error {
	m.mu.Lock()
	m.events = append(m.events, *event)
	m.mu.Unlock()
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, event)
	}
	return nil
}

// List returns recorded events
func (m *MockSecurityEventLog) List(ctx context.Context, filter domain.SecurityEventFilter) ([]domain.SecurityEvent, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	events := m.Events()
	return events, int64(len(events)), nil
}

// EventTypes lists distinct recorded event types
func (m *MockSecurityEventLog) EventTypes(ctx context.Context) ([]domain.SecurityEventType, error) {
	if m.EventTypesFunc != nil {
		return m.EventTypesFunc(ctx)
	}
	seen := make(map[domain.SecurityEventType]bool)
	var types []domain.SecurityEventType
	for _, e := range m.Events() {
		if !seen[e.EventType] {
			seen[e.EventType] = true
			types = append(types, e.EventType)
		}
	}
	return types, nil
}

// Count counts recorded events created at or after since
func (m *MockSecurityEventLog) Count(ctx context.Context, since time.Time) (int64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, since)
	}
	var n int64
	for _, e := range m.Events() {
		if !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// DeleteOlderThan drops recorded events created before the cutoff
func (m *MockSecurityEventLog) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	if m.DeleteOlderThanFunc != nil {
		return m.DeleteOlderThanFunc(ctx, before)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	var n int64
	for _, e := range m.events {
		if e.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return n, nil
}

// Events returns a copy of every recorded event (test helper)
func (m *MockSecurityEventLog) Events() []domain.SecurityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SecurityEvent(nil), m.events...)
}

// Types returns recorded event types in order (test helper)
func (m *MockSecurityEventLog) Types() []domain.SecurityEventType {
	events := m.Events()
	if len(events) == 0 {
		return nil
	}
	types := make([]domain.SecurityEventType, len(events))
	for i, e := range events {
		types[i] = e.EventType
	}
	return types
}

// Compile-time interface compliance verification
var _ domain.SecurityEventLog = (*MockSecurityEventLog)(nil)
