package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/okian/classpulse/internal/domain/model"
)

// EventLog is the append-only list of adaptation events in arrival order.
type EventLog struct {
	mu     sync.RWMutex
	events []model.AdaptationEvent
}

// NewEventLog creates an empty log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Append records ev. Time and type are required.
func (l *EventLog) Append(_ context.Context, ev model.AdaptationEvent) error {
	if strings.TrimSpace(ev.Time) == "" || strings.TrimSpace(ev.Type) == "" {
		return fmt.Errorf("time and type are required: %w", ErrInvalidEvent)
	}
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
	return nil
}

// List returns a copy of the recorded events.
func (l *EventLog) List(_ context.Context) []model.AdaptationEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.AdaptationEvent(nil), l.events...)
}

// Len returns the number of recorded events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}
