package inmem

import (
	"context"
	"sync"

	"github.com/OmDoke/Book-Inventory-Management-System/orchestrator"
)

// Sink captures loop events in memory and exposes deterministic snapshots.
type Sink struct {
	mu     sync.RWMutex
	events []orchestrator.Event
}

var _ orchestrator.EventSink = (*Sink)(nil)

func New() *Sink {
	return &Sink{events: make([]orchestrator.Event, 0)}
}

func (s *Sink) Publish(ctx context.Context, event orchestrator.Event) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err := orchestrator.ValidateEvent(event); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, orchestrator.CloneEvent(event))
	return nil
}

func (s *Sink) Events() []orchestrator.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]orchestrator.Event, len(s.events))
	for i := range s.events {
		out[i] = orchestrator.CloneEvent(s.events[i])
	}
	return out
}

// Types returns the event types in publish order.
func (s *Sink) Types() []orchestrator.EventType {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]orchestrator.EventType, len(s.events))
	for i := range s.events {
		out[i] = s.events[i].Type
	}
	return out
}
