// Package eventing provides orchestrator event sinks for logs and metrics and
// a fan-out that feeds several sinks at once.
package eventing

import (
	"context"
	"errors"

	"github.com/OmDoke/Book-Inventory-Management-System/orchestrator"
)

type fanoutSink struct {
	sinks []orchestrator.EventSink
}

// Fanout publishes every event to each non-nil sink in order. All sinks see
// the event even when an earlier one fails; failures are joined.
func Fanout(sinks ...orchestrator.EventSink) orchestrator.EventSink {
	filtered := make([]orchestrator.EventSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			filtered = append(filtered, sink)
		}
	}
	return fanoutSink{sinks: filtered}
}

func (s fanoutSink) Publish(ctx context.Context, event orchestrator.Event) error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
