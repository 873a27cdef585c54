package eventing

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/OmDoke/Book-Inventory-Management-System/orchestrator"
)

type logSink struct {
	logger *slog.Logger
}

// NewLogSink writes each event as JSON at debug level. It returns nil for a nil logger.
func NewLogSink(logger *slog.Logger) orchestrator.EventSink {
	if logger == nil {
		return nil
	}
	return logSink{logger: logger}
}

func (s logSink) Publish(ctx context.Context, event orchestrator.Event) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if !s.logger.Enabled(ctx, slog.LevelDebug) {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "search event",
		slog.String("run_id", event.RunID),
		slog.String("type", string(event.Type)),
		slog.String("event", string(payload)),
	)
	return nil
}
