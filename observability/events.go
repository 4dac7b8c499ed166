package observability

import (
	"log/slog"

	"salechain/core/events"
	"salechain/core/types"
)

// EventLogger is an events.Emitter that writes every settlement event to the
// structured log and counts it in the metrics registry.
type EventLogger struct {
	log *slog.Logger
}

// NewEventLogger wraps log. A nil logger falls back to the default slog
// logger.
func NewEventLogger(log *slog.Logger) *EventLogger {
	if log == nil {
		log = slog.Default()
	}
	return &EventLogger{log: log}
}

// Emit implements events.Emitter.
func (e *EventLogger) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	eventType := evt.EventType()
	Sale().RecordEvent(eventType)

	args := []any{slog.String("event", eventType)}
	if carrier, ok := evt.(interface{ Event() *types.Event }); ok {
		if payload := carrier.Event(); payload != nil {
			for k, v := range payload.Attributes {
				args = append(args, slog.String(k, v))
			}
		}
	}
	e.log.Info("settlement event", args...)
}
