package eventbus

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// Registry routes events to handlers by routing key.
type Registry struct {
	handlers map[string][]Handler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Register adds a handler for its declared event types.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, eventType := range h.EventTypes() {
		r.handlers[eventType] = append(r.handlers[eventType], h)
		r.logger.Debug("registered handler for event type",
			"event_type", eventType,
		)
	}
}

// EventTypes returns the routing keys that have handlers, sorted.
func (r *Registry) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Dispatch sends an event to every handler registered for its routing key.
// All handlers run; the last error is returned.
func (r *Registry) Dispatch(ctx context.Context, event *Event) error {
	r.mu.RLock()
	handlers := r.handlers[event.RoutingKey]
	r.mu.RUnlock()

	if len(handlers) == 0 {
		r.logger.Debug("no handlers for event type",
			"routing_key", event.RoutingKey,
		)
		return nil
	}

	var lastErr error
	for _, h := range handlers {
		if err := h.Handle(ctx, event); err != nil {
			r.logger.Error("handler failed",
				"routing_key", event.RoutingKey,
				"event_id", event.EventID,
				"error", err,
			)
			lastErr = err
		}
	}
	return lastErr
}
