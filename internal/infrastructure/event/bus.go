package event

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/stockbook/backend/internal/domain/shared"
)

// EventHandler processes domain events it has subscribed to
type EventHandler interface {
	// EventTypes returns the event types this handler wants to receive
	EventTypes() []string

	// Handle processes a single event
	Handle(ctx context.Context, event shared.DomainEvent) error
}

// InMemoryEventBus implements shared.EventPublisher with in-memory pub/sub.
// Handlers run synchronously on the publishing goroutine; a failing handler
// is logged and does not stop delivery to the others.
type InMemoryEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
	logger   *zap.Logger
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		handlers: make(map[string][]EventHandler),
		logger:   logger,
	}
}

// Subscribe registers a handler for the event types it declares
func (b *InMemoryEventBus) Subscribe(handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, eventType := range handler.EventTypes() {
		b.handlers[eventType] = append(b.handlers[eventType], handler)
	}
	b.logger.Debug("handler subscribed",
		zap.Strings("event_types", handler.EventTypes()),
	)
}

// Publish delivers an event to all registered handlers
func (b *InMemoryEventBus) Publish(ctx context.Context, event shared.DomainEvent) error {
	b.mu.RLock()
	handlers := b.handlers[event.EventType()]
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := b.dispatchToHandler(ctx, handler, event); err != nil {
			b.logger.Error("handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

// dispatchToHandler safely dispatches an event to a handler
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
		}
	}()

	return handler.Handle(ctx, event)
}

var _ shared.EventPublisher = (*InMemoryEventBus)(nil)
