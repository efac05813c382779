package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stockbook/backend/internal/domain/shared"
)

// testEvent implements DomainEvent for testing
type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New()),
		Data:            "test data",
	}
}

// testHandler implements EventHandler for testing
type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("TestEvent")
	bus.Subscribe(handler)

	event := newTestEvent("TestEvent")
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 1)
	assert.Equal(t, event, handler.getHandled()[0])
}

func TestInMemoryEventBus_Publish_UnsubscribedType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("OtherEvent")
	bus.Subscribe(handler)

	err := bus.Publish(context.Background(), newTestEvent("TestEvent"))

	require.NoError(t, err)
	assert.Empty(t, handler.getHandled())
}

func TestInMemoryEventBus_Publish_MultipleHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	first := newTestHandler("TestEvent")
	second := newTestHandler("TestEvent")
	bus.Subscribe(first)
	bus.Subscribe(second)

	err := bus.Publish(context.Background(), newTestEvent("TestEvent"))

	require.NoError(t, err)
	assert.Len(t, first.getHandled(), 1)
	assert.Len(t, second.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := newTestHandler("TestEvent")
	failing.err = errors.New("handler failed")
	healthy := newTestHandler("TestEvent")
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("TestEvent"))

	require.NoError(t, err)
	assert.Len(t, healthy.getHandled(), 1)
}

type panickingHandler struct{}

func (h *panickingHandler) EventTypes() []string { return []string{"TestEvent"} }

func (h *panickingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	panic("boom")
}

func TestInMemoryEventBus_Publish_RecoversFromPanic(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	bus.Subscribe(&panickingHandler{})
	healthy := newTestHandler("TestEvent")
	bus.Subscribe(healthy)

	assert.NotPanics(t, func() {
		_ = bus.Publish(context.Background(), newTestEvent("TestEvent"))
	})
	assert.Len(t, healthy.getHandled(), 1)
}

func TestAuditLogHandler(t *testing.T) {
	handler := NewAuditLogHandler(zap.NewNop())

	assert.NotEmpty(t, handler.EventTypes())
	assert.Contains(t, handler.EventTypes(), "DocumentCompleted")
	assert.Contains(t, handler.EventTypes(), "PaymentRecorded")

	err := handler.Handle(context.Background(), newTestEvent("DocumentCompleted"))
	assert.NoError(t, err)
}
