package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/stockbook/backend/internal/domain/billing"
	"github.com/stockbook/backend/internal/domain/identity"
	"github.com/stockbook/backend/internal/domain/settlement"
	"github.com/stockbook/backend/internal/domain/shared"
)

// AuditLogHandler writes an audit trail entry for every domain event
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new AuditLogHandler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.Named("audit")}
}

// EventTypes returns all event types the audit trail records
func (h *AuditLogHandler) EventTypes() []string {
	return []string{
		billing.EventTypeDocumentCreated,
		billing.EventTypeDocumentCompleted,
		billing.EventTypeDocumentCancelled,
		billing.EventTypeDocumentSettled,
		settlement.EventTypePaymentRecorded,
		settlement.EventTypePaymentReconciled,
		identity.EventTypeUserCreated,
		identity.EventTypeUserLoggedIn,
	}
}

// Handle logs the event
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.logger.Info("domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

var _ EventHandler = (*AuditLogHandler)(nil)
