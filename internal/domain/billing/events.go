package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockbook/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeDocument = "Document"

// Event type constants
const (
	EventTypeDocumentCreated   = "DocumentCreated"
	EventTypeDocumentCompleted = "DocumentCompleted"
	EventTypeDocumentCancelled = "DocumentCancelled"
	EventTypeDocumentSettled   = "DocumentSettled"
)

// DocumentCreatedEvent is raised when a new document is created
type DocumentCreatedEvent struct {
	shared.BaseDomainEvent
	DocumentID       uuid.UUID `json:"document_id"`
	Family           Family    `json:"family"`
	InvoiceNumber    string    `json:"invoice_number"`
	CounterpartyID   uuid.UUID `json:"counterparty_id"`
	CounterpartyName string    `json:"counterparty_name"`
}

// NewDocumentCreatedEvent creates a new DocumentCreatedEvent
func NewDocumentCreatedEvent(doc *Document) *DocumentCreatedEvent {
	return &DocumentCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeDocumentCreated, AggregateTypeDocument, doc.ID),
		DocumentID:       doc.ID,
		Family:           doc.Family,
		InvoiceNumber:    doc.InvoiceNumber,
		CounterpartyID:   doc.CounterpartyID,
		CounterpartyName: doc.CounterpartyName,
	}
}

// EventType returns the event type name
func (e *DocumentCreatedEvent) EventType() string {
	return EventTypeDocumentCreated
}

// DocumentCompletedEvent is raised when a document reaches its family's
// final status. For invoices this triggers stock movements; for returns it
// additionally adjusts the source document's settlement exposure.
type DocumentCompletedEvent struct {
	shared.BaseDomainEvent
	DocumentID       uuid.UUID       `json:"document_id"`
	Family           Family          `json:"family"`
	InvoiceNumber    string          `json:"invoice_number"`
	WarehouseID      uuid.UUID       `json:"warehouse_id"`
	GrandTotal       decimal.Decimal `json:"grand_total"`
	SourceDocumentID *uuid.UUID      `json:"source_document_id,omitempty"`
}

// NewDocumentCompletedEvent creates a new DocumentCompletedEvent
func NewDocumentCompletedEvent(doc *Document) *DocumentCompletedEvent {
	return &DocumentCompletedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeDocumentCompleted, AggregateTypeDocument, doc.ID),
		DocumentID:       doc.ID,
		Family:           doc.Family,
		InvoiceNumber:    doc.InvoiceNumber,
		WarehouseID:      doc.WarehouseID,
		GrandTotal:       doc.GrandTotal,
		SourceDocumentID: doc.SourceDocumentID,
	}
}

// EventType returns the event type name
func (e *DocumentCompletedEvent) EventType() string {
	return EventTypeDocumentCompleted
}

// DocumentCancelledEvent is raised when a document is cancelled
type DocumentCancelledEvent struct {
	shared.BaseDomainEvent
	DocumentID    uuid.UUID `json:"document_id"`
	Family        Family    `json:"family"`
	InvoiceNumber string    `json:"invoice_number"`
	CancelReason  string    `json:"cancel_reason"`
}

// NewDocumentCancelledEvent creates a new DocumentCancelledEvent
func NewDocumentCancelledEvent(doc *Document) *DocumentCancelledEvent {
	return &DocumentCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentCancelled, AggregateTypeDocument, doc.ID),
		DocumentID:      doc.ID,
		Family:          doc.Family,
		InvoiceNumber:   doc.InvoiceNumber,
		CancelReason:    doc.CancelReason,
	}
}

// EventType returns the event type name
func (e *DocumentCancelledEvent) EventType() string {
	return EventTypeDocumentCancelled
}

// DocumentSettledEvent is raised when a payment allocation is applied
type DocumentSettledEvent struct {
	shared.BaseDomainEvent
	DocumentID    uuid.UUID       `json:"document_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`
	AmountSettled decimal.Decimal `json:"amount_settled"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
}

// NewDocumentSettledEvent creates a new DocumentSettledEvent
func NewDocumentSettledEvent(doc *Document, amount decimal.Decimal) *DocumentSettledEvent {
	return &DocumentSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentSettled, AggregateTypeDocument, doc.ID),
		DocumentID:      doc.ID,
		InvoiceNumber:   doc.InvoiceNumber,
		Amount:          amount,
		AmountSettled:   doc.AmountSettled,
		PaymentStatus:   doc.PaymentStatus(),
	}
}

// EventType returns the event type name
func (e *DocumentSettledEvent) EventType() string {
	return EventTypeDocumentSettled
}
