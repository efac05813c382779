package settlement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockbook/backend/internal/domain/billing"
	"github.com/stockbook/backend/internal/domain/shared"
)

// PaymentType identifies the direction and counterparty side of a payment.
// The values are the wire representation.
type PaymentType string

const (
	PaymentTypeCustomerPayment PaymentType = "customer_payment"
	PaymentTypeSupplierPayment PaymentType = "supplier_payment"
	PaymentTypeCustomerRefund  PaymentType = "customer_refund"
	PaymentTypeSupplierRefund  PaymentType = "supplier_refund"
)

// IsValid checks if the payment type is valid
func (t PaymentType) IsValid() bool {
	switch t {
	case PaymentTypeCustomerPayment, PaymentTypeSupplierPayment, PaymentTypeCustomerRefund, PaymentTypeSupplierRefund:
		return true
	}
	return false
}

// String returns the string representation
func (t PaymentType) String() string {
	return string(t)
}

// IsRefund reports whether the payment flows back to the counterparty
func (t PaymentType) IsRefund() bool {
	return t == PaymentTypeCustomerRefund || t == PaymentTypeSupplierRefund
}

// TargetFamily returns the document family this payment type settles against
func (t PaymentType) TargetFamily() billing.Family {
	switch t {
	case PaymentTypeCustomerPayment, PaymentTypeCustomerRefund:
		return billing.FamilySale
	default:
		return billing.FamilyPurchase
	}
}

// PaymentAllocation is one slice of a payment applied to a document. A nil
// DocumentID marks the unapplied on-account remainder.
type PaymentAllocation struct {
	ID            uuid.UUID
	PaymentID     uuid.UUID
	DocumentID    *uuid.UUID
	InvoiceNumber string
	Amount        decimal.Decimal
	CreatedAt     time.Time
}

// IsOnAccount reports whether the slice is the unapplied remainder
func (a PaymentAllocation) IsOnAccount() bool {
	return a.DocumentID == nil
}

// TableName specifies the table name for GORM
func (PaymentAllocation) TableName() string {
	return "payment_allocations"
}

// Payment represents money received from or paid back to a counterparty.
// Once reconciled against documents its amount and allocations are frozen;
// descriptive metadata stays editable until then.
type Payment struct {
	shared.BaseAggregateRoot
	PaymentNumber    string
	Type             PaymentType
	CounterpartyID   uuid.UUID
	CounterpartyName string
	Amount           decimal.Decimal
	PaymentDate      time.Time
	Method           string
	Reference        string
	Remark           string
	Reconciled       bool
	Allocations      []PaymentAllocation
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// NewPayment creates a new unreconciled payment
func NewPayment(paymentNumber string, paymentType PaymentType, counterpartyID uuid.UUID, counterpartyName string, amount decimal.Decimal, paymentDate time.Time) (*Payment, error) {
	if paymentNumber == "" {
		return nil, shared.NewDomainError("VALIDATION", "Payment number cannot be empty")
	}
	if !paymentType.IsValid() {
		return nil, shared.NewDomainError("VALIDATION", fmt.Sprintf("Unknown payment type: %s", paymentType))
	}
	if counterpartyID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION", "Counterparty ID cannot be empty")
	}
	if counterpartyName == "" {
		return nil, shared.NewDomainError("VALIDATION", "Counterparty name cannot be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("VALIDATION", "Payment amount must be positive")
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	payment := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PaymentNumber:     paymentNumber,
		Type:              paymentType,
		CounterpartyID:    counterpartyID,
		CounterpartyName:  counterpartyName,
		Amount:            amount,
		PaymentDate:       paymentDate,
		Allocations:       make([]PaymentAllocation, 0),
	}

	payment.AddDomainEvent(NewPaymentRecordedEvent(payment))

	return payment, nil
}

// RecordAllocations attaches the allocation result and marks the payment
// reconciled. The allocations must sum exactly to the payment amount.
func (p *Payment) RecordAllocations(allocations []Allocation) error {
	if p.Reconciled {
		return shared.NewDomainError("INVALID_STATE", "Payment is already reconciled")
	}

	total := decimal.Zero
	for _, alloc := range allocations {
		total = total.Add(alloc.Amount)
	}
	if !total.Equal(p.Amount) {
		return shared.NewDomainError("VALIDATION",
			fmt.Sprintf("Allocations sum to %s but the payment amount is %s", total.String(), p.Amount.String()))
	}

	now := time.Now()
	p.Allocations = make([]PaymentAllocation, 0, len(allocations))
	for _, alloc := range allocations {
		p.Allocations = append(p.Allocations, PaymentAllocation{
			ID:            uuid.New(),
			PaymentID:     p.ID,
			DocumentID:    alloc.DocumentID,
			InvoiceNumber: alloc.InvoiceNumber,
			Amount:        alloc.Amount,
			CreatedAt:     now,
		})
	}
	p.Reconciled = true
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentReconciledEvent(p))

	return nil
}

// UpdateMetadata edits the descriptive fields. Rejected once the payment is
// reconciled so the audit trail behind applied allocations stays intact.
func (p *Payment) UpdateMetadata(method, reference, remark string) error {
	if p.Reconciled {
		return shared.NewDomainError("INVALID_STATE", "Cannot edit a reconciled payment")
	}
	p.Method = method
	p.Reference = reference
	p.Remark = remark
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// AppliedAmount returns the portion allocated to documents
func (p *Payment) AppliedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, alloc := range p.Allocations {
		if !alloc.IsOnAccount() {
			total = total.Add(alloc.Amount)
		}
	}
	return total
}

// OnAccountAmount returns the unapplied remainder
func (p *Payment) OnAccountAmount() decimal.Decimal {
	total := decimal.Zero
	for _, alloc := range p.Allocations {
		if alloc.IsOnAccount() {
			total = total.Add(alloc.Amount)
		}
	}
	return total
}

// Aggregate and event type constants
const (
	AggregateTypePayment = "Payment"

	EventTypePaymentRecorded   = "PaymentRecorded"
	EventTypePaymentReconciled = "PaymentReconciled"
)

// PaymentRecordedEvent is raised when a payment is created
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID      uuid.UUID       `json:"payment_id"`
	PaymentNumber  string          `json:"payment_number"`
	Type           PaymentType     `json:"type"`
	CounterpartyID uuid.UUID       `json:"counterparty_id"`
	Amount         decimal.Decimal `json:"amount"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		PaymentNumber:   p.PaymentNumber,
		Type:            p.Type,
		CounterpartyID:  p.CounterpartyID,
		Amount:          p.Amount,
	}
}

// EventType returns the event type name
func (e *PaymentRecordedEvent) EventType() string {
	return EventTypePaymentRecorded
}

// PaymentReconciledEvent is raised when allocations are recorded
type PaymentReconciledEvent struct {
	shared.BaseDomainEvent
	PaymentID       uuid.UUID       `json:"payment_id"`
	PaymentNumber   string          `json:"payment_number"`
	AppliedAmount   decimal.Decimal `json:"applied_amount"`
	OnAccountAmount decimal.Decimal `json:"on_account_amount"`
}

// NewPaymentReconciledEvent creates a new PaymentReconciledEvent
func NewPaymentReconciledEvent(p *Payment) *PaymentReconciledEvent {
	return &PaymentReconciledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentReconciled, AggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		PaymentNumber:   p.PaymentNumber,
		AppliedAmount:   p.AppliedAmount(),
		OnAccountAmount: p.OnAccountAmount(),
	}
}

// EventType returns the event type name
func (e *PaymentReconciledEvent) EventType() string {
	return EventTypePaymentReconciled
}
