package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbook/backend/internal/domain/settlement"
)

// ApplyPaymentRequest records a payment or refund and reconciles it
type ApplyPaymentRequest struct {
	Type             settlement.PaymentType `json:"type" binding:"required"`
	CounterpartyID   uuid.UUID              `json:"counterparty_id" binding:"required"`
	CounterpartyName string                 `json:"counterparty_name" binding:"required"`
	Amount           decimal.Decimal        `json:"amount" binding:"required"`
	PaymentDate      *time.Time             `json:"payment_date"`
	Method           string                 `json:"method"`
	Reference        string                 `json:"reference"`
	Remark           string                 `json:"remark"`
}

// UpdatePaymentRequest edits an unreconciled payment's metadata
type UpdatePaymentRequest struct {
	Method    string `json:"method"`
	Reference string `json:"reference"`
	Remark    string `json:"remark"`
}

// AppliedInvoice is one slice of a payment applied to a document
type AppliedInvoice struct {
	DocumentID    *uuid.UUID      `json:"document_id,omitempty"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	OnAccount     bool            `json:"on_account"`
}

// PaymentResponse is the API shape of a payment
type PaymentResponse struct {
	ID               uuid.UUID              `json:"id"`
	PaymentNumber    string                 `json:"payment_number"`
	Type             settlement.PaymentType `json:"type"`
	CounterpartyID   uuid.UUID              `json:"counterparty_id"`
	CounterpartyName string                 `json:"counterparty_name"`
	Amount           decimal.Decimal        `json:"amount"`
	PaymentDate      time.Time              `json:"payment_date"`
	Method           string                 `json:"method,omitempty"`
	Reference        string                 `json:"reference,omitempty"`
	Remark           string                 `json:"remark,omitempty"`
	Reconciled       bool                   `json:"reconciled"`
	AppliedAmount    decimal.Decimal        `json:"applied_amount"`
	OnAccountAmount  decimal.Decimal        `json:"on_account_amount"`
	AppliedInvoices  []AppliedInvoice       `json:"applied_to_invoices"`
	CreatedAt        time.Time              `json:"created_at"`
}

// ToPaymentResponse maps a payment aggregate to its API shape
func ToPaymentResponse(p *settlement.Payment) PaymentResponse {
	applied := make([]AppliedInvoice, 0, len(p.Allocations))
	for _, alloc := range p.Allocations {
		applied = append(applied, AppliedInvoice{
			DocumentID:    alloc.DocumentID,
			InvoiceNumber: alloc.InvoiceNumber,
			Amount:        alloc.Amount,
			OnAccount:     alloc.IsOnAccount(),
		})
	}

	return PaymentResponse{
		ID:               p.ID,
		PaymentNumber:    p.PaymentNumber,
		Type:             p.Type,
		CounterpartyID:   p.CounterpartyID,
		CounterpartyName: p.CounterpartyName,
		Amount:           p.Amount,
		PaymentDate:      p.PaymentDate,
		Method:           p.Method,
		Reference:        p.Reference,
		Remark:           p.Remark,
		Reconciled:       p.Reconciled,
		AppliedAmount:    p.AppliedAmount(),
		OnAccountAmount:  p.OnAccountAmount(),
		AppliedInvoices:  applied,
		CreatedAt:        p.CreatedAt,
	}
}
