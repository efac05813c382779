package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbook/backend/internal/domain/billing"
)

// CreateDocumentLineRequest is one line of a new invoice
type CreateDocumentLineRequest struct {
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	ProductName string          `json:"product_name" binding:"required"`
	UnitID      *uuid.UUID      `json:"unit_id"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
}

// CreateDocumentRequest creates a new purchase or sale invoice
type CreateDocumentRequest struct {
	CounterpartyID   uuid.UUID                   `json:"counterparty_id" binding:"required"`
	CounterpartyName string                      `json:"counterparty_name" binding:"required"`
	WarehouseID      uuid.UUID                   `json:"warehouse_id" binding:"required"`
	InvoiceDate      *time.Time                  `json:"invoice_date"`
	Remark           string                      `json:"remark"`
	Lines            []CreateDocumentLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// CreateReturnLineRequest is one line of a new return, against a source line
type CreateReturnLineRequest struct {
	SourceLineID uuid.UUID       `json:"source_line_id" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity" binding:"required"`
}

// CreateReturnRequest creates a new return against a completed invoice
type CreateReturnRequest struct {
	SourceDocumentID uuid.UUID                 `json:"source_document_id" binding:"required"`
	WarehouseID      *uuid.UUID                `json:"warehouse_id"`
	InvoiceDate      *time.Time                `json:"invoice_date"`
	Remark           string                    `json:"remark"`
	Lines            []CreateReturnLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// UpdateDocumentRequest edits a pending document's header fields
type UpdateDocumentRequest struct {
	InvoiceDate *time.Time `json:"invoice_date"`
	Remark      *string    `json:"remark"`
}

// AddLineRequest adds a line to a pending invoice
type AddLineRequest = CreateDocumentLineRequest

// UpdateLineRequest changes an existing line's quantity
type UpdateLineRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

// CancelDocumentRequest cancels a pending document
type CancelDocumentRequest struct {
	Reason string `json:"reason"`
}

// DocumentLineResponse is the API shape of a document line
type DocumentLineResponse struct {
	ID               uuid.UUID       `json:"id"`
	ProductID        uuid.UUID       `json:"product_id"`
	ProductName      string          `json:"product_name"`
	UnitID           *uuid.UUID      `json:"unit_id,omitempty"`
	UnitName         string          `json:"unit_name,omitempty"`
	ConversionFactor decimal.Decimal `json:"conversion_factor"`
	Quantity         decimal.Decimal `json:"quantity"`
	BaseQuantity     decimal.Decimal `json:"base_quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	LineTotal        decimal.Decimal `json:"line_total"`
	SourceLineID     *uuid.UUID      `json:"source_line_id,omitempty"`
}

// DocumentResponse is the API shape of a document
type DocumentResponse struct {
	ID               uuid.UUID              `json:"id"`
	Family           billing.Family         `json:"family"`
	InvoiceNumber    string                 `json:"invoice_number"`
	CounterpartyID   uuid.UUID              `json:"counterparty_id"`
	CounterpartyName string                 `json:"counterparty_name"`
	WarehouseID      uuid.UUID              `json:"warehouse_id"`
	InvoiceDate      time.Time              `json:"invoice_date"`
	Status           billing.DocumentStatus `json:"status"`
	PaymentStatus    billing.PaymentStatus  `json:"payment_status"`
	ReturnState      billing.ReturnState    `json:"return_state"`
	GrandTotal       decimal.Decimal        `json:"grand_total"`
	AmountSettled    decimal.Decimal        `json:"amount_settled"`
	AmountCredited   decimal.Decimal        `json:"amount_credited"`
	NetTotal         decimal.Decimal        `json:"net_total"`
	RemainingDue     decimal.Decimal        `json:"remaining_due"`
	SourceDocumentID *uuid.UUID             `json:"source_document_id,omitempty"`
	Remark           string                 `json:"remark,omitempty"`
	CancelReason     string                 `json:"cancel_reason,omitempty"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty"`
	CancelledAt      *time.Time             `json:"cancelled_at,omitempty"`
	Version          int                    `json:"version"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	Lines            []DocumentLineResponse `json:"lines"`
}

// ToDocumentResponse maps a document aggregate to its API shape
func ToDocumentResponse(doc *billing.Document) DocumentResponse {
	lines := make([]DocumentLineResponse, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		lines = append(lines, DocumentLineResponse{
			ID:               line.ID,
			ProductID:        line.ProductID,
			ProductName:      line.ProductName,
			UnitID:           line.UnitID,
			UnitName:         line.UnitName,
			ConversionFactor: line.ConversionFactor,
			Quantity:         line.Quantity,
			BaseQuantity:     line.BaseQuantity,
			UnitPrice:        line.UnitPrice,
			LineTotal:        line.LineTotal,
			SourceLineID:     line.SourceLineID,
		})
	}

	return DocumentResponse{
		ID:               doc.ID,
		Family:           doc.Family,
		InvoiceNumber:    doc.InvoiceNumber,
		CounterpartyID:   doc.CounterpartyID,
		CounterpartyName: doc.CounterpartyName,
		WarehouseID:      doc.WarehouseID,
		InvoiceDate:      doc.InvoiceDate,
		Status:           doc.Status,
		PaymentStatus:    doc.PaymentStatus(),
		ReturnState:      doc.ReturnState,
		GrandTotal:       doc.GrandTotal,
		AmountSettled:    doc.AmountSettled,
		AmountCredited:   doc.AmountCredited,
		NetTotal:         doc.NetTotal(),
		RemainingDue:     doc.RemainingDue(),
		SourceDocumentID: doc.SourceDocumentID,
		Remark:           doc.Remark,
		CancelReason:     doc.CancelReason,
		CompletedAt:      doc.CompletedAt,
		CancelledAt:      doc.CancelledAt,
		Version:          doc.GetVersion(),
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
		Lines:            lines,
	}
}

// ReturnableItemResponse is the API shape of a returnable line
type ReturnableItemResponse struct {
	SourceLineID       uuid.UUID       `json:"source_line_id"`
	ProductID          uuid.UUID       `json:"product_id"`
	ProductName        string          `json:"product_name"`
	UnitName           string          `json:"unit_name,omitempty"`
	ConversionFactor   decimal.Decimal `json:"conversion_factor"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	OriginalQuantity   decimal.Decimal `json:"original_quantity"`
	ReturnedQuantity   decimal.Decimal `json:"returned_quantity"`
	ReturnableQuantity decimal.Decimal `json:"returnable_quantity"`
}

// ToReturnableItemResponses maps policy output to the API shape
func ToReturnableItemResponses(items []billing.ReturnableItem) []ReturnableItemResponse {
	out := make([]ReturnableItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, ReturnableItemResponse{
			SourceLineID:       item.SourceLineID,
			ProductID:          item.ProductID,
			ProductName:        item.ProductName,
			UnitName:           item.UnitName,
			ConversionFactor:   item.ConversionFactor,
			UnitPrice:          item.UnitPrice,
			OriginalQuantity:   item.OriginalQuantity,
			ReturnedQuantity:   item.ReturnedQuantity,
			ReturnableQuantity: item.ReturnableQuantity,
		})
	}
	return out
}
