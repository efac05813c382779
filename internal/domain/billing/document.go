package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockbook/backend/internal/domain/shared"
	"github.com/stockbook/backend/internal/domain/shared/valueobject"
	"github.com/stockbook/backend/internal/domain/uom"
)

// DocumentStatus represents the lifecycle status of a document
type DocumentStatus string

const (
	DocumentStatusPending   DocumentStatus = "PENDING"
	DocumentStatusCompleted DocumentStatus = "COMPLETED"
	DocumentStatusDelivered DocumentStatus = "DELIVERED"
	DocumentStatusCancelled DocumentStatus = "CANCELLED"
)

// IsValid checks if the status is a valid DocumentStatus
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusPending, DocumentStatusCompleted, DocumentStatusDelivered, DocumentStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of DocumentStatus
func (s DocumentStatus) String() string {
	return string(s)
}

// PaymentStatus is derived from the settled amount against the document total
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPartial  PaymentStatus = "PARTIAL"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusOverpaid PaymentStatus = "OVERPAID"
)

// ReturnState is the source document's derived return indicator
type ReturnState string

const (
	ReturnStateNone     ReturnState = "NONE"
	ReturnStatePartial  ReturnState = "PARTIAL_RETURN"
	ReturnStateReturned ReturnState = "RETURNED"
)

// DocumentLine represents a line item in a document
type DocumentLine struct {
	ID               uuid.UUID
	DocumentID       uuid.UUID
	ProductID        uuid.UUID
	ProductName      string
	UnitID           *uuid.UUID
	UnitName         string
	ConversionFactor decimal.Decimal
	Quantity         decimal.Decimal // in the line's unit
	BaseQuantity     decimal.Decimal // Quantity converted to base units, 4dp
	UnitPrice        decimal.Decimal
	LineTotal        decimal.Decimal // Quantity * UnitPrice
	SourceLineID     *uuid.UUID      // for return lines: the invoice line returned against
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName specifies the table name for GORM
func (DocumentLine) TableName() string {
	return "document_lines"
}

func newDocumentLine(documentID, productID uuid.UUID, productName string, unit *uom.Unit, quantity decimal.Decimal, unitPrice valueobject.Money) (*DocumentLine, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION", "Product ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewDomainError("VALIDATION", "Product name cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("VALIDATION", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION", "Unit price cannot be negative")
	}

	now := time.Now()
	line := &DocumentLine{
		ID:               uuid.New(),
		DocumentID:       documentID,
		ProductID:        productID,
		ProductName:      productName,
		ConversionFactor: decimal.NewFromInt(1),
		Quantity:         quantity,
		BaseQuantity:     uom.ToBase(quantity, unit),
		UnitPrice:        unitPrice.Amount(),
		LineTotal:        quantity.Mul(unitPrice.Amount()),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if unit != nil {
		unitID := unit.ID
		line.UnitID = &unitID
		line.UnitName = unit.Name
		line.ConversionFactor = unit.ConversionFactor
	}
	return line, nil
}

// UpdateQuantity updates the line quantity and recalculates the derived amounts
func (l *DocumentLine) UpdateQuantity(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION", "Quantity must be positive")
	}

	l.Quantity = quantity
	l.BaseQuantity = quantity.Mul(l.ConversionFactor).Round(4)
	l.LineTotal = quantity.Mul(l.UnitPrice)
	l.UpdatedAt = time.Now()

	return nil
}

// UpdateUnitPrice updates the unit price and recalculates the line total
func (l *DocumentLine) UpdateUnitPrice(unitPrice valueobject.Money) error {
	if unitPrice.IsNegative() {
		return shared.NewDomainError("VALIDATION", "Unit price cannot be negative")
	}

	l.UnitPrice = unitPrice.Amount()
	l.LineTotal = l.Quantity.Mul(l.UnitPrice)
	l.UpdatedAt = time.Now()

	return nil
}

// Document represents a purchase/sale invoice or a return, tagged by family.
// It manages the lifecycle from a freely editable pending draft to a terminal
// status, and carries the settlement bookkeeping the allocator writes.
type Document struct {
	shared.BaseAggregateRoot
	Family           Family
	InvoiceNumber    string
	CounterpartyID   uuid.UUID
	CounterpartyName string
	WarehouseID      uuid.UUID
	InvoiceDate      time.Time
	Lines            []DocumentLine
	GrandTotal       decimal.Decimal // sum of line totals
	AmountSettled    decimal.Decimal // settled by payments (net of refunds)
	AmountCredited   decimal.Decimal // credited by completed returns
	ReturnState      ReturnState
	Status           DocumentStatus
	SourceDocumentID *uuid.UUID // for returns: the invoice returned against
	Remark           string
	CompletedAt      *time.Time
	CancelledAt      *time.Time
	CancelReason     string
}

// TableName specifies the table name for GORM
func (Document) TableName() string {
	return "documents"
}

// NewDocument creates a new pending document of the given family
func NewDocument(family Family, invoiceNumber string, counterpartyID uuid.UUID, counterpartyName string, warehouseID uuid.UUID, invoiceDate time.Time) (*Document, error) {
	if !family.IsValid() {
		return nil, shared.NewDomainError("VALIDATION", "Unknown document family")
	}
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("VALIDATION", "Invoice number cannot be empty")
	}
	if len(invoiceNumber) > 50 {
		return nil, shared.NewDomainError("VALIDATION", "Invoice number cannot exceed 50 characters")
	}
	if counterpartyID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION", "Counterparty ID cannot be empty")
	}
	if counterpartyName == "" {
		return nil, shared.NewDomainError("VALIDATION", "Counterparty name cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION", "Warehouse ID cannot be empty")
	}
	if invoiceDate.IsZero() {
		invoiceDate = time.Now()
	}

	doc := &Document{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Family:            family,
		InvoiceNumber:     invoiceNumber,
		CounterpartyID:    counterpartyID,
		CounterpartyName:  counterpartyName,
		WarehouseID:       warehouseID,
		InvoiceDate:       invoiceDate,
		Lines:             make([]DocumentLine, 0),
		GrandTotal:        decimal.Zero,
		AmountSettled:     decimal.Zero,
		AmountCredited:    decimal.Zero,
		ReturnState:       ReturnStateNone,
		Status:            DocumentStatusPending,
	}

	doc.AddDomainEvent(NewDocumentCreatedEvent(doc))

	return doc, nil
}

// AddLine adds a new line to the document.
// Only allowed while the document is pending.
func (d *Document) AddLine(productID uuid.UUID, productName string, unit *uom.Unit, quantity decimal.Decimal, unitPrice valueobject.Money) (*DocumentLine, error) {
	if !d.CanModify() {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot add lines to a document in %s status", d.Status))
	}

	line, err := newDocumentLine(d.ID, productID, productName, unit, quantity, unitPrice)
	if err != nil {
		return nil, err
	}

	d.Lines = append(d.Lines, *line)
	d.recalculateTotals()
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	return line, nil
}

// AddReturnLine adds a line to a return document, referencing the source
// invoice line it returns against. The unit price is carried over from the
// source line so the credit mirrors what was originally charged.
func (d *Document) AddReturnLine(sourceLine *DocumentLine, quantity decimal.Decimal) (*DocumentLine, error) {
	if !d.Family.IsReturn() {
		return nil, shared.NewDomainError("INVALID_STATE", "Only return documents carry return lines")
	}
	if !d.CanModify() {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot add lines to a document in %s status", d.Status))
	}
	if sourceLine == nil {
		return nil, shared.NewDomainError("VALIDATION", "Source line cannot be nil")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("VALIDATION", "Return quantity must be positive")
	}

	for _, line := range d.Lines {
		if line.SourceLineID != nil && *line.SourceLineID == sourceLine.ID {
			return nil, shared.NewDomainError("VALIDATION", "Source line already referenced by this return, update quantity instead")
		}
	}

	now := time.Now()
	sourceLineID := sourceLine.ID
	line := DocumentLine{
		ID:               uuid.New(),
		DocumentID:       d.ID,
		ProductID:        sourceLine.ProductID,
		ProductName:      sourceLine.ProductName,
		UnitID:           sourceLine.UnitID,
		UnitName:         sourceLine.UnitName,
		ConversionFactor: sourceLine.ConversionFactor,
		Quantity:         quantity,
		BaseQuantity:     quantity.Mul(sourceLine.ConversionFactor).Round(4),
		UnitPrice:        sourceLine.UnitPrice,
		LineTotal:        quantity.Mul(sourceLine.UnitPrice),
		SourceLineID:     &sourceLineID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	d.Lines = append(d.Lines, line)
	d.recalculateTotals()
	d.UpdatedAt = now
	d.IncrementVersion()

	return &d.Lines[len(d.Lines)-1], nil
}

// UpdateLineQuantity updates the quantity of an existing line.
// Only allowed while the document is pending.
func (d *Document) UpdateLineQuantity(lineID uuid.UUID, quantity decimal.Decimal) error {
	if !d.CanModify() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot update lines of a document in %s status", d.Status))
	}

	for idx := range d.Lines {
		if d.Lines[idx].ID == lineID {
			if err := d.Lines[idx].UpdateQuantity(quantity); err != nil {
				return err
			}
			d.recalculateTotals()
			d.UpdatedAt = time.Now()
			d.IncrementVersion()
			return nil
		}
	}

	return shared.NewDomainError("NOT_FOUND", "Document line not found")
}

// RemoveLine removes a line from the document.
// Only allowed while the document is pending.
func (d *Document) RemoveLine(lineID uuid.UUID) error {
	if !d.CanModify() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot remove lines from a document in %s status", d.Status))
	}

	for idx, line := range d.Lines {
		if line.ID == lineID {
			d.Lines = append(d.Lines[:idx], d.Lines[idx+1:]...)
			d.recalculateTotals()
			d.UpdatedAt = time.Now()
			d.IncrementVersion()
			return nil
		}
	}

	return shared.NewDomainError("NOT_FOUND", "Document line not found")
}

// SetRemark sets the document remark.
// Only allowed while the document is pending.
func (d *Document) SetRemark(remark string) error {
	if !d.CanModify() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot edit a document in %s status", d.Status))
	}
	d.Remark = remark
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
	return nil
}

// SetInvoiceDate updates the invoice date.
// Only allowed while the document is pending.
func (d *Document) SetInvoiceDate(date time.Time) error {
	if !d.CanModify() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot edit a document in %s status", d.Status))
	}
	if date.IsZero() {
		return shared.NewDomainError("VALIDATION", "Invoice date cannot be empty")
	}
	d.InvoiceDate = date
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
	return nil
}

// Complete transitions the document from pending to the family's final
// status. At most one terminal transition ever succeeds: a second attempt
// fails with INVALID_STATE and leaves the document unchanged.
func (d *Document) Complete() error {
	if d.Status != DocumentStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete a document in %s status", d.Status))
	}
	if len(d.Lines) == 0 {
		return shared.NewDomainError("VALIDATION", "Cannot complete a document without lines")
	}

	now := time.Now()
	d.Status = d.Family.FinalStatus()
	d.CompletedAt = &now
	d.UpdatedAt = now
	d.IncrementVersion()

	d.AddDomainEvent(NewDocumentCompletedEvent(d))

	return nil
}

// Cancel transitions the document from pending to cancelled. Cancellation is
// terminal and performs no inventory or settlement effect.
func (d *Document) Cancel(reason string) error {
	if d.Status != DocumentStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel a document in %s status", d.Status))
	}

	now := time.Now()
	d.Status = DocumentStatusCancelled
	d.CancelledAt = &now
	d.CancelReason = reason
	d.UpdatedAt = now
	d.IncrementVersion()

	d.AddDomainEvent(NewDocumentCancelledEvent(d))

	return nil
}

// ApplySettlement records a payment allocation against the document.
// Settlement bookkeeping is the one mutation a completed document still
// accepts; a cancelled document accepts none.
func (d *Document) ApplySettlement(amount decimal.Decimal) error {
	if d.Status == DocumentStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot settle a cancelled document")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION", "Settlement amount must be positive")
	}

	d.AmountSettled = d.AmountSettled.Add(amount)
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	d.AddDomainEvent(NewDocumentSettledEvent(d, amount))

	return nil
}

// ReverseSettlement removes a previously applied allocation, either because
// the payment was deleted or because a refund flows back to the counterparty.
func (d *Document) ReverseSettlement(amount decimal.Decimal) error {
	if d.Status == DocumentStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot settle a cancelled document")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION", "Settlement amount must be positive")
	}
	if amount.GreaterThan(d.AmountSettled) {
		return shared.NewDomainError("VALIDATION", "Reversal exceeds the settled amount")
	}

	d.AmountSettled = d.AmountSettled.Sub(amount)
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	return nil
}

// ApplyReturnCredit reduces the document's settlement exposure after a return
// against it completed, and records the derived return indicator.
func (d *Document) ApplyReturnCredit(amount decimal.Decimal, state ReturnState) error {
	if d.Status != d.Family.FinalStatus() {
		return shared.NewDomainError("INVALID_STATE", "Return credits only apply to completed documents")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION", "Return credit must be positive")
	}
	if state != ReturnStatePartial && state != ReturnStateReturned {
		return shared.NewDomainError("VALIDATION", "Return state must be partial or returned")
	}

	d.AmountCredited = d.AmountCredited.Add(amount)
	d.ReturnState = state
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	return nil
}

// recalculateTotals recalculates the grand total from the lines
func (d *Document) recalculateTotals() {
	total := decimal.Zero
	for _, line := range d.Lines {
		total = total.Add(line.LineTotal)
	}
	d.GrandTotal = total
}

// NetTotal returns the grand total net of completed return credits
func (d *Document) NetTotal() decimal.Decimal {
	return d.GrandTotal.Sub(d.AmountCredited)
}

// RemainingDue returns how much of the document is still outstanding
func (d *Document) RemainingDue() decimal.Decimal {
	return d.NetTotal().Sub(d.AmountSettled)
}

// PaymentStatus derives the payment status from the settled amount.
// Over-settlement is not an error and reports OVERPAID.
func (d *Document) PaymentStatus() PaymentStatus {
	net := d.NetTotal()
	switch {
	case d.AmountSettled.IsZero():
		return PaymentStatusUnpaid
	case d.AmountSettled.Equal(net):
		return PaymentStatusPaid
	case d.AmountSettled.GreaterThan(net):
		return PaymentStatusOverpaid
	default:
		return PaymentStatusPartial
	}
}

// IsPending returns true while the document is a freely editable draft
func (d *Document) IsPending() bool {
	return d.Status == DocumentStatusPending
}

// IsCompleted returns true once the document reached its family's final status
func (d *Document) IsCompleted() bool {
	return d.Status == d.Family.FinalStatus()
}

// IsCancelled returns true if the document was cancelled
func (d *Document) IsCancelled() bool {
	return d.Status == DocumentStatusCancelled
}

// IsTerminal returns true if no further lifecycle transition is possible
func (d *Document) IsTerminal() bool {
	return d.IsCompleted() || d.IsCancelled()
}

// CanModify returns true if the document contents can still be edited
func (d *Document) CanModify() bool {
	return d.IsPending()
}

// LineCount returns the number of lines
func (d *Document) LineCount() int {
	return len(d.Lines)
}

// TotalBaseQuantity returns the sum of all line base quantities
func (d *Document) TotalBaseQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, line := range d.Lines {
		total = total.Add(line.BaseQuantity)
	}
	return total
}

// GetLine returns a line by its ID
func (d *Document) GetLine(lineID uuid.UUID) *DocumentLine {
	for idx := range d.Lines {
		if d.Lines[idx].ID == lineID {
			return &d.Lines[idx]
		}
	}
	return nil
}

// GetLineBySource returns a return line by the source line it references
func (d *Document) GetLineBySource(sourceLineID uuid.UUID) *DocumentLine {
	for idx := range d.Lines {
		if d.Lines[idx].SourceLineID != nil && *d.Lines[idx].SourceLineID == sourceLineID {
			return &d.Lines[idx]
		}
	}
	return nil
}
