package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockbook/backend/internal/domain/shared"
)

// ReturnableItem describes how much of a source invoice line can still be
// returned, after subtracting quantities claimed by earlier non-cancelled
// returns against the same line.
type ReturnableItem struct {
	SourceLineID       uuid.UUID       `json:"source_line_id"`
	ProductID          uuid.UUID       `json:"product_id"`
	ProductName        string          `json:"product_name"`
	UnitName           string          `json:"unit_name"`
	ConversionFactor   decimal.Decimal `json:"conversion_factor"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	OriginalQuantity   decimal.Decimal `json:"original_quantity"`
	ReturnedQuantity   decimal.Decimal `json:"returned_quantity"`
	ReturnableQuantity decimal.Decimal `json:"returnable_quantity"`
}

// ReturnDraftLine is one requested line of a new return, expressed against a
// source invoice line. Quantity is in the source line's unit.
type ReturnDraftLine struct {
	SourceLineID uuid.UUID
	Quantity     decimal.Decimal
}

// ReturnPolicy decides which invoices are eligible as return sources and how
// much of each line remains returnable. Returned quantities are never stored
// on the source document; they are recomputed from the live set of returns so
// that cancelling a return releases its quota without compensation logic.
type ReturnPolicy struct{}

// NewReturnPolicy creates a ReturnPolicy
func NewReturnPolicy() *ReturnPolicy {
	return &ReturnPolicy{}
}

// CheckSourceEligible verifies that a document can serve as the source of a
// return of the given family.
func (p *ReturnPolicy) CheckSourceEligible(family Family, source *Document) error {
	if !family.IsReturn() {
		return shared.NewDomainError("VALIDATION", "Family is not a return family")
	}
	if source == nil {
		return shared.NewDomainError(shared.CodeSourceNotEligible, "Source document not found")
	}
	if source.Family != family.SourceFamily() {
		return shared.NewDomainError(shared.CodeSourceNotEligible,
			fmt.Sprintf("A %s can only be issued against a %s document", family, family.SourceFamily()))
	}
	if !source.IsCompleted() {
		return shared.NewDomainError(shared.CodeSourceNotEligible,
			fmt.Sprintf("Source document is in %s status, only completed documents can be returned against", source.Status))
	}
	return nil
}

// ReturnableItems computes the remaining returnable quantity per source line.
// existing must hold every non-cancelled return already issued against the
// source; pending returns count so two drafts cannot claim the same quantity.
func (p *ReturnPolicy) ReturnableItems(source *Document, existing []*Document) []ReturnableItem {
	returned := p.returnedBySourceLine(existing)

	items := make([]ReturnableItem, 0, len(source.Lines))
	for _, line := range source.Lines {
		already := returned[line.ID]
		remaining := line.Quantity.Sub(already)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		items = append(items, ReturnableItem{
			SourceLineID:       line.ID,
			ProductID:          line.ProductID,
			ProductName:        line.ProductName,
			UnitName:           line.UnitName,
			ConversionFactor:   line.ConversionFactor,
			UnitPrice:          line.UnitPrice,
			OriginalQuantity:   line.Quantity,
			ReturnedQuantity:   already,
			ReturnableQuantity: remaining,
		})
	}
	return items
}

// BuildReturn validates the requested lines against the source's remaining
// returnable quantities and assembles a pending return document.
func (p *ReturnPolicy) BuildReturn(family Family, invoiceNumber string, source *Document, existing []*Document, warehouseID uuid.UUID, invoiceDate time.Time, requested []ReturnDraftLine) (*Document, error) {
	if err := p.CheckSourceEligible(family, source); err != nil {
		return nil, err
	}
	if len(requested) == 0 {
		return nil, shared.NewDomainError("VALIDATION", "A return needs at least one line")
	}
	if warehouseID == uuid.Nil {
		warehouseID = source.WarehouseID
	}

	returned := p.returnedBySourceLine(existing)

	doc, err := NewDocument(family, invoiceNumber, source.CounterpartyID, source.CounterpartyName, warehouseID, invoiceDate)
	if err != nil {
		return nil, err
	}
	sourceID := source.ID
	doc.SourceDocumentID = &sourceID

	for _, req := range requested {
		sourceLine := source.GetLine(req.SourceLineID)
		if sourceLine == nil {
			return nil, shared.NewDomainError("NOT_FOUND", "Source line not found on the source document")
		}

		remaining := sourceLine.Quantity.Sub(returned[sourceLine.ID])
		if req.Quantity.GreaterThan(remaining) {
			return nil, shared.NewDomainError(shared.CodeExceedsReturnable,
				fmt.Sprintf("Requested %s of %s but only %s remains returnable",
					req.Quantity.String(), sourceLine.ProductName, remaining.String()))
		}

		if _, err := doc.AddReturnLine(sourceLine, req.Quantity); err != nil {
			return nil, err
		}
	}

	return doc, nil
}

// SourceReturnState derives the source's return indicator from the full set
// of non-cancelled completed returns against it, including the one that just
// completed.
func (p *ReturnPolicy) SourceReturnState(source *Document, completedReturns []*Document) ReturnState {
	returned := p.returnedBySourceLine(completedReturns)
	if len(returned) == 0 {
		return ReturnStateNone
	}

	full := true
	for _, line := range source.Lines {
		if returned[line.ID].LessThan(line.Quantity) {
			full = false
			break
		}
	}
	if full {
		return ReturnStateReturned
	}
	return ReturnStatePartial
}

// returnedBySourceLine aggregates returned quantities keyed by source line,
// skipping cancelled returns.
func (p *ReturnPolicy) returnedBySourceLine(returns []*Document) map[uuid.UUID]decimal.Decimal {
	totals := make(map[uuid.UUID]decimal.Decimal)
	for _, ret := range returns {
		if ret == nil || ret.IsCancelled() {
			continue
		}
		for _, line := range ret.Lines {
			if line.SourceLineID == nil {
				continue
			}
			totals[*line.SourceLineID] = totals[*line.SourceLineID].Add(line.Quantity)
		}
	}
	return totals
}
