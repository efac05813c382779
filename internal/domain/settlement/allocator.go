package settlement

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockbook/backend/internal/domain/billing"
)

// Allocation is one slice of an allocation result. A nil DocumentID marks
// the unapplied on-account remainder.
type Allocation struct {
	DocumentID    *uuid.UUID
	InvoiceNumber string
	Amount        decimal.Decimal
}

// IsOnAccount reports whether the slice is the unapplied remainder
func (a Allocation) IsOnAccount() bool {
	return a.DocumentID == nil
}

// AllocateFIFO splits amount across the documents oldest first: by invoice
// date ascending, ties broken by ID. Each document absorbs at most its
// remaining due; whatever is left over becomes a single on-account slice.
// The returned slices always sum exactly to amount.
func AllocateFIFO(amount decimal.Decimal, docs []*billing.Document) []Allocation {
	sorted := sortFIFO(docs)

	allocations := make([]Allocation, 0, len(sorted)+1)
	left := amount

	for _, doc := range sorted {
		if left.LessThanOrEqual(decimal.Zero) {
			break
		}
		due := doc.RemainingDue()
		if due.LessThanOrEqual(decimal.Zero) {
			continue
		}

		slice := decimal.Min(left, due)
		docID := doc.ID
		allocations = append(allocations, Allocation{
			DocumentID:    &docID,
			InvoiceNumber: doc.InvoiceNumber,
			Amount:        slice,
		})
		left = left.Sub(slice)
	}

	if left.GreaterThan(decimal.Zero) {
		allocations = append(allocations, Allocation{Amount: left})
	}

	return allocations
}

// AllocateRefundFIFO draws the refund down against the documents' settled
// amounts oldest first. Refunds have no on-account bucket: the second return
// value is the portion that could not be matched, which the caller rejects.
func AllocateRefundFIFO(amount decimal.Decimal, docs []*billing.Document) ([]Allocation, decimal.Decimal) {
	sorted := sortFIFO(docs)

	allocations := make([]Allocation, 0, len(sorted))
	left := amount

	for _, doc := range sorted {
		if left.LessThanOrEqual(decimal.Zero) {
			break
		}
		settled := doc.AmountSettled
		if settled.LessThanOrEqual(decimal.Zero) {
			continue
		}

		slice := decimal.Min(left, settled)
		docID := doc.ID
		allocations = append(allocations, Allocation{
			DocumentID:    &docID,
			InvoiceNumber: doc.InvoiceNumber,
			Amount:        slice,
		})
		left = left.Sub(slice)
	}

	return allocations, left
}

// sortFIFO returns the documents ordered by invoice date ascending, ties
// broken by ID so the order is deterministic. The input is not mutated.
func sortFIFO(docs []*billing.Document) []*billing.Document {
	sorted := make([]*billing.Document, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].InvoiceDate.Equal(sorted[j].InvoiceDate) {
			return sorted[i].InvoiceDate.Before(sorted[j].InvoiceDate)
		}
		return bytes.Compare(sorted[i].ID[:], sorted[j].ID[:]) < 0
	})
	return sorted
}
