package settlement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockbook/backend/internal/domain/billing"
	"github.com/stockbook/backend/internal/domain/shared/valueobject"
)

func outstandingSale(t *testing.T, invoiceDate time.Time, total float64) *billing.Document {
	t.Helper()
	doc, err := billing.NewDocument(billing.FamilySale, "SAL-"+uuid.NewString()[:8], uuid.New(), "Northwind Retail", uuid.New(), invoiceDate)
	require.NoError(t, err)
	_, err = doc.AddLine(uuid.New(), "Widget", nil, decimal.NewFromInt(1), valueobject.NewMoneyUSDFromFloat(total))
	require.NoError(t, err)
	require.NoError(t, doc.Complete())
	return doc
}

func allocationSum(allocations []Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Amount)
	}
	return total
}

func TestAllocateFIFO(t *testing.T) {
	day := func(n int) time.Time {
		return time.Date(2026, 1, n, 0, 0, 0, 0, time.UTC)
	}

	t.Run("oldest invoice absorbs first", func(t *testing.T) {
		older := outstandingSale(t, day(1), 100)
		newer := outstandingSale(t, day(5), 120)

		// deliberately out of order
		allocations := AllocateFIFO(decimal.NewFromInt(120), []*billing.Document{newer, older})

		require.Len(t, allocations, 2)
		assert.Equal(t, older.ID, *allocations[0].DocumentID)
		assert.True(t, allocations[0].Amount.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, newer.ID, *allocations[1].DocumentID)
		assert.True(t, allocations[1].Amount.Equal(decimal.NewFromInt(20)))
	})

	t.Run("slices always sum to the payment amount", func(t *testing.T) {
		docs := []*billing.Document{
			outstandingSale(t, day(1), 33.33),
			outstandingSale(t, day(2), 66.67),
			outstandingSale(t, day(3), 10),
		}
		amount := decimal.NewFromFloat(75.5)

		allocations := AllocateFIFO(amount, docs)
		assert.True(t, allocationSum(allocations).Equal(amount))
	})

	t.Run("surplus lands on account", func(t *testing.T) {
		doc := outstandingSale(t, day(1), 100)

		allocations := AllocateFIFO(decimal.NewFromInt(150), []*billing.Document{doc})

		require.Len(t, allocations, 2)
		assert.True(t, allocations[1].IsOnAccount())
		assert.True(t, allocations[1].Amount.Equal(decimal.NewFromInt(50)))
		assert.True(t, allocationSum(allocations).Equal(decimal.NewFromInt(150)))
	})

	t.Run("no outstanding documents yields one on-account slice", func(t *testing.T) {
		allocations := AllocateFIFO(decimal.NewFromInt(40), nil)

		require.Len(t, allocations, 1)
		assert.True(t, allocations[0].IsOnAccount())
		assert.True(t, allocations[0].Amount.Equal(decimal.NewFromInt(40)))
	})

	t.Run("partially settled document only absorbs its remaining due", func(t *testing.T) {
		doc := outstandingSale(t, day(1), 100)
		require.NoError(t, doc.ApplySettlement(decimal.NewFromInt(70)))

		allocations := AllocateFIFO(decimal.NewFromInt(50), []*billing.Document{doc})

		require.Len(t, allocations, 2)
		assert.True(t, allocations[0].Amount.Equal(decimal.NewFromInt(30)))
		assert.True(t, allocations[1].IsOnAccount())
		assert.True(t, allocations[1].Amount.Equal(decimal.NewFromInt(20)))
	})

	t.Run("same-day invoices break ties by ID deterministically", func(t *testing.T) {
		a := outstandingSale(t, day(1), 50)
		b := outstandingSale(t, day(1), 50)

		first := AllocateFIFO(decimal.NewFromInt(50), []*billing.Document{a, b})
		second := AllocateFIFO(decimal.NewFromInt(50), []*billing.Document{b, a})

		require.Len(t, first, 1)
		require.Len(t, second, 1)
		assert.Equal(t, *first[0].DocumentID, *second[0].DocumentID)
	})

	t.Run("input slice order is preserved", func(t *testing.T) {
		older := outstandingSale(t, day(1), 10)
		newer := outstandingSale(t, day(2), 10)
		docs := []*billing.Document{newer, older}

		AllocateFIFO(decimal.NewFromInt(20), docs)

		assert.Equal(t, newer.ID, docs[0].ID)
		assert.Equal(t, older.ID, docs[1].ID)
	})
}

func TestAllocateRefundFIFO(t *testing.T) {
	day := func(n int) time.Time {
		return time.Date(2026, 2, n, 0, 0, 0, 0, time.UTC)
	}

	settledSale := func(t *testing.T, invoiceDate time.Time, total, settled float64) *billing.Document {
		doc := outstandingSale(t, invoiceDate, total)
		require.NoError(t, doc.ApplySettlement(decimal.NewFromFloat(settled)))
		return doc
	}

	t.Run("draws down oldest settled amounts first", func(t *testing.T) {
		older := settledSale(t, day(1), 100, 100)
		newer := settledSale(t, day(3), 80, 40)

		allocations, left := AllocateRefundFIFO(decimal.NewFromInt(120), []*billing.Document{newer, older})

		assert.True(t, left.IsZero())
		require.Len(t, allocations, 2)
		assert.Equal(t, older.ID, *allocations[0].DocumentID)
		assert.True(t, allocations[0].Amount.Equal(decimal.NewFromInt(100)))
		assert.True(t, allocations[1].Amount.Equal(decimal.NewFromInt(20)))
	})

	t.Run("reports the unmatched remainder", func(t *testing.T) {
		doc := settledSale(t, day(1), 100, 30)

		allocations, left := AllocateRefundFIFO(decimal.NewFromInt(50), []*billing.Document{doc})

		require.Len(t, allocations, 1)
		assert.True(t, allocations[0].Amount.Equal(decimal.NewFromInt(30)))
		assert.True(t, left.Equal(decimal.NewFromInt(20)))
	})

	t.Run("unsettled documents are skipped", func(t *testing.T) {
		unsettled := outstandingSale(t, day(1), 100)
		settled := settledSale(t, day(2), 50, 50)

		allocations, left := AllocateRefundFIFO(decimal.NewFromInt(50), []*billing.Document{unsettled, settled})

		assert.True(t, left.IsZero())
		require.Len(t, allocations, 1)
		assert.Equal(t, settled.ID, *allocations[0].DocumentID)
	})
}
