package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stockbook/backend/internal/domain/billing"
	"github.com/stockbook/backend/internal/domain/shared"
	"github.com/stockbook/backend/internal/domain/shared/valueobject"
	"github.com/stockbook/backend/internal/domain/uom"
)

// MockDocumentRepository is a mock implementation of DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByInvoiceNumber(ctx context.Context, family billing.Family, invoiceNumber string) (*billing.Document, error) {
	args := m.Called(ctx, family, invoiceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindAll(ctx context.Context, family billing.Family, filter shared.Filter) ([]*billing.Document, error) {
	args := m.Called(ctx, family, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Document), args.Error(1)
}

func (m *MockDocumentRepository) Count(ctx context.Context, family billing.Family, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, family, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentRepository) FindOutstanding(ctx context.Context, family billing.Family, counterpartyID uuid.UUID) ([]*billing.Document, error) {
	args := m.Called(ctx, family, counterpartyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindSettled(ctx context.Context, family billing.Family, counterpartyID uuid.UUID) ([]*billing.Document, error) {
	args := m.Called(ctx, family, counterpartyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindReturnsBySource(ctx context.Context, sourceDocumentID uuid.UUID) ([]*billing.Document, error) {
	args := m.Called(ctx, sourceDocumentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Document), args.Error(1)
}

func (m *MockDocumentRepository) Save(ctx context.Context, doc *billing.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) SaveWithLock(ctx context.Context, doc *billing.Document, expectedVersion int) error {
	args := m.Called(ctx, doc, expectedVersion)
	return args.Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentRepository) NextInvoiceNumber(ctx context.Context, family billing.Family) (string, error) {
	args := m.Called(ctx, family)
	return args.String(0), args.Error(1)
}

// MockUnitRepository is a mock implementation of uom.UnitRepository
type MockUnitRepository struct {
	mock.Mock
}

func (m *MockUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*uom.Unit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*uom.Unit), args.Error(1)
}

func (m *MockUnitRepository) FindAll(ctx context.Context, filter shared.Filter) ([]uom.Unit, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uom.Unit), args.Error(1)
}

func (m *MockUnitRepository) Save(ctx context.Context, unit *uom.Unit) error {
	args := m.Called(ctx, unit)
	return args.Error(0)
}

func (m *MockUnitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUnitRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockInventoryPort is a mock implementation of InventoryPort
type MockInventoryPort struct {
	mock.Mock
}

func (m *MockInventoryPort) RecordMovements(ctx context.Context, movements []*billing.StockMovement) error {
	args := m.Called(ctx, movements)
	return args.Error(0)
}

func (m *MockInventoryPort) MovementsByDocument(ctx context.Context, documentID uuid.UUID) ([]*billing.StockMovement, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.StockMovement), args.Error(1)
}

// passthroughTxManager runs the function without a real transaction
type passthroughTxManager struct{}

func (passthroughTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newServiceWithMocks() (*DocumentService, *MockDocumentRepository, *MockUnitRepository, *MockInventoryPort) {
	docRepo := new(MockDocumentRepository)
	unitRepo := new(MockUnitRepository)
	inventory := new(MockInventoryPort)
	service := NewDocumentService(docRepo, unitRepo, inventory, passthroughTxManager{})
	return service, docRepo, unitRepo, inventory
}

func completedSaleFixture(t *testing.T) *billing.Document {
	t.Helper()
	doc, err := billing.NewDocument(billing.FamilySale, "SAL-20260101-0001", uuid.New(), "Northwind Retail", uuid.New(), time.Now())
	require.NoError(t, err)
	_, err = doc.AddLine(uuid.New(), "Widget", nil, decimal.NewFromInt(10), valueobject.NewMoneyUSDFromFloat(10))
	require.NoError(t, err)
	require.NoError(t, doc.Complete())
	return doc
}

func TestDocumentServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending invoice with resolved unit", func(t *testing.T) {
		service, docRepo, unitRepo, _ := newServiceWithMocks()

		box, err := uom.NewUnit("Box", decimal.NewFromInt(12))
		require.NoError(t, err)

		docRepo.On("NextInvoiceNumber", ctx, billing.FamilyPurchase).Return("PUR-20260101-0001", nil)
		unitRepo.On("FindByID", ctx, box.ID).Return(box, nil)
		docRepo.On("Save", ctx, mock.AnythingOfType("*billing.Document")).Return(nil)

		unitID := box.ID
		resp, err := service.Create(ctx, billing.FamilyPurchase, CreateDocumentRequest{
			CounterpartyID:   uuid.New(),
			CounterpartyName: "Acme Supplies",
			WarehouseID:      uuid.New(),
			Lines: []CreateDocumentLineRequest{
				{ProductID: uuid.New(), ProductName: "Widget", UnitID: &unitID, Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(24)},
			},
		})

		require.NoError(t, err)
		assert.Equal(t, "PUR-20260101-0001", resp.InvoiceNumber)
		assert.Equal(t, billing.DocumentStatusPending, resp.Status)
		require.Len(t, resp.Lines, 1)
		assert.True(t, resp.Lines[0].BaseQuantity.Equal(decimal.NewFromInt(24)))
		docRepo.AssertExpectations(t)
	})

	t.Run("rejects creating a return through the invoice path", func(t *testing.T) {
		service, _, _, _ := newServiceWithMocks()

		_, err := service.Create(ctx, billing.FamilySaleReturn, CreateDocumentRequest{})
		assert.Error(t, err)
	})
}

func TestDocumentServiceCreateReturn(t *testing.T) {
	ctx := context.Background()

	t.Run("builds return against completed sale", func(t *testing.T) {
		service, docRepo, _, _ := newServiceWithMocks()
		source := completedSaleFixture(t)

		docRepo.On("FindByID", ctx, source.ID).Return(source, nil)
		docRepo.On("FindReturnsBySource", ctx, source.ID).Return([]*billing.Document{}, nil)
		docRepo.On("NextInvoiceNumber", ctx, billing.FamilySaleReturn).Return("SRN-20260102-0001", nil)
		docRepo.On("Save", ctx, mock.AnythingOfType("*billing.Document")).Return(nil)

		resp, err := service.CreateReturn(ctx, billing.FamilySaleReturn, CreateReturnRequest{
			SourceDocumentID: source.ID,
			Lines: []CreateReturnLineRequest{
				{SourceLineID: source.Lines[0].ID, Quantity: decimal.NewFromInt(4)},
			},
		})

		require.NoError(t, err)
		assert.Equal(t, billing.FamilySaleReturn, resp.Family)
		require.NotNil(t, resp.SourceDocumentID)
		assert.Equal(t, source.ID, *resp.SourceDocumentID)
		assert.True(t, resp.GrandTotal.Equal(decimal.NewFromInt(40)))
	})

	t.Run("propagates returnable quantity violation", func(t *testing.T) {
		service, docRepo, _, _ := newServiceWithMocks()
		source := completedSaleFixture(t)

		docRepo.On("FindByID", ctx, source.ID).Return(source, nil)
		docRepo.On("FindReturnsBySource", ctx, source.ID).Return([]*billing.Document{}, nil)
		docRepo.On("NextInvoiceNumber", ctx, billing.FamilySaleReturn).Return("SRN-20260102-0001", nil)

		_, err := service.CreateReturn(ctx, billing.FamilySaleReturn, CreateReturnRequest{
			SourceDocumentID: source.ID,
			Lines: []CreateReturnLineRequest{
				{SourceLineID: source.Lines[0].ID, Quantity: decimal.NewFromInt(11)},
			},
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeExceedsReturnable, domainErr.Code)
	})
}

func TestDocumentServiceComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("completing a sale records outbound movements", func(t *testing.T) {
		service, docRepo, _, inventory := newServiceWithMocks()

		doc, err := billing.NewDocument(billing.FamilySale, "SAL-1", uuid.New(), "Northwind", uuid.New(), time.Now())
		require.NoError(t, err)
		_, err = doc.AddLine(uuid.New(), "Widget", nil, decimal.NewFromInt(3), valueobject.NewMoneyUSDFromFloat(5))
		require.NoError(t, err)

		docRepo.On("FindByID", ctx, doc.ID).Return(doc, nil)
		inventory.On("RecordMovements", ctx, mock.MatchedBy(func(ms []*billing.StockMovement) bool {
			return len(ms) == 1 && ms[0].Direction == billing.StockDirectionOut
		})).Return(nil)
		docRepo.On("SaveWithLock", ctx, doc, mock.AnythingOfType("int")).Return(nil)

		resp, err := service.Complete(ctx, billing.FamilySale, doc.ID)

		require.NoError(t, err)
		assert.Equal(t, billing.DocumentStatusDelivered, resp.Status)
		inventory.AssertExpectations(t)
	})

	t.Run("completing a sale return credits the source", func(t *testing.T) {
		service, docRepo, _, inventory := newServiceWithMocks()
		source := completedSaleFixture(t)

		ret, err := billing.NewReturnPolicy().BuildReturn(billing.FamilySaleReturn, "SRN-1", source, nil, source.WarehouseID, time.Now(), []billing.ReturnDraftLine{
			{SourceLineID: source.Lines[0].ID, Quantity: decimal.NewFromInt(4)},
		})
		require.NoError(t, err)

		docRepo.On("FindByID", ctx, ret.ID).Return(ret, nil)
		docRepo.On("FindByID", ctx, source.ID).Return(source, nil)
		docRepo.On("FindReturnsBySource", ctx, source.ID).Return([]*billing.Document{ret}, nil)
		inventory.On("RecordMovements", ctx, mock.MatchedBy(func(ms []*billing.StockMovement) bool {
			return len(ms) == 1 && ms[0].Direction == billing.StockDirectionIn
		})).Return(nil)
		docRepo.On("SaveWithLock", ctx, mock.AnythingOfType("*billing.Document"), mock.AnythingOfType("int")).Return(nil)

		resp, err := service.Complete(ctx, billing.FamilySaleReturn, ret.ID)

		require.NoError(t, err)
		assert.Equal(t, billing.DocumentStatusCompleted, resp.Status)
		assert.True(t, source.AmountCredited.Equal(decimal.NewFromInt(40)))
		assert.Equal(t, billing.ReturnStatePartial, source.ReturnState)
		assert.True(t, source.NetTotal().Equal(decimal.NewFromInt(60)))
	})

	t.Run("completing under the wrong family is not found", func(t *testing.T) {
		service, docRepo, _, _ := newServiceWithMocks()
		source := completedSaleFixture(t)

		docRepo.On("FindByID", ctx, source.ID).Return(source, nil)

		_, err := service.Complete(ctx, billing.FamilyPurchase, source.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestDocumentServiceReturnableItems(t *testing.T) {
	ctx := context.Background()

	t.Run("reports remaining quantities", func(t *testing.T) {
		service, docRepo, _, _ := newServiceWithMocks()
		source := completedSaleFixture(t)

		ret, err := billing.NewReturnPolicy().BuildReturn(billing.FamilySaleReturn, "SRN-1", source, nil, source.WarehouseID, time.Now(), []billing.ReturnDraftLine{
			{SourceLineID: source.Lines[0].ID, Quantity: decimal.NewFromInt(4)},
		})
		require.NoError(t, err)

		docRepo.On("FindByID", ctx, source.ID).Return(source, nil)
		docRepo.On("FindReturnsBySource", ctx, source.ID).Return([]*billing.Document{ret}, nil)

		items, err := service.ReturnableItems(ctx, billing.FamilySaleReturn, source.ID)

		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.True(t, items[0].ReturnableQuantity.Equal(decimal.NewFromInt(6)))
	})

	t.Run("rejects ineligible source", func(t *testing.T) {
		service, docRepo, _, _ := newServiceWithMocks()

		pending, err := billing.NewDocument(billing.FamilySale, "SAL-1", uuid.New(), "Northwind", uuid.New(), time.Now())
		require.NoError(t, err)

		docRepo.On("FindByID", ctx, pending.ID).Return(pending, nil)

		_, err = service.ReturnableItems(ctx, billing.FamilySaleReturn, pending.ID)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeSourceNotEligible, domainErr.Code)
	})
}

func TestDocumentServiceDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes pending document", func(t *testing.T) {
		service, docRepo, _, _ := newServiceWithMocks()

		doc, err := billing.NewDocument(billing.FamilyPurchase, "PUR-1", uuid.New(), "Acme", uuid.New(), time.Now())
		require.NoError(t, err)

		docRepo.On("FindByID", ctx, doc.ID).Return(doc, nil)
		docRepo.On("Delete", ctx, doc.ID).Return(nil)

		assert.NoError(t, service.Delete(ctx, billing.FamilyPurchase, doc.ID))
		docRepo.AssertExpectations(t)
	})

	t.Run("refuses to delete a completed document", func(t *testing.T) {
		service, docRepo, _, _ := newServiceWithMocks()
		doc := completedSaleFixture(t)

		docRepo.On("FindByID", ctx, doc.ID).Return(doc, nil)

		err := service.Delete(ctx, billing.FamilySale, doc.ID)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
	})
}
