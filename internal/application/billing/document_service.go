package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stockbook/backend/internal/domain/billing"
	"github.com/stockbook/backend/internal/domain/shared"
	"github.com/stockbook/backend/internal/domain/shared/valueobject"
	"github.com/stockbook/backend/internal/domain/uom"
)

// DocumentService handles document business operations for every family.
// The family is a parameter rather than a service per family: the lifecycle
// is identical across families and the differences live in the family config.
type DocumentService struct {
	documentRepo   billing.DocumentRepository
	unitRepo       uom.UnitRepository
	inventory      billing.InventoryPort
	policy         *billing.ReturnPolicy
	txManager      shared.TransactionManager
	eventPublisher shared.EventPublisher
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	documentRepo billing.DocumentRepository,
	unitRepo uom.UnitRepository,
	inventory billing.InventoryPort,
	txManager shared.TransactionManager,
) *DocumentService {
	return &DocumentService{
		documentRepo: documentRepo,
		unitRepo:     unitRepo,
		inventory:    inventory,
		policy:       billing.NewReturnPolicy(),
		txManager:    txManager,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *DocumentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new pending invoice of a non-return family
func (s *DocumentService) Create(ctx context.Context, family billing.Family, req CreateDocumentRequest) (*DocumentResponse, error) {
	if family.IsReturn() {
		return nil, shared.NewDomainError("VALIDATION", fmt.Sprintf("%s documents are created from a source invoice", family))
	}

	invoiceNumber, err := s.documentRepo.NextInvoiceNumber(ctx, family)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate invoice number: %w", err)
	}

	invoiceDate := timeOrZero(req.InvoiceDate)
	doc, err := billing.NewDocument(family, invoiceNumber, req.CounterpartyID, req.CounterpartyName, req.WarehouseID, invoiceDate)
	if err != nil {
		return nil, err
	}

	for _, lineReq := range req.Lines {
		unit, err := s.resolveUnit(ctx, lineReq.UnitID)
		if err != nil {
			return nil, err
		}
		if _, err := doc.AddLine(lineReq.ProductID, lineReq.ProductName, unit, lineReq.Quantity, valueobject.NewMoneyUSD(lineReq.UnitPrice)); err != nil {
			return nil, err
		}
	}

	if req.Remark != "" {
		if err := doc.SetRemark(req.Remark); err != nil {
			return nil, err
		}
	}

	if err := s.documentRepo.Save(ctx, doc); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, doc)

	response := ToDocumentResponse(doc)
	return &response, nil
}

// CreateReturn creates a new pending return against a completed invoice.
// The requested quantities are validated against what remains returnable
// once every earlier non-cancelled return is accounted for.
func (s *DocumentService) CreateReturn(ctx context.Context, family billing.Family, req CreateReturnRequest) (*DocumentResponse, error) {
	if !family.IsReturn() {
		return nil, shared.NewDomainError("VALIDATION", fmt.Sprintf("%s documents are not returns", family))
	}

	source, err := s.documentRepo.FindByID(ctx, req.SourceDocumentID)
	if err != nil {
		return nil, err
	}

	existing, err := s.documentRepo.FindReturnsBySource(ctx, source.ID)
	if err != nil {
		return nil, err
	}

	invoiceNumber, err := s.documentRepo.NextInvoiceNumber(ctx, family)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate invoice number: %w", err)
	}

	warehouseID := uuid.Nil
	if req.WarehouseID != nil {
		warehouseID = *req.WarehouseID
	}

	requested := make([]billing.ReturnDraftLine, 0, len(req.Lines))
	for _, lineReq := range req.Lines {
		requested = append(requested, billing.ReturnDraftLine{
			SourceLineID: lineReq.SourceLineID,
			Quantity:     lineReq.Quantity,
		})
	}

	doc, err := s.policy.BuildReturn(family, invoiceNumber, source, existing, warehouseID, timeOrZero(req.InvoiceDate), requested)
	if err != nil {
		return nil, err
	}

	if req.Remark != "" {
		if err := doc.SetRemark(req.Remark); err != nil {
			return nil, err
		}
	}

	if err := s.documentRepo.Save(ctx, doc); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, doc)

	response := ToDocumentResponse(doc)
	return &response, nil
}

// GetByID retrieves a document by ID, checking it belongs to the family
func (s *DocumentService) GetByID(ctx context.Context, family billing.Family, id uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.findInFamily(ctx, family, id)
	if err != nil {
		return nil, err
	}
	response := ToDocumentResponse(doc)
	return &response, nil
}

// List retrieves documents of the family with pagination
func (s *DocumentService) List(ctx context.Context, family billing.Family, filter shared.Filter) (*shared.Paginated[DocumentResponse], error) {
	docs, err := s.documentRepo.FindAll(ctx, family, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.documentRepo.Count(ctx, family, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		responses = append(responses, ToDocumentResponse(doc))
	}

	result := shared.NewPaginated(responses, total, filter.Page, filter.PageSize)
	return &result, nil
}

// Update edits a pending document's header fields
func (s *DocumentService) Update(ctx context.Context, family billing.Family, id uuid.UUID, req UpdateDocumentRequest) (*DocumentResponse, error) {
	doc, err := s.findInFamily(ctx, family, id)
	if err != nil {
		return nil, err
	}

	if req.InvoiceDate != nil {
		if err := doc.SetInvoiceDate(*req.InvoiceDate); err != nil {
			return nil, err
		}
	}
	if req.Remark != nil {
		if err := doc.SetRemark(*req.Remark); err != nil {
			return nil, err
		}
	}

	if err := s.documentRepo.Save(ctx, doc); err != nil {
		return nil, err
	}

	response := ToDocumentResponse(doc)
	return &response, nil
}

// AddLine adds a line to a pending invoice
func (s *DocumentService) AddLine(ctx context.Context, family billing.Family, id uuid.UUID, req AddLineRequest) (*DocumentResponse, error) {
	if family.IsReturn() {
		return nil, shared.NewDomainError("VALIDATION", "Return lines reference a source line, use the return creation endpoint")
	}

	doc, err := s.findInFamily(ctx, family, id)
	if err != nil {
		return nil, err
	}

	unit, err := s.resolveUnit(ctx, req.UnitID)
	if err != nil {
		return nil, err
	}

	if _, err := doc.AddLine(req.ProductID, req.ProductName, unit, req.Quantity, valueobject.NewMoneyUSD(req.UnitPrice)); err != nil {
		return nil, err
	}

	if err := s.documentRepo.Save(ctx, doc); err != nil {
		return nil, err
	}

	response := ToDocumentResponse(doc)
	return &response, nil
}

// UpdateLine changes the quantity of an existing line
func (s *DocumentService) UpdateLine(ctx context.Context, family billing.Family, id, lineID uuid.UUID, req UpdateLineRequest) (*DocumentResponse, error) {
	doc, err := s.findInFamily(ctx, family, id)
	if err != nil {
		return nil, err
	}

	if err := doc.UpdateLineQuantity(lineID, req.Quantity); err != nil {
		return nil, err
	}

	if err := s.documentRepo.Save(ctx, doc); err != nil {
		return nil, err
	}

	response := ToDocumentResponse(doc)
	return &response, nil
}

// RemoveLine removes a line from a pending document
func (s *DocumentService) RemoveLine(ctx context.Context, family billing.Family, id, lineID uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.findInFamily(ctx, family, id)
	if err != nil {
		return nil, err
	}

	if err := doc.RemoveLine(lineID); err != nil {
		return nil, err
	}

	if err := s.documentRepo.Save(ctx, doc); err != nil {
		return nil, err
	}

	response := ToDocumentResponse(doc)
	return &response, nil
}

// Complete finalizes a pending document. Invoices record their stock
// movements; returns additionally credit the source invoice so its remaining
// due shrinks. Everything happens in one transaction guarded by the
// document's version.
func (s *DocumentService) Complete(ctx context.Context, family billing.Family, id uuid.UUID) (*DocumentResponse, error) {
	var completed *billing.Document

	err := s.txManager.WithinTx(ctx, func(txCtx context.Context) error {
		doc, err := s.findInFamily(txCtx, family, id)
		if err != nil {
			return err
		}

		expectedVersion := doc.GetVersion()
		if err := doc.Complete(); err != nil {
			return err
		}

		movements := make([]*billing.StockMovement, 0, len(doc.Lines))
		direction := family.CompletionStockDirection()
		for idx := range doc.Lines {
			movements = append(movements, billing.NewStockMovement(doc, &doc.Lines[idx], direction))
		}
		if err := s.inventory.RecordMovements(txCtx, movements); err != nil {
			return fmt.Errorf("failed to record stock movements: %w", err)
		}

		if family.IsReturn() {
			if err := s.creditSource(txCtx, doc); err != nil {
				return err
			}
		}

		if err := s.documentRepo.SaveWithLock(txCtx, doc, expectedVersion); err != nil {
			return err
		}

		completed = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, completed)

	response := ToDocumentResponse(completed)
	return &response, nil
}

// creditSource applies the completed return's credit to its source invoice
func (s *DocumentService) creditSource(ctx context.Context, ret *billing.Document) error {
	if ret.SourceDocumentID == nil {
		return shared.NewDomainError("INVALID_STATE", "Return has no source document")
	}

	source, err := s.documentRepo.FindByID(ctx, *ret.SourceDocumentID)
	if err != nil {
		return err
	}

	returns, err := s.documentRepo.FindReturnsBySource(ctx, source.ID)
	if err != nil {
		return err
	}

	// only completed returns count toward the source's return indicator;
	// the one being completed right now is not yet persisted as such
	completedReturns := make([]*billing.Document, 0, len(returns)+1)
	for _, r := range returns {
		if r.ID != ret.ID && r.IsCompleted() {
			completedReturns = append(completedReturns, r)
		}
	}
	completedReturns = append(completedReturns, ret)

	state := s.policy.SourceReturnState(source, completedReturns)

	sourceVersion := source.GetVersion()
	if err := source.ApplyReturnCredit(ret.GrandTotal, state); err != nil {
		return err
	}

	return s.documentRepo.SaveWithLock(ctx, source, sourceVersion)
}

// Cancel cancels a pending document. No stock or settlement effect.
func (s *DocumentService) Cancel(ctx context.Context, family billing.Family, id uuid.UUID, req CancelDocumentRequest) (*DocumentResponse, error) {
	doc, err := s.findInFamily(ctx, family, id)
	if err != nil {
		return nil, err
	}

	expectedVersion := doc.GetVersion()
	if err := doc.Cancel(req.Reason); err != nil {
		return nil, err
	}

	if err := s.documentRepo.SaveWithLock(ctx, doc, expectedVersion); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, doc)

	response := ToDocumentResponse(doc)
	return &response, nil
}

// Delete removes a pending document entirely
func (s *DocumentService) Delete(ctx context.Context, family billing.Family, id uuid.UUID) error {
	doc, err := s.findInFamily(ctx, family, id)
	if err != nil {
		return err
	}
	if !doc.IsPending() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot delete a document in %s status", doc.Status))
	}
	return s.documentRepo.Delete(ctx, doc.ID)
}

// ReturnableItems reports how much of each source line can still be returned
func (s *DocumentService) ReturnableItems(ctx context.Context, family billing.Family, sourceID uuid.UUID) ([]ReturnableItemResponse, error) {
	if !family.IsReturn() {
		return nil, shared.NewDomainError("VALIDATION", fmt.Sprintf("%s documents are not returns", family))
	}

	source, err := s.documentRepo.FindByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	if err := s.policy.CheckSourceEligible(family, source); err != nil {
		return nil, err
	}

	existing, err := s.documentRepo.FindReturnsBySource(ctx, source.ID)
	if err != nil {
		return nil, err
	}

	return ToReturnableItemResponses(s.policy.ReturnableItems(source, existing)), nil
}

func (s *DocumentService) findInFamily(ctx context.Context, family billing.Family, id uuid.UUID) (*billing.Document, error) {
	doc, err := s.documentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Family != family {
		return nil, shared.ErrNotFound
	}
	return doc, nil
}

func (s *DocumentService) resolveUnit(ctx context.Context, unitID *uuid.UUID) (*uom.Unit, error) {
	if unitID == nil {
		return nil, nil
	}
	return s.unitRepo.FindByID(ctx, *unitID)
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func (s *DocumentService) publishEvents(ctx context.Context, doc *billing.Document) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range doc.GetDomainEvents() {
		_ = s.eventPublisher.Publish(ctx, event)
	}
	doc.ClearDomainEvents()
}
