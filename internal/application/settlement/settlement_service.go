package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbook/backend/internal/domain/billing"
	"github.com/stockbook/backend/internal/domain/settlement"
	"github.com/stockbook/backend/internal/domain/shared"
)

// CounterpartyLocker serializes settlement runs per counterparty so two
// concurrent payments cannot allocate against the same outstanding set.
type CounterpartyLocker interface {
	WithLock(ctx context.Context, counterpartyID uuid.UUID, fn func(ctx context.Context) error) error
}

// SettlementService records payments and refunds and reconciles them against
// the counterparty's documents oldest first.
type SettlementService struct {
	paymentRepo    settlement.PaymentRepository
	documentRepo   billing.DocumentRepository
	locker         CounterpartyLocker
	txManager      shared.TransactionManager
	eventPublisher shared.EventPublisher
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(
	paymentRepo settlement.PaymentRepository,
	documentRepo billing.DocumentRepository,
	locker CounterpartyLocker,
	txManager shared.TransactionManager,
) *SettlementService {
	return &SettlementService{
		paymentRepo:  paymentRepo,
		documentRepo: documentRepo,
		locker:       locker,
		txManager:    txManager,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *SettlementService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ApplyPayment records a payment and allocates it in a single transaction,
// holding the counterparty lock for the whole run. Payments spread across
// the outstanding documents oldest first with any surplus kept on account;
// refunds draw down settled amounts and reject whatever cannot be matched.
func (s *SettlementService) ApplyPayment(ctx context.Context, req ApplyPaymentRequest) (*PaymentResponse, error) {
	var payment *settlement.Payment

	err := s.locker.WithLock(ctx, req.CounterpartyID, func(lockCtx context.Context) error {
		return s.txManager.WithinTx(lockCtx, func(txCtx context.Context) error {
			paymentNumber, err := s.paymentRepo.NextPaymentNumber(txCtx)
			if err != nil {
				return fmt.Errorf("failed to allocate payment number: %w", err)
			}

			p, err := settlement.NewPayment(paymentNumber, req.Type, req.CounterpartyID, req.CounterpartyName, req.Amount, timeOrNow(req.PaymentDate))
			if err != nil {
				return err
			}
			if req.Method != "" || req.Reference != "" || req.Remark != "" {
				if err := p.UpdateMetadata(req.Method, req.Reference, req.Remark); err != nil {
					return err
				}
			}

			allocations, err := s.allocate(txCtx, p)
			if err != nil {
				return err
			}
			if err := p.RecordAllocations(allocations); err != nil {
				return err
			}

			if err := s.paymentRepo.Save(txCtx, p); err != nil {
				return err
			}

			payment = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, payment)

	response := ToPaymentResponse(payment)
	return &response, nil
}

// allocate runs the FIFO split and writes the per-document settlement
// bookkeeping, each document guarded by its version.
func (s *SettlementService) allocate(ctx context.Context, p *settlement.Payment) ([]settlement.Allocation, error) {
	family := p.Type.TargetFamily()

	if p.Type.IsRefund() {
		docs, err := s.documentRepo.FindSettled(ctx, family, p.CounterpartyID)
		if err != nil {
			return nil, err
		}

		allocations, left := settlement.AllocateRefundFIFO(p.Amount, docs)
		if left.GreaterThan(decimal.Zero) {
			return nil, shared.NewDomainError("VALIDATION",
				fmt.Sprintf("Refund exceeds the settled amount by %s", left.String()))
		}

		if err := s.applyToDocuments(ctx, docs, allocations, true); err != nil {
			return nil, err
		}
		return allocations, nil
	}

	docs, err := s.documentRepo.FindOutstanding(ctx, family, p.CounterpartyID)
	if err != nil {
		return nil, err
	}

	allocations := settlement.AllocateFIFO(p.Amount, docs)
	if err := s.applyToDocuments(ctx, docs, allocations, false); err != nil {
		return nil, err
	}
	return allocations, nil
}

func (s *SettlementService) applyToDocuments(ctx context.Context, docs []*billing.Document, allocations []settlement.Allocation, reverse bool) error {
	byID := make(map[uuid.UUID]*billing.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}

	for _, alloc := range allocations {
		if alloc.DocumentID == nil {
			continue
		}
		doc, ok := byID[*alloc.DocumentID]
		if !ok {
			return shared.NewDomainError("NOT_FOUND", "Allocated document not found")
		}

		expectedVersion := doc.GetVersion()
		if reverse {
			if err := doc.ReverseSettlement(alloc.Amount); err != nil {
				return err
			}
		} else {
			if err := doc.ApplySettlement(alloc.Amount); err != nil {
				return err
			}
		}
		if err := s.documentRepo.SaveWithLock(ctx, doc, expectedVersion); err != nil {
			return err
		}
	}
	return nil
}

// GetByID retrieves a payment by ID
func (s *SettlementService) GetByID(ctx context.Context, id uuid.UUID) (*PaymentResponse, error) {
	p, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToPaymentResponse(p)
	return &response, nil
}

// List retrieves payments with pagination
func (s *SettlementService) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[PaymentResponse], error) {
	payments, err := s.paymentRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.paymentRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		responses = append(responses, ToPaymentResponse(p))
	}

	result := shared.NewPaginated(responses, total, filter.Page, filter.PageSize)
	return &result, nil
}

// Update edits an unreconciled payment's metadata
func (s *SettlementService) Update(ctx context.Context, id uuid.UUID, req UpdatePaymentRequest) (*PaymentResponse, error) {
	p, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := p.UpdateMetadata(req.Method, req.Reference, req.Remark); err != nil {
		return nil, err
	}

	if err := s.paymentRepo.Save(ctx, p); err != nil {
		return nil, err
	}

	response := ToPaymentResponse(p)
	return &response, nil
}

// DeletePayment removes a payment and unwinds its allocations, restoring
// every touched document's settled amount.
func (s *SettlementService) DeletePayment(ctx context.Context, id uuid.UUID) error {
	p, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	return s.locker.WithLock(ctx, p.CounterpartyID, func(lockCtx context.Context) error {
		return s.txManager.WithinTx(lockCtx, func(txCtx context.Context) error {
			for _, alloc := range p.Allocations {
				if alloc.DocumentID == nil {
					continue
				}
				doc, err := s.documentRepo.FindByID(txCtx, *alloc.DocumentID)
				if err != nil {
					return err
				}

				expectedVersion := doc.GetVersion()
				if p.Type.IsRefund() {
					// deleting a refund restores the settlement it drew down
					err = doc.ApplySettlement(alloc.Amount)
				} else {
					err = doc.ReverseSettlement(alloc.Amount)
				}
				if err != nil {
					return err
				}
				if err := s.documentRepo.SaveWithLock(txCtx, doc, expectedVersion); err != nil {
					return err
				}
			}

			return s.paymentRepo.Delete(txCtx, p.ID)
		})
	})
}

func (s *SettlementService) publishEvents(ctx context.Context, p *settlement.Payment) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range p.GetDomainEvents() {
		_ = s.eventPublisher.Publish(ctx, event)
	}
	p.ClearDomainEvents()
}

func timeOrNow(t *time.Time) time.Time {
	if t == nil {
		return time.Now()
	}
	return *t
}
