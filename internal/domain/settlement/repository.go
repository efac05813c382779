package settlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/stockbook/backend/internal/domain/shared"
)

// PaymentRepository is the persistence port for payments
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]*Payment, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	FindByCounterparty(ctx context.Context, counterpartyID uuid.UUID, filter shared.Filter) ([]*Payment, error)
	Save(ctx context.Context, payment *Payment) error
	Delete(ctx context.Context, id uuid.UUID) error

	// NextPaymentNumber allocates the next number in the payment sequence,
	// e.g. PAY-20260829-0001.
	NextPaymentNumber(ctx context.Context) (string, error)
}
