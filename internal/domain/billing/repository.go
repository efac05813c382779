package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/stockbook/backend/internal/domain/shared"
)

// DocumentRepository is the persistence port for documents of every family
type DocumentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)
	FindByInvoiceNumber(ctx context.Context, family Family, invoiceNumber string) (*Document, error)
	FindAll(ctx context.Context, family Family, filter shared.Filter) ([]*Document, error)
	Count(ctx context.Context, family Family, filter shared.Filter) (int64, error)

	// FindOutstanding returns the counterparty's completed documents of the
	// family with a positive remaining due, ordered by invoice date then ID
	// ascending. This is the allocator's input order.
	FindOutstanding(ctx context.Context, family Family, counterpartyID uuid.UUID) ([]*Document, error)

	// FindSettled returns the counterparty's completed documents of the
	// family carrying a positive settled amount, in the same order. Refunds
	// draw down against these.
	FindSettled(ctx context.Context, family Family, counterpartyID uuid.UUID) ([]*Document, error)

	// FindReturnsBySource returns every non-cancelled return issued against
	// the given source document.
	FindReturnsBySource(ctx context.Context, sourceDocumentID uuid.UUID) ([]*Document, error)

	Save(ctx context.Context, doc *Document) error

	// SaveWithLock persists the document only if the stored version still
	// matches expectedVersion, failing with a concurrency conflict otherwise.
	SaveWithLock(ctx context.Context, doc *Document, expectedVersion int) error

	Delete(ctx context.Context, id uuid.UUID) error

	// NextInvoiceNumber allocates the next number in the family's sequence,
	// e.g. PUR-20260829-0001.
	NextInvoiceNumber(ctx context.Context, family Family) (string, error)
}
