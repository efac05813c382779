package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockbook/backend/internal/domain/billing"
	"github.com/stockbook/backend/internal/domain/shared"
)

// GormDocumentRepository implements billing.DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

func (r *GormDocumentRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db).WithContext(ctx)
}

// FindByID finds a document by its ID
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Document, error) {
	var doc billing.Document
	if err := r.conn(ctx).
		Preload("Lines").
		First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindByInvoiceNumber finds a document by its invoice number within a family
func (r *GormDocumentRepository) FindByInvoiceNumber(ctx context.Context, family billing.Family, invoiceNumber string) (*billing.Document, error) {
	var doc billing.Document
	if err := r.conn(ctx).
		Preload("Lines").
		Where("family = ? AND invoice_number = ?", family, invoiceNumber).
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindAll finds documents of a family with filtering
func (r *GormDocumentRepository) FindAll(ctx context.Context, family billing.Family, filter shared.Filter) ([]*billing.Document, error) {
	var docs []*billing.Document
	query := r.applyFilter(
		r.conn(ctx).Model(&billing.Document{}).Preload("Lines").Where("family = ?", family),
		filter,
	)

	if err := query.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// Count counts documents of a family with optional filters
func (r *GormDocumentRepository) Count(ctx context.Context, family billing.Family, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.conn(ctx).Model(&billing.Document{}).Where("family = ?", family),
		filter,
	)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindOutstanding finds the counterparty's completed documents that still
// carry a remaining due, in allocation order.
func (r *GormDocumentRepository) FindOutstanding(ctx context.Context, family billing.Family, counterpartyID uuid.UUID) ([]*billing.Document, error) {
	var docs []*billing.Document
	if err := r.conn(ctx).
		Preload("Lines").
		Where("family = ? AND counterparty_id = ? AND status = ?", family, counterpartyID, family.FinalStatus()).
		Where("grand_total - amount_credited - amount_settled > 0").
		Order("invoice_date ASC, id ASC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// FindSettled finds the counterparty's completed documents carrying a
// positive settled amount, in allocation order.
func (r *GormDocumentRepository) FindSettled(ctx context.Context, family billing.Family, counterpartyID uuid.UUID) ([]*billing.Document, error) {
	var docs []*billing.Document
	if err := r.conn(ctx).
		Preload("Lines").
		Where("family = ? AND counterparty_id = ? AND status = ? AND amount_settled > 0", family, counterpartyID, family.FinalStatus()).
		Order("invoice_date ASC, id ASC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// FindReturnsBySource finds every non-cancelled return against a source document
func (r *GormDocumentRepository) FindReturnsBySource(ctx context.Context, sourceDocumentID uuid.UUID) ([]*billing.Document, error) {
	var docs []*billing.Document
	if err := r.conn(ctx).
		Preload("Lines").
		Where("source_document_id = ? AND status <> ?", sourceDocumentID, billing.DocumentStatusCancelled).
		Order("created_at ASC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// Save creates or updates a document together with its lines
func (r *GormDocumentRepository) Save(ctx context.Context, doc *billing.Document) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Save(doc).Error; err != nil {
			return err
		}
		return r.saveLines(tx, doc)
	})
}

// SaveWithLock persists the document only if the stored version still matches
// expectedVersion. The aggregate has already incremented its in-memory version.
func (r *GormDocumentRepository) SaveWithLock(ctx context.Context, doc *billing.Document, expectedVersion int) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		doc.UpdatedAt = time.Now()

		result := tx.Model(&billing.Document{}).
			Where("id = ? AND version = ?", doc.ID, expectedVersion).
			Updates(map[string]interface{}{
				"counterparty_id":   doc.CounterpartyID,
				"counterparty_name": doc.CounterpartyName,
				"warehouse_id":      doc.WarehouseID,
				"invoice_date":      doc.InvoiceDate,
				"grand_total":       doc.GrandTotal,
				"amount_settled":    doc.AmountSettled,
				"amount_credited":   doc.AmountCredited,
				"return_state":      doc.ReturnState,
				"status":            doc.Status,
				"remark":            doc.Remark,
				"completed_at":      doc.CompletedAt,
				"cancelled_at":      doc.CancelledAt,
				"cancel_reason":     doc.CancelReason,
				"version":           doc.GetVersion(),
				"updated_at":        doc.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		return r.saveLines(tx, doc)
	})
}

// saveLines reconciles the stored lines with the aggregate's current set
func (r *GormDocumentRepository) saveLines(tx *gorm.DB, doc *billing.Document) error {
	currentLineIDs := make([]uuid.UUID, len(doc.Lines))
	for i, line := range doc.Lines {
		currentLineIDs[i] = line.ID
	}

	if len(currentLineIDs) > 0 {
		if err := tx.Where("document_id = ? AND id NOT IN ?", doc.ID, currentLineIDs).
			Delete(&billing.DocumentLine{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("document_id = ?", doc.ID).
			Delete(&billing.DocumentLine{}).Error; err != nil {
			return err
		}
	}

	for i := range doc.Lines {
		doc.Lines[i].DocumentID = doc.ID
		if err := tx.Save(&doc.Lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete deletes a document and its lines
func (r *GormDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&billing.DocumentLine{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&billing.Document{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// NextInvoiceNumber allocates the next number in the family's daily sequence.
// Format: <PREFIX>-YYYYMMDD-NNNN (e.g. PUR-20260829-0001)
func (r *GormDocumentRepository) NextInvoiceNumber(ctx context.Context, family billing.Family) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", family.Config().NumberPrefix, time.Now().Format("20060102"))

	var lastNumber string
	err := r.conn(ctx).
		Model(&billing.Document{}).
		Where("family = ? AND invoice_number LIKE ?", family, prefix+"%").
		Order("invoice_number DESC").
		Limit(1).
		Pluck("invoice_number", &lastNumber).Error
	if err != nil {
		return "", err
	}

	var nextNum int64 = 1
	if lastNumber != "" {
		parts := strings.Split(lastNumber, "-")
		if len(parts) == 3 {
			var num int64
			if _, parseErr := fmt.Sscanf(parts[2], "%d", &num); parseErr == nil {
				nextNum = num + 1
			}
		}
	}

	return fmt.Sprintf("%s%04d", prefix, nextNum), nil
}

// applyFilter applies filter options to the query
func (r *GormDocumentRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	return query
}

// applyFilterWithoutPagination applies search, field filters and ordering
func (r *GormDocumentRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where("invoice_number ILIKE ? OR counterparty_name ILIKE ?", search, search)
	}

	for field, value := range filter.Filters {
		switch field {
		case "status", "counterparty_id", "warehouse_id", "return_state", "source_document_id":
			query = query.Where(field+" = ?", value)
		}
	}

	orderBy := ValidateSortField(filter.OrderBy, DocumentSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	return query
}
