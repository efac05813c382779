package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockbook/backend/internal/domain/settlement"
	"github.com/stockbook/backend/internal/domain/shared"
)

// GormPaymentRepository implements settlement.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db).WithContext(ctx)
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Payment, error) {
	var payment settlement.Payment
	if err := r.conn(ctx).
		Preload("Allocations").
		First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// FindAll finds payments with filtering
func (r *GormPaymentRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*settlement.Payment, error) {
	var payments []*settlement.Payment
	query := r.applyFilter(
		r.conn(ctx).Model(&settlement.Payment{}).Preload("Allocations"),
		filter,
	)

	if err := query.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// Count counts payments with optional filters
func (r *GormPaymentRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.conn(ctx).Model(&settlement.Payment{}),
		filter,
	)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindByCounterparty finds payments for a counterparty
func (r *GormPaymentRepository) FindByCounterparty(ctx context.Context, counterpartyID uuid.UUID, filter shared.Filter) ([]*settlement.Payment, error) {
	var payments []*settlement.Payment
	query := r.applyFilter(
		r.conn(ctx).Model(&settlement.Payment{}).Preload("Allocations").
			Where("counterparty_id = ?", counterpartyID),
		filter,
	)

	if err := query.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// Save creates or updates a payment together with its allocations
func (r *GormPaymentRepository) Save(ctx context.Context, payment *settlement.Payment) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Allocations").Save(payment).Error; err != nil {
			return err
		}

		for i := range payment.Allocations {
			payment.Allocations[i].PaymentID = payment.ID
			if err := tx.Save(&payment.Allocations[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete deletes a payment and its allocations
func (r *GormPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("payment_id = ?", id).Delete(&settlement.PaymentAllocation{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&settlement.Payment{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// NextPaymentNumber allocates the next number in the daily payment sequence.
// Format: PAY-YYYYMMDD-NNNN (e.g. PAY-20260829-0001)
func (r *GormPaymentRepository) NextPaymentNumber(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("PAY-%s-", time.Now().Format("20060102"))

	var lastNumber string
	err := r.conn(ctx).
		Model(&settlement.Payment{}).
		Where("payment_number LIKE ?", prefix+"%").
		Order("payment_number DESC").
		Limit(1).
		Pluck("payment_number", &lastNumber).Error
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

func (r *GormPaymentRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	return query
}

func (r *GormPaymentRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where("payment_number ILIKE ? OR counterparty_name ILIKE ?", search, search)
	}

	for field, value := range filter.Filters {
		switch field {
		case "type", "counterparty_id", "reconciled":
			query = query.Where(field+" = ?", value)
		}
	}

	orderBy := ValidateSortField(filter.OrderBy, PaymentSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	return query
}
