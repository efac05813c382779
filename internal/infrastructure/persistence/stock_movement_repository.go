package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockbook/backend/internal/domain/billing"
)

// GormStockMovementRepository implements billing.InventoryPort using GORM
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

func (r *GormStockMovementRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db).WithContext(ctx)
}

// RecordMovements persists a batch of stock movements
func (r *GormStockMovementRepository) RecordMovements(ctx context.Context, movements []*billing.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.conn(ctx).Create(movements).Error
}

// MovementsByDocument returns every movement recorded for a document
func (r *GormStockMovementRepository) MovementsByDocument(ctx context.Context, documentID uuid.UUID) ([]*billing.StockMovement, error) {
	var movements []*billing.StockMovement
	if err := r.conn(ctx).
		Where("document_id = ?", documentID).
		Order("moved_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}
