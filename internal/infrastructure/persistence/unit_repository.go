package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockbook/backend/internal/domain/shared"
	"github.com/stockbook/backend/internal/domain/uom"
)

// GormUnitRepository implements uom.UnitRepository using GORM
type GormUnitRepository struct {
	db *gorm.DB
}

// NewGormUnitRepository creates a new GormUnitRepository
func NewGormUnitRepository(db *gorm.DB) *GormUnitRepository {
	return &GormUnitRepository{db: db}
}

func (r *GormUnitRepository) conn(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db).WithContext(ctx)
}

// FindByID finds a unit by its ID
func (r *GormUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*uom.Unit, error) {
	var unit uom.Unit
	if err := r.conn(ctx).First(&unit, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &unit, nil
}

// FindAll finds units with filtering
func (r *GormUnitRepository) FindAll(ctx context.Context, filter shared.Filter) ([]uom.Unit, error) {
	var units []uom.Unit
	query := r.conn(ctx).Model(&uom.Unit{})

	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}

	orderBy := ValidateSortField(filter.OrderBy, UnitSortFields, "name")
	query = query.Order(fmt.Sprintf("%s %s", orderBy, ValidateSortOrder(filter.OrderDir)))

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	if err := query.Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// Save creates or updates a unit
func (r *GormUnitRepository) Save(ctx context.Context, unit *uom.Unit) error {
	return r.conn(ctx).Save(unit).Error
}

// Delete deletes a unit
func (r *GormUnitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.conn(ctx).Delete(&uom.Unit{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts units with optional filters
func (r *GormUnitRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.conn(ctx).Model(&uom.Unit{})
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
