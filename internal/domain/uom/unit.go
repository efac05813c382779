package uom

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stockbook/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Unit represents a unit of measure for a product family.
// Quantities recorded in a unit convert to the product's base unit via
// ConversionFactor: quantity-in-unit * factor = quantity-in-base-unit.
// Exactly one unit per product family is the base unit with factor 1.
type Unit struct {
	shared.BaseEntity
	Name             string
	ConversionFactor decimal.Decimal
	IsBaseUnit       bool
}

// TableName specifies the table name for GORM
func (Unit) TableName() string {
	return "units"
}

// NewUnit creates a new auxiliary unit with the given conversion factor
func NewUnit(name string, conversionFactor decimal.Decimal) (*Unit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("VALIDATION", "Unit name cannot be empty")
	}
	if len(name) > 50 {
		return nil, shared.NewDomainError("VALIDATION", "Unit name cannot exceed 50 characters")
	}
	if conversionFactor.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("VALIDATION", "Conversion factor must be positive")
	}

	return &Unit{
		BaseEntity:       shared.NewBaseEntity(),
		Name:             name,
		ConversionFactor: conversionFactor,
		IsBaseUnit:       conversionFactor.Equal(decimal.NewFromInt(1)),
	}, nil
}

// NewBaseUnit creates the base unit for a product family (factor 1)
func NewBaseUnit(name string) (*Unit, error) {
	return NewUnit(name, decimal.NewFromInt(1))
}

// Rename updates the unit name
func (u *Unit) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("VALIDATION", "Unit name cannot be empty")
	}
	u.Name = name
	return nil
}

// UnitRepository provides access to persisted units
type UnitRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Unit, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Unit, error)
	Save(ctx context.Context, unit *Unit) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
