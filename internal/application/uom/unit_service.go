package uom

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockbook/backend/internal/domain/shared"
	"github.com/stockbook/backend/internal/domain/uom"
)

// CreateUnitRequest creates a new unit of measure
type CreateUnitRequest struct {
	Name             string          `json:"name" binding:"required,max=50"`
	ConversionFactor decimal.Decimal `json:"conversion_factor" binding:"required"`
}

// UpdateUnitRequest renames an existing unit
type UpdateUnitRequest struct {
	Name string `json:"name" binding:"required,max=50"`
}

// UnitResponse is the API shape of a unit
type UnitResponse struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	ConversionFactor decimal.Decimal `json:"conversion_factor"`
	IsBaseUnit       bool            `json:"is_base_unit"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ToUnitResponse maps a unit to its API shape
func ToUnitResponse(u *uom.Unit) UnitResponse {
	return UnitResponse{
		ID:               u.ID,
		Name:             u.Name,
		ConversionFactor: u.ConversionFactor,
		IsBaseUnit:       u.IsBaseUnit,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

// UnitService handles unit-of-measure operations
type UnitService struct {
	unitRepo uom.UnitRepository
}

// NewUnitService creates a new UnitService
func NewUnitService(unitRepo uom.UnitRepository) *UnitService {
	return &UnitService{unitRepo: unitRepo}
}

// Create creates a new unit
func (s *UnitService) Create(ctx context.Context, req CreateUnitRequest) (*UnitResponse, error) {
	unit, err := uom.NewUnit(req.Name, req.ConversionFactor)
	if err != nil {
		return nil, err
	}
	if err := s.unitRepo.Save(ctx, unit); err != nil {
		return nil, err
	}
	response := ToUnitResponse(unit)
	return &response, nil
}

// GetByID retrieves a unit by ID
func (s *UnitService) GetByID(ctx context.Context, id uuid.UUID) (*UnitResponse, error) {
	unit, err := s.unitRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToUnitResponse(unit)
	return &response, nil
}

// List retrieves units with pagination
func (s *UnitService) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[UnitResponse], error) {
	units, err := s.unitRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.unitRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]UnitResponse, 0, len(units))
	for idx := range units {
		responses = append(responses, ToUnitResponse(&units[idx]))
	}

	result := shared.NewPaginated(responses, total, filter.Page, filter.PageSize)
	return &result, nil
}

// Update renames a unit
func (s *UnitService) Update(ctx context.Context, id uuid.UUID, req UpdateUnitRequest) (*UnitResponse, error) {
	unit, err := s.unitRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := unit.Rename(req.Name); err != nil {
		return nil, err
	}
	if err := s.unitRepo.Save(ctx, unit); err != nil {
		return nil, err
	}
	response := ToUnitResponse(unit)
	return &response, nil
}

// Delete removes a unit
func (s *UnitService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.unitRepo.Delete(ctx, id)
}
