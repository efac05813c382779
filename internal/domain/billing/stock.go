package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockbook/backend/internal/domain/shared"
)

// StockDirection indicates whether a movement adds to or removes from stock
type StockDirection string

const (
	StockDirectionIn  StockDirection = "IN"
	StockDirectionOut StockDirection = "OUT"
)

// IsValid checks if the direction is valid
func (d StockDirection) IsValid() bool {
	return d == StockDirectionIn || d == StockDirectionOut
}

// String returns the string representation
func (d StockDirection) String() string {
	return string(d)
}

// StockMovement records a single inventory change produced by completing a
// document. Quantities are always in the product's base unit.
type StockMovement struct {
	shared.BaseEntity
	DocumentID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineID       uuid.UUID       `gorm:"type:uuid;not null"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	WarehouseID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Direction    StockDirection  `gorm:"type:varchar(8);not null"`
	BaseQuantity decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	MovedAt      time.Time       `gorm:"not null"`
}

// NewStockMovement creates a movement for one document line
func NewStockMovement(doc *Document, line *DocumentLine, direction StockDirection) *StockMovement {
	return &StockMovement{
		BaseEntity:   shared.NewBaseEntity(),
		DocumentID:   doc.ID,
		LineID:       line.ID,
		ProductID:    line.ProductID,
		WarehouseID:  doc.WarehouseID,
		Direction:    direction,
		BaseQuantity: line.BaseQuantity,
		MovedAt:      time.Now(),
	}
}

// TableName specifies the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// InventoryPort is the outbound port to the inventory subsystem. Completing
// a document emits one movement per line; the port is expected to apply them
// within the caller's transaction.
type InventoryPort interface {
	RecordMovements(ctx context.Context, movements []*StockMovement) error
	MovementsByDocument(ctx context.Context, documentID uuid.UUID) ([]*StockMovement, error)
}
