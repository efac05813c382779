package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockbook/backend/internal/domain/shared"
	"github.com/stockbook/backend/internal/domain/uom"
)

func setupUnitTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&uom.Unit{})
	require.NoError(t, err)

	return db
}

func TestUnitRepository_SaveAndFind(t *testing.T) {
	repo := NewGormUnitRepository(setupUnitTestDB(t))
	ctx := context.Background()

	unit, err := uom.NewUnit("Box", decimal.NewFromInt(12))
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, unit))

	found, err := repo.FindByID(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, "Box", found.Name)
	assert.True(t, found.ConversionFactor.Equal(decimal.NewFromInt(12)))
	assert.False(t, found.IsBaseUnit)
}

func TestUnitRepository_FindByID_NotFound(t *testing.T) {
	repo := NewGormUnitRepository(setupUnitTestDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUnitRepository_FindAll(t *testing.T) {
	repo := NewGormUnitRepository(setupUnitTestDB(t))
	ctx := context.Background()

	base, err := uom.NewBaseUnit("Piece")
	require.NoError(t, err)
	box, err := uom.NewUnit("Box", decimal.NewFromInt(12))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, base))
	require.NoError(t, repo.Save(ctx, box))

	units, err := repo.FindAll(ctx, shared.Filter{Page: 1, PageSize: 10, OrderBy: "name", OrderDir: "asc"})
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "Box", units[0].Name)
	assert.Equal(t, "Piece", units[1].Name)

	count, err := repo.Count(ctx, shared.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestUnitRepository_Delete(t *testing.T) {
	repo := NewGormUnitRepository(setupUnitTestDB(t))
	ctx := context.Background()

	unit, err := uom.NewBaseUnit("Piece")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, unit))

	require.NoError(t, repo.Delete(ctx, unit.ID))

	_, err = repo.FindByID(ctx, unit.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, unit.ID), shared.ErrNotFound)
}
