package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/stockbook/backend/internal/domain/billing"
	"github.com/stockbook/backend/internal/domain/shared"
)

// newMockDocumentRepository creates a GormDocumentRepository with a mocked SQL connection
func newMockDocumentRepository(t *testing.T) (*GormDocumentRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormDocumentRepository(gormDB), mock, mockDB
}

func documentRows(ids ...uuid.UUID) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "family", "invoice_number", "counterparty_id", "counterparty_name",
		"status", "grand_total", "amount_settled", "amount_credited", "return_state", "version",
	})
	for i, id := range ids {
		rows.AddRow(
			id, "SALE", fmt.Sprintf("SAL-20260829-%04d", i+1), uuid.New(), "Acme Retail",
			"DELIVERED", decimal.NewFromInt(100), decimal.Zero, decimal.Zero, "NONE", 2,
		)
	}
	return rows
}

func TestNewGormDocumentRepository(t *testing.T) {
	t.Run("creates repository with valid DB", func(t *testing.T) {
		repo, _, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		assert.NotNil(t, repo)
		assert.NotNil(t, repo.db)
	})
}

func TestGormDocumentRepository_FindByID(t *testing.T) {
	t.Run("finds existing document with its lines", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		docID := uuid.New()
		lineID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "documents" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(docID, 1).
			WillReturnRows(documentRows(docID))

		lineRows := sqlmock.NewRows([]string{
			"id", "document_id", "product_id", "product_name", "quantity", "base_quantity", "unit_price", "amount",
		}).AddRow(
			lineID, docID, uuid.New(), "Widget", decimal.NewFromInt(10), decimal.NewFromInt(10),
			decimal.NewFromInt(10), decimal.NewFromInt(100),
		)
		mock.ExpectQuery(`SELECT \* FROM "document_lines" WHERE "document_lines"\."document_id" = \$1`).
			WithArgs(docID).
			WillReturnRows(lineRows)

		doc, err := repo.FindByID(context.Background(), docID)

		assert.NoError(t, err)
		require.NotNil(t, doc)
		assert.Equal(t, docID, doc.ID)
		assert.Equal(t, billing.FamilySale, doc.Family)
		require.Len(t, doc.Lines, 1)
		assert.Equal(t, "Widget", doc.Lines[0].ProductName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns error for non-existent document", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		docID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "documents" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(docID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		doc, err := repo.FindByID(context.Background(), docID)

		assert.Error(t, err)
		assert.Nil(t, doc)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDocumentRepository_FindOutstanding(t *testing.T) {
	t.Run("orders by invoice date then id", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		counterpartyID := uuid.New()
		firstID := uuid.New()
		secondID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "documents" WHERE \(family = \$1 AND counterparty_id = \$2 AND status = \$3\) AND grand_total - amount_credited - amount_settled > 0 ORDER BY invoice_date ASC, id ASC`).
			WithArgs(billing.FamilySale, counterpartyID, billing.DocumentStatusDelivered).
			WillReturnRows(documentRows(firstID, secondID))

		mock.ExpectQuery(`SELECT \* FROM "document_lines" WHERE "document_lines"\."document_id" IN \(\$1,\$2\)`).
			WithArgs(firstID, secondID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "document_id"}))

		docs, err := repo.FindOutstanding(context.Background(), billing.FamilySale, counterpartyID)

		assert.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, firstID, docs[0].ID)
		assert.Equal(t, secondID, docs[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDocumentRepository_SaveWithLock(t *testing.T) {
	t.Run("returns conflict when the stored version moved on", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		doc, err := billing.NewDocument(
			billing.FamilySale, "SAL-20260829-0001", uuid.New(), "Acme Retail", uuid.New(), time.Now(),
		)
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "documents" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err = repo.SaveWithLock(context.Background(), doc, 5)

		assert.Error(t, err)
		assert.Equal(t, shared.ErrConcurrencyConflict, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDocumentRepository_NextInvoiceNumber(t *testing.T) {
	t.Run("increments the daily sequence", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		today := time.Now().Format("20060102")

		mock.ExpectQuery(`SELECT "invoice_number" FROM "documents" WHERE family = \$1 AND invoice_number LIKE \$2 ORDER BY invoice_number DESC LIMIT \$3`).
			WithArgs(billing.FamilyPurchase, "PUR-"+today+"-%", 1).
			WillReturnRows(sqlmock.NewRows([]string{"invoice_number"}).
				AddRow(fmt.Sprintf("PUR-%s-0007", today)))

		number, err := repo.NextInvoiceNumber(context.Background(), billing.FamilyPurchase)

		assert.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("PUR-%s-0008", today), number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("starts at one for a fresh day", func(t *testing.T) {
		repo, mock, mockDB := newMockDocumentRepository(t)
		defer mockDB.Close()

		today := time.Now().Format("20060102")

		mock.ExpectQuery(`SELECT "invoice_number" FROM "documents" WHERE family = \$1 AND invoice_number LIKE \$2 ORDER BY invoice_number DESC LIMIT \$3`).
			WithArgs(billing.FamilySaleReturn, "SRN-"+today+"-%", 1).
			WillReturnRows(sqlmock.NewRows([]string{"invoice_number"}))

		number, err := repo.NextInvoiceNumber(context.Background(), billing.FamilySaleReturn)

		assert.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("SRN-%s-0001", today), number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
