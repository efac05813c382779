package persistence

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// GormTransactionManager implements shared.TransactionManager with GORM.
// The transaction handle travels in the context, so repositories built on
// the same *gorm.DB transparently join an open transaction.
type GormTransactionManager struct {
	db *gorm.DB
}

// NewGormTransactionManager creates a new GormTransactionManager
func NewGormTransactionManager(db *gorm.DB) *GormTransactionManager {
	return &GormTransactionManager{db: db}
}

// WithinTx runs fn inside a transaction. Nested calls join the outer one.
func (m *GormTransactionManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// txFromContext returns the transaction handle from the context, if any
func txFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return nil
}

// dbFromContext returns the transaction handle from the context, or falls
// back to the base connection.
func dbFromContext(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db
}
