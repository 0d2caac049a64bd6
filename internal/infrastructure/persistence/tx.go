package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/storesync/backend/internal/domain/shared"
)

// txKey carries the open transaction through the context so repository calls
// made inside GormTxManager.Do join it
type txKey struct{}

// GormTxManager implements shared.TxManager on a GORM connection
type GormTxManager struct {
	db *gorm.DB
}

// NewGormTxManager creates a new GORM-backed transaction manager
func NewGormTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{db: db}
}

// Do runs fn inside one transaction; an error from fn rolls back every
// repository write made through the context fn receives
func (m *GormTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// dbFromContext returns the transaction carried by ctx, or the repository's
// own handle when the call runs outside a managed transaction
func dbFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}

var _ shared.TxManager = (*GormTxManager)(nil)
