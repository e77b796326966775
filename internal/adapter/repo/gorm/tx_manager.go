package gormrepo

import (
	"context"

	"tradecore/internal/app/ports"

	"gorm.io/gorm"
)

// TxManager runs a function inside a database transaction. The
// transaction handle travels in the context, so repositories called
// from fn join the same transaction via getDBFromCtx.
type TxManager struct {
	db *gorm.DB
}

var _ ports.TxManager = TxManager{}

func NewTxManager(db *gorm.DB) TxManager {
	return TxManager{db: db}
}

func (t TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(withTx(ctx, tx))
	})
}
