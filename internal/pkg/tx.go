package pkg

import (
	"context"

	"gorm.io/gorm"
)

// WithTx runs fn in a transaction bound to ctx. fn's error or panic rolls it
// back; the panic is re-raised. Called inside another WithTx it nests as a
// savepoint.
func WithTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}
