package pkg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/simp-lee/qrpromo/internal/domain"
)

func newTxTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&domain.Activity{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// pruneAndRecord deletes every entry then writes one, the shape of the
// activity retention transaction.
func pruneAndRecord(id string) func(tx *gorm.DB) error {
	return func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&domain.Activity{}).Error; err != nil {
			return err
		}
		return tx.Create(&domain.Activity{ID: id, Action: domain.ActionMarkDelivered, CreatedAt: time.Now()}).Error
	}
}

func TestWithTx(t *testing.T) {
	errBackend := errors.New("backend rejected delivery")

	tests := []struct {
		name      string
		ctx       func() context.Context
		fn        func(tx *gorm.DB) error
		wantErr   error
		wantPanic bool
		wantIDs   []string
	}{
		{
			name:    "commit",
			fn:      pruneAndRecord("new"),
			wantIDs: []string{"new"},
		},
		{
			name: "error rolls back",
			fn: func(tx *gorm.DB) error {
				if err := pruneAndRecord("new")(tx); err != nil {
					return err
				}
				return errBackend
			},
			wantErr: errBackend,
			wantIDs: []string{"old-1", "old-2"},
		},
		{
			name: "panic rolls back and propagates",
			fn: func(tx *gorm.DB) error {
				_ = pruneAndRecord("new")(tx)
				panic("boom")
			},
			wantPanic: true,
			wantIDs:   []string{"old-1", "old-2"},
		},
		{
			name: "nested failure rolls back to its savepoint",
			fn: func(tx *gorm.DB) error {
				if err := tx.Where("1 = 1").Delete(&domain.Activity{}).Error; err != nil {
					return err
				}
				inner := WithTx(context.Background(), tx, func(tx *gorm.DB) error {
					if err := tx.Create(&domain.Activity{ID: "new", Action: domain.ActionLogin}).Error; err != nil {
						return err
					}
					return errBackend
				})
				if !errors.Is(inner, errBackend) {
					t.Errorf("inner err = %v", inner)
				}
				return nil
			},
			wantIDs: []string{},
		},
		{
			name: "cancelled context never begins",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			fn: func(tx *gorm.DB) error {
				t.Error("fn called without a transaction")
				return nil
			},
			wantErr: context.Canceled,
			wantIDs: []string{"old-1", "old-2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTxTestDB(t)
			for _, id := range []string{"old-1", "old-2"} {
				if err := db.Create(&domain.Activity{ID: id, Action: domain.ActionLogin}).Error; err != nil {
					t.Fatalf("seed: %v", err)
				}
			}
			ctx := context.Background()
			if tt.ctx != nil {
				ctx = tt.ctx()
			}

			func() {
				defer func() {
					r := recover()
					if (r != nil) != tt.wantPanic {
						t.Errorf("recover() = %v; wantPanic %v", r, tt.wantPanic)
					}
				}()
				err := WithTx(ctx, db, tt.fn)
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v; want %v", err, tt.wantErr)
				}
			}()

			var ids []string
			if err := db.Model(&domain.Activity{}).Order("id").Pluck("id", &ids).Error; err != nil {
				t.Fatalf("pluck: %v", err)
			}
			if len(ids) != len(tt.wantIDs) {
				t.Fatalf("ids = %v; want %v", ids, tt.wantIDs)
			}
			for i := range ids {
				if ids[i] != tt.wantIDs[i] {
					t.Errorf("ids = %v; want %v", ids, tt.wantIDs)
					break
				}
			}
		})
	}
}
