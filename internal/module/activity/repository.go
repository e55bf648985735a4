package activity

import (
	"context"

	"gorm.io/gorm"

	"github.com/simp-lee/qrpromo/internal/domain"
	"github.com/simp-lee/qrpromo/internal/listquery"
	"github.com/simp-lee/qrpromo/internal/pkg"
)

// sortFields are the columns accepted by List.
var sortFields = []string{"created_at", "action", "actor", "subject"}

// Repository stores the audit trail with GORM. It implements
// domain.ActivityRepository.
type Repository struct {
	db *gorm.DB
}

var _ domain.ActivityRepository = (*Repository)(nil)

// NewRepository returns a Repository backed by db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, a *domain.Activity) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return dbError(err)
	}
	return nil
}

// ListRecent returns the newest limit entries, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]domain.Activity, error) {
	var out []domain.Activity
	err := r.db.WithContext(ctx).
		Order("created_at desc").Order("id desc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, dbError(err)
	}
	return out, nil
}

// List returns one page of entries. A search term matches action, actor or
// subject by substring.
func (r *Repository) List(ctx context.Context, p listquery.Params) (listquery.Result[domain.Activity], error) {
	query := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&domain.Activity{})
		if p.Search != "" {
			like := "%" + p.Search + "%"
			q = q.Where("action LIKE ? OR actor LIKE ? OR subject LIKE ?", like, like, like)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return listquery.Result[domain.Activity]{}, dbError(err)
	}

	var items []domain.Activity
	err := query().
		Scopes(pkg.Sort(p, sortFields), byIDDesc, pkg.Paginate(p)).
		Find(&items).Error
	if err != nil {
		return listquery.Result[domain.Activity]{}, dbError(err)
	}
	return pkg.NewResult(items, total, p), nil
}

// byIDDesc breaks ties left by the requested sort. It must be a scope:
// scopes run when Find does, so a plain Order here would come first.
func byIDDesc(db *gorm.DB) *gorm.DB {
	return db.Order("id desc")
}

// Prune keeps the newest keep entries and deletes the rest in one
// transaction. keep <= 0 disables pruning.
func (r *Repository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	var deleted int64
	err := pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		var total int64
		if err := tx.Model(&domain.Activity{}).Count(&total).Error; err != nil {
			return err
		}
		excess := total - int64(keep)
		if excess <= 0 {
			return nil
		}

		var ids []string
		if err := tx.Model(&domain.Activity{}).
			Order("created_at asc").Order("id asc").
			Limit(int(excess)).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&domain.Activity{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, dbError(err)
	}
	return deleted, nil
}

func dbError(err error) error {
	return domain.NewAppError(domain.CodeInternal, "database error", err)
}
