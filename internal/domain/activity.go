package domain

import (
	"context"
	"time"
)

// Activity actions.
const (
	ActionLogin         = "login"
	ActionMarkDelivered = "mark_delivered"
	ActionGenerateCodes = "generate_codes"
	ActionUpdatePrize   = "update_prize"
)

// Activity is one entry of the local admin audit trail.
type Activity struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Action    string    `gorm:"size:50;not null;index" json:"action"`
	Subject   string    `gorm:"size:255" json:"subject"`
	Actor     string    `gorm:"size:255" json:"actor"`
	Detail    string    `gorm:"size:1000" json:"detail"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// ActivityRepository defines storage for the audit trail.
type ActivityRepository interface {
	Create(ctx context.Context, a *Activity) error
	ListRecent(ctx context.Context, limit int) ([]Activity, error)
	// Prune deletes everything but the newest keep entries and returns the
	// number of deleted rows.
	Prune(ctx context.Context, keep int) (int64, error)
}

// ActivityRecorder appends to the audit trail. Implementations must not fail
// the caller: storage problems are theirs to log.
type ActivityRecorder interface {
	Record(ctx context.Context, action, subject, actor, detail string)
}
