package activity

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/simp-lee/qrpromo/internal/domain"
	"github.com/simp-lee/qrpromo/internal/listquery"
)

// Store is the storage the service needs.
type Store interface {
	domain.ActivityRepository
	List(ctx context.Context, p listquery.Params) (listquery.Result[domain.Activity], error)
}

// Service records and lists admin actions.
type Service struct {
	store  Store
	retain int
	logger *slog.Logger
	now    func() time.Time
}

// NewService returns a Service that keeps at most retain entries (0 keeps
// everything).
func NewService(store Store, retain int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, retain: retain, logger: logger, now: time.Now}
}

// Record logs an admin action and appends it to the audit trail, then
// enforces the retention cap. Storage failures are logged and swallowed so
// the action itself never fails because of its audit entry.
func (s *Service) Record(ctx context.Context, action, subject, actor, detail string) {
	s.logger.InfoContext(ctx, "admin action",
		slog.String("action", action),
		slog.String("subject", subject),
		slog.String("actor", actor),
	)

	a := &domain.Activity{
		ID:        newID(),
		Action:    action,
		Subject:   truncate(subject, 255),
		Actor:     truncate(actor, 255),
		Detail:    truncate(detail, 1000),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, a); err != nil {
		s.logger.WarnContext(ctx, "record activity failed", slog.String("action", action), slog.Any("error", err))
		return
	}

	deleted, err := s.store.Prune(ctx, s.retain)
	if err != nil {
		s.logger.WarnContext(ctx, "prune activity failed", slog.Any("error", err))
		return
	}
	if deleted > 0 {
		s.logger.DebugContext(ctx, "activity pruned", slog.Int64("deleted", deleted), slog.Int("retain", s.retain))
	}
}

// Recent returns the newest limit entries.
func (s *Service) Recent(ctx context.Context, limit int) ([]domain.Activity, error) {
	if limit < 1 {
		return []domain.Activity{}, nil
	}
	return s.store.ListRecent(ctx, limit)
}

// List returns one page of the audit trail.
func (s *Service) List(ctx context.Context, p listquery.Params) (listquery.Result[domain.Activity], error) {
	return s.store.List(ctx, p)
}

// newID returns a time-ordered UUID so ids sort with creation time.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// truncate cuts s to at most max bytes on a rune boundary.
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := 0
	for i := range s {
		if i > max {
			break
		}
		cut = i
	}
	return s[:cut]
}
