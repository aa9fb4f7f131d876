package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/antirek/chat3-counters/internal/repository"
)

// Service is the counter engine: one clamped atomic mutator per aggregate
// kind, each registering its transition in the tracker under the causing
// event, plus read-repair backed readers.
type Service struct {
	store   Repository
	tracker *Tracker
	recalc  *Recalculator
	timeout time.Duration
	logger  *slog.Logger
}

// NewService creates a new stats service. timeout bounds each store call;
// zero means no bound.
func NewService(store Repository, tracker *Tracker, recalc *Recalculator, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		tracker: tracker,
		recalc:  recalc,
		timeout: timeout,
		logger:  logger,
	}
}

// UserKey builds the counter context key for a user-scoped subject.
func UserKey(tenantID, userID string, src Source) Key {
	return Key{TenantID: tenantID, SubjectType: SubjectUser, SubjectID: userID, SourceEventID: src.EventID}
}

// DialogKey builds the counter context key for a dialog-scoped subject.
func DialogKey(tenantID, dialogID string, src Source) Key {
	return Key{TenantID: tenantID, SubjectType: SubjectDialog, SubjectID: dialogID, SourceEventID: src.EventID}
}

// PackKey builds the counter context key for a pack-scoped subject.
func PackKey(tenantID, packID string, src Source) Key {
	return Key{TenantID: tenantID, SubjectType: SubjectPack, SubjectID: packID, SourceEventID: src.EventID}
}

// Finalize closes the counter context for key, emitting at most one
// coalesced summary event. Safe to call from defer on every exit path.
func (s *Service) Finalize(ctx context.Context, key Key) {
	s.tracker.Finalize(ctx, key)
}

func (s *Service) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// ApplyUserDelta applies a clamped delta to one user-global counter.
func (s *Service) ApplyUserDelta(ctx context.Context, tenantID, userID, field string, delta int64, src Source) (int64, int64, error) {
	cctx, cancel := s.bounded(ctx)
	defer cancel()
	before, after, err := s.store.ApplyUserDelta(cctx, tenantID, userID, field, delta)
	if err != nil {
		return 0, 0, fmt.Errorf("applying user delta: %w", err)
	}
	s.tracker.Record(UserKey(tenantID, userID, src), src.EventType, Delta{Kind: KindUser, Field: field, Before: before, After: after})
	return before, after, nil
}

// ApplyUserDialogUnread applies a clamped delta to the per-(user, dialog)
// unread counter and cascades the user-global aggregates: the applied
// amount onto totalUnreadCount and, on a zero-crossing, ±1 onto
// unreadDialogsCount. The cascades are best-effort — a failure there is
// logged and left to recalculation, it never fails the primary mutation.
func (s *Service) ApplyUserDialogUnread(ctx context.Context, tenantID, userID, dialogID string, delta int64, src Source) (int64, int64, error) {
	cctx, cancel := s.bounded(ctx)
	defer cancel()
	before, after, err := s.store.ApplyUserDialogDelta(cctx, tenantID, userID, dialogID, FieldUnreadCount, delta)
	if err != nil {
		return 0, 0, fmt.Errorf("applying user dialog unread delta: %w", err)
	}
	s.tracker.Record(UserKey(tenantID, userID, src), src.EventType, Delta{Kind: KindUserDialog, Field: FieldUnreadCount, Before: before, After: after})

	// The clamp may have absorbed part of the delta; cascade only what was
	// actually applied.
	if applied := after - before; applied != 0 {
		if _, _, err := s.ApplyUserDelta(ctx, tenantID, userID, FieldTotalUnreadCount, applied, src); err != nil {
			s.logger.Warn("total unread cascade failed", "tenant", tenantID, "user", userID, "dialog", dialogID, "error", err)
		}
	}
	switch {
	case before == 0 && after > 0:
		if _, _, err := s.ApplyUserDelta(ctx, tenantID, userID, FieldUnreadDialogsCount, 1, src); err != nil {
			s.logger.Warn("unread dialogs cascade failed", "tenant", tenantID, "user", userID, "dialog", dialogID, "error", err)
		}
	case before > 0 && after == 0:
		if _, _, err := s.ApplyUserDelta(ctx, tenantID, userID, FieldUnreadDialogsCount, -1, src); err != nil {
			s.logger.Warn("unread dialogs cascade failed", "tenant", tenantID, "user", userID, "dialog", dialogID, "error", err)
		}
	}
	return before, after, nil
}

// ApplyDialogDelta applies a clamped delta to one dialog-global counter.
func (s *Service) ApplyDialogDelta(ctx context.Context, tenantID, dialogID, field string, delta int64, src Source) (int64, int64, error) {
	cctx, cancel := s.bounded(ctx)
	defer cancel()
	before, after, err := s.store.ApplyDialogDelta(cctx, tenantID, dialogID, field, delta)
	if err != nil {
		return 0, 0, fmt.Errorf("applying dialog delta: %w", err)
	}
	s.tracker.Record(DialogKey(tenantID, dialogID, src), src.EventType, Delta{Kind: KindDialog, Field: field, Before: before, After: after})
	return before, after, nil
}

// ApplyUserTopicUnread applies a clamped delta to the per-(user, topic)
// unread counter.
func (s *Service) ApplyUserTopicUnread(ctx context.Context, tenantID, userID, dialogID, topicID string, delta int64, src Source) (int64, int64, error) {
	cctx, cancel := s.bounded(ctx)
	defer cancel()
	before, after, err := s.store.ApplyUserTopicDelta(cctx, tenantID, userID, dialogID, topicID, FieldUnreadCount, delta)
	if err != nil {
		return 0, 0, fmt.Errorf("applying user topic unread delta: %w", err)
	}
	s.tracker.Record(UserKey(tenantID, userID, src), src.EventType, Delta{Kind: KindUserTopic, Field: FieldUnreadCount, Before: before, After: after})
	return before, after, nil
}

// ApplyPackDelta applies a clamped delta to one pack-global counter.
func (s *Service) ApplyPackDelta(ctx context.Context, tenantID, packID, field string, delta int64, src Source) (int64, int64, error) {
	cctx, cancel := s.bounded(ctx)
	defer cancel()
	before, after, err := s.store.ApplyPackDelta(cctx, tenantID, packID, field, delta)
	if err != nil {
		return 0, 0, fmt.Errorf("applying pack delta: %w", err)
	}
	s.tracker.Record(PackKey(tenantID, packID, src), src.EventType, Delta{Kind: KindPack, Field: field, Before: before, After: after})
	return before, after, nil
}

// ApplyUserPackUnread applies a clamped delta to the per-(user, pack)
// unread counter.
func (s *Service) ApplyUserPackUnread(ctx context.Context, tenantID, userID, packID string, delta int64, src Source) (int64, int64, error) {
	cctx, cancel := s.bounded(ctx)
	defer cancel()
	before, after, err := s.store.ApplyUserPackDelta(cctx, tenantID, userID, packID, FieldUnreadCount, delta)
	if err != nil {
		return 0, 0, fmt.Errorf("applying user pack unread delta: %w", err)
	}
	s.tracker.Record(UserKey(tenantID, userID, src), src.EventType, Delta{Kind: KindUserPack, Field: FieldUnreadCount, Before: before, After: after})
	return before, after, nil
}

// GetUser returns the user-global aggregate, recalculating it from
// canonical data when the store has no record.
func (s *Service) GetUser(ctx context.Context, tenantID, userID string) (*UserStats, error) {
	rec, err := s.store.GetUser(ctx, tenantID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return s.recalc.User(ctx, tenantID, userID)
	}
	return rec, err
}

// GetUserDialog returns the per-(user, dialog) aggregate with read-repair.
func (s *Service) GetUserDialog(ctx context.Context, tenantID, userID, dialogID string) (*UserDialogStats, error) {
	rec, err := s.store.GetUserDialog(ctx, tenantID, userID, dialogID)
	if errors.Is(err, repository.ErrNotFound) {
		return s.recalc.UserDialog(ctx, tenantID, userID, dialogID)
	}
	return rec, err
}

// GetDialog returns the dialog-global aggregate with read-repair.
func (s *Service) GetDialog(ctx context.Context, tenantID, dialogID string) (*DialogStats, error) {
	rec, err := s.store.GetDialog(ctx, tenantID, dialogID)
	if errors.Is(err, repository.ErrNotFound) {
		return s.recalc.Dialog(ctx, tenantID, dialogID)
	}
	return rec, err
}

// GetUserTopic returns the per-(user, topic) aggregate with read-repair.
func (s *Service) GetUserTopic(ctx context.Context, tenantID, userID, dialogID, topicID string) (*UserTopicStats, error) {
	rec, err := s.store.GetUserTopic(ctx, tenantID, userID, dialogID, topicID)
	if errors.Is(err, repository.ErrNotFound) {
		return s.recalc.UserTopic(ctx, tenantID, userID, dialogID, topicID)
	}
	return rec, err
}

// GetPack returns the pack-global aggregate with read-repair.
func (s *Service) GetPack(ctx context.Context, tenantID, packID string) (*PackStats, error) {
	rec, err := s.store.GetPack(ctx, tenantID, packID)
	if errors.Is(err, repository.ErrNotFound) {
		return s.recalc.Pack(ctx, tenantID, packID)
	}
	return rec, err
}

// GetUserPack returns the per-(user, pack) aggregate with read-repair.
func (s *Service) GetUserPack(ctx context.Context, tenantID, userID, packID string) (*UserPackStats, error) {
	rec, err := s.store.GetUserPack(ctx, tenantID, userID, packID)
	if errors.Is(err, repository.ErrNotFound) {
		return s.recalc.UserPack(ctx, tenantID, userID, packID)
	}
	return rec, err
}

// PurgeDialog removes every aggregate scoped to a deleted dialog.
func (s *Service) PurgeDialog(ctx context.Context, tenantID, dialogID string) error {
	return s.store.PurgeDialog(ctx, tenantID, dialogID)
}

// PurgePack removes every aggregate scoped to a deleted pack.
func (s *Service) PurgePack(ctx context.Context, tenantID, packID string) error {
	return s.store.PurgePack(ctx, tenantID, packID)
}

// PurgeUserDialog removes the per-(user, dialog) aggregate of a removed
// membership.
func (s *Service) PurgeUserDialog(ctx context.Context, tenantID, userID, dialogID string) error {
	return s.store.PurgeUserDialog(ctx, tenantID, userID, dialogID)
}

// PurgeUserTopics removes a user's per-topic aggregates across one dialog.
func (s *Service) PurgeUserTopics(ctx context.Context, tenantID, userID, dialogID string) error {
	return s.store.PurgeUserTopics(ctx, tenantID, userID, dialogID)
}
