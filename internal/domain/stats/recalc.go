package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Recalculator derives an aggregate purely from canonical rows and
// materializes it with an upsert. It is the read-repair fallback: invoked
// when an aggregate record is missing, or explicitly to heal drift. It
// neither reads other aggregates nor touches the event log, so concurrent
// recalculations of the same scope converge on the same record.
type Recalculator struct {
	store  Repository
	canon  CanonicalSource
	logger *slog.Logger
}

// NewRecalculator creates a new recalculator.
func NewRecalculator(store Repository, canon CanonicalSource, logger *slog.Logger) *Recalculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recalculator{store: store, canon: canon, logger: logger}
}

// User rebuilds the user-global aggregate.
func (r *Recalculator) User(ctx context.Context, tenantID, userID string) (*UserStats, error) {
	dialogCount, err := r.canon.CountMemberships(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("counting memberships: %w", err)
	}
	totalUnread, err := r.canon.CountUnreadTotal(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("counting unread total: %w", err)
	}
	unreadDialogs, err := r.canon.CountUnreadDialogs(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("counting unread dialogs: %w", err)
	}

	rec := &UserStats{
		TenantID:           tenantID,
		UserID:             userID,
		DialogCount:        dialogCount,
		TotalUnreadCount:   totalUnread,
		UnreadDialogsCount: unreadDialogs,
		UpdatedAt:          time.Now().UTC(),
	}
	if err := r.store.PutUser(ctx, rec); err != nil {
		return nil, fmt.Errorf("materializing user stats: %w", err)
	}
	r.logger.Debug("recalculated user stats", "tenant", tenantID, "user", userID)
	return rec, nil
}

// UserDialog rebuilds the per-(user, dialog) aggregate.
func (r *Recalculator) UserDialog(ctx context.Context, tenantID, userID, dialogID string) (*UserDialogStats, error) {
	unread, err := r.canon.CountUnread(ctx, tenantID, userID, dialogID)
	if err != nil {
		return nil, fmt.Errorf("counting unread: %w", err)
	}

	rec := &UserDialogStats{
		TenantID:    tenantID,
		UserID:      userID,
		DialogID:    dialogID,
		UnreadCount: unread,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := r.store.PutUserDialog(ctx, rec); err != nil {
		return nil, fmt.Errorf("materializing user dialog stats: %w", err)
	}
	return rec, nil
}

// Dialog rebuilds the dialog-global aggregate.
func (r *Recalculator) Dialog(ctx context.Context, tenantID, dialogID string) (*DialogStats, error) {
	members, err := r.canon.CountMembers(ctx, tenantID, dialogID)
	if err != nil {
		return nil, fmt.Errorf("counting members: %w", err)
	}
	messages, err := r.canon.CountMessages(ctx, tenantID, dialogID)
	if err != nil {
		return nil, fmt.Errorf("counting messages: %w", err)
	}
	topics, err := r.canon.CountTopics(ctx, tenantID, dialogID)
	if err != nil {
		return nil, fmt.Errorf("counting topics: %w", err)
	}

	rec := &DialogStats{
		TenantID:     tenantID,
		DialogID:     dialogID,
		MemberCount:  members,
		MessageCount: messages,
		TopicCount:   topics,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := r.store.PutDialog(ctx, rec); err != nil {
		return nil, fmt.Errorf("materializing dialog stats: %w", err)
	}
	return rec, nil
}

// UserTopic rebuilds the per-(user, topic) aggregate.
func (r *Recalculator) UserTopic(ctx context.Context, tenantID, userID, dialogID, topicID string) (*UserTopicStats, error) {
	unread, err := r.canon.CountUnreadInTopic(ctx, tenantID, userID, dialogID, topicID)
	if err != nil {
		return nil, fmt.Errorf("counting topic unread: %w", err)
	}

	rec := &UserTopicStats{
		TenantID:    tenantID,
		UserID:      userID,
		DialogID:    dialogID,
		TopicID:     topicID,
		UnreadCount: unread,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := r.store.PutUserTopic(ctx, rec); err != nil {
		return nil, fmt.Errorf("materializing user topic stats: %w", err)
	}
	return rec, nil
}

// Pack rebuilds the pack-global aggregate.
func (r *Recalculator) Pack(ctx context.Context, tenantID, packID string) (*PackStats, error) {
	dialogs, err := r.canon.CountPackDialogs(ctx, tenantID, packID)
	if err != nil {
		return nil, fmt.Errorf("counting pack dialogs: %w", err)
	}

	rec := &PackStats{
		TenantID:    tenantID,
		PackID:      packID,
		DialogCount: dialogs,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := r.store.PutPack(ctx, rec); err != nil {
		return nil, fmt.Errorf("materializing pack stats: %w", err)
	}
	return rec, nil
}

// UserPack rebuilds the per-(user, pack) aggregate.
func (r *Recalculator) UserPack(ctx context.Context, tenantID, userID, packID string) (*UserPackStats, error) {
	unread, err := r.canon.CountUnreadInPack(ctx, tenantID, userID, packID)
	if err != nil {
		return nil, fmt.Errorf("counting pack unread: %w", err)
	}

	rec := &UserPackStats{
		TenantID:    tenantID,
		UserID:      userID,
		PackID:      packID,
		UnreadCount: unread,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := r.store.PutUserPack(ctx, rec); err != nil {
		return nil, fmt.Errorf("materializing user pack stats: %w", err)
	}
	return rec, nil
}
