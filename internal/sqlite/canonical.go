package sqlite

import (
	"context"
	"fmt"
)

// CanonicalRepository implements stats.CanonicalSource: the ground-truth
// count queries the recalculation path derives aggregates from. It reads
// canonical rows only, never the aggregate tables.
type CanonicalRepository struct {
	db *DB
}

// NewCanonicalRepository creates a new CanonicalRepository
func NewCanonicalRepository(db *DB) *CanonicalRepository {
	return &CanonicalRepository{db: db}
}

func (r *CanonicalRepository) count(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count canonical rows: %w", err)
	}
	return n, nil
}

// CountMembers returns the number of live memberships of a dialog
func (r *CanonicalRepository) CountMembers(ctx context.Context, tenantID, dialogID string) (int64, error) {
	return r.count(ctx,
		`SELECT COUNT(*) FROM dialog_members WHERE tenant_id = ? AND dialog_id = ?`,
		tenantID, dialogID)
}

// CountMessages returns the number of messages in a dialog
func (r *CanonicalRepository) CountMessages(ctx context.Context, tenantID, dialogID string) (int64, error) {
	return r.count(ctx,
		`SELECT COUNT(*) FROM messages WHERE tenant_id = ? AND dialog_id = ?`,
		tenantID, dialogID)
}

// CountTopics returns the number of topics in a dialog
func (r *CanonicalRepository) CountTopics(ctx context.Context, tenantID, dialogID string) (int64, error) {
	return r.count(ctx,
		`SELECT COUNT(*) FROM topics WHERE tenant_id = ? AND dialog_id = ?`,
		tenantID, dialogID)
}

// CountMemberships returns the number of dialogs a user belongs to
func (r *CanonicalRepository) CountMemberships(ctx context.Context, tenantID, userID string) (int64, error) {
	return r.count(ctx,
		`SELECT COUNT(*) FROM dialog_members WHERE tenant_id = ? AND user_id = ?`,
		tenantID, userID)
}

// CountUnread returns a user's unread message count in one dialog
func (r *CanonicalRepository) CountUnread(ctx context.Context, tenantID, userID, dialogID string) (int64, error) {
	return r.count(ctx,
		`SELECT COUNT(*) FROM message_statuses
		 WHERE tenant_id = ? AND user_id = ? AND dialog_id = ? AND is_read = 0`,
		tenantID, userID, dialogID)
}

// CountUnreadTotal returns a user's unread message count across dialogs
func (r *CanonicalRepository) CountUnreadTotal(ctx context.Context, tenantID, userID string) (int64, error) {
	return r.count(ctx,
		`SELECT COUNT(*) FROM message_statuses
		 WHERE tenant_id = ? AND user_id = ? AND is_read = 0`,
		tenantID, userID)
}

// CountUnreadDialogs returns how many dialogs hold unread messages for a user
func (r *CanonicalRepository) CountUnreadDialogs(ctx context.Context, tenantID, userID string) (int64, error) {
	return r.count(ctx,
		`SELECT COUNT(DISTINCT dialog_id) FROM message_statuses
		 WHERE tenant_id = ? AND user_id = ? AND is_read = 0`,
		tenantID, userID)
}

// CountUnreadInTopic returns a user's unread message count in one topic
func (r *CanonicalRepository) CountUnreadInTopic(ctx context.Context, tenantID, userID, dialogID, topicID string) (int64, error) {
	return r.count(ctx,
		`SELECT COUNT(*) FROM message_statuses
		 WHERE tenant_id = ? AND user_id = ? AND dialog_id = ? AND topic_id = ? AND is_read = 0`,
		tenantID, userID, dialogID, topicID)
}

// CountPackDialogs returns the number of dialogs linked into a pack
func (r *CanonicalRepository) CountPackDialogs(ctx context.Context, tenantID, packID string) (int64, error) {
	return r.count(ctx,
		`SELECT COUNT(*) FROM pack_dialogs WHERE tenant_id = ? AND pack_id = ?`,
		tenantID, packID)
}

// CountUnreadInPack returns a user's unread message count across the
// dialogs of one pack
func (r *CanonicalRepository) CountUnreadInPack(ctx context.Context, tenantID, userID, packID string) (int64, error) {
	return r.count(ctx,
		`SELECT COUNT(*) FROM message_statuses ms
		 JOIN pack_dialogs pd ON pd.tenant_id = ms.tenant_id AND pd.dialog_id = ms.dialog_id
		 WHERE ms.tenant_id = ? AND ms.user_id = ? AND pd.pack_id = ? AND ms.is_read = 0`,
		tenantID, userID, packID)
}
