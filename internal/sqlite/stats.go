package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/antirek/chat3-counters/internal/domain/stats"
	"github.com/antirek/chat3-counters/internal/repository"
)

// StatsRepository implements stats.Repository for SQLite
type StatsRepository struct {
	db *DB
}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(db *DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// counterColumns whitelists the counter column behind each exposed field
// name, per table.
var counterColumns = map[string]map[string]string{
	"user_stats": {
		stats.FieldDialogCount:        "dialog_count",
		stats.FieldTotalUnreadCount:   "total_unread_count",
		stats.FieldUnreadDialogsCount: "unread_dialogs_count",
	},
	"user_dialog_stats": {
		stats.FieldUnreadCount: "unread_count",
	},
	"dialog_stats": {
		stats.FieldMemberCount:  "member_count",
		stats.FieldMessageCount: "message_count",
		stats.FieldTopicCount:   "topic_count",
	},
	"user_topic_stats": {
		stats.FieldUnreadCount: "unread_count",
	},
	"pack_stats": {
		stats.FieldDialogCount: "dialog_count",
	},
	"user_pack_stats": {
		stats.FieldUnreadCount: "unread_count",
	},
}

// applyDelta is the atomic read-clamp-upsert step every mutator rides on.
// The row is created at zero when absent and the counter never goes below
// zero, which makes decrement double-delivery safe.
func (r *StatsRepository) applyDelta(ctx context.Context, table, field string, keyCols []string, keyVals []interface{}, delta int64) (int64, int64, error) {
	column, ok := counterColumns[table][field]
	if !ok {
		return 0, 0, fmt.Errorf("unknown counter %s.%s", table, field)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin delta transaction: %w", err)
	}
	defer tx.Rollback()

	where := joinConditions(eqConditions(keyCols))

	var before int64
	exists := true
	selectQuery := fmt.Sprintf("SELECT %s FROM %s WHERE %s", column, table, where)
	err = tx.QueryRowContext(ctx, selectQuery, keyVals...).Scan(&before)
	if errors.Is(err, sql.ErrNoRows) {
		before = 0
		exists = false
	} else if err != nil {
		return 0, 0, fmt.Errorf("failed to read counter: %w", err)
	}

	after := before + delta
	if after < 0 {
		after = 0
	}

	now := time.Now().UTC()
	if exists {
		updateQuery := fmt.Sprintf("UPDATE %s SET %s = ?, updated_at = ? WHERE %s", table, column, where)
		args := append([]interface{}{after, now}, keyVals...)
		if _, err := tx.ExecContext(ctx, updateQuery, args...); err != nil {
			return 0, 0, fmt.Errorf("failed to update counter: %w", err)
		}
	} else {
		insertQuery := fmt.Sprintf("INSERT INTO %s (%s, %s, updated_at) VALUES (%s?, ?)",
			table, joinColumns(keyCols), column, placeholders(len(keyCols)))
		args := append(append([]interface{}{}, keyVals...), after, now)
		if _, err := tx.ExecContext(ctx, insertQuery, args...); err != nil {
			return 0, 0, fmt.Errorf("failed to create counter: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit delta: %w", err)
	}

	return before, after, nil
}

func eqConditions(cols []string) []string {
	conditions := make([]string, len(cols))
	for i, col := range cols {
		conditions[i] = col + " = ?"
	}
	return conditions
}

func joinColumns(cols []string) string {
	joined := cols[0]
	for i := 1; i < len(cols); i++ {
		joined += ", " + cols[i]
	}
	return joined
}

func placeholders(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += "?, "
	}
	return out
}

// ApplyUserDelta applies a clamped delta to one user-global counter
func (r *StatsRepository) ApplyUserDelta(ctx context.Context, tenantID, userID, field string, delta int64) (int64, int64, error) {
	return r.applyDelta(ctx, "user_stats", field,
		[]string{"tenant_id", "user_id"},
		[]interface{}{tenantID, userID}, delta)
}

// ApplyUserDialogDelta applies a clamped delta to one (user, dialog) counter
func (r *StatsRepository) ApplyUserDialogDelta(ctx context.Context, tenantID, userID, dialogID, field string, delta int64) (int64, int64, error) {
	return r.applyDelta(ctx, "user_dialog_stats", field,
		[]string{"tenant_id", "user_id", "dialog_id"},
		[]interface{}{tenantID, userID, dialogID}, delta)
}

// ApplyDialogDelta applies a clamped delta to one dialog-global counter
func (r *StatsRepository) ApplyDialogDelta(ctx context.Context, tenantID, dialogID, field string, delta int64) (int64, int64, error) {
	return r.applyDelta(ctx, "dialog_stats", field,
		[]string{"tenant_id", "dialog_id"},
		[]interface{}{tenantID, dialogID}, delta)
}

// ApplyUserTopicDelta applies a clamped delta to one (user, topic) counter
func (r *StatsRepository) ApplyUserTopicDelta(ctx context.Context, tenantID, userID, dialogID, topicID, field string, delta int64) (int64, int64, error) {
	return r.applyDelta(ctx, "user_topic_stats", field,
		[]string{"tenant_id", "user_id", "dialog_id", "topic_id"},
		[]interface{}{tenantID, userID, dialogID, topicID}, delta)
}

// ApplyPackDelta applies a clamped delta to one pack-global counter
func (r *StatsRepository) ApplyPackDelta(ctx context.Context, tenantID, packID, field string, delta int64) (int64, int64, error) {
	return r.applyDelta(ctx, "pack_stats", field,
		[]string{"tenant_id", "pack_id"},
		[]interface{}{tenantID, packID}, delta)
}

// ApplyUserPackDelta applies a clamped delta to one (user, pack) counter
func (r *StatsRepository) ApplyUserPackDelta(ctx context.Context, tenantID, userID, packID, field string, delta int64) (int64, int64, error) {
	return r.applyDelta(ctx, "user_pack_stats", field,
		[]string{"tenant_id", "user_id", "pack_id"},
		[]interface{}{tenantID, userID, packID}, delta)
}

// GetUser returns the user-global aggregate
func (r *StatsRepository) GetUser(ctx context.Context, tenantID, userID string) (*stats.UserStats, error) {
	rec := &stats.UserStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, user_id, dialog_count, total_unread_count, unread_dialogs_count, updated_at
		FROM user_stats WHERE tenant_id = ? AND user_id = ?`,
		tenantID, userID,
	).Scan(&rec.TenantID, &rec.UserID, &rec.DialogCount, &rec.TotalUnreadCount, &rec.UnreadDialogsCount, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return rec, nil
}

// PutUser upserts the user-global aggregate
func (r *StatsRepository) PutUser(ctx context.Context, rec *stats.UserStats) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_stats (tenant_id, user_id, dialog_count, total_unread_count, unread_dialogs_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, user_id) DO UPDATE SET
			dialog_count = excluded.dialog_count,
			total_unread_count = excluded.total_unread_count,
			unread_dialogs_count = excluded.unread_dialogs_count,
			updated_at = excluded.updated_at`,
		rec.TenantID, rec.UserID, rec.DialogCount, rec.TotalUnreadCount, rec.UnreadDialogsCount, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to put user stats: %w", err)
	}
	return nil
}

// GetUserDialog returns the per-(user, dialog) aggregate
func (r *StatsRepository) GetUserDialog(ctx context.Context, tenantID, userID, dialogID string) (*stats.UserDialogStats, error) {
	rec := &stats.UserDialogStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, user_id, dialog_id, unread_count, updated_at
		FROM user_dialog_stats WHERE tenant_id = ? AND user_id = ? AND dialog_id = ?`,
		tenantID, userID, dialogID,
	).Scan(&rec.TenantID, &rec.UserID, &rec.DialogID, &rec.UnreadCount, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user dialog stats: %w", err)
	}
	return rec, nil
}

// PutUserDialog upserts the per-(user, dialog) aggregate
func (r *StatsRepository) PutUserDialog(ctx context.Context, rec *stats.UserDialogStats) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_dialog_stats (tenant_id, user_id, dialog_id, unread_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, user_id, dialog_id) DO UPDATE SET
			unread_count = excluded.unread_count,
			updated_at = excluded.updated_at`,
		rec.TenantID, rec.UserID, rec.DialogID, rec.UnreadCount, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to put user dialog stats: %w", err)
	}
	return nil
}

// GetDialog returns the dialog-global aggregate
func (r *StatsRepository) GetDialog(ctx context.Context, tenantID, dialogID string) (*stats.DialogStats, error) {
	rec := &stats.DialogStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, dialog_id, member_count, message_count, topic_count, updated_at
		FROM dialog_stats WHERE tenant_id = ? AND dialog_id = ?`,
		tenantID, dialogID,
	).Scan(&rec.TenantID, &rec.DialogID, &rec.MemberCount, &rec.MessageCount, &rec.TopicCount, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dialog stats: %w", err)
	}
	return rec, nil
}

// PutDialog upserts the dialog-global aggregate
func (r *StatsRepository) PutDialog(ctx context.Context, rec *stats.DialogStats) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dialog_stats (tenant_id, dialog_id, member_count, message_count, topic_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, dialog_id) DO UPDATE SET
			member_count = excluded.member_count,
			message_count = excluded.message_count,
			topic_count = excluded.topic_count,
			updated_at = excluded.updated_at`,
		rec.TenantID, rec.DialogID, rec.MemberCount, rec.MessageCount, rec.TopicCount, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to put dialog stats: %w", err)
	}
	return nil
}

// GetUserTopic returns the per-(user, topic) aggregate
func (r *StatsRepository) GetUserTopic(ctx context.Context, tenantID, userID, dialogID, topicID string) (*stats.UserTopicStats, error) {
	rec := &stats.UserTopicStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, user_id, dialog_id, topic_id, unread_count, updated_at
		FROM user_topic_stats WHERE tenant_id = ? AND user_id = ? AND dialog_id = ? AND topic_id = ?`,
		tenantID, userID, dialogID, topicID,
	).Scan(&rec.TenantID, &rec.UserID, &rec.DialogID, &rec.TopicID, &rec.UnreadCount, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user topic stats: %w", err)
	}
	return rec, nil
}

// PutUserTopic upserts the per-(user, topic) aggregate
func (r *StatsRepository) PutUserTopic(ctx context.Context, rec *stats.UserTopicStats) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_topic_stats (tenant_id, user_id, dialog_id, topic_id, unread_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, user_id, topic_id) DO UPDATE SET
			unread_count = excluded.unread_count,
			updated_at = excluded.updated_at`,
		rec.TenantID, rec.UserID, rec.DialogID, rec.TopicID, rec.UnreadCount, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to put user topic stats: %w", err)
	}
	return nil
}

// GetPack returns the pack-global aggregate
func (r *StatsRepository) GetPack(ctx context.Context, tenantID, packID string) (*stats.PackStats, error) {
	rec := &stats.PackStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, pack_id, dialog_count, updated_at
		FROM pack_stats WHERE tenant_id = ? AND pack_id = ?`,
		tenantID, packID,
	).Scan(&rec.TenantID, &rec.PackID, &rec.DialogCount, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pack stats: %w", err)
	}
	return rec, nil
}

// PutPack upserts the pack-global aggregate
func (r *StatsRepository) PutPack(ctx context.Context, rec *stats.PackStats) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pack_stats (tenant_id, pack_id, dialog_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id, pack_id) DO UPDATE SET
			dialog_count = excluded.dialog_count,
			updated_at = excluded.updated_at`,
		rec.TenantID, rec.PackID, rec.DialogCount, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to put pack stats: %w", err)
	}
	return nil
}

// GetUserPack returns the per-(user, pack) aggregate
func (r *StatsRepository) GetUserPack(ctx context.Context, tenantID, userID, packID string) (*stats.UserPackStats, error) {
	rec := &stats.UserPackStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, user_id, pack_id, unread_count, updated_at
		FROM user_pack_stats WHERE tenant_id = ? AND user_id = ? AND pack_id = ?`,
		tenantID, userID, packID,
	).Scan(&rec.TenantID, &rec.UserID, &rec.PackID, &rec.UnreadCount, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user pack stats: %w", err)
	}
	return rec, nil
}

// PutUserPack upserts the per-(user, pack) aggregate
func (r *StatsRepository) PutUserPack(ctx context.Context, rec *stats.UserPackStats) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_pack_stats (tenant_id, user_id, pack_id, unread_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, user_id, pack_id) DO UPDATE SET
			unread_count = excluded.unread_count,
			updated_at = excluded.updated_at`,
		rec.TenantID, rec.UserID, rec.PackID, rec.UnreadCount, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to put user pack stats: %w", err)
	}
	return nil
}

// PurgeDialog removes every aggregate scoped to a deleted dialog
func (r *StatsRepository) PurgeDialog(ctx context.Context, tenantID, dialogID string) error {
	for _, table := range []string{"user_dialog_stats", "dialog_stats", "user_topic_stats"} {
		query := fmt.Sprintf("DELETE FROM %s WHERE tenant_id = ? AND dialog_id = ?", table)
		if _, err := r.db.ExecContext(ctx, query, tenantID, dialogID); err != nil {
			return fmt.Errorf("failed to purge %s: %w", table, err)
		}
	}
	return nil
}

// PurgePack removes every aggregate scoped to a deleted pack
func (r *StatsRepository) PurgePack(ctx context.Context, tenantID, packID string) error {
	for _, table := range []string{"pack_stats", "user_pack_stats"} {
		query := fmt.Sprintf("DELETE FROM %s WHERE tenant_id = ? AND pack_id = ?", table)
		if _, err := r.db.ExecContext(ctx, query, tenantID, packID); err != nil {
			return fmt.Errorf("failed to purge %s: %w", table, err)
		}
	}
	return nil
}

// PurgeUserDialog removes the per-(user, dialog) aggregates of a removed
// membership
func (r *StatsRepository) PurgeUserDialog(ctx context.Context, tenantID, userID, dialogID string) error {
	for _, table := range []string{"user_dialog_stats", "user_topic_stats"} {
		query := fmt.Sprintf("DELETE FROM %s WHERE tenant_id = ? AND user_id = ? AND dialog_id = ?", table)
		if _, err := r.db.ExecContext(ctx, query, tenantID, userID, dialogID); err != nil {
			return fmt.Errorf("failed to purge %s: %w", table, err)
		}
	}
	return nil
}

// PurgeUserTopics removes a user's per-topic aggregates across one dialog
func (r *StatsRepository) PurgeUserTopics(ctx context.Context, tenantID, userID, dialogID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_topic_stats WHERE tenant_id = ? AND user_id = ? AND dialog_id = ?`,
		tenantID, userID, dialogID)
	if err != nil {
		return fmt.Errorf("failed to purge user_topic_stats: %w", err)
	}
	return nil
}
