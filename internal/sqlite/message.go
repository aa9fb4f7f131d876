package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/antirek/chat3-counters/internal/domain/message"
	"github.com/antirek/chat3-counters/internal/repository"
)

// MessageRepository implements message.Repository for SQLite
type MessageRepository struct {
	db *DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a new message
func (r *MessageRepository) Create(ctx context.Context, tenantID string, msg *message.Message) error {
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, tenant_id, dialog_id, topic_id, sender_id, body, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, tenantID, msg.DialogID, msg.TopicID, msg.SenderID, msg.Body, createdAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	msg.TenantID = tenantID
	msg.CreatedAt = createdAt
	return nil
}

// Get returns a message by id
func (r *MessageRepository) Get(ctx context.Context, tenantID, id string) (*message.Message, error) {
	msg := &message.Message{}
	var topicID sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, dialog_id, topic_id, sender_id, body, created_at
		 FROM messages WHERE tenant_id = ? AND id = ?`,
		tenantID, id,
	).Scan(&msg.ID, &msg.TenantID, &msg.DialogID, &topicID, &msg.SenderID, &msg.Body, &msg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	if topicID.Valid {
		msg.TopicID = &topicID.String
	}
	return msg, nil
}

// AddStatus inserts one recipient's delivery row
func (r *MessageRepository) AddStatus(ctx context.Context, tenantID string, st *message.Status) error {
	createdAt := st.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO message_statuses (tenant_id, message_id, user_id, dialog_id, topic_id, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tenantID, st.MessageID, st.UserID, st.DialogID, st.TopicID, boolToInt(st.IsRead), createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to add status: %w", err)
	}
	st.TenantID = tenantID
	st.CreatedAt = createdAt
	return nil
}

// MarkRead flips every unread status of (user, dialog), narrowed to one
// topic when topicID is set, and returns how many rows flipped
func (r *MessageRepository) MarkRead(ctx context.Context, tenantID, userID, dialogID string, topicID *string) (int64, error) {
	query := `
		UPDATE message_statuses SET is_read = 1, read_at = ?
		WHERE tenant_id = ? AND user_id = ? AND dialog_id = ? AND is_read = 0
	`
	args := []interface{}{time.Now().UTC(), tenantID, userID, dialogID}
	if topicID != nil {
		query += " AND topic_id = ?"
		args = append(args, *topicID)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark read: %w", err)
	}
	flipped, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count flipped statuses: %w", err)
	}
	return flipped, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
