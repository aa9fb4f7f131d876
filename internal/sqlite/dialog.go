package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/antirek/chat3-counters/internal/domain/dialog"
	"github.com/antirek/chat3-counters/internal/repository"
)

// DialogRepository implements dialog.Repository for SQLite
type DialogRepository struct {
	db *DB
}

// NewDialogRepository creates a new DialogRepository
func NewDialogRepository(db *DB) *DialogRepository {
	return &DialogRepository{db: db}
}

// Create inserts a new dialog
func (r *DialogRepository) Create(ctx context.Context, tenantID string, d *dialog.Dialog) error {
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO dialogs (id, tenant_id, name, created_at) VALUES (?, ?, ?, ?)`,
		d.ID, tenantID, d.Name, createdAt)
	if err != nil {
		return fmt.Errorf("failed to create dialog: %w", err)
	}
	d.TenantID = tenantID
	d.CreatedAt = createdAt
	return nil
}

// Get returns a dialog by id
func (r *DialogRepository) Get(ctx context.Context, tenantID, id string) (*dialog.Dialog, error) {
	d := &dialog.Dialog{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, created_at FROM dialogs WHERE tenant_id = ? AND id = ?`,
		tenantID, id,
	).Scan(&d.ID, &d.TenantID, &d.Name, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dialog: %w", err)
	}
	return d, nil
}

// Delete removes a dialog and every canonical row scoped to it
func (r *DialogRepository) Delete(ctx context.Context, tenantID, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	statements := []string{
		`DELETE FROM message_statuses WHERE tenant_id = ? AND dialog_id = ?`,
		`DELETE FROM messages WHERE tenant_id = ? AND dialog_id = ?`,
		`DELETE FROM topics WHERE tenant_id = ? AND dialog_id = ?`,
		`DELETE FROM dialog_members WHERE tenant_id = ? AND dialog_id = ?`,
		`DELETE FROM pack_dialogs WHERE tenant_id = ? AND dialog_id = ?`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, tenantID, id); err != nil {
			return fmt.Errorf("failed to delete dialog rows: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM dialogs WHERE tenant_id = ? AND id = ?`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete dialog: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dialog delete: %w", err)
	}
	return nil
}

// AddMember inserts a membership row
func (r *DialogRepository) AddMember(ctx context.Context, tenantID string, m *dialog.Member) error {
	joinedAt := m.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO dialog_members (tenant_id, dialog_id, user_id, role, joined_at) VALUES (?, ?, ?, ?, ?)`,
		tenantID, m.DialogID, m.UserID, m.Role, joinedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to add member: %w", err)
	}
	m.TenantID = tenantID
	m.JoinedAt = joinedAt
	return nil
}

// GetMember returns one membership row
func (r *DialogRepository) GetMember(ctx context.Context, tenantID, dialogID, userID string) (*dialog.Member, error) {
	m := &dialog.Member{}
	err := r.db.QueryRowContext(ctx,
		`SELECT tenant_id, dialog_id, user_id, role, joined_at
		 FROM dialog_members WHERE tenant_id = ? AND dialog_id = ? AND user_id = ?`,
		tenantID, dialogID, userID,
	).Scan(&m.TenantID, &m.DialogID, &m.UserID, &m.Role, &m.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// RemoveMember deletes one membership row along with the member's delivery
// rows in the dialog, so recalculated unread totals no longer count them.
func (r *DialogRepository) RemoveMember(ctx context.Context, tenantID, dialogID, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin remove transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM dialog_members WHERE tenant_id = ? AND dialog_id = ? AND user_id = ?`,
		tenantID, dialogID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read remove result: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM message_statuses WHERE tenant_id = ? AND dialog_id = ? AND user_id = ?`,
		tenantID, dialogID, userID); err != nil {
		return fmt.Errorf("failed to remove member statuses: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit member remove: %w", err)
	}
	return nil
}

// ListMembers returns every membership of a dialog
func (r *DialogRepository) ListMembers(ctx context.Context, tenantID, dialogID string) ([]dialog.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tenant_id, dialog_id, user_id, role, joined_at
		 FROM dialog_members WHERE tenant_id = ? AND dialog_id = ? ORDER BY joined_at, user_id`,
		tenantID, dialogID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []dialog.Member
	for rows.Next() {
		var m dialog.Member
		if err := rows.Scan(&m.TenantID, &m.DialogID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}
	return members, nil
}

// ListMemberIDs returns the user ids of every dialog member
func (r *DialogRepository) ListMemberIDs(ctx context.Context, tenantID, dialogID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM dialog_members WHERE tenant_id = ? AND dialog_id = ? ORDER BY user_id`,
		tenantID, dialogID)
	if err != nil {
		return nil, fmt.Errorf("failed to list member ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member id rows: %w", err)
	}
	return ids, nil
}

// CreateTopic inserts a new topic
func (r *DialogRepository) CreateTopic(ctx context.Context, tenantID string, t *dialog.Topic) error {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO topics (id, tenant_id, dialog_id, title, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.ID, tenantID, t.DialogID, t.Title, createdAt)
	if err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}
	t.TenantID = tenantID
	t.CreatedAt = createdAt
	return nil
}

// ListTopics returns every topic of a dialog
func (r *DialogRepository) ListTopics(ctx context.Context, tenantID, dialogID string) ([]dialog.Topic, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, dialog_id, title, created_at
		 FROM topics WHERE tenant_id = ? AND dialog_id = ? ORDER BY created_at, id`,
		tenantID, dialogID)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	var topics []dialog.Topic
	for rows.Next() {
		var t dialog.Topic
		if err := rows.Scan(&t.ID, &t.TenantID, &t.DialogID, &t.Title, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating topic rows: %w", err)
	}
	return topics, nil
}
