package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/antirek/chat3-counters/internal/domain/pack"
	"github.com/antirek/chat3-counters/internal/repository"
)

// PackRepository implements pack.Repository for SQLite
type PackRepository struct {
	db *DB
}

// NewPackRepository creates a new PackRepository
func NewPackRepository(db *DB) *PackRepository {
	return &PackRepository{db: db}
}

// Create inserts a new pack
func (r *PackRepository) Create(ctx context.Context, tenantID string, p *pack.Pack) error {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO packs (id, tenant_id, name, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, tenantID, p.Name, createdAt)
	if err != nil {
		return fmt.Errorf("failed to create pack: %w", err)
	}
	p.TenantID = tenantID
	p.CreatedAt = createdAt
	return nil
}

// Get returns a pack by id
func (r *PackRepository) Get(ctx context.Context, tenantID, id string) (*pack.Pack, error) {
	p := &pack.Pack{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, created_at FROM packs WHERE tenant_id = ? AND id = ?`,
		tenantID, id,
	).Scan(&p.ID, &p.TenantID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pack: %w", err)
	}
	return p, nil
}

// Delete removes a pack and its dialog links
func (r *PackRepository) Delete(ctx context.Context, tenantID, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM pack_dialogs WHERE tenant_id = ? AND pack_id = ?`, tenantID, id); err != nil {
		return fmt.Errorf("failed to delete pack links: %w", err)
	}
	result, err := tx.ExecContext(ctx,
		`DELETE FROM packs WHERE tenant_id = ? AND id = ?`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete pack: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pack delete: %w", err)
	}
	return nil
}

// AddDialog links a dialog into a pack
func (r *PackRepository) AddDialog(ctx context.Context, tenantID, packID, dialogID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pack_dialogs (tenant_id, pack_id, dialog_id) VALUES (?, ?, ?)`,
		tenantID, packID, dialogID)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to link dialog: %w", err)
	}
	return nil
}

// HasDialog reports whether a dialog is linked into a pack
func (r *PackRepository) HasDialog(ctx context.Context, tenantID, packID, dialogID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pack_dialogs WHERE tenant_id = ? AND pack_id = ? AND dialog_id = ?`,
		tenantID, packID, dialogID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check pack link: %w", err)
	}
	return count > 0, nil
}

// RemoveDialog unlinks a dialog from a pack
func (r *PackRepository) RemoveDialog(ctx context.Context, tenantID, packID, dialogID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM pack_dialogs WHERE tenant_id = ? AND pack_id = ? AND dialog_id = ?`,
		tenantID, packID, dialogID)
	if err != nil {
		return fmt.Errorf("failed to unlink dialog: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read unlink result: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListDialogPacks returns the ids of every pack containing a dialog
func (r *PackRepository) ListDialogPacks(ctx context.Context, tenantID, dialogID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT pack_id FROM pack_dialogs WHERE tenant_id = ? AND dialog_id = ? ORDER BY pack_id`,
		tenantID, dialogID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dialog packs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan pack id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pack id rows: %w", err)
	}
	return ids, nil
}
