package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/antirek/chat3-counters/internal/domain/event"
)

// EventRepository implements event.Repository for SQLite
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Append inserts a new event and fills its seq. There is no update or
// delete path for events.
func (r *EventRepository) Append(ctx context.Context, tenantID string, evt *event.Event) error {
	var data sql.NullString
	if evt.Data != nil {
		raw, err := json.Marshal(evt.Data)
		if err != nil {
			return fmt.Errorf("failed to encode event data: %w", err)
		}
		data = sql.NullString{String: string(raw), Valid: true}
	}

	query := `
		INSERT INTO events (
			id, tenant_id, type, entity_type, entity_id,
			actor_id, actor_type, data, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		evt.ID,
		tenantID,
		string(evt.Type),
		evt.EntityType,
		evt.EntityID,
		evt.ActorID,
		string(evt.ActorType),
		data,
		evt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	seq, err := result.LastInsertId()
	if err == nil {
		evt.Seq = seq
	}
	evt.TenantID = tenantID

	return nil
}

// List returns events matching the given filters, ordered by seq
func (r *EventRepository) List(ctx context.Context, tenantID string, opts event.ListOptions) ([]event.Event, error) {
	query := `
		SELECT
			seq, id, tenant_id, type, entity_type, entity_id,
			actor_id, actor_type, data, created_at
		FROM events
		WHERE tenant_id = ?
	`

	args := []interface{}{tenantID}
	conditions := []string{}

	if opts.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(opts.Type))
	}
	if opts.EntityID != "" {
		conditions = append(conditions, "entity_id = ?")
		args = append(args, opts.EntityID)
	}
	if !opts.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, opts.Since)
	}

	if len(conditions) > 0 {
		query += " AND " + joinConditions(conditions)
	}

	query += " ORDER BY seq ASC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var evt event.Event
		var evtType, actorType string
		var data sql.NullString
		if err := rows.Scan(
			&evt.Seq,
			&evt.ID,
			&evt.TenantID,
			&evtType,
			&evt.EntityType,
			&evt.EntityID,
			&evt.ActorID,
			&actorType,
			&data,
			&evt.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		evt.Type = event.Type(evtType)
		evt.ActorType = event.ActorType(actorType)
		if data.Valid {
			var payload event.Payload
			if err := json.Unmarshal([]byte(data.String), &payload); err != nil {
				return nil, fmt.Errorf("failed to decode event data: %w", err)
			}
			evt.Data = &payload
		}
		events = append(events, evt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return events, nil
}

func joinConditions(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	joined := conditions[0]
	for i := 1; i < len(conditions); i++ {
		joined += " AND " + conditions[i]
	}
	return joined
}
