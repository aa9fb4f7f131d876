package event

import "context"

// Repository provides persistence operations for the event log.
type Repository interface {
	Append(ctx context.Context, tenantID string, evt *Event) error
	List(ctx context.Context, tenantID string, opts ListOptions) ([]Event, error)
}
