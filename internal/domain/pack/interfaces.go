package pack

import (
	"context"

	"github.com/antirek/chat3-counters/internal/domain/event"
)

// Repository provides persistence for packs and their dialog links.
type Repository interface {
	Create(ctx context.Context, tenantID string, p *Pack) error
	Get(ctx context.Context, tenantID, id string) (*Pack, error)
	Delete(ctx context.Context, tenantID, id string) error

	AddDialog(ctx context.Context, tenantID, packID, dialogID string) error
	HasDialog(ctx context.Context, tenantID, packID, dialogID string) (bool, error)
	RemoveDialog(ctx context.Context, tenantID, packID, dialogID string) error
	ListDialogPacks(ctx context.Context, tenantID, dialogID string) ([]string, error)
}

// EventLog is the slice of the event service the pack operations need.
type EventLog interface {
	Append(ctx context.Context, tenantID string, evt *event.Event) (string, error)
}
