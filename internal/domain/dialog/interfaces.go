package dialog

import (
	"context"

	"github.com/antirek/chat3-counters/internal/domain/event"
)

// Repository provides persistence for dialogs, memberships and topics.
type Repository interface {
	Create(ctx context.Context, tenantID string, d *Dialog) error
	Get(ctx context.Context, tenantID, id string) (*Dialog, error)
	Delete(ctx context.Context, tenantID, id string) error

	AddMember(ctx context.Context, tenantID string, m *Member) error
	GetMember(ctx context.Context, tenantID, dialogID, userID string) (*Member, error)
	RemoveMember(ctx context.Context, tenantID, dialogID, userID string) error
	ListMembers(ctx context.Context, tenantID, dialogID string) ([]Member, error)

	CreateTopic(ctx context.Context, tenantID string, t *Topic) error
	ListTopics(ctx context.Context, tenantID, dialogID string) ([]Topic, error)
}

// EventLog is the slice of the event service the dialog operations need.
type EventLog interface {
	Append(ctx context.Context, tenantID string, evt *event.Event) (string, error)
}
