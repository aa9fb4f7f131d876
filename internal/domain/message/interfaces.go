package message

import (
	"context"

	"github.com/antirek/chat3-counters/internal/domain/event"
)

// Repository provides persistence for messages and their delivery rows.
type Repository interface {
	Create(ctx context.Context, tenantID string, msg *Message) error
	Get(ctx context.Context, tenantID, id string) (*Message, error)
	AddStatus(ctx context.Context, tenantID string, st *Status) error
	// MarkRead flips every unread status of (user, dialog) — narrowed to
	// one topic when topicID is set — and returns how many rows flipped.
	MarkRead(ctx context.Context, tenantID, userID, dialogID string, topicID *string) (int64, error)
}

// MembershipSource yields the subjects a message fans out to.
type MembershipSource interface {
	ListMemberIDs(ctx context.Context, tenantID, dialogID string) ([]string, error)
}

// PackSource yields the packs a dialog belongs to.
type PackSource interface {
	ListDialogPacks(ctx context.Context, tenantID, dialogID string) ([]string, error)
}

// EventLog is the slice of the event service the message operations need.
type EventLog interface {
	Append(ctx context.Context, tenantID string, evt *event.Event) (string, error)
}
