package stats

import (
	"context"

	"github.com/antirek/chat3-counters/internal/domain/event"
)

// Repository provides persistence for the aggregate stores. ApplyDelta
// methods are atomic read-clamp-upsert steps: the targeted counter is
// created at zero when absent, the delta is applied with a floor of zero,
// and the pre/post values are returned. Put methods are upserts used by
// the recalculation path.
type Repository interface {
	GetUser(ctx context.Context, tenantID, userID string) (*UserStats, error)
	PutUser(ctx context.Context, rec *UserStats) error
	ApplyUserDelta(ctx context.Context, tenantID, userID, field string, delta int64) (before, after int64, err error)

	GetUserDialog(ctx context.Context, tenantID, userID, dialogID string) (*UserDialogStats, error)
	PutUserDialog(ctx context.Context, rec *UserDialogStats) error
	ApplyUserDialogDelta(ctx context.Context, tenantID, userID, dialogID, field string, delta int64) (before, after int64, err error)

	GetDialog(ctx context.Context, tenantID, dialogID string) (*DialogStats, error)
	PutDialog(ctx context.Context, rec *DialogStats) error
	ApplyDialogDelta(ctx context.Context, tenantID, dialogID, field string, delta int64) (before, after int64, err error)

	GetUserTopic(ctx context.Context, tenantID, userID, dialogID, topicID string) (*UserTopicStats, error)
	PutUserTopic(ctx context.Context, rec *UserTopicStats) error
	ApplyUserTopicDelta(ctx context.Context, tenantID, userID, dialogID, topicID, field string, delta int64) (before, after int64, err error)

	GetPack(ctx context.Context, tenantID, packID string) (*PackStats, error)
	PutPack(ctx context.Context, rec *PackStats) error
	ApplyPackDelta(ctx context.Context, tenantID, packID, field string, delta int64) (before, after int64, err error)

	GetUserPack(ctx context.Context, tenantID, userID, packID string) (*UserPackStats, error)
	PutUserPack(ctx context.Context, rec *UserPackStats) error
	ApplyUserPackDelta(ctx context.Context, tenantID, userID, packID, field string, delta int64) (before, after int64, err error)

	// PurgeDialog removes every aggregate scoped to a deleted dialog.
	PurgeDialog(ctx context.Context, tenantID, dialogID string) error
	// PurgePack removes every aggregate scoped to a deleted pack.
	PurgePack(ctx context.Context, tenantID, packID string) error
	// PurgeUserDialog removes the per-(user, dialog) aggregate when the
	// membership is deleted.
	PurgeUserDialog(ctx context.Context, tenantID, userID, dialogID string) error
	// PurgeUserTopics removes a user's per-topic aggregates across one
	// dialog, leaving the next read to rebuild them from canonical rows.
	PurgeUserTopics(ctx context.Context, tenantID, userID, dialogID string) error
}

// CanonicalSource supplies the ground-truth counts the recalculation path
// derives aggregates from. Implementations read canonical rows only, never
// other aggregates.
type CanonicalSource interface {
	CountMembers(ctx context.Context, tenantID, dialogID string) (int64, error)
	CountMessages(ctx context.Context, tenantID, dialogID string) (int64, error)
	CountTopics(ctx context.Context, tenantID, dialogID string) (int64, error)

	CountMemberships(ctx context.Context, tenantID, userID string) (int64, error)
	CountUnread(ctx context.Context, tenantID, userID, dialogID string) (int64, error)
	CountUnreadTotal(ctx context.Context, tenantID, userID string) (int64, error)
	CountUnreadDialogs(ctx context.Context, tenantID, userID string) (int64, error)
	CountUnreadInTopic(ctx context.Context, tenantID, userID, dialogID, topicID string) (int64, error)

	CountPackDialogs(ctx context.Context, tenantID, packID string) (int64, error)
	CountUnreadInPack(ctx context.Context, tenantID, userID, packID string) (int64, error)
}

// EventAppender is the slice of the event service the tracker needs to
// emit summary events.
type EventAppender interface {
	Append(ctx context.Context, tenantID string, evt *event.Event) (string, error)
}
