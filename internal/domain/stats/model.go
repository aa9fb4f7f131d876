package stats

import (
	"time"

	"github.com/antirek/chat3-counters/internal/domain/event"
)

// Kind identifies one aggregate store.
type Kind string

const (
	KindUser       Kind = "user"
	KindUserDialog Kind = "userDialog"
	KindDialog     Kind = "dialog"
	KindUserTopic  Kind = "userTopic"
	KindPack       Kind = "pack"
	KindUserPack   Kind = "userPack"
)

// Counter field names, as they appear in *.stats.update payloads.
const (
	FieldDialogCount        = "dialogCount"
	FieldTotalUnreadCount   = "totalUnreadCount"
	FieldUnreadDialogsCount = "unreadDialogsCount"
	FieldUnreadCount        = "unreadCount"
	FieldMemberCount        = "memberCount"
	FieldMessageCount       = "messageCount"
	FieldTopicCount         = "topicCount"
)

// SubjectType scopes a counter context and the summary event it emits.
type SubjectType string

const (
	SubjectUser   SubjectType = "user"
	SubjectDialog SubjectType = "dialog"
	SubjectPack   SubjectType = "pack"
)

// Source is the causal reference every delta carries: the already-appended
// event that triggered the mutation.
type Source struct {
	EventID   string
	EventType event.Type
}

// UserStats is the user-global aggregate.
type UserStats struct {
	TenantID           string    `json:"tenant_id"`
	UserID             string    `json:"user_id"`
	DialogCount        int64     `json:"dialog_count"`
	TotalUnreadCount   int64     `json:"total_unread_count"`
	UnreadDialogsCount int64     `json:"unread_dialogs_count"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// UserDialogStats is the per-(user, dialog) aggregate.
type UserDialogStats struct {
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id"`
	DialogID    string    `json:"dialog_id"`
	UnreadCount int64     `json:"unread_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DialogStats is the dialog-global aggregate.
type DialogStats struct {
	TenantID     string    `json:"tenant_id"`
	DialogID     string    `json:"dialog_id"`
	MemberCount  int64     `json:"member_count"`
	MessageCount int64     `json:"message_count"`
	TopicCount   int64     `json:"topic_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserTopicStats is the per-(user, topic) aggregate.
type UserTopicStats struct {
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id"`
	DialogID    string    `json:"dialog_id"`
	TopicID     string    `json:"topic_id"`
	UnreadCount int64     `json:"unread_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PackStats is the pack-global aggregate.
type PackStats struct {
	TenantID    string    `json:"tenant_id"`
	PackID      string    `json:"pack_id"`
	DialogCount int64     `json:"dialog_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserPackStats is the per-(user, pack) aggregate.
type UserPackStats struct {
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id"`
	PackID      string    `json:"pack_id"`
	UnreadCount int64     `json:"unread_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Delta records one counter transition inside a counter context.
type Delta struct {
	Kind   Kind
	Field  string
	Before int64
	After  int64
}
