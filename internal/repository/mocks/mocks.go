package mocks

import (
	"context"

	"github.com/antirek/chat3-counters/internal/domain/dialog"
	"github.com/antirek/chat3-counters/internal/domain/event"
	"github.com/antirek/chat3-counters/internal/domain/message"
	"github.com/antirek/chat3-counters/internal/domain/pack"
	"github.com/antirek/chat3-counters/internal/domain/stats"
	"github.com/stretchr/testify/mock"
)

// EventRepository is a mock for event.Repository.
type EventRepository struct {
	mock.Mock
}

func (m *EventRepository) Append(ctx context.Context, tenantID string, evt *event.Event) error {
	args := m.Called(ctx, tenantID, evt)
	return args.Error(0)
}

func (m *EventRepository) List(ctx context.Context, tenantID string, opts event.ListOptions) ([]event.Event, error) {
	args := m.Called(ctx, tenantID, opts)
	if list, ok := args.Get(0).([]event.Event); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// EventLog is a mock event appender usable wherever a service consumes an
// event-log slice (stats.EventAppender, dialog.EventLog, ...).
type EventLog struct {
	mock.Mock
}

func (m *EventLog) Append(ctx context.Context, tenantID string, evt *event.Event) (string, error) {
	args := m.Called(ctx, tenantID, evt)
	return args.String(0), args.Error(1)
}

// StatsRepository is a mock for stats.Repository.
type StatsRepository struct {
	mock.Mock
}

func (m *StatsRepository) GetUser(ctx context.Context, tenantID, userID string) (*stats.UserStats, error) {
	args := m.Called(ctx, tenantID, userID)
	if rec, ok := args.Get(0).(*stats.UserStats); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StatsRepository) PutUser(ctx context.Context, rec *stats.UserStats) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *StatsRepository) ApplyUserDelta(ctx context.Context, tenantID, userID, field string, delta int64) (int64, int64, error) {
	args := m.Called(ctx, tenantID, userID, field, delta)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *StatsRepository) GetUserDialog(ctx context.Context, tenantID, userID, dialogID string) (*stats.UserDialogStats, error) {
	args := m.Called(ctx, tenantID, userID, dialogID)
	if rec, ok := args.Get(0).(*stats.UserDialogStats); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StatsRepository) PutUserDialog(ctx context.Context, rec *stats.UserDialogStats) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *StatsRepository) ApplyUserDialogDelta(ctx context.Context, tenantID, userID, dialogID, field string, delta int64) (int64, int64, error) {
	args := m.Called(ctx, tenantID, userID, dialogID, field, delta)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *StatsRepository) GetDialog(ctx context.Context, tenantID, dialogID string) (*stats.DialogStats, error) {
	args := m.Called(ctx, tenantID, dialogID)
	if rec, ok := args.Get(0).(*stats.DialogStats); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StatsRepository) PutDialog(ctx context.Context, rec *stats.DialogStats) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *StatsRepository) ApplyDialogDelta(ctx context.Context, tenantID, dialogID, field string, delta int64) (int64, int64, error) {
	args := m.Called(ctx, tenantID, dialogID, field, delta)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *StatsRepository) GetUserTopic(ctx context.Context, tenantID, userID, dialogID, topicID string) (*stats.UserTopicStats, error) {
	args := m.Called(ctx, tenantID, userID, dialogID, topicID)
	if rec, ok := args.Get(0).(*stats.UserTopicStats); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StatsRepository) PutUserTopic(ctx context.Context, rec *stats.UserTopicStats) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *StatsRepository) ApplyUserTopicDelta(ctx context.Context, tenantID, userID, dialogID, topicID, field string, delta int64) (int64, int64, error) {
	args := m.Called(ctx, tenantID, userID, dialogID, topicID, field, delta)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *StatsRepository) GetPack(ctx context.Context, tenantID, packID string) (*stats.PackStats, error) {
	args := m.Called(ctx, tenantID, packID)
	if rec, ok := args.Get(0).(*stats.PackStats); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StatsRepository) PutPack(ctx context.Context, rec *stats.PackStats) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *StatsRepository) ApplyPackDelta(ctx context.Context, tenantID, packID, field string, delta int64) (int64, int64, error) {
	args := m.Called(ctx, tenantID, packID, field, delta)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *StatsRepository) GetUserPack(ctx context.Context, tenantID, userID, packID string) (*stats.UserPackStats, error) {
	args := m.Called(ctx, tenantID, userID, packID)
	if rec, ok := args.Get(0).(*stats.UserPackStats); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StatsRepository) PutUserPack(ctx context.Context, rec *stats.UserPackStats) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *StatsRepository) ApplyUserPackDelta(ctx context.Context, tenantID, userID, packID, field string, delta int64) (int64, int64, error) {
	args := m.Called(ctx, tenantID, userID, packID, field, delta)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *StatsRepository) PurgeDialog(ctx context.Context, tenantID, dialogID string) error {
	args := m.Called(ctx, tenantID, dialogID)
	return args.Error(0)
}

func (m *StatsRepository) PurgePack(ctx context.Context, tenantID, packID string) error {
	args := m.Called(ctx, tenantID, packID)
	return args.Error(0)
}

func (m *StatsRepository) PurgeUserDialog(ctx context.Context, tenantID, userID, dialogID string) error {
	args := m.Called(ctx, tenantID, userID, dialogID)
	return args.Error(0)
}

func (m *StatsRepository) PurgeUserTopics(ctx context.Context, tenantID, userID, dialogID string) error {
	args := m.Called(ctx, tenantID, userID, dialogID)
	return args.Error(0)
}

// CanonicalSource is a mock for stats.CanonicalSource.
type CanonicalSource struct {
	mock.Mock
}

func (m *CanonicalSource) CountMembers(ctx context.Context, tenantID, dialogID string) (int64, error) {
	args := m.Called(ctx, tenantID, dialogID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CanonicalSource) CountMessages(ctx context.Context, tenantID, dialogID string) (int64, error) {
	args := m.Called(ctx, tenantID, dialogID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CanonicalSource) CountTopics(ctx context.Context, tenantID, dialogID string) (int64, error) {
	args := m.Called(ctx, tenantID, dialogID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CanonicalSource) CountMemberships(ctx context.Context, tenantID, userID string) (int64, error) {
	args := m.Called(ctx, tenantID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CanonicalSource) CountUnread(ctx context.Context, tenantID, userID, dialogID string) (int64, error) {
	args := m.Called(ctx, tenantID, userID, dialogID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CanonicalSource) CountUnreadTotal(ctx context.Context, tenantID, userID string) (int64, error) {
	args := m.Called(ctx, tenantID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CanonicalSource) CountUnreadDialogs(ctx context.Context, tenantID, userID string) (int64, error) {
	args := m.Called(ctx, tenantID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CanonicalSource) CountUnreadInTopic(ctx context.Context, tenantID, userID, dialogID, topicID string) (int64, error) {
	args := m.Called(ctx, tenantID, userID, dialogID, topicID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CanonicalSource) CountPackDialogs(ctx context.Context, tenantID, packID string) (int64, error) {
	args := m.Called(ctx, tenantID, packID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CanonicalSource) CountUnreadInPack(ctx context.Context, tenantID, userID, packID string) (int64, error) {
	args := m.Called(ctx, tenantID, userID, packID)
	return args.Get(0).(int64), args.Error(1)
}

// DialogRepository is a mock for dialog.Repository.
type DialogRepository struct {
	mock.Mock
}

func (m *DialogRepository) Create(ctx context.Context, tenantID string, d *dialog.Dialog) error {
	args := m.Called(ctx, tenantID, d)
	return args.Error(0)
}

func (m *DialogRepository) Get(ctx context.Context, tenantID, id string) (*dialog.Dialog, error) {
	args := m.Called(ctx, tenantID, id)
	if d, ok := args.Get(0).(*dialog.Dialog); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DialogRepository) Delete(ctx context.Context, tenantID, id string) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *DialogRepository) AddMember(ctx context.Context, tenantID string, mem *dialog.Member) error {
	args := m.Called(ctx, tenantID, mem)
	return args.Error(0)
}

func (m *DialogRepository) GetMember(ctx context.Context, tenantID, dialogID, userID string) (*dialog.Member, error) {
	args := m.Called(ctx, tenantID, dialogID, userID)
	if mem, ok := args.Get(0).(*dialog.Member); ok {
		return mem, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DialogRepository) RemoveMember(ctx context.Context, tenantID, dialogID, userID string) error {
	args := m.Called(ctx, tenantID, dialogID, userID)
	return args.Error(0)
}

func (m *DialogRepository) ListMembers(ctx context.Context, tenantID, dialogID string) ([]dialog.Member, error) {
	args := m.Called(ctx, tenantID, dialogID)
	if list, ok := args.Get(0).([]dialog.Member); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DialogRepository) CreateTopic(ctx context.Context, tenantID string, t *dialog.Topic) error {
	args := m.Called(ctx, tenantID, t)
	return args.Error(0)
}

func (m *DialogRepository) ListTopics(ctx context.Context, tenantID, dialogID string) ([]dialog.Topic, error) {
	args := m.Called(ctx, tenantID, dialogID)
	if list, ok := args.Get(0).([]dialog.Topic); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// MessageRepository is a mock for message.Repository.
type MessageRepository struct {
	mock.Mock
}

func (m *MessageRepository) Create(ctx context.Context, tenantID string, msg *message.Message) error {
	args := m.Called(ctx, tenantID, msg)
	return args.Error(0)
}

func (m *MessageRepository) Get(ctx context.Context, tenantID, id string) (*message.Message, error) {
	args := m.Called(ctx, tenantID, id)
	if msg, ok := args.Get(0).(*message.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MessageRepository) AddStatus(ctx context.Context, tenantID string, st *message.Status) error {
	args := m.Called(ctx, tenantID, st)
	return args.Error(0)
}

func (m *MessageRepository) MarkRead(ctx context.Context, tenantID, userID, dialogID string, topicID *string) (int64, error) {
	args := m.Called(ctx, tenantID, userID, dialogID, topicID)
	return args.Get(0).(int64), args.Error(1)
}

// MembershipSource is a mock for message.MembershipSource.
type MembershipSource struct {
	mock.Mock
}

func (m *MembershipSource) ListMemberIDs(ctx context.Context, tenantID, dialogID string) ([]string, error) {
	args := m.Called(ctx, tenantID, dialogID)
	if list, ok := args.Get(0).([]string); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// PackSource is a mock for message.PackSource.
type PackSource struct {
	mock.Mock
}

func (m *PackSource) ListDialogPacks(ctx context.Context, tenantID, dialogID string) ([]string, error) {
	args := m.Called(ctx, tenantID, dialogID)
	if list, ok := args.Get(0).([]string); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// PackRepository is a mock for pack.Repository.
type PackRepository struct {
	mock.Mock
}

func (m *PackRepository) Create(ctx context.Context, tenantID string, p *pack.Pack) error {
	args := m.Called(ctx, tenantID, p)
	return args.Error(0)
}

func (m *PackRepository) Get(ctx context.Context, tenantID, id string) (*pack.Pack, error) {
	args := m.Called(ctx, tenantID, id)
	if p, ok := args.Get(0).(*pack.Pack); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PackRepository) Delete(ctx context.Context, tenantID, id string) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *PackRepository) AddDialog(ctx context.Context, tenantID, packID, dialogID string) error {
	args := m.Called(ctx, tenantID, packID, dialogID)
	return args.Error(0)
}

func (m *PackRepository) HasDialog(ctx context.Context, tenantID, packID, dialogID string) (bool, error) {
	args := m.Called(ctx, tenantID, packID, dialogID)
	return args.Bool(0), args.Error(1)
}

func (m *PackRepository) RemoveDialog(ctx context.Context, tenantID, packID, dialogID string) error {
	args := m.Called(ctx, tenantID, packID, dialogID)
	return args.Error(0)
}

func (m *PackRepository) ListDialogPacks(ctx context.Context, tenantID, dialogID string) ([]string, error) {
	args := m.Called(ctx, tenantID, dialogID)
	if list, ok := args.Get(0).([]string); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
