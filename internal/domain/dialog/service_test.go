package dialog_test

import (
	"context"
	"testing"

	"github.com/antirek/chat3-counters/internal/domain/dialog"
	"github.com/antirek/chat3-counters/internal/domain/event"
	"github.com/antirek/chat3-counters/internal/domain/stats"
	"github.com/antirek/chat3-counters/internal/repository"
	"github.com/antirek/chat3-counters/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dialogs   *mocks.DialogRepository
	store     *mocks.StatsRepository
	svcEvents *mocks.EventLog
	sumEvents *mocks.EventLog
	svc       *dialog.Service
}

func newFixture() *fixture {
	f := &fixture{
		dialogs:   &mocks.DialogRepository{},
		store:     &mocks.StatsRepository{},
		svcEvents: &mocks.EventLog{},
		sumEvents: &mocks.EventLog{},
	}
	tracker := stats.NewTracker(f.sumEvents, nil)
	recalc := stats.NewRecalculator(f.store, &mocks.CanonicalSource{}, nil)
	statsSvc := stats.NewService(f.store, tracker, recalc, 0, nil)
	f.svc = dialog.NewService(f.dialogs, f.svcEvents, statsSvc, nil)
	return f
}

func TestDialogService_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.dialogs.On("Create", ctx, "tenant1", mock.Anything).Return(nil)
	f.dialogs.On("AddMember", ctx, "tenant1", mock.Anything).Return(nil)
	f.svcEvents.On("Append", ctx, "tenant1", mock.Anything).Return("e1", nil)
	f.sumEvents.On("Append", ctx, "tenant1", mock.Anything).Return("s", nil)
	f.store.On("ApplyDialogDelta", ctx, "tenant1", mock.Anything, stats.FieldMemberCount, int64(1)).Return(int64(0), int64(1), nil)
	f.store.On("ApplyUserDelta", ctx, "tenant1", "alice", stats.FieldDialogCount, int64(1)).Return(int64(2), int64(3), nil)

	d, err := f.svc.Create(ctx, "tenant1", dialog.CreateRequest{Name: "general", ActorID: "alice"})
	require.NoError(t, err)
	require.NotEmpty(t, d.ID)

	f.svcEvents.AssertNumberOfCalls(t, "Append", 1)
	// One dialog summary and one user summary.
	f.sumEvents.AssertNumberOfCalls(t, "Append", 2)
}

func TestDialogService_AddMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.dialogs.On("Get", ctx, "tenant1", "d1").Return(&dialog.Dialog{ID: "d1", Name: "general"}, nil)
	f.dialogs.On("GetMember", ctx, "tenant1", "d1", "carol").Return(nil, repository.ErrNotFound)
	f.dialogs.On("AddMember", ctx, "tenant1", mock.Anything).Return(nil)

	var causing *event.Event
	f.svcEvents.On("Append", ctx, "tenant1", mock.Anything).Run(func(args mock.Arguments) {
		causing = args.Get(2).(*event.Event)
	}).Return("e1", nil)

	var summaries []*event.Event
	f.sumEvents.On("Append", ctx, "tenant1", mock.Anything).Run(func(args mock.Arguments) {
		summaries = append(summaries, args.Get(2).(*event.Event))
	}).Return("s", nil)

	// The dialog already had two members.
	f.store.On("ApplyDialogDelta", ctx, "tenant1", "d1", stats.FieldMemberCount, int64(1)).Return(int64(2), int64(3), nil)
	f.store.On("ApplyUserDelta", ctx, "tenant1", "carol", stats.FieldDialogCount, int64(1)).Return(int64(0), int64(1), nil)

	m, err := f.svc.AddMember(ctx, "tenant1", "d1", "carol", "", "alice", event.ActorUser)
	require.NoError(t, err)
	require.Equal(t, "member", m.Role)

	require.NotNil(t, causing)
	require.Equal(t, event.TypeDialogMemberAdd, causing.Type)

	require.Len(t, summaries, 2)
	byType := map[event.Type]*event.Event{}
	for _, s := range summaries {
		byType[s.Type] = s
	}

	ds := byType[event.TypeDialogStatsUpdate]
	require.NotNil(t, ds)
	require.Equal(t, "e1", ds.Data.Stats.SourceID)
	require.Len(t, ds.Data.Stats.Changes, 1)
	require.Equal(t, int64(2), ds.Data.Stats.Changes[0].Before)
	require.Equal(t, int64(3), ds.Data.Stats.Changes[0].After)

	us := byType[event.TypeUserStatsUpdate]
	require.NotNil(t, us)
	require.Len(t, us.Data.Stats.Changes, 1)
	require.Equal(t, stats.FieldDialogCount, us.Data.Stats.Changes[0].Field)
	require.Equal(t, int64(1), us.Data.Stats.Changes[0].After)
}

func TestDialogService_AddMemberDuplicateIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	existing := &dialog.Member{TenantID: "tenant1", DialogID: "d1", UserID: "carol", Role: "member"}
	f.dialogs.On("Get", ctx, "tenant1", "d1").Return(&dialog.Dialog{ID: "d1"}, nil)
	f.dialogs.On("GetMember", ctx, "tenant1", "d1", "carol").Return(existing, nil)

	m, err := f.svc.AddMember(ctx, "tenant1", "d1", "carol", "", "alice", event.ActorUser)
	require.NoError(t, err)
	require.Equal(t, existing, m)

	f.dialogs.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything, mock.Anything)
	f.svcEvents.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
	f.store.AssertNotCalled(t, "ApplyDialogDelta", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDialogService_AddMemberLostRaceIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.dialogs.On("Get", ctx, "tenant1", "d1").Return(&dialog.Dialog{ID: "d1"}, nil)
	f.dialogs.On("GetMember", ctx, "tenant1", "d1", "carol").Return(nil, repository.ErrNotFound)
	f.dialogs.On("AddMember", ctx, "tenant1", mock.Anything).Return(repository.ErrConflict)

	_, err := f.svc.AddMember(ctx, "tenant1", "d1", "carol", "", "alice", event.ActorUser)
	require.NoError(t, err)

	f.svcEvents.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestDialogService_AddMemberDialogMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.dialogs.On("Get", ctx, "tenant1", "absent").Return(nil, repository.ErrNotFound)

	_, err := f.svc.AddMember(ctx, "tenant1", "absent", "carol", "", "alice", event.ActorUser)
	require.ErrorIs(t, err, dialog.ErrDialogNotFound)
}

func TestDialogService_RemoveMemberAbsentIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.dialogs.On("GetMember", ctx, "tenant1", "d1", "carol").Return(nil, repository.ErrNotFound)

	err := f.svc.RemoveMember(ctx, "tenant1", "d1", "carol", "alice", event.ActorUser)
	require.NoError(t, err)

	f.dialogs.AssertNotCalled(t, "RemoveMember", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.svcEvents.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestDialogService_RemoveMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.dialogs.On("GetMember", ctx, "tenant1", "d1", "carol").Return(&dialog.Member{DialogID: "d1", UserID: "carol"}, nil)
	f.dialogs.On("RemoveMember", ctx, "tenant1", "d1", "carol").Return(nil)
	f.svcEvents.On("Append", ctx, "tenant1", mock.Anything).Return("e1", nil)
	f.sumEvents.On("Append", ctx, "tenant1", mock.Anything).Return("s", nil)
	f.store.On("GetUserDialog", ctx, "tenant1", "carol", "d1").
		Return(&stats.UserDialogStats{TenantID: "tenant1", UserID: "carol", DialogID: "d1", UnreadCount: 0}, nil)
	f.store.On("ApplyDialogDelta", ctx, "tenant1", "d1", stats.FieldMemberCount, int64(-1)).Return(int64(3), int64(2), nil)
	f.store.On("ApplyUserDelta", ctx, "tenant1", "carol", stats.FieldDialogCount, int64(-1)).Return(int64(1), int64(0), nil)
	f.store.On("PurgeUserDialog", ctx, "tenant1", "carol", "d1").Return(nil)

	err := f.svc.RemoveMember(ctx, "tenant1", "d1", "carol", "alice", event.ActorUser)
	require.NoError(t, err)

	f.store.AssertCalled(t, "PurgeUserDialog", ctx, "tenant1", "carol", "d1")
	f.sumEvents.AssertNumberOfCalls(t, "Append", 2)
}

func TestDialogService_RemoveMemberDrainsUnread(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.dialogs.On("GetMember", ctx, "tenant1", "d1", "carol").Return(&dialog.Member{DialogID: "d1", UserID: "carol"}, nil)
	f.dialogs.On("RemoveMember", ctx, "tenant1", "d1", "carol").Return(nil)
	f.svcEvents.On("Append", ctx, "tenant1", mock.Anything).Return("e1", nil)
	f.sumEvents.On("Append", ctx, "tenant1", mock.Anything).Return("s", nil)

	// carol leaves with two unread messages in the dialog; the user-global
	// totals must not keep counting them.
	f.store.On("GetUserDialog", ctx, "tenant1", "carol", "d1").
		Return(&stats.UserDialogStats{TenantID: "tenant1", UserID: "carol", DialogID: "d1", UnreadCount: 2}, nil)
	f.store.On("ApplyDialogDelta", ctx, "tenant1", "d1", stats.FieldMemberCount, int64(-1)).Return(int64(3), int64(2), nil)
	f.store.On("ApplyUserDelta", ctx, "tenant1", "carol", stats.FieldDialogCount, int64(-1)).Return(int64(1), int64(0), nil)
	f.store.On("ApplyUserDialogDelta", ctx, "tenant1", "carol", "d1", stats.FieldUnreadCount, int64(-2)).Return(int64(2), int64(0), nil)
	f.store.On("ApplyUserDelta", ctx, "tenant1", "carol", stats.FieldTotalUnreadCount, int64(-2)).Return(int64(2), int64(0), nil)
	f.store.On("ApplyUserDelta", ctx, "tenant1", "carol", stats.FieldUnreadDialogsCount, int64(-1)).Return(int64(1), int64(0), nil)
	f.store.On("PurgeUserDialog", ctx, "tenant1", "carol", "d1").Return(nil)

	err := f.svc.RemoveMember(ctx, "tenant1", "d1", "carol", "alice", event.ActorUser)
	require.NoError(t, err)

	f.store.AssertCalled(t, "ApplyUserDialogDelta", ctx, "tenant1", "carol", "d1", stats.FieldUnreadCount, int64(-2))
	f.store.AssertCalled(t, "ApplyUserDelta", ctx, "tenant1", "carol", stats.FieldTotalUnreadCount, int64(-2))
	f.store.AssertCalled(t, "ApplyUserDelta", ctx, "tenant1", "carol", stats.FieldUnreadDialogsCount, int64(-1))
}

func TestDialogService_CreateTopic(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.dialogs.On("Get", ctx, "tenant1", "d1").Return(&dialog.Dialog{ID: "d1"}, nil)
	f.dialogs.On("CreateTopic", ctx, "tenant1", mock.Anything).Return(nil)
	f.svcEvents.On("Append", ctx, "tenant1", mock.Anything).Return("e1", nil)
	f.sumEvents.On("Append", ctx, "tenant1", mock.Anything).Return("s", nil)
	f.store.On("ApplyDialogDelta", ctx, "tenant1", "d1", stats.FieldTopicCount, int64(1)).Return(int64(0), int64(1), nil)

	topic, err := f.svc.CreateTopic(ctx, "tenant1", "d1", "plans", "alice", event.ActorUser)
	require.NoError(t, err)
	require.Equal(t, "plans", topic.Title)

	f.sumEvents.AssertNumberOfCalls(t, "Append", 1)
}

func TestDialogService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	members := []dialog.Member{
		{DialogID: "d1", UserID: "alice"},
		{DialogID: "d1", UserID: "bob"},
	}
	f.dialogs.On("Get", ctx, "tenant1", "d1").Return(&dialog.Dialog{ID: "d1"}, nil)
	f.dialogs.On("ListMembers", ctx, "tenant1", "d1").Return(members, nil)
	f.dialogs.On("Delete", ctx, "tenant1", "d1").Return(nil)
	f.svcEvents.On("Append", ctx, "tenant1", mock.Anything).Return("e1", nil)
	f.sumEvents.On("Append", ctx, "tenant1", mock.Anything).Return("s", nil)

	// alice has read everything; bob leaves one unread behind.
	f.store.On("GetUserDialog", ctx, "tenant1", "alice", "d1").
		Return(&stats.UserDialogStats{TenantID: "tenant1", UserID: "alice", DialogID: "d1", UnreadCount: 0}, nil)
	f.store.On("GetUserDialog", ctx, "tenant1", "bob", "d1").
		Return(&stats.UserDialogStats{TenantID: "tenant1", UserID: "bob", DialogID: "d1", UnreadCount: 1}, nil)
	f.store.On("ApplyUserDelta", ctx, "tenant1", "alice", stats.FieldDialogCount, int64(-1)).Return(int64(2), int64(1), nil)
	f.store.On("ApplyUserDelta", ctx, "tenant1", "bob", stats.FieldDialogCount, int64(-1)).Return(int64(1), int64(0), nil)
	f.store.On("ApplyUserDialogDelta", ctx, "tenant1", "bob", "d1", stats.FieldUnreadCount, int64(-1)).Return(int64(1), int64(0), nil)
	f.store.On("ApplyUserDelta", ctx, "tenant1", "bob", stats.FieldTotalUnreadCount, int64(-1)).Return(int64(1), int64(0), nil)
	f.store.On("ApplyUserDelta", ctx, "tenant1", "bob", stats.FieldUnreadDialogsCount, int64(-1)).Return(int64(1), int64(0), nil)
	f.store.On("PurgeDialog", ctx, "tenant1", "d1").Return(nil)

	err := f.svc.Delete(ctx, "tenant1", "d1", "alice", event.ActorUser)
	require.NoError(t, err)

	f.store.AssertCalled(t, "PurgeDialog", ctx, "tenant1", "d1")
	// bob's unread leaves his totals with the dialog; alice has none to drain.
	f.store.AssertCalled(t, "ApplyUserDialogDelta", ctx, "tenant1", "bob", "d1", stats.FieldUnreadCount, int64(-1))
	f.store.AssertNotCalled(t, "ApplyUserDialogDelta", ctx, "tenant1", "alice", "d1", stats.FieldUnreadCount, mock.Anything)
	// One user summary per former member.
	f.sumEvents.AssertNumberOfCalls(t, "Append", 2)
}

func TestDialogService_InvalidInput(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), "", dialog.CreateRequest{Name: "x", ActorID: "a"})
	require.ErrorIs(t, err, dialog.ErrInvalidInput)

	_, err = f.svc.AddMember(context.Background(), "tenant1", "", "u1", "", "a", event.ActorUser)
	require.ErrorIs(t, err, dialog.ErrInvalidInput)
}
