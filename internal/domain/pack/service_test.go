package pack_test

import (
	"context"
	"testing"

	"github.com/antirek/chat3-counters/internal/domain/event"
	"github.com/antirek/chat3-counters/internal/domain/pack"
	"github.com/antirek/chat3-counters/internal/domain/stats"
	"github.com/antirek/chat3-counters/internal/repository"
	"github.com/antirek/chat3-counters/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	packs     *mocks.PackRepository
	store     *mocks.StatsRepository
	svcEvents *mocks.EventLog
	sumEvents *mocks.EventLog
	svc       *pack.Service
}

func newFixture() *fixture {
	f := &fixture{
		packs:     &mocks.PackRepository{},
		store:     &mocks.StatsRepository{},
		svcEvents: &mocks.EventLog{},
		sumEvents: &mocks.EventLog{},
	}
	tracker := stats.NewTracker(f.sumEvents, nil)
	recalc := stats.NewRecalculator(f.store, &mocks.CanonicalSource{}, nil)
	statsSvc := stats.NewService(f.store, tracker, recalc, 0, nil)
	f.svc = pack.NewService(f.packs, f.svcEvents, statsSvc, nil)
	return f
}

func TestPackService_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.packs.On("Create", ctx, "tenant1", mock.Anything).Return(nil)
	f.svcEvents.On("Append", ctx, "tenant1", mock.Anything).Return("e1", nil)

	p, err := f.svc.Create(ctx, "tenant1", "work", "alice", event.ActorUser)
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	require.Equal(t, "work", p.Name)

	f.svcEvents.AssertNumberOfCalls(t, "Append", 1)
	// Creating an empty pack moves no counter.
	f.sumEvents.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestPackService_AddDialog(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.packs.On("Get", ctx, "tenant1", "p1").Return(&pack.Pack{ID: "p1", Name: "work"}, nil)
	f.packs.On("HasDialog", ctx, "tenant1", "p1", "d1").Return(false, nil)
	f.packs.On("AddDialog", ctx, "tenant1", "p1", "d1").Return(nil)
	f.svcEvents.On("Append", ctx, "tenant1", mock.Anything).Return("e1", nil)

	var summary *event.Event
	f.sumEvents.On("Append", ctx, "tenant1", mock.Anything).Run(func(args mock.Arguments) {
		summary = args.Get(2).(*event.Event)
	}).Return("s", nil)

	f.store.On("ApplyPackDelta", ctx, "tenant1", "p1", stats.FieldDialogCount, int64(1)).Return(int64(1), int64(2), nil)

	require.NoError(t, f.svc.AddDialog(ctx, "tenant1", "p1", "d1", "alice", event.ActorUser))

	require.NotNil(t, summary)
	require.Equal(t, event.TypePackStatsUpdate, summary.Type)
	require.Equal(t, "p1", summary.Data.Stats.SubjectID)
	require.Equal(t, "e1", summary.Data.Stats.SourceID)
	require.Len(t, summary.Data.Stats.Changes, 1)
	require.Equal(t, int64(2), summary.Data.Stats.Changes[0].After)
}

func TestPackService_ActorTypeRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.packs.On("Create", ctx, "tenant1", mock.Anything).Return(nil)

	var causing *event.Event
	f.svcEvents.On("Append", ctx, "tenant1", mock.Anything).Run(func(args mock.Arguments) {
		causing = args.Get(2).(*event.Event)
	}).Return("e1", nil)

	_, err := f.svc.Create(ctx, "tenant1", "work", "scheduler", event.ActorSystem)
	require.NoError(t, err)

	require.NotNil(t, causing)
	require.Equal(t, event.ActorSystem, causing.ActorType)
	require.Equal(t, event.ActorSystem, causing.Data.Actor.Type)

	// An empty actor type falls back to the user default.
	causing = nil
	_, err = f.svc.Create(ctx, "tenant1", "home", "alice", "")
	require.NoError(t, err)
	require.NotNil(t, causing)
	require.Equal(t, event.ActorUser, causing.ActorType)
}

func TestPackService_AddDialogAlreadyLinkedIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.packs.On("Get", ctx, "tenant1", "p1").Return(&pack.Pack{ID: "p1"}, nil)
	f.packs.On("HasDialog", ctx, "tenant1", "p1", "d1").Return(true, nil)

	require.NoError(t, f.svc.AddDialog(ctx, "tenant1", "p1", "d1", "alice", event.ActorUser))

	f.packs.AssertNotCalled(t, "AddDialog", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.svcEvents.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
	f.store.AssertNotCalled(t, "ApplyPackDelta", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPackService_AddDialogPackMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.packs.On("Get", ctx, "tenant1", "absent").Return(nil, repository.ErrNotFound)

	err := f.svc.AddDialog(ctx, "tenant1", "absent", "d1", "alice", event.ActorUser)
	require.ErrorIs(t, err, pack.ErrPackNotFound)
}

func TestPackService_RemoveDialogAbsentIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.packs.On("HasDialog", ctx, "tenant1", "p1", "d1").Return(false, nil)

	require.NoError(t, f.svc.RemoveDialog(ctx, "tenant1", "p1", "d1", "alice", event.ActorUser))

	f.packs.AssertNotCalled(t, "RemoveDialog", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.svcEvents.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestPackService_RemoveDialog(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.packs.On("HasDialog", ctx, "tenant1", "p1", "d1").Return(true, nil)
	f.packs.On("RemoveDialog", ctx, "tenant1", "p1", "d1").Return(nil)
	f.svcEvents.On("Append", ctx, "tenant1", mock.Anything).Return("e1", nil)
	f.sumEvents.On("Append", ctx, "tenant1", mock.Anything).Return("s", nil)
	f.store.On("ApplyPackDelta", ctx, "tenant1", "p1", stats.FieldDialogCount, int64(-1)).Return(int64(2), int64(1), nil)

	require.NoError(t, f.svc.RemoveDialog(ctx, "tenant1", "p1", "d1", "alice", event.ActorUser))

	f.sumEvents.AssertNumberOfCalls(t, "Append", 1)
}

func TestPackService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.packs.On("Get", ctx, "tenant1", "p1").Return(&pack.Pack{ID: "p1"}, nil)
	f.packs.On("Delete", ctx, "tenant1", "p1").Return(nil)
	f.svcEvents.On("Append", ctx, "tenant1", mock.Anything).Return("e1", nil)
	f.store.On("PurgePack", ctx, "tenant1", "p1").Return(nil)

	require.NoError(t, f.svc.Delete(ctx, "tenant1", "p1", "alice", event.ActorUser))

	f.store.AssertCalled(t, "PurgePack", ctx, "tenant1", "p1")
}

func TestPackService_InvalidInput(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), "", "work", "alice", event.ActorUser)
	require.ErrorIs(t, err, pack.ErrInvalidInput)

	err = f.svc.AddDialog(context.Background(), "tenant1", "", "d1", "alice", event.ActorUser)
	require.ErrorIs(t, err, pack.ErrInvalidInput)
}
