package stats_test

import (
	"context"
	"errors"
	"testing"

	"github.com/antirek/chat3-counters/internal/domain/event"
	"github.com/antirek/chat3-counters/internal/domain/stats"
	"github.com/antirek/chat3-counters/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func userKey(sourceEventID string) stats.Key {
	return stats.Key{
		TenantID:      "tenant1",
		SubjectType:   stats.SubjectUser,
		SubjectID:     "u1",
		SourceEventID: sourceEventID,
	}
}

func TestTracker_FinalizeWithoutRecordsIsNoOp(t *testing.T) {
	ctx := context.Background()
	events := &mocks.EventLog{}

	tracker := stats.NewTracker(events, nil)
	tracker.Finalize(ctx, userKey("e1"))

	events.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestTracker_FinalizeEmitsOneSummaryEvent(t *testing.T) {
	ctx := context.Background()
	events := &mocks.EventLog{}

	var emitted *event.Event
	events.On("Append", ctx, "tenant1", mock.Anything).Run(func(args mock.Arguments) {
		emitted = args.Get(2).(*event.Event)
	}).Return("summary1", nil)

	tracker := stats.NewTracker(events, nil)
	key := userKey("e1")
	tracker.Record(key, event.TypeMessageAdd, stats.Delta{Kind: stats.KindUserDialog, Field: stats.FieldUnreadCount, Before: 0, After: 1})
	tracker.Record(key, event.TypeMessageAdd, stats.Delta{Kind: stats.KindUser, Field: stats.FieldTotalUnreadCount, Before: 4, After: 5})
	tracker.Finalize(ctx, key)

	events.AssertNumberOfCalls(t, "Append", 1)
	require.NotNil(t, emitted)
	require.Equal(t, event.TypeUserStatsUpdate, emitted.Type)
	require.Equal(t, "u1", emitted.EntityID)
	require.Equal(t, event.ActorSystem, emitted.ActorType)

	sec := emitted.Data.Stats
	require.NotNil(t, sec)
	require.Equal(t, "e1", sec.SourceID)
	require.Equal(t, event.TypeMessageAdd, sec.SourceType)
	require.Len(t, sec.Changes, 2)
	require.Equal(t, "userDialog", sec.Changes[0].Kind)
	require.Equal(t, int64(1), sec.Changes[0].After)
	require.Equal(t, "user", sec.Changes[1].Kind)
	require.Equal(t, int64(5), sec.Changes[1].After)
}

func TestTracker_FinalizeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	events := &mocks.EventLog{}
	events.On("Append", ctx, "tenant1", mock.Anything).Return("summary1", nil)

	tracker := stats.NewTracker(events, nil)
	key := userKey("e1")
	tracker.Record(key, event.TypeMessageAdd, stats.Delta{Kind: stats.KindUserDialog, Field: stats.FieldUnreadCount, Before: 0, After: 1})
	tracker.Finalize(ctx, key)
	tracker.Finalize(ctx, key)

	events.AssertNumberOfCalls(t, "Append", 1)
}

func TestTracker_CoalescesRepeatedFieldTouches(t *testing.T) {
	ctx := context.Background()
	events := &mocks.EventLog{}

	var emitted *event.Event
	events.On("Append", ctx, "tenant1", mock.Anything).Run(func(args mock.Arguments) {
		emitted = args.Get(2).(*event.Event)
	}).Return("summary1", nil)

	tracker := stats.NewTracker(events, nil)
	key := userKey("e1")
	tracker.Record(key, event.TypeMessageAdd, stats.Delta{Kind: stats.KindUser, Field: stats.FieldTotalUnreadCount, Before: 2, After: 3})
	tracker.Record(key, event.TypeMessageAdd, stats.Delta{Kind: stats.KindUser, Field: stats.FieldTotalUnreadCount, Before: 3, After: 4})
	tracker.Record(key, event.TypeMessageAdd, stats.Delta{Kind: stats.KindUser, Field: stats.FieldTotalUnreadCount, Before: 4, After: 5})
	tracker.Finalize(ctx, key)

	require.NotNil(t, emitted)
	require.Len(t, emitted.Data.Stats.Changes, 1)
	require.Equal(t, int64(2), emitted.Data.Stats.Changes[0].Before)
	require.Equal(t, int64(5), emitted.Data.Stats.Changes[0].After)
}

func TestTracker_DropsZeroNetFields(t *testing.T) {
	ctx := context.Background()
	events := &mocks.EventLog{}

	tracker := stats.NewTracker(events, nil)
	key := userKey("e1")
	tracker.Record(key, event.TypeMessageAdd, stats.Delta{Kind: stats.KindUserDialog, Field: stats.FieldUnreadCount, Before: 0, After: 3})
	tracker.Record(key, event.TypeMessageAdd, stats.Delta{Kind: stats.KindUserDialog, Field: stats.FieldUnreadCount, Before: 3, After: 0})
	tracker.Finalize(ctx, key)

	// Every field netted to a no-op, so no summary event is worth emitting.
	events.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestTracker_SeparateSourcesStaySeparate(t *testing.T) {
	ctx := context.Background()
	events := &mocks.EventLog{}
	events.On("Append", ctx, "tenant1", mock.Anything).Return("summary", nil)

	tracker := stats.NewTracker(events, nil)
	tracker.Record(userKey("e1"), event.TypeMessageAdd, stats.Delta{Kind: stats.KindUserDialog, Field: stats.FieldUnreadCount, Before: 0, After: 1})
	tracker.Record(userKey("e2"), event.TypeMessageRead, stats.Delta{Kind: stats.KindUserDialog, Field: stats.FieldUnreadCount, Before: 1, After: 0})

	tracker.Finalize(ctx, userKey("e1"))
	tracker.Finalize(ctx, userKey("e2"))

	events.AssertNumberOfCalls(t, "Append", 2)
}

func TestTracker_SwallowsAppendFailure(t *testing.T) {
	ctx := context.Background()
	events := &mocks.EventLog{}
	events.On("Append", ctx, "tenant1", mock.Anything).Return("", errors.New("log unavailable"))

	tracker := stats.NewTracker(events, nil)
	key := userKey("e1")
	tracker.Record(key, event.TypeMessageAdd, stats.Delta{Kind: stats.KindUserDialog, Field: stats.FieldUnreadCount, Before: 0, After: 1})

	// Must not panic or retry; the context is consumed either way.
	tracker.Finalize(ctx, key)
	tracker.Finalize(ctx, key)
	events.AssertNumberOfCalls(t, "Append", 1)
}
