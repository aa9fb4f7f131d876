package stats

import (
	"context"
	"log/slog"
	"sync"

	"github.com/antirek/chat3-counters/internal/domain/event"
)

// Key identifies one counter context: all deltas caused by one event for
// one subject.
type Key struct {
	TenantID      string
	SubjectType   SubjectType
	SubjectID     string
	SourceEventID string
}

type openContext struct {
	sourceType event.Type
	deltas     []Delta
}

// Tracker accumulates the counter deltas caused by one event and, on
// finalize, coalesces them into at most one <subject>.stats.update event.
// It is process-local scaffolding with no persisted state: a crash before
// finalize loses only the summary notification, never an applied delta.
type Tracker struct {
	mu     sync.Mutex
	open   map[Key]*openContext
	events EventAppender
	logger *slog.Logger
}

// NewTracker creates a tracker that emits summary events through events.
func NewTracker(events EventAppender, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		open:   make(map[Key]*openContext),
		events: events,
		logger: logger,
	}
}

// Record registers one applied delta under its causing event. The context
// for the key is opened implicitly on first use.
func (t *Tracker) Record(key Key, sourceType event.Type, d Delta) {
	t.mu.Lock()
	defer t.mu.Unlock()
	oc, ok := t.open[key]
	if !ok {
		oc = &openContext{sourceType: sourceType}
		t.open[key] = oc
	}
	oc.deltas = append(oc.deltas, d)
}

// Finalize consumes the context for key and appends one summary event
// carrying the net before/after of every counter the causing event touched.
// It is idempotent: a second call observes no context and is a no-op. An
// append failure is logged and swallowed — the applied deltas are the
// source of truth and must never be unwound for the sake of a notification.
//
// Callers invoke Finalize from a deferred scope so it runs on every exit
// path, including partial failures.
func (t *Tracker) Finalize(ctx context.Context, key Key) {
	t.mu.Lock()
	oc, ok := t.open[key]
	if ok {
		delete(t.open, key)
	}
	t.mu.Unlock()

	if !ok || len(oc.deltas) == 0 {
		return
	}

	changes := coalesce(oc.deltas)
	if len(changes) == 0 {
		return
	}

	evt := &event.Event{
		Type:       summaryType(key.SubjectType),
		EntityType: string(key.SubjectType),
		EntityID:   key.SubjectID,
		ActorID:    "system",
		ActorType:  event.ActorSystem,
		Data: &event.Payload{
			Stats: &event.StatsSection{
				SubjectType: string(key.SubjectType),
				SubjectID:   key.SubjectID,
				SourceID:    key.SourceEventID,
				SourceType:  oc.sourceType,
				Changes:     changes,
			},
		},
	}
	if _, err := t.events.Append(ctx, key.TenantID, evt); err != nil {
		t.logger.Warn("stats summary event lost",
			"tenant", key.TenantID,
			"subject_type", key.SubjectType,
			"subject", key.SubjectID,
			"source_event", key.SourceEventID,
			"error", err)
	}
}

// coalesce nets the raw deltas per (kind, field): first before, last after.
// Fields whose net transition is a no-op are dropped; order of first touch
// is preserved.
func coalesce(deltas []Delta) []event.StatChange {
	type fieldKey struct {
		kind  Kind
		field string
	}
	nets := make(map[fieldKey]*event.StatChange)
	order := make([]fieldKey, 0, len(deltas))
	for _, d := range deltas {
		fk := fieldKey{d.Kind, d.Field}
		if net, ok := nets[fk]; ok {
			net.After = d.After
			continue
		}
		nets[fk] = &event.StatChange{
			Kind:   string(d.Kind),
			Field:  d.Field,
			Before: d.Before,
			After:  d.After,
		}
		order = append(order, fk)
	}

	changes := make([]event.StatChange, 0, len(order))
	for _, fk := range order {
		net := nets[fk]
		if net.Before == net.After {
			continue
		}
		changes = append(changes, *net)
	}
	return changes
}

func summaryType(subject SubjectType) event.Type {
	switch subject {
	case SubjectDialog:
		return event.TypeDialogStatsUpdate
	case SubjectPack:
		return event.TypePackStatsUpdate
	default:
		return event.TypeUserStatsUpdate
	}
}
