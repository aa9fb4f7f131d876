package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/antirek/chat3-counters/internal/domain/event"
	"github.com/antirek/chat3-counters/internal/domain/stats"
	"github.com/antirek/chat3-counters/internal/repository"
	"github.com/google/uuid"
)

// Service handles dialog, membership and topic operations. Every mutation
// follows the same program order: canonical row, causing event, counter
// mutators, deferred finalize.
type Service struct {
	dialogs Repository
	events  EventLog
	stats   *stats.Service
	logger  *slog.Logger
}

// NewService creates a new dialog service.
func NewService(dialogs Repository, events EventLog, statsSvc *stats.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{dialogs: dialogs, events: events, stats: statsSvc, logger: logger}
}

// CreateRequest describes a dialog creation request.
type CreateRequest struct {
	Name      string
	ActorID   string
	ActorType event.ActorType
}

// Create creates a dialog with the actor as its first member.
func (s *Service) Create(ctx context.Context, tenantID string, req CreateRequest) (*Dialog, error) {
	if tenantID == "" || req.Name == "" || req.ActorID == "" {
		return nil, ErrInvalidInput
	}

	d := &Dialog{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Name:      req.Name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.dialogs.Create(ctx, tenantID, d); err != nil {
		return nil, fmt.Errorf("creating dialog: %w", err)
	}

	eventID, err := s.events.Append(ctx, tenantID, &event.Event{
		Type:       event.TypeDialogCreate,
		EntityType: event.EntityDialog,
		EntityID:   d.ID,
		ActorID:    req.ActorID,
		ActorType:  actorType(req.ActorType),
		Data: &event.Payload{
			Dialog: &event.DialogSection{ID: d.ID, Name: d.Name},
			Actor:  &event.ActorSection{ID: req.ActorID, Type: actorType(req.ActorType)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("appending dialog create event: %w", err)
	}
	src := stats.Source{EventID: eventID, EventType: event.TypeDialogCreate}
	defer s.stats.Finalize(ctx, stats.DialogKey(tenantID, d.ID, src))
	defer s.stats.Finalize(ctx, stats.UserKey(tenantID, req.ActorID, src))

	if err := s.dialogs.AddMember(ctx, tenantID, &Member{
		TenantID: tenantID,
		DialogID: d.ID,
		UserID:   req.ActorID,
		Role:     "owner",
		JoinedAt: d.CreatedAt,
	}); err != nil {
		s.logger.Warn("creator membership failed", "tenant", tenantID, "dialog", d.ID, "error", err)
		return d, nil
	}

	if _, _, err := s.stats.ApplyDialogDelta(ctx, tenantID, d.ID, stats.FieldMemberCount, 1, src); err != nil {
		s.logger.Warn("member count update failed", "tenant", tenantID, "dialog", d.ID, "error", err)
	}
	if _, _, err := s.stats.ApplyUserDelta(ctx, tenantID, req.ActorID, stats.FieldDialogCount, 1, src); err != nil {
		s.logger.Warn("dialog count update failed", "tenant", tenantID, "user", req.ActorID, "error", err)
	}

	return d, nil
}

// AddMember adds a user to a dialog. Adding an existing member is a
// successful no-op: no event is appended and no counter moves.
func (s *Service) AddMember(ctx context.Context, tenantID, dialogID, userID, role string, actorID string, actor event.ActorType) (*Member, error) {
	if tenantID == "" || dialogID == "" || userID == "" {
		return nil, ErrInvalidInput
	}

	if _, err := s.dialogs.Get(ctx, tenantID, dialogID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDialogNotFound
		}
		return nil, fmt.Errorf("loading dialog: %w", err)
	}

	// Idempotency pre-check: a duplicate add must not create a duplicate
	// causal event or double-count.
	if existing, err := s.dialogs.GetMember(ctx, tenantID, dialogID, userID); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("checking membership: %w", err)
	}

	if role == "" {
		role = "member"
	}
	m := &Member{
		TenantID: tenantID,
		DialogID: dialogID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.dialogs.AddMember(ctx, tenantID, m); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Lost a race with a concurrent add of the same member.
			return m, nil
		}
		return nil, fmt.Errorf("adding member: %w", err)
	}

	eventID, err := s.events.Append(ctx, tenantID, &event.Event{
		Type:       event.TypeDialogMemberAdd,
		EntityType: event.EntityMember,
		EntityID:   dialogID,
		ActorID:    actorID,
		ActorType:  actorType(actor),
		Data: &event.Payload{
			Member: &event.MemberSection{UserID: userID, DialogID: dialogID, Role: role},
			Actor:  &event.ActorSection{ID: actorID, Type: actorType(actor)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("appending member add event: %w", err)
	}
	src := stats.Source{EventID: eventID, EventType: event.TypeDialogMemberAdd}
	defer s.stats.Finalize(ctx, stats.DialogKey(tenantID, dialogID, src))
	defer s.stats.Finalize(ctx, stats.UserKey(tenantID, userID, src))

	if _, _, err := s.stats.ApplyDialogDelta(ctx, tenantID, dialogID, stats.FieldMemberCount, 1, src); err != nil {
		s.logger.Warn("member count update failed", "tenant", tenantID, "dialog", dialogID, "error", err)
	}
	if _, _, err := s.stats.ApplyUserDelta(ctx, tenantID, userID, stats.FieldDialogCount, 1, src); err != nil {
		s.logger.Warn("dialog count update failed", "tenant", tenantID, "user", userID, "error", err)
	}

	return m, nil
}

// RemoveMember removes a user from a dialog. Removing an absent member is
// a successful no-op.
func (s *Service) RemoveMember(ctx context.Context, tenantID, dialogID, userID string, actorID string, actor event.ActorType) error {
	if tenantID == "" || dialogID == "" || userID == "" {
		return ErrInvalidInput
	}

	if _, err := s.dialogs.GetMember(ctx, tenantID, dialogID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("checking membership: %w", err)
	}

	// The per-dialog unread must leave the user-global totals along with the
	// membership; read it before the canonical rows go away.
	var unread int64
	if rec, err := s.stats.GetUserDialog(ctx, tenantID, userID, dialogID); err != nil {
		s.logger.Warn("unread lookup failed", "tenant", tenantID, "user", userID, "dialog", dialogID, "error", err)
	} else {
		unread = rec.UnreadCount
	}

	if err := s.dialogs.RemoveMember(ctx, tenantID, dialogID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("removing member: %w", err)
	}

	eventID, err := s.events.Append(ctx, tenantID, &event.Event{
		Type:       event.TypeDialogMemberRemove,
		EntityType: event.EntityMember,
		EntityID:   dialogID,
		ActorID:    actorID,
		ActorType:  actorType(actor),
		Data: &event.Payload{
			Member: &event.MemberSection{UserID: userID, DialogID: dialogID},
			Actor:  &event.ActorSection{ID: actorID, Type: actorType(actor)},
		},
	})
	if err != nil {
		return fmt.Errorf("appending member remove event: %w", err)
	}
	src := stats.Source{EventID: eventID, EventType: event.TypeDialogMemberRemove}
	defer s.stats.Finalize(ctx, stats.DialogKey(tenantID, dialogID, src))
	defer s.stats.Finalize(ctx, stats.UserKey(tenantID, userID, src))

	if _, _, err := s.stats.ApplyDialogDelta(ctx, tenantID, dialogID, stats.FieldMemberCount, -1, src); err != nil {
		s.logger.Warn("member count update failed", "tenant", tenantID, "dialog", dialogID, "error", err)
	}
	if _, _, err := s.stats.ApplyUserDelta(ctx, tenantID, userID, stats.FieldDialogCount, -1, src); err != nil {
		s.logger.Warn("dialog count update failed", "tenant", tenantID, "user", userID, "error", err)
	}
	if unread > 0 {
		if _, _, err := s.stats.ApplyUserDialogUnread(ctx, tenantID, userID, dialogID, -unread, src); err != nil {
			s.logger.Warn("unread drain failed", "tenant", tenantID, "user", userID, "dialog", dialogID, "error", err)
		}
	}
	if err := s.stats.PurgeUserDialog(ctx, tenantID, userID, dialogID); err != nil {
		s.logger.Warn("membership aggregate purge failed", "tenant", tenantID, "user", userID, "dialog", dialogID, "error", err)
	}

	return nil
}

// CreateTopic creates a topic inside a dialog.
func (s *Service) CreateTopic(ctx context.Context, tenantID, dialogID, title string, actorID string, actor event.ActorType) (*Topic, error) {
	if tenantID == "" || dialogID == "" || title == "" {
		return nil, ErrInvalidInput
	}

	if _, err := s.dialogs.Get(ctx, tenantID, dialogID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDialogNotFound
		}
		return nil, fmt.Errorf("loading dialog: %w", err)
	}

	t := &Topic{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		DialogID:  dialogID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.dialogs.CreateTopic(ctx, tenantID, t); err != nil {
		return nil, fmt.Errorf("creating topic: %w", err)
	}

	eventID, err := s.events.Append(ctx, tenantID, &event.Event{
		Type:       event.TypeDialogTopicCreate,
		EntityType: event.EntityTopic,
		EntityID:   t.ID,
		ActorID:    actorID,
		ActorType:  actorType(actor),
		Data: &event.Payload{
			Topic: &event.TopicSection{ID: t.ID, DialogID: dialogID, Title: title},
			Actor: &event.ActorSection{ID: actorID, Type: actorType(actor)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("appending topic create event: %w", err)
	}
	src := stats.Source{EventID: eventID, EventType: event.TypeDialogTopicCreate}
	defer s.stats.Finalize(ctx, stats.DialogKey(tenantID, dialogID, src))

	if _, _, err := s.stats.ApplyDialogDelta(ctx, tenantID, dialogID, stats.FieldTopicCount, 1, src); err != nil {
		s.logger.Warn("topic count update failed", "tenant", tenantID, "dialog", dialogID, "error", err)
	}

	return t, nil
}

// Delete removes a dialog, its canonical rows and every aggregate scoped
// to it. Members' dialog counts are adjusted; the dialog's own aggregates
// are purged rather than decremented.
func (s *Service) Delete(ctx context.Context, tenantID, dialogID string, actorID string, actor event.ActorType) error {
	if tenantID == "" || dialogID == "" {
		return ErrInvalidInput
	}

	if _, err := s.dialogs.Get(ctx, tenantID, dialogID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDialogNotFound
		}
		return fmt.Errorf("loading dialog: %w", err)
	}

	members, err := s.dialogs.ListMembers(ctx, tenantID, dialogID)
	if err != nil {
		return fmt.Errorf("listing members: %w", err)
	}

	// Snapshot each member's unread while the delivery rows still exist; the
	// deletion below takes the canonical ground truth with it.
	unreads := make(map[string]int64, len(members))
	for _, m := range members {
		rec, err := s.stats.GetUserDialog(ctx, tenantID, m.UserID, dialogID)
		if err != nil {
			s.logger.Warn("unread lookup failed", "tenant", tenantID, "user", m.UserID, "dialog", dialogID, "error", err)
			continue
		}
		unreads[m.UserID] = rec.UnreadCount
	}

	eventID, err := s.events.Append(ctx, tenantID, &event.Event{
		Type:       event.TypeDialogDelete,
		EntityType: event.EntityDialog,
		EntityID:   dialogID,
		ActorID:    actorID,
		ActorType:  actorType(actor),
		Data: &event.Payload{
			Dialog: &event.DialogSection{ID: dialogID},
			Actor:  &event.ActorSection{ID: actorID, Type: actorType(actor)},
		},
	})
	if err != nil {
		return fmt.Errorf("appending dialog delete event: %w", err)
	}
	src := stats.Source{EventID: eventID, EventType: event.TypeDialogDelete}

	if err := s.dialogs.Delete(ctx, tenantID, dialogID); err != nil {
		return fmt.Errorf("deleting dialog: %w", err)
	}

	for _, m := range members {
		key := stats.UserKey(tenantID, m.UserID, src)
		if _, _, err := s.stats.ApplyUserDelta(ctx, tenantID, m.UserID, stats.FieldDialogCount, -1, src); err != nil {
			s.logger.Warn("dialog count update failed", "tenant", tenantID, "user", m.UserID, "error", err)
		}
		if unread := unreads[m.UserID]; unread > 0 {
			if _, _, err := s.stats.ApplyUserDialogUnread(ctx, tenantID, m.UserID, dialogID, -unread, src); err != nil {
				s.logger.Warn("unread drain failed", "tenant", tenantID, "user", m.UserID, "dialog", dialogID, "error", err)
			}
		}
		s.stats.Finalize(ctx, key)
	}

	if err := s.stats.PurgeDialog(ctx, tenantID, dialogID); err != nil {
		s.logger.Warn("dialog aggregate purge failed", "tenant", tenantID, "dialog", dialogID, "error", err)
	}

	return nil
}

func actorType(t event.ActorType) event.ActorType {
	if t == "" {
		return event.ActorUser
	}
	return t
}
