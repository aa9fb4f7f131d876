package pack

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

// Service handles pack operations.
type Service struct {
	packs  Repository
	events EventLog
	stats  *stats.Service
	logger *slog.Logger
}

// NewService creates a new pack service.
func NewService(packs Repository, events EventLog, statsSvc *stats.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{packs: packs, events: events, stats: statsSvc, logger: logger}
}

// Create creates a pack.
func (s *Service) Create(ctx context.Context, tenantID, name, actorID string, actor event.ActorType) (*Pack, error) {
	if tenantID == "" || name == "" {
		return nil, ErrInvalidInput
	}

	p := &Pack{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.packs.Create(ctx, tenantID, p); err != nil {
		return nil, fmt.Errorf("creating pack: %w", err)
	}

	if _, err := s.events.Append(ctx, tenantID, &event.Event{
		Type:       event.TypePackCreate,
		EntityType: event.EntityPack,
		EntityID:   p.ID,
		ActorID:    actorID,
		ActorType:  actorType(actor),
		Data: &event.Payload{
			Pack:  &event.PackSection{ID: p.ID, Name: p.Name},
			Actor: &event.ActorSection{ID: actorID, Type: actorType(actor)},
		},
	}); err != nil {
		return nil, fmt.Errorf("appending pack create event: %w", err)
	}

	return p, nil
}

// AddDialog links a dialog into a pack. Linking an already-linked dialog
// is a successful no-op.
func (s *Service) AddDialog(ctx context.Context, tenantID, packID, dialogID, actorID string, actor event.ActorType) error {
	if tenantID == "" || packID == "" || dialogID == "" {
		return ErrInvalidInput
	}

	if _, err := s.packs.Get(ctx, tenantID, packID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPackNotFound
		}
		return fmt.Errorf("loading pack: %w", err)
	}

	linked, err := s.packs.HasDialog(ctx, tenantID, packID, dialogID)
	if err != nil {
		return fmt.Errorf("checking pack link: %w", err)
	}
	if linked {
		return nil
	}

	if err := s.packs.AddDialog(ctx, tenantID, packID, dialogID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil
		}
		return fmt.Errorf("linking dialog: %w", err)
	}

	eventID, err := s.events.Append(ctx, tenantID, &event.Event{
		Type:       event.TypePackDialogAdd,
		EntityType: event.EntityPack,
		EntityID:   packID,
		ActorID:    actorID,
		ActorType:  actorType(actor),
		Data: &event.Payload{
			Pack:  &event.PackSection{ID: packID, DialogID: dialogID},
			Actor: &event.ActorSection{ID: actorID, Type: actorType(actor)},
		},
	})
	if err != nil {
		return fmt.Errorf("appending pack link event: %w", err)
	}
	src := stats.Source{EventID: eventID, EventType: event.TypePackDialogAdd}
	defer s.stats.Finalize(ctx, stats.PackKey(tenantID, packID, src))

	if _, _, err := s.stats.ApplyPackDelta(ctx, tenantID, packID, stats.FieldDialogCount, 1, src); err != nil {
		s.logger.Warn("pack dialog count update failed", "tenant", tenantID, "pack", packID, "error", err)
	}

	return nil
}

// RemoveDialog unlinks a dialog from a pack. Unlinking an absent link is a
// successful no-op.
func (s *Service) RemoveDialog(ctx context.Context, tenantID, packID, dialogID, actorID string, actor event.ActorType) error {
	if tenantID == "" || packID == "" || dialogID == "" {
		return ErrInvalidInput
	}

	linked, err := s.packs.HasDialog(ctx, tenantID, packID, dialogID)
	if err != nil {
		return fmt.Errorf("checking pack link: %w", err)
	}
	if !linked {
		return nil
	}

	if err := s.packs.RemoveDialog(ctx, tenantID, packID, dialogID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("unlinking dialog: %w", err)
	}

	eventID, err := s.events.Append(ctx, tenantID, &event.Event{
		Type:       event.TypePackDialogRemove,
		EntityType: event.EntityPack,
		EntityID:   packID,
		ActorID:    actorID,
		ActorType:  actorType(actor),
		Data: &event.Payload{
			Pack:  &event.PackSection{ID: packID, DialogID: dialogID},
			Actor: &event.ActorSection{ID: actorID, Type: actorType(actor)},
		},
	})
	if err != nil {
		return fmt.Errorf("appending pack unlink event: %w", err)
	}
	src := stats.Source{EventID: eventID, EventType: event.TypePackDialogRemove}
	defer s.stats.Finalize(ctx, stats.PackKey(tenantID, packID, src))

	if _, _, err := s.stats.ApplyPackDelta(ctx, tenantID, packID, stats.FieldDialogCount, -1, src); err != nil {
		s.logger.Warn("pack dialog count update failed", "tenant", tenantID, "pack", packID, "error", err)
	}

	return nil
}

// Delete removes a pack, its links and every aggregate scoped to it.
func (s *Service) Delete(ctx context.Context, tenantID, packID, actorID string, actor event.ActorType) error {
	if tenantID == "" || packID == "" {
		return ErrInvalidInput
	}

	if _, err := s.packs.Get(ctx, tenantID, packID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPackNotFound
		}
		return fmt.Errorf("loading pack: %w", err)
	}

	if _, err := s.events.Append(ctx, tenantID, &event.Event{
		Type:       event.TypePackDelete,
		EntityType: event.EntityPack,
		EntityID:   packID,
		ActorID:    actorID,
		ActorType:  actorType(actor),
		Data: &event.Payload{
			Pack:  &event.PackSection{ID: packID},
			Actor: &event.ActorSection{ID: actorID, Type: actorType(actor)},
		},
	}); err != nil {
		return fmt.Errorf("appending pack delete event: %w", err)
	}

	if err := s.packs.Delete(ctx, tenantID, packID); err != nil {
		return fmt.Errorf("deleting pack: %w", err)
	}

	if err := s.stats.PurgePack(ctx, tenantID, packID); err != nil {
		s.logger.Warn("pack aggregate purge failed", "tenant", tenantID, "pack", packID, "error", err)
	}

	return nil
}

func actorType(t event.ActorType) event.ActorType {
	if t == "" {
		return event.ActorUser
	}
	return t
}
