package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service handles event log operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new event service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Append persists an event and returns its id. The causing operation must
// append its event before touching any counter so that every counter change
// is traceable to an already-durable event id. Append never dedupes content;
// it fails only on storage errors.
func (s *Service) Append(ctx context.Context, tenantID string, evt *Event) (string, error) {
	if evt == nil || tenantID == "" || evt.Type == "" {
		return "", ErrInvalidInput
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}
	evt.TenantID = tenantID
	if evt.Data != nil {
		evt.Data.Normalize()
	}
	if err := s.repo.Append(ctx, tenantID, evt); err != nil {
		return "", fmt.Errorf("appending event: %w", err)
	}
	return evt.ID, nil
}

// List returns events for a tenant ordered by seq.
func (s *Service) List(ctx context.Context, tenantID string, opts ListOptions) ([]Event, error) {
	return s.repo.List(ctx, tenantID, opts)
}
