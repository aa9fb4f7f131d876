package message

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/antirek/chat3-counters/internal/domain/event"
	"github.com/antirek/chat3-counters/internal/domain/stats"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Service handles message posting and read acknowledgement. Posting fans
// counter deltas out to every recipient with bounded concurrency; one
// recipient's failure never blocks the others, and the post succeeds once
// the message row and its causing event are durable.
type Service struct {
	messages    Repository
	members     MembershipSource
	packs       PackSource
	events      EventLog
	stats       *stats.Service
	fanOutLimit int64
	logger      *slog.Logger
}

// NewService creates a new message service. fanOutLimit bounds concurrent
// per-recipient updates.
func NewService(messages Repository, members MembershipSource, packs PackSource, events EventLog, statsSvc *stats.Service, fanOutLimit int, logger *slog.Logger) *Service {
	if fanOutLimit <= 0 {
		fanOutLimit = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		messages:    messages,
		members:     members,
		packs:       packs,
		events:      events,
		stats:       statsSvc,
		fanOutLimit: int64(fanOutLimit),
		logger:      logger,
	}
}

// PostRequest describes a message post.
type PostRequest struct {
	DialogID string
	TopicID  *string
	SenderID string
	Body     string
}

// Post persists a message, appends its causing event, bumps the dialog
// message count and fans unread deltas out to every member but the sender.
func (s *Service) Post(ctx context.Context, tenantID string, req PostRequest) (*Message, error) {
	if tenantID == "" || req.DialogID == "" || req.SenderID == "" || req.Body == "" {
		return nil, ErrInvalidInput
	}

	memberIDs, err := s.members.ListMemberIDs(ctx, tenantID, req.DialogID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	isMember := false
	for _, id := range memberIDs {
		if id == req.SenderID {
			isMember = true
			break
		}
	}
	if !isMember {
		return nil, ErrNotMember
	}

	msg := &Message{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		DialogID:  req.DialogID,
		TopicID:   req.TopicID,
		SenderID:  req.SenderID,
		Body:      req.Body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, tenantID, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	payload := &event.Payload{
		Message: &event.MessageSection{
			ID:       msg.ID,
			DialogID: msg.DialogID,
			TopicID:  msg.TopicID,
			SenderID: msg.SenderID,
			Body:     msg.Body,
		},
		Actor: &event.ActorSection{ID: req.SenderID, Type: event.ActorUser},
	}
	eventID, err := s.events.Append(ctx, tenantID, &event.Event{
		Type:       event.TypeMessageAdd,
		EntityType: event.EntityMessage,
		EntityID:   msg.ID,
		ActorID:    req.SenderID,
		ActorType:  event.ActorUser,
		Data:       payload,
	})
	if err != nil {
		return nil, fmt.Errorf("appending message event: %w", err)
	}
	src := stats.Source{EventID: eventID, EventType: event.TypeMessageAdd}

	dialogKey := stats.DialogKey(tenantID, req.DialogID, src)
	defer s.stats.Finalize(ctx, dialogKey)
	if _, _, err := s.stats.ApplyDialogDelta(ctx, tenantID, req.DialogID, stats.FieldMessageCount, 1, src); err != nil {
		s.logger.Warn("message count update failed", "tenant", tenantID, "dialog", req.DialogID, "error", err)
	}

	packIDs, err := s.packs.ListDialogPacks(ctx, tenantID, req.DialogID)
	if err != nil {
		s.logger.Warn("pack lookup failed", "tenant", tenantID, "dialog", req.DialogID, "error", err)
		packIDs = nil
	}

	recipients := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id != req.SenderID {
			recipients = append(recipients, id)
		}
	}
	if errs := s.fanOut(ctx, tenantID, msg, recipients, packIDs, src); len(errs) > 0 {
		for userID, ferr := range errs {
			s.logger.Warn("recipient fan-out failed",
				"tenant", tenantID, "dialog", req.DialogID, "message", msg.ID,
				"user", userID, "error", ferr)
		}
	}

	return msg, nil
}

// fanOut delivers the per-recipient status row and counter deltas with
// bounded concurrency. Failures are isolated per recipient and returned as
// a map; finalize runs for every recipient regardless.
func (s *Service) fanOut(ctx context.Context, tenantID string, msg *Message, recipients []string, packIDs []string, src stats.Source) map[string]error {
	sem := semaphore.NewWeighted(s.fanOutLimit)
	var wg sync.WaitGroup
	var mu sync.Mutex
	failures := make(map[string]error)

	for _, userID := range recipients {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			failures[userID] = fmt.Errorf("acquiring fan-out slot: %w", err)
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			defer sem.Release(1)
			defer s.stats.Finalize(ctx, stats.UserKey(tenantID, userID, src))

			if err := s.deliver(ctx, tenantID, msg, userID, packIDs, src); err != nil {
				mu.Lock()
				failures[userID] = err
				mu.Unlock()
			}
		}(userID)
	}

	wg.Wait()
	return failures
}

func (s *Service) deliver(ctx context.Context, tenantID string, msg *Message, userID string, packIDs []string, src stats.Source) error {
	if err := s.messages.AddStatus(ctx, tenantID, &Status{
		TenantID:  tenantID,
		MessageID: msg.ID,
		UserID:    userID,
		DialogID:  msg.DialogID,
		TopicID:   msg.TopicID,
		IsRead:    false,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("adding status: %w", err)
	}

	if _, _, err := s.stats.ApplyUserDialogUnread(ctx, tenantID, userID, msg.DialogID, 1, src); err != nil {
		return err
	}
	if msg.TopicID != nil {
		if _, _, err := s.stats.ApplyUserTopicUnread(ctx, tenantID, userID, msg.DialogID, *msg.TopicID, 1, src); err != nil {
			s.logger.Warn("topic unread update failed", "tenant", tenantID, "user", userID, "topic", *msg.TopicID, "error", err)
		}
	}
	for _, packID := range packIDs {
		if _, _, err := s.stats.ApplyUserPackUnread(ctx, tenantID, userID, packID, 1, src); err != nil {
			s.logger.Warn("pack unread update failed", "tenant", tenantID, "user", userID, "pack", packID, "error", err)
		}
	}
	return nil
}

// MarkRead acknowledges every unread message of (user, dialog), narrowed
// to one topic when topicID is set. Nothing unread is a successful no-op:
// no event, no counter movement.
func (s *Service) MarkRead(ctx context.Context, tenantID, userID, dialogID string, topicID *string) error {
	if tenantID == "" || userID == "" || dialogID == "" {
		return ErrInvalidInput
	}

	flipped, err := s.messages.MarkRead(ctx, tenantID, userID, dialogID, topicID)
	if err != nil {
		return fmt.Errorf("marking read: %w", err)
	}
	if flipped == 0 {
		return nil
	}

	data := &event.Payload{
		Dialog: &event.DialogSection{ID: dialogID},
		Actor:  &event.ActorSection{ID: userID, Type: event.ActorUser},
	}
	if topicID != nil {
		data.Topic = &event.TopicSection{ID: *topicID, DialogID: dialogID}
	}
	eventID, err := s.events.Append(ctx, tenantID, &event.Event{
		Type:       event.TypeMessageRead,
		EntityType: event.EntityDialog,
		EntityID:   dialogID,
		ActorID:    userID,
		ActorType:  event.ActorUser,
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("appending read event: %w", err)
	}
	src := stats.Source{EventID: eventID, EventType: event.TypeMessageRead}
	defer s.stats.Finalize(ctx, stats.UserKey(tenantID, userID, src))

	if _, _, err := s.stats.ApplyUserDialogUnread(ctx, tenantID, userID, dialogID, -flipped, src); err != nil {
		s.logger.Warn("unread decrement failed", "tenant", tenantID, "user", userID, "dialog", dialogID, "error", err)
	}
	if topicID != nil {
		if _, _, err := s.stats.ApplyUserTopicUnread(ctx, tenantID, userID, dialogID, *topicID, -flipped, src); err != nil {
			s.logger.Warn("topic unread decrement failed", "tenant", tenantID, "user", userID, "topic", *topicID, "error", err)
		}
	} else {
		// A dialog-wide ack flips statuses in every topic; drop the per-topic
		// aggregates and let the next read rebuild them at zero.
		if err := s.stats.PurgeUserTopics(ctx, tenantID, userID, dialogID); err != nil {
			s.logger.Warn("topic aggregate purge failed", "tenant", tenantID, "user", userID, "dialog", dialogID, "error", err)
		}
	}
	packIDs, err := s.packs.ListDialogPacks(ctx, tenantID, dialogID)
	if err != nil {
		s.logger.Warn("pack lookup failed", "tenant", tenantID, "dialog", dialogID, "error", err)
		packIDs = nil
	}
	for _, packID := range packIDs {
		if _, _, err := s.stats.ApplyUserPackUnread(ctx, tenantID, userID, packID, -flipped, src); err != nil {
			s.logger.Warn("pack unread decrement failed", "tenant", tenantID, "user", userID, "pack", packID, "error", err)
		}
	}

	return nil
}
