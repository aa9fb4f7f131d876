package event

import "time"

// ActorType identifies who caused an event.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorAPI    ActorType = "api"
	ActorSystem ActorType = "system"
)

// Event is one immutable entry in the per-tenant event log.
// Events are appended, never updated or deleted; a retraction is a new
// compensating event.
type Event struct {
	ID         string    `json:"id"`
	Seq        int64     `json:"seq"`
	TenantID   string    `json:"tenant_id"`
	Type       Type      `json:"type"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	ActorID    string    `json:"actor_id"`
	ActorType  ActorType `json:"actor_type"`
	Data       *Payload  `json:"data,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Payload composes the optional sections of an event body. Exactly the
// non-nil sections are listed in IncludedSections.
type Payload struct {
	Dialog  *DialogSection  `json:"dialog,omitempty"`
	Member  *MemberSection  `json:"member,omitempty"`
	Message *MessageSection `json:"message,omitempty"`
	Topic   *TopicSection   `json:"topic,omitempty"`
	Pack    *PackSection    `json:"pack,omitempty"`
	Typing  *TypingSection  `json:"typing,omitempty"`
	Actor   *ActorSection   `json:"actor,omitempty"`
	Stats   *StatsSection   `json:"stats,omitempty"`

	IncludedSections []string `json:"included_sections"`
}

// DialogSection is a snapshot of the dialog an event concerns.
type DialogSection struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// MemberSection is a snapshot of one dialog membership.
type MemberSection struct {
	UserID   string `json:"user_id"`
	DialogID string `json:"dialog_id"`
	Role     string `json:"role,omitempty"`
}

// MessageSection is a snapshot of a message.
type MessageSection struct {
	ID       string  `json:"id"`
	DialogID string  `json:"dialog_id"`
	TopicID  *string `json:"topic_id,omitempty"`
	SenderID string  `json:"sender_id"`
	Body     string  `json:"body,omitempty"`
}

// TopicSection is a snapshot of a topic.
type TopicSection struct {
	ID       string `json:"id"`
	DialogID string `json:"dialog_id"`
	Title    string `json:"title,omitempty"`
}

// PackSection is a snapshot of a pack, optionally naming the dialog a
// pack-link event concerns.
type PackSection struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	DialogID string `json:"dialog_id,omitempty"`
}

// TypingSection carries a transient typing indicator.
type TypingSection struct {
	UserID   string `json:"user_id"`
	DialogID string `json:"dialog_id"`
	State    string `json:"state"`
}

// ActorSection mirrors the actor fields inside the payload for consumers
// that only see the body.
type ActorSection struct {
	ID   string    `json:"id"`
	Type ActorType `json:"type"`
}

// StatsSection is the coalesced summary of all counter changes caused by
// one event. It appears only on *.stats.update events.
type StatsSection struct {
	SubjectType string       `json:"subject_type"`
	SubjectID   string       `json:"subject_id"`
	SourceID    string       `json:"source_id"`
	SourceType  Type         `json:"source_type"`
	Changes     []StatChange `json:"changes"`
}

// StatChange is the net before/after of one counter field.
type StatChange struct {
	Kind   string `json:"kind"`
	Field  string `json:"field"`
	Before int64  `json:"before"`
	After  int64  `json:"after"`
}

// Normalize recomputes IncludedSections from the non-nil sections.
func (p *Payload) Normalize() {
	p.IncludedSections = p.IncludedSections[:0]
	if p.Dialog != nil {
		p.IncludedSections = append(p.IncludedSections, "dialog")
	}
	if p.Member != nil {
		p.IncludedSections = append(p.IncludedSections, "member")
	}
	if p.Message != nil {
		p.IncludedSections = append(p.IncludedSections, "message")
	}
	if p.Topic != nil {
		p.IncludedSections = append(p.IncludedSections, "topic")
	}
	if p.Pack != nil {
		p.IncludedSections = append(p.IncludedSections, "pack")
	}
	if p.Typing != nil {
		p.IncludedSections = append(p.IncludedSections, "typing")
	}
	if p.Actor != nil {
		p.IncludedSections = append(p.IncludedSections, "actor")
	}
	if p.Stats != nil {
		p.IncludedSections = append(p.IncludedSections, "stats")
	}
}
