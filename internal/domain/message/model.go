package message

import "time"

// Message is one message in a dialog, optionally inside a topic.
type Message struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	DialogID  string    `json:"dialog_id"`
	TopicID   *string   `json:"topic_id,omitempty"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Status is one recipient's delivery row for a message; the canonical
// ground truth behind every unread counter.
type Status struct {
	TenantID  string     `json:"tenant_id"`
	MessageID string     `json:"message_id"`
	UserID    string     `json:"user_id"`
	DialogID  string     `json:"dialog_id"`
	TopicID   *string    `json:"topic_id,omitempty"`
	IsRead    bool       `json:"is_read"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}
