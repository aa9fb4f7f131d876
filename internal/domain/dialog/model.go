package dialog

import "time"

// Dialog is a conversation scope shared by members.
type Dialog struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Member is one user's membership in a dialog.
type Member struct {
	TenantID string    `json:"tenant_id"`
	DialogID string    `json:"dialog_id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// Topic is a thread inside a dialog.
type Topic struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	DialogID  string    `json:"dialog_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
