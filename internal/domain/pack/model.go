package pack

import "time"

// Pack groups dialogs for aggregate consumption (e.g. one badge across a
// folder of dialogs).
type Pack struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
