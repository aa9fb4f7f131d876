package event

import "time"

// ListOptions provides filtering options for reading the event log.
// Results are always ordered by seq within the tenant.
type ListOptions struct {
	Type     Type
	EntityID string
	Since    time.Time
	Limit    int
	Offset   int
}
