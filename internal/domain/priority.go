package domain

// Priority enumerates urgency shared by messages and tickets.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Escalated reports whether the priority qualifies a message for immediate ticketing.
func (p Priority) Escalated() bool {
	return p == PriorityHigh || p == PriorityUrgent
}
