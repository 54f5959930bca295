package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known ticket status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusPending, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// Terminal reports whether the status ends the ticket lifecycle.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// Ticket is a trackable work item derived from one intake message.
type Ticket struct {
	ID               string
	Number           string
	Title            string
	Description      string
	Category         Category
	Priority         Priority
	Status           TicketStatus
	AssigneeID       *string
	ReporterID       string
	SLADeadline      time.Time
	ResponseDeadline time.Time
	FirstRespondedAt *time.Time
	ResolvedAt       *time.Time
	IntakeMessageID  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Clone returns a deep copy so callers never share pointer fields with a store.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	c := *t
	c.AssigneeID = cloneString(t.AssigneeID)
	c.FirstRespondedAt = cloneTime(t.FirstRespondedAt)
	c.ResolvedAt = cloneTime(t.ResolvedAt)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
