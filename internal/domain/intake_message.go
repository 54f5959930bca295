package domain

import "time"

// Channel identifies where a resident message came from.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	ChannelWeb   Channel = "web"
	ChannelCall  Channel = "call"
	ChannelChat  Channel = "chat"
)

// Valid reports whether c is a supported channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelSMS, ChannelEmail, ChannelWeb, ChannelCall, ChannelChat:
		return true
	}
	return false
}

// MessageStatus is the forward-only lifecycle of an intake message.
type MessageStatus string

const (
	MessageStatusPending    MessageStatus = "pending"
	MessageStatusClassified MessageStatus = "classified"
	MessageStatusAssigned   MessageStatus = "assigned"
	MessageStatusProcessed  MessageStatus = "processed"
)

var messageStatusRank = map[MessageStatus]int{
	MessageStatusPending:    0,
	MessageStatusClassified: 1,
	MessageStatusAssigned:   2,
	MessageStatusProcessed:  3,
}

// Valid reports whether s is a known message status.
func (s MessageStatus) Valid() bool {
	_, ok := messageStatusRank[s]
	return ok
}

// CanAdvanceTo reports whether next does not move the lifecycle backwards.
func (s MessageStatus) CanAdvanceTo(next MessageStatus) bool {
	cur, ok := messageStatusRank[s]
	if !ok {
		return false
	}
	n, ok := messageStatusRank[next]
	return ok && n >= cur
}

// ClassificationMethod records which classifier produced a category.
type ClassificationMethod string

const (
	ClassificationMethodRule ClassificationMethod = "rule"
	ClassificationMethodLLM  ClassificationMethod = "llm"
)

// ApartmentUnitInfo is the structured location attached to a message.
// Zero Dong, Ho or Floor means the field was not extracted.
type ApartmentUnitInfo struct {
	Dong       int      `json:"dong,omitempty"`
	Ho         int      `json:"ho,omitempty"`
	Floor      int      `json:"floor,omitempty"`
	Formatted  string   `json:"formatted"`
	Confidence float64  `json:"confidence"`
	RawMatches []string `json:"raw_matches"`
}

// IntakeMessage is a single inbound resident communication.
type IntakeMessage struct {
	ID                       string
	Channel                  Channel
	Content                  string
	MaskedContent            string
	Sender                   string
	MaskedSender             string
	Classification           *Category
	ClassificationConfidence float64
	ClassificationMethod     ClassificationMethod
	Priority                 Priority
	Status                   MessageStatus
	TicketID                 *string
	ApartmentUnit            *ApartmentUnitInfo
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// Clone returns a deep copy of the message.
func (m *IntakeMessage) Clone() *IntakeMessage {
	if m == nil {
		return nil
	}
	c := *m
	if m.Classification != nil {
		v := *m.Classification
		c.Classification = &v
	}
	c.TicketID = cloneString(m.TicketID)
	if m.ApartmentUnit != nil {
		u := *m.ApartmentUnit
		u.RawMatches = append([]string(nil), m.ApartmentUnit.RawMatches...)
		c.ApartmentUnit = &u
	}
	return &c
}
