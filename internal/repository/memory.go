package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spec-kit/ai-secretary/internal/domain"
)

// Memory repositories keep records in process and hand out copies so callers
// never alias stored state. Lists return newest first.

type memoryMessageRepository struct {
	mu    sync.RWMutex
	byID  map[string]*domain.IntakeMessage
	order []string
}

// NewMemoryMessageRepository returns a volatile message store.
func NewMemoryMessageRepository() MessageRepository {
	return &memoryMessageRepository{byID: make(map[string]*domain.IntakeMessage)}
}

func (r *memoryMessageRepository) Save(_ context.Context, msg *domain.IntakeMessage) error {
	if msg == nil || msg.ID == "" {
		return fmt.Errorf("save message: missing id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[msg.ID]; !ok {
		r.order = append(r.order, msg.ID)
	}
	r.byID[msg.ID] = msg.Clone()
	return nil
}

func (r *memoryMessageRepository) GetByID(_ context.Context, id string) (*domain.IntakeMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msg, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return msg.Clone(), nil
}

func (r *memoryMessageRepository) List(_ context.Context, limit int) ([]*domain.IntakeMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 {
		limit = len(r.order)
	}
	out := make([]*domain.IntakeMessage, 0, min(limit, len(r.order)))
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.byID[r.order[i]].Clone())
	}
	return out, nil
}

func (r *memoryMessageRepository) Count(context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID), nil
}

type memoryTicketRepository struct {
	mu        sync.RWMutex
	byID      map[string]*domain.Ticket
	byMessage map[string]string
	byNumber  map[string]string
	order     []string
}

// NewMemoryTicketRepository returns a volatile ticket store.
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{
		byID:      make(map[string]*domain.Ticket),
		byMessage: make(map[string]string),
		byNumber:  make(map[string]string),
	}
}

func (r *memoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	if ticket == nil || ticket.ID == "" {
		return fmt.Errorf("create ticket: missing id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byMessage[ticket.IntakeMessageID]; ok && ticket.IntakeMessageID != "" {
		return ErrDuplicateTicket
	}
	if _, ok := r.byNumber[ticket.Number]; ok && ticket.Number != "" {
		return ErrDuplicateTicketNumber
	}
	if _, ok := r.byID[ticket.ID]; ok {
		return fmt.Errorf("create ticket %s: id already used", ticket.ID)
	}
	r.byID[ticket.ID] = ticket.Clone()
	if ticket.IntakeMessageID != "" {
		r.byMessage[ticket.IntakeMessageID] = ticket.ID
	}
	if ticket.Number != "" {
		r.byNumber[ticket.Number] = ticket.ID
	}
	r.order = append(r.order, ticket.ID)
	return nil
}

func (r *memoryTicketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[ticket.ID]
	if !ok {
		return ErrNotFound
	}
	updated := ticket.Clone()
	updated.IntakeMessageID = existing.IntakeMessageID
	updated.Number = existing.Number
	r.byID[ticket.ID] = updated
	return nil
}

func (r *memoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ticket.Clone(), nil
}

func (r *memoryTicketRepository) GetByIntakeMessageID(_ context.Context, messageID string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byMessage[messageID]
	if !ok {
		return nil, ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *memoryTicketRepository) List(_ context.Context, filter TicketFilter) ([]*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Ticket, 0)
	skipped := 0
	for i := len(r.order) - 1; i >= 0; i-- {
		ticket := r.byID[r.order[i]]
		if !filter.matches(ticket) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, ticket.Clone())
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *memoryTicketRepository) Count(context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID), nil
}

func (r *memoryTicketRepository) LatestNumber(_ context.Context, prefix string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	latest := ""
	for number := range r.byNumber {
		if !strings.HasPrefix(number, prefix) {
			continue
		}
		if len(number) > len(latest) || (len(number) == len(latest) && number > latest) {
			latest = number
		}
	}
	if latest == "" {
		return "", ErrNotFound
	}
	return latest, nil
}
