// Package sla computes response and resolution deadlines and SLA health.
package sla

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ai-secretary/internal/domain"
)

// Hours used when neither a category nor a priority rule exists.
const (
	DefaultResponseHours   = 24
	DefaultResolutionHours = 168
)

// Rule binds deadlines to a priority, optionally narrowed to one category.
type Rule struct {
	Priority        domain.Priority `yaml:"priority" json:"priority"`
	Category        domain.Category `yaml:"category,omitempty" json:"category,omitempty"`
	ResponseHours   float64         `yaml:"response_hours" json:"response_hours"`
	ResolutionHours float64         `yaml:"resolution_hours" json:"resolution_hours"`
}

// DefaultRules holds the priority baselines followed by category overrides.
var DefaultRules = []Rule{
	{Priority: domain.PriorityUrgent, ResponseHours: 1, ResolutionHours: 4},
	{Priority: domain.PriorityHigh, ResponseHours: 4, ResolutionHours: 24},
	{Priority: domain.PriorityMedium, ResponseHours: 8, ResolutionHours: 72},
	{Priority: domain.PriorityLow, ResponseHours: 24, ResolutionHours: 168},

	{Priority: domain.PriorityUrgent, Category: domain.CategoryEmergency, ResponseHours: 0.5, ResolutionHours: 2},
	{Priority: domain.PriorityHigh, Category: domain.CategoryEmergency, ResponseHours: 0.5, ResolutionHours: 2},
	{Priority: domain.PriorityMedium, Category: domain.CategoryMaintenance, ResponseHours: 4, ResolutionHours: 48},
}

// Dashboard summarizes SLA health over a set of tickets.
type Dashboard struct {
	TotalTickets           int     `json:"total_tickets"`
	WithinSLA              int     `json:"within_sla"`
	ViolatedSLA            int     `json:"violated_sla"`
	SLAPerformance         float64 `json:"sla_performance"`
	AverageResponseHours   float64 `json:"average_response_hours"`
	AverageResolutionHours float64 `json:"average_resolution_hours"`
}

// Engine looks up rules: exact (priority, category), then priority only, then the default.
type Engine struct {
	rules  []Rule
	logger *zap.Logger
}

// NewEngine uses DefaultRules when rules is empty.
func NewEngine(rules []Rule, logger *zap.Logger) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{rules: append([]Rule(nil), rules...), logger: logger}
}

// Rules returns a copy of the active rule table.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Lookup returns the rule that applies to the pair.
func (e *Engine) Lookup(p domain.Priority, c domain.Category) Rule {
	if c != "" {
		for _, r := range e.rules {
			if r.Priority == p && r.Category == c {
				return r
			}
		}
	}
	for _, r := range e.rules {
		if r.Priority == p && r.Category == "" {
			return r
		}
	}
	e.logger.Warn("no sla rule found, using default",
		zap.String("priority", string(p)),
		zap.String("category", string(c)))
	return Rule{Priority: p, ResponseHours: DefaultResponseHours, ResolutionHours: DefaultResolutionHours}
}

// ResolutionDeadline is from plus the resolution allowance.
func (e *Engine) ResolutionDeadline(p domain.Priority, c domain.Category, from time.Time) time.Time {
	return from.Add(hours(e.Lookup(p, c).ResolutionHours))
}

// ResponseDeadline is from plus the first-response allowance.
func (e *Engine) ResponseDeadline(p domain.Priority, c domain.Category, from time.Time) time.Time {
	return from.Add(hours(e.Lookup(p, c).ResponseHours))
}

// IsViolated reports whether an unfinished ticket is past its resolution deadline.
func IsViolated(t *domain.Ticket, now time.Time) bool {
	if t == nil || t.Status.Terminal() || t.SLADeadline.IsZero() {
		return false
	}
	return now.After(t.SLADeadline)
}

// Violations filters the tickets that are currently violated, oldest deadline first.
func Violations(tickets []*domain.Ticket, now time.Time) []*domain.Ticket {
	out := make([]*domain.Ticket, 0)
	for _, t := range tickets {
		if IsViolated(t, now) {
			out = append(out, t)
		}
	}
	sortByDeadline(out)
	return out
}

// Upcoming returns unfinished tickets whose deadline falls within (now, now+window].
func Upcoming(tickets []*domain.Ticket, now time.Time, window time.Duration) []*domain.Ticket {
	cutoff := now.Add(window)
	out := make([]*domain.Ticket, 0)
	for _, t := range tickets {
		if t == nil || t.Status.Terminal() {
			continue
		}
		if t.SLADeadline.After(now) && !t.SLADeadline.After(cutoff) {
			out = append(out, t)
		}
	}
	sortByDeadline(out)
	return out
}

// Summarize builds the dashboard. Performance is 100 when there are no tickets.
func Summarize(tickets []*domain.Ticket, now time.Time) Dashboard {
	d := Dashboard{SLAPerformance: 100}
	var (
		responseSum, resolutionSum float64
		responded, resolved        int
	)
	for _, t := range tickets {
		if t == nil {
			continue
		}
		d.TotalTickets++
		if IsViolated(t, now) {
			d.ViolatedSLA++
		}
		if t.FirstRespondedAt != nil {
			responseSum += t.FirstRespondedAt.Sub(t.CreatedAt).Hours()
			responded++
		}
		if t.ResolvedAt != nil {
			resolutionSum += t.ResolvedAt.Sub(t.CreatedAt).Hours()
			resolved++
		}
	}
	d.WithinSLA = d.TotalTickets - d.ViolatedSLA
	if d.TotalTickets > 0 {
		d.SLAPerformance = float64(d.WithinSLA) / float64(d.TotalTickets) * 100
	}
	if responded > 0 {
		d.AverageResponseHours = responseSum / float64(responded)
	}
	if resolved > 0 {
		d.AverageResolutionHours = resolutionSum / float64(resolved)
	}
	return d
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

func sortByDeadline(tickets []*domain.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		return tickets[i].SLADeadline.Before(tickets[j].SLADeadline)
	})
}
