package service

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ai-secretary/internal/domain"
	"github.com/spec-kit/ai-secretary/internal/repository"
	"github.com/spec-kit/ai-secretary/internal/sla"
	apperrors "github.com/spec-kit/ai-secretary/pkg/util/errorutil"
)

// DefaultFallbackStaffID is the head of management, who takes anything no
// specialist covers.
const DefaultFallbackStaffID = "staff_001"

// AssignmentService selects assignees and reports per-staff workload.
type AssignmentService struct {
	tickets    repository.TicketRepository
	staff      repository.StaffRepository
	logger     *zap.Logger
	pick       func(n int) int
	fallbackID string
	now        func() time.Time
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo repository.TicketRepository
	StaffRepo  repository.StaffRepository
	Logger     *zap.Logger
	// Pick returns an index in [0, n). Defaults to a uniform random pick.
	Pick            func(n int) int
	FallbackStaffID string
	Clock           func() time.Time
}

// StaffWorkload is the read-only per-staff ticket report.
type StaffWorkload struct {
	StaffID    string `json:"staff_id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Department string `json:"department"`
	Total      int    `json:"total"`
	Active     int    `json:"active"`
	Resolved   int    `json:"resolved"`
	Violated   int    `json:"violated"`
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	s := &AssignmentService{
		tickets:    deps.TicketRepo,
		staff:      deps.StaffRepo,
		logger:     deps.Logger,
		pick:       deps.Pick,
		fallbackID: deps.FallbackStaffID,
		now:        deps.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.pick == nil {
		s.pick = rand.Intn
	}
	if s.fallbackID == "" {
		s.fallbackID = DefaultFallbackStaffID
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// SelectAssignee picks uniformly among active staff whose specialties cover
// the category or the general inquiry specialty.
func (s *AssignmentService) SelectAssignee(ctx context.Context, category domain.Category) (string, error) {
	active := true
	candidates, err := s.staff.List(ctx, repository.StaffFilter{Active: &active, Specialty: &category})
	if err != nil {
		return "", apperrors.MapError(err)
	}
	if len(candidates) == 0 {
		s.logger.Info("no specialist for category; using fallback staff",
			zap.String("category", string(category)),
			zap.String("staff_id", s.fallbackID))
		return s.fallbackID, nil
	}
	return candidates[s.pick(len(candidates))].ID, nil
}

// Staff lists the roster, optionally only active members.
func (s *AssignmentService) Staff(ctx context.Context, activeOnly bool) ([]domain.StaffMember, error) {
	filter := repository.StaffFilter{}
	if activeOnly {
		filter.Active = &activeOnly
	}
	members, err := s.staff.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return members, nil
}

// WorkloadAnalytics counts tickets per roster member. Tickets assigned to ids
// outside the roster are ignored.
func (s *AssignmentService) WorkloadAnalytics(ctx context.Context) ([]StaffWorkload, error) {
	members, err := s.staff.List(ctx, repository.StaffFilter{})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	out := make([]StaffWorkload, len(members))
	index := make(map[string]int, len(members))
	for i, m := range members {
		out[i] = StaffWorkload{StaffID: m.ID, Name: m.Name, Role: m.Role, Department: m.Department}
		index[m.ID] = i
	}

	now := s.now()
	for _, t := range tickets {
		if t.AssigneeID == nil {
			continue
		}
		i, ok := index[*t.AssigneeID]
		if !ok {
			continue
		}
		w := &out[i]
		w.Total++
		if t.Status.Terminal() {
			w.Resolved++
		} else {
			w.Active++
		}
		if sla.IsViolated(t, now) {
			w.Violated++
		}
	}
	return out, nil
}
