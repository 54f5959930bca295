package repository

import (
	"context"
	"sort"

	"github.com/spec-kit/ai-secretary/internal/domain"
)

// StaffRepository exposes the management office roster.
type StaffRepository interface {
	GetByID(ctx context.Context, id string) (*domain.StaffMember, error)
	List(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error)
}

// StaffFilter defines query params for staff listing.
type StaffFilter struct {
	Active    *bool
	Specialty *domain.Category
}

// DefaultRoster is used when no reference data file overrides it.
var DefaultRoster = []domain.StaffMember{
	{
		ID: "staff_001", Name: "김관리", Role: "관리소장", Department: "관리사무소",
		Specialties: []domain.Category{domain.CategoryAdministration, domain.CategoryBilling, domain.CategoryInquiry, domain.CategoryComplaint, domain.CategoryStaffService, domain.CategoryStatusInquiry},
		Active:      true,
	},
	{
		ID: "staff_002", Name: "박경비", Role: "경비원", Department: "보안팀",
		Specialties: []domain.Category{domain.CategorySecurity, domain.CategoryAccessControl, domain.CategoryParking, domain.CategorySafety, domain.CategoryEmergency, domain.CategoryDelivery},
		Active:      true,
	},
	{
		ID: "staff_003", Name: "이미화", Role: "미화원", Department: "청소팀",
		Specialties: []domain.Category{domain.CategoryHygiene, domain.CategoryLandscaping, domain.CategorySmoking},
		Active:      true,
	},
	{
		ID: "staff_004", Name: "최시설", Role: "시설기사", Department: "시설팀",
		Specialties: []domain.Category{domain.CategoryMaintenance, domain.CategoryCommonFacility, domain.CategoryUnitRepair, domain.CategoryLighting, domain.CategoryEmergency},
		Active:      true,
	},
	{
		ID: "staff_005", Name: "정민원", Role: "민원담당", Department: "관리사무소",
		Specialties: []domain.Category{domain.CategoryNoise, domain.CategoryResidentDispute, domain.CategorySchedule},
		Active:      true,
	},
}

// staffRepository is read-only after construction.
type staffRepository struct {
	byID  map[string]domain.StaffMember
	order []string
}

// NewStaffRepository seeds an in-memory roster. An empty roster falls back to DefaultRoster.
func NewStaffRepository(roster []domain.StaffMember) StaffRepository {
	if len(roster) == 0 {
		roster = DefaultRoster
	}
	r := &staffRepository{byID: make(map[string]domain.StaffMember, len(roster))}
	for _, m := range roster {
		if _, dup := r.byID[m.ID]; !dup {
			r.order = append(r.order, m.ID)
		}
		r.byID[m.ID] = cloneStaff(m)
	}
	sort.Strings(r.order)
	return r
}

func (r *staffRepository) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	m, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := cloneStaff(m)
	return &c, nil
}

func (r *staffRepository) List(_ context.Context, filter StaffFilter) ([]domain.StaffMember, error) {
	out := make([]domain.StaffMember, 0, len(r.order))
	for _, id := range r.order {
		m := r.byID[id]
		if filter.Active != nil && m.Active != *filter.Active {
			continue
		}
		if filter.Specialty != nil && !m.Handles(*filter.Specialty) {
			continue
		}
		out = append(out, cloneStaff(m))
	}
	return out, nil
}

func cloneStaff(m domain.StaffMember) domain.StaffMember {
	m.Specialties = append([]domain.Category(nil), m.Specialties...)
	return m
}
