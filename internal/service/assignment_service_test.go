package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ai-secretary/internal/domain"
	"github.com/spec-kit/ai-secretary/internal/repository"
)

func newAssignment(t *testing.T, roster []domain.StaffMember, pick func(int) int) (*AssignmentService, repository.TicketRepository) {
	t.Helper()
	tickets := repository.NewMemoryTicketRepository()
	return NewAssignmentService(AssignmentDependencies{
		TicketRepo: tickets,
		StaffRepo:  repository.NewStaffRepository(roster),
		Pick:       pick,
		Clock:      func() time.Time { return testNow },
	}), tickets
}

func TestSelectAssigneeCandidates(t *testing.T) {
	var seen []int
	svc, _ := newAssignment(t, nil, func(n int) int {
		seen = append(seen, n)
		return 0
	})

	cases := []struct {
		category  domain.Category
		wantCount int
	}{
		{domain.CategoryEmergency, 3},
		{domain.CategoryHygiene, 2},
		{domain.CategoryNoise, 2},
		{domain.CategoryBilling, 1},
	}
	for _, tc := range cases {
		seen = nil
		id, err := svc.SelectAssignee(context.Background(), tc.category)
		require.NoError(t, err)
		assert.Equal(t, "staff_001", id, "first candidate sorted by id")
		assert.Equal(t, []int{tc.wantCount}, seen, tc.category)
	}
}

func TestSelectAssigneeSkipsInactiveAndFallsBack(t *testing.T) {
	roster := []domain.StaffMember{
		{ID: "staff_001", Name: "김관리", Specialties: []domain.Category{domain.CategoryAdministration}, Active: true},
		{ID: "staff_010", Name: "휴직자", Specialties: []domain.Category{domain.CategoryParking}, Active: false},
	}
	svc, _ := newAssignment(t, roster, func(int) int {
		t.Fatal("picker must not run without candidates")
		return 0
	})

	id, err := svc.SelectAssignee(context.Background(), domain.CategoryParking)
	require.NoError(t, err)
	assert.Equal(t, DefaultFallbackStaffID, id)
}

func TestSelectAssigneeDefaultPickerStaysInRange(t *testing.T) {
	svc, _ := newAssignment(t, nil, nil)
	allowed := map[string]bool{"staff_001": true, "staff_002": true, "staff_004": true}
	for i := 0; i < 50; i++ {
		id, err := svc.SelectAssignee(context.Background(), domain.CategoryEmergency)
		require.NoError(t, err)
		assert.True(t, allowed[id], id)
	}
}

func TestWorkloadAnalytics(t *testing.T) {
	svc, tickets := newAssignment(t, nil, nil)
	ctx := context.Background()
	assignee := func(id string) *string { return &id }

	seed := []*domain.Ticket{
		{ID: "t1", IntakeMessageID: "m1", AssigneeID: assignee("staff_002"), Status: domain.TicketStatusOpen, SLADeadline: testNow.Add(-time.Hour)},
		{ID: "t2", IntakeMessageID: "m2", AssigneeID: assignee("staff_002"), Status: domain.TicketStatusResolved, SLADeadline: testNow.Add(-time.Hour)},
		{ID: "t3", IntakeMessageID: "m3", AssigneeID: assignee("staff_004"), Status: domain.TicketStatusInProgress, SLADeadline: testNow.Add(time.Hour)},
		{ID: "t4", IntakeMessageID: "m4", AssigneeID: assignee("staff_999"), Status: domain.TicketStatusOpen},
		{ID: "t5", IntakeMessageID: "m5", Status: domain.TicketStatusOpen},
	}
	for _, tk := range seed {
		require.NoError(t, tickets.Create(ctx, tk))
	}

	report, err := svc.WorkloadAnalytics(ctx)
	require.NoError(t, err)
	require.Len(t, report, len(repository.DefaultRoster))

	byID := map[string]StaffWorkload{}
	for _, w := range report {
		byID[w.StaffID] = w
	}
	assert.Equal(t, StaffWorkload{StaffID: "staff_002", Name: "박경비", Role: "경비원", Department: "보안팀", Total: 2, Active: 1, Resolved: 1, Violated: 1}, byID["staff_002"])
	assert.Equal(t, 1, byID["staff_004"].Active)
	assert.Zero(t, byID["staff_004"].Violated)
	assert.Zero(t, byID["staff_001"].Total)
}
