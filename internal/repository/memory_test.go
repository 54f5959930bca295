package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ai-secretary/internal/domain"
)

func TestMemoryMessageRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryMessageRepository()

	for i := 1; i <= 3; i++ {
		require.NoError(t, repo.Save(ctx, &domain.IntakeMessage{ID: fmt.Sprintf("m%d", i), Status: domain.MessageStatusPending}))
	}

	got, err := repo.GetByID(ctx, "m2")
	require.NoError(t, err)
	got.Status = domain.MessageStatusProcessed

	again, err := repo.GetByID(ctx, "m2")
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusPending, again.Status, "stored copy must not alias")

	list, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "m3", list[0].ID)
	assert.Equal(t, "m2", list[1].ID)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryTicketRepositoryOneTicketPerMessage(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()

	require.NoError(t, repo.Create(ctx, &domain.Ticket{ID: "t1", IntakeMessageID: "m1", Status: domain.TicketStatusOpen}))
	err := repo.Create(ctx, &domain.Ticket{ID: "t2", IntakeMessageID: "m1", Status: domain.TicketStatusOpen})
	assert.ErrorIs(t, err, ErrDuplicateTicket)

	byMsg, err := repo.GetByIntakeMessageID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "t1", byMsg.ID)
}

func TestMemoryTicketRepositoryUniqueNumber(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()

	require.NoError(t, repo.Create(ctx, &domain.Ticket{ID: "t1", IntakeMessageID: "m1", Number: "TK2403150001"}))
	err := repo.Create(ctx, &domain.Ticket{ID: "t2", IntakeMessageID: "m2", Number: "TK2403150001"})
	assert.ErrorIs(t, err, ErrDuplicateTicketNumber)

	require.NoError(t, repo.Create(ctx, &domain.Ticket{ID: "t3", IntakeMessageID: "m3", Number: "TK2403159999"}))
	require.NoError(t, repo.Create(ctx, &domain.Ticket{ID: "t4", IntakeMessageID: "m4", Number: "TK24031510000"}))
	require.NoError(t, repo.Create(ctx, &domain.Ticket{ID: "t5", IntakeMessageID: "m5", Number: "TK2403160002"}))

	latest, err := repo.LatestNumber(ctx, "TK240315")
	require.NoError(t, err)
	assert.Equal(t, "TK24031510000", latest)

	_, err = repo.LatestNumber(ctx, "TK240317")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryTicketRepositoryConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- repo.Create(ctx, &domain.Ticket{ID: fmt.Sprintf("t%d", i), IntakeMessageID: "m1"})
		}(i)
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateTicket)
	}
	assert.Equal(t, 1, created)
}

func TestMemoryTicketRepositoryUpdateAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	now := time.Now()
	staff := "staff_004"

	require.NoError(t, repo.Create(ctx, &domain.Ticket{ID: "t1", IntakeMessageID: "m1", Number: "TK2603020001", Category: domain.CategoryMaintenance, Priority: domain.PriorityHigh, Status: domain.TicketStatusOpen, CreatedAt: now}))
	require.NoError(t, repo.Create(ctx, &domain.Ticket{ID: "t2", IntakeMessageID: "m2", Category: domain.CategoryNoise, Priority: domain.PriorityMedium, Status: domain.TicketStatusOpen, CreatedAt: now}))
	require.NoError(t, repo.Create(ctx, &domain.Ticket{ID: "t3", IntakeMessageID: "m3", Category: domain.CategoryMaintenance, Priority: domain.PriorityUrgent, Status: domain.TicketStatusResolved, CreatedAt: now}))

	t1, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)
	t1.Status = domain.TicketStatusInProgress
	t1.AssigneeID = &staff
	t1.Number = "changed"
	require.NoError(t, repo.Update(ctx, t1))

	stored, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, stored.Status)
	assert.Equal(t, "TK2603020001", stored.Number, "number is immutable")

	maintenance := domain.CategoryMaintenance
	list, err := repo.List(ctx, TicketFilter{Category: &maintenance})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "t3", list[0].ID)

	open, err := repo.List(ctx, TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "t2", open[0].ID)

	assigned, err := repo.List(ctx, TicketFilter{AssigneeID: &staff})
	require.NoError(t, err)
	require.Len(t, assigned, 1)

	paged, err := repo.List(ctx, TicketFilter{Offset: 2})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "t1", paged[0].ID)

	err = repo.Update(ctx, &domain.Ticket{ID: "nope"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStaffRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewStaffRepository(nil)

	all, err := repo.List(ctx, StaffFilter{})
	require.NoError(t, err)
	assert.Len(t, all, len(DefaultRoster))

	emergency := domain.CategoryEmergency
	responders, err := repo.List(ctx, StaffFilter{Specialty: &emergency})
	require.NoError(t, err)
	ids := make([]string, 0, len(responders))
	for _, m := range responders {
		ids = append(ids, m.ID)
	}
	// staff_001 handles inquiry, which covers every category.
	assert.Equal(t, []string{"staff_001", "staff_002", "staff_004"}, ids)

	m, err := repo.GetByID(ctx, "staff_003")
	require.NoError(t, err)
	assert.Equal(t, "이미화", m.Name)

	_, err = repo.GetByID(ctx, "staff_999")
	assert.ErrorIs(t, err, ErrNotFound)
}
