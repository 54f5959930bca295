package service

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ai-secretary/internal/domain"
	"github.com/spec-kit/ai-secretary/internal/repository"
)

func TestMemoryTicketNumbers(t *testing.T) {
	gen := NewMemoryTicketNumberGenerator(nil)
	ctx := context.Background()

	n1, err := gen.Next(ctx, testNow)
	require.NoError(t, err)
	n2, err := gen.Next(ctx, testNow.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "TK2403150001", n1)
	assert.Equal(t, "TK2403150002", n2)

	// 15:00 UTC is already the next day in Seoul.
	n3, err := gen.Next(ctx, time.Date(2024, 3, 15, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "TK2403160001", n3)
}

func TestMemoryTicketNumbersResumeFromStoredTickets(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryTicketRepository()
	for _, number := range []string{"TK2403140031", "TK2403150009", "TK2403150012"} {
		require.NoError(t, repo.Create(ctx, &domain.Ticket{ID: number, Number: number, IntakeMessageID: "m-" + number}))
	}

	gen := NewMemoryTicketNumberGenerator(repo)
	n1, err := gen.Next(ctx, testNow)
	require.NoError(t, err)
	n2, err := gen.Next(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, "TK2403150013", n1)
	assert.Equal(t, "TK2403150014", n2)

	n3, err := gen.Next(ctx, time.Date(2024, 3, 15, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "TK2403160001", n3)
}

func TestRedisTicketNumbersFallBackWhenUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()

	gen := NewRedisTicketNumberGenerator(client, nil, nil)
	n1, err := gen.Next(context.Background(), testNow)
	require.NoError(t, err)
	n2, err := gen.Next(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, "TK2403150001", n1)
	assert.Equal(t, "TK2403150002", n2)
}

func TestFormatTicketNumber(t *testing.T) {
	assert.Equal(t, "TK2401010042", formatTicketNumber("240101", 42))
	assert.Equal(t, "TK24010112345", formatTicketNumber("240101", 12345))
}
