package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ai-secretary/internal/classifier"
	"github.com/spec-kit/ai-secretary/internal/events"
	"github.com/spec-kit/ai-secretary/internal/repository"
	"github.com/spec-kit/ai-secretary/internal/sla"
)

var testNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubFallback struct {
	mu        sync.Mutex
	available bool
	result    *classifier.FallbackResult
	err       error
	calls     int
}

func (s *stubFallback) IsAvailable(context.Context) bool { return s.available }

func (s *stubFallback) ClassifyMessage(context.Context, string) (*classifier.FallbackResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.result, s.err
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) count(t events.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type pipeline struct {
	clock       *fixedClock
	messages    repository.MessageRepository
	ticketRepo  repository.TicketRepository
	intake      *IntakeService
	tickets     *TicketService
	assignment  *AssignmentService
	integration *TicketIntegration
	dispatcher  events.Dispatcher
	recorded    *recorder
}

type pipelineOption func(*pipelineConfig)

type pipelineConfig struct {
	fallback classifier.Fallback
	numbers  TicketNumberGenerator
}

func withFallback(f classifier.Fallback) pipelineOption {
	return func(c *pipelineConfig) { c.fallback = f }
}

func withNumbers(g TicketNumberGenerator) pipelineOption {
	return func(c *pipelineConfig) { c.numbers = g }
}

// newPipeline wires the full intake pipeline over in-memory stores. The
// assignment picker always takes the last candidate.
func newPipeline(t *testing.T, opts ...pipelineOption) *pipeline {
	t.Helper()
	cfg := &pipelineConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	logger := zap.NewNop()
	clock := &fixedClock{now: testNow}
	dispatcher := events.NewInMemoryDispatcher(logger)
	rec := &recorder{}
	for _, et := range []events.EventType{
		events.EventMessageReceived, events.EventMessageClassified, events.EventTicketCreated,
		events.EventTicketStatusChanged, events.EventTicketAssigned,
	} {
		dispatcher.Subscribe(et, rec.handle)
	}

	messages := repository.NewMemoryMessageRepository()
	ticketRepo := repository.NewMemoryTicketRepository()
	staff := repository.NewStaffRepository(nil)
	numbers := cfg.numbers
	if numbers == nil {
		numbers = NewMemoryTicketNumberGenerator(ticketRepo)
	}

	assignment := NewAssignmentService(AssignmentDependencies{
		TicketRepo: ticketRepo,
		StaffRepo:  staff,
		Logger:     logger,
		Pick:       func(n int) int { return n - 1 },
		Clock:      clock.Now,
	})
	rules := classifier.NewRuleBased(nil)
	tickets := NewTicketService(TicketDependencies{
		TicketRepo: ticketRepo,
		StaffRepo:  staff,
		Assignment: assignment,
		SLA:        sla.NewEngine(nil, logger),
		Rules:      rules,
		Numbers:    numbers,
		Dispatcher: dispatcher,
		Logger:     logger,
		Clock:      clock.Now,
	})
	intake := NewIntakeService(IntakeDependencies{
		MessageRepo: messages,
		Classifier:  classifier.New(rules, cfg.fallback, classifier.Options{}, logger, nil),
		Dispatcher:  dispatcher,
		Logger:      logger,
		Clock:       clock.Now,
	})
	integration := NewTicketIntegration(intake, tickets, logger)
	integration.RegisterHandlers(dispatcher)

	return &pipeline{
		clock:       clock,
		messages:    messages,
		ticketRepo:  ticketRepo,
		intake:      intake,
		tickets:     tickets,
		assignment:  assignment,
		integration: integration,
		dispatcher:  dispatcher,
		recorded:    rec,
	}
}

func (p *pipeline) ticketCount(t *testing.T) int {
	t.Helper()
	n, err := p.ticketRepo.Count(context.Background())
	require.NoError(t, err)
	return n
}
