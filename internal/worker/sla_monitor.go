package worker

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/ai-secretary/internal/domain"
	"github.com/spec-kit/ai-secretary/internal/events"
	"github.com/spec-kit/ai-secretary/internal/observability"
)

// ViolationSource lists tickets currently past their SLA deadline.
type ViolationSource interface {
	Violations(ctx context.Context) ([]*domain.Ticket, error)
}

// SLAMonitorDependencies bundles what the monitor needs.
type SLAMonitorDependencies struct {
	Tickets    ViolationSource
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	// SweepTimeout bounds a single scheduled sweep. Defaults to 30s.
	SweepTimeout time.Duration
}

// SLAMonitor periodically sweeps for SLA breaches and announces each
// violated ticket once.
type SLAMonitor struct {
	tickets    ViolationSource
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	timeout    time.Duration

	mu       sync.Mutex
	notified map[string]struct{}

	cron *cron.Cron
}

// NewSLAMonitor creates an idle monitor. Call Start to schedule sweeps.
func NewSLAMonitor(deps SLAMonitorDependencies) *SLAMonitor {
	m := &SLAMonitor{
		tickets:    deps.Tickets,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		timeout:    deps.SweepTimeout,
		notified:   make(map[string]struct{}),
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.timeout <= 0 {
		m.timeout = 30 * time.Second
	}
	return m
}

// Start schedules Sweep on the given cron spec, e.g. "@every 5m" or "*/10 * * * *".
func (m *SLAMonitor) Start(spec string) error {
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(spec, m.runScheduled); err != nil {
		return err
	}
	m.cron = c
	c.Start()
	m.logger.Info("sla monitor started", zap.String("schedule", spec))
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish or ctx to expire.
func (m *SLAMonitor) Stop(ctx context.Context) {
	if m.cron == nil {
		return
	}
	done := m.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (m *SLAMonitor) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if _, err := m.Sweep(ctx); err != nil {
		m.logger.Error("sla sweep failed", zap.Error(err))
	}
}

// Sweep publishes ticket.sla_violated for every newly violated ticket and
// returns how many were announced.
func (m *SLAMonitor) Sweep(ctx context.Context) (int, error) {
	violated, err := m.tickets.Violations(ctx)
	if err != nil {
		return 0, err
	}

	fresh := make([]*domain.Ticket, 0)
	current := make(map[string]struct{}, len(violated))
	m.mu.Lock()
	for _, t := range violated {
		current[t.ID] = struct{}{}
		if _, seen := m.notified[t.ID]; seen {
			continue
		}
		m.notified[t.ID] = struct{}{}
		fresh = append(fresh, t)
	}
	// Closed tickets never violate again.
	for id := range m.notified {
		if _, ok := current[id]; !ok {
			delete(m.notified, id)
		}
	}
	m.mu.Unlock()

	for _, t := range fresh {
		m.metrics.RecordSLAViolation()
		m.logger.Warn("ticket violated SLA",
			zap.String("ticket_id", t.ID),
			zap.String("number", t.Number),
			zap.Time("sla_deadline", t.SLADeadline))
		if m.dispatcher == nil {
			continue
		}
		event := events.New(events.EventTicketSLAViolated, events.SystemActor, events.TicketSLAViolatedPayload{
			Number:      t.Number,
			SLADeadline: t.SLADeadline,
			AssigneeID:  t.AssigneeID,
		})
		event.TicketID = t.ID
		event.MessageID = t.IntakeMessageID
		if err := m.dispatcher.Publish(ctx, event); err != nil {
			m.logger.Error("publish sla violation", zap.String("ticket_id", t.ID), zap.Error(err))
		}
	}
	return len(fresh), nil
}
