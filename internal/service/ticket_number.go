package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ai-secretary/internal/repository"
)

const (
	ticketNumberPrefix = "TK"
	ticketSeqKeyPrefix = "ticket_seq:"
	ticketSeqTTL       = 48 * time.Hour
)

// officeZone is the management office's local time; day boundaries follow it.
var officeZone = time.FixedZone("KST", 9*60*60)

// TicketNumberGenerator issues human-readable ticket numbers of the form
// TK + yyMMdd + 4-digit per-day sequence.
type TicketNumberGenerator interface {
	Next(ctx context.Context, at time.Time) (string, error)
}

// TicketNumberSource reports the highest number already stored under a
// prefix. Generators resume after it.
type TicketNumberSource interface {
	LatestNumber(ctx context.Context, prefix string) (string, error)
}

func formatTicketNumber(day string, seq int64) string {
	return fmt.Sprintf("%s%s%04d", ticketNumberPrefix, day, seq)
}

func ticketDay(at time.Time) string {
	return at.In(officeZone).Format("060102")
}

func dayPrefix(day string) string {
	return ticketNumberPrefix + day
}

// storedSequence returns the last sequence issued for day, or 0 when nothing
// is stored yet.
func storedSequence(ctx context.Context, source TicketNumberSource, day string) (int64, error) {
	if source == nil {
		return 0, nil
	}
	latest, err := source.LatestNumber(ctx, dayPrefix(day))
	if errors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	seq, err := strconv.ParseInt(strings.TrimPrefix(latest, dayPrefix(day)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ticket number %q: %w", latest, err)
	}
	return seq, nil
}

type memoryTicketNumbers struct {
	mu     sync.Mutex
	source TicketNumberSource
	day    string
	next   int64
}

// NewMemoryTicketNumberGenerator keeps the per-day counter in process. The
// counter for a new day starts after the latest number in source, which may
// be nil.
func NewMemoryTicketNumberGenerator(source TicketNumberSource) TicketNumberGenerator {
	return &memoryTicketNumbers{source: source}
}

func (g *memoryTicketNumbers) Next(ctx context.Context, at time.Time) (string, error) {
	day := ticketDay(at)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.day != day {
		seq, err := storedSequence(ctx, g.source, day)
		if err != nil {
			return "", fmt.Errorf("seed ticket sequence: %w", err)
		}
		g.day = day
		g.next = seq
	}
	g.next++
	return formatTicketNumber(day, g.next), nil
}

type redisTicketNumbers struct {
	client   *redis.Client
	source   TicketNumberSource
	fallback TicketNumberGenerator
	logger   *zap.Logger
}

// NewRedisTicketNumberGenerator shares the per-day counter across replicas via
// INCR. A freshly created day key is bumped past the latest stored number.
// When Redis fails the in-process counter is used and a warning logged.
func NewRedisTicketNumberGenerator(client *redis.Client, source TicketNumberSource, logger *zap.Logger) TicketNumberGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisTicketNumbers{
		client:   client,
		source:   source,
		fallback: NewMemoryTicketNumberGenerator(source),
		logger:   logger,
	}
}

func (g *redisTicketNumbers) Next(ctx context.Context, at time.Time) (string, error) {
	day := ticketDay(at)
	key := ticketSeqKeyPrefix + day

	pipe := g.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ticketSeqTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		g.logger.Warn("ticket sequence unavailable; using local counter", zap.String("key", key), zap.Error(err))
		return g.fallback.Next(ctx, at)
	}
	seq := incr.Val()
	if seq == 1 {
		stored, err := storedSequence(ctx, g.source, day)
		if err != nil {
			return "", fmt.Errorf("seed ticket sequence: %w", err)
		}
		if stored > 0 {
			bumped, err := g.client.IncrBy(ctx, key, stored).Result()
			if err != nil {
				g.logger.Warn("ticket sequence unavailable; using local counter", zap.String("key", key), zap.Error(err))
				return g.fallback.Next(ctx, at)
			}
			seq = bumped
		}
	}
	return formatTicketNumber(day, seq), nil
}
