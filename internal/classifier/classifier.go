package classifier

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ai-secretary/internal/domain"
	"github.com/spec-kit/ai-secretary/internal/observability"
)

const (
	// DefaultThreshold is the rule confidence below which the fallback is consulted.
	DefaultThreshold       = 0.7
	defaultFallbackTimeout = 30 * time.Second
)

// Options tunes the escalation to the fallback.
type Options struct {
	Threshold       float64
	FallbackTimeout time.Duration
}

// Classifier runs the rule table and escalates uncertain results to a fallback.
// Classify never fails: fallback problems degrade to the rule result.
type Classifier struct {
	rules    *RuleBased
	fallback Fallback
	opts     Options
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// New builds a classifier. fallback may be nil.
func New(rules *RuleBased, fallback Fallback, opts Options, logger *zap.Logger, metrics *observability.Metrics) *Classifier {
	if rules == nil {
		rules = NewRuleBased(nil)
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.FallbackTimeout <= 0 {
		opts.FallbackTimeout = defaultFallbackTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{rules: rules, fallback: fallback, opts: opts, logger: logger, metrics: metrics}
}

// Rules exposes the rule table, used to infer categories without I/O.
func (c *Classifier) Rules() *RuleBased {
	return c.rules
}

// Classify returns the rule result, replaced by the fallback answer only when
// the fallback is strictly more confident.
func (c *Classifier) Classify(ctx context.Context, text string) Result {
	res := c.rules.Classify(text)
	if res.Confidence < c.opts.Threshold && c.fallback != nil {
		res = c.escalate(ctx, text, res)
	}
	c.metrics.RecordClassification(string(res.Method), string(res.Category))
	return res
}

func (c *Classifier) escalate(ctx context.Context, text string, rule Result) (out Result) {
	out = rule
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("fallback classifier panicked", zap.Any("panic", r))
			c.metrics.RecordFallback("error")
			out = rule
		}
	}()

	if !c.fallback.IsAvailable(ctx) {
		c.metrics.RecordFallback("unavailable")
		return rule
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.FallbackTimeout)
	defer cancel()

	fb, err := c.fallback.ClassifyMessage(ctx, text)
	if err != nil {
		c.logger.Warn("fallback classification failed, using rule result",
			zap.Error(err),
			zap.String("category", string(rule.Category)),
			zap.Float64("confidence", rule.Confidence))
		c.metrics.RecordFallback("error")
		return rule
	}
	if fb == nil || !fb.Category.Valid() || math.IsNaN(fb.Confidence) || fb.Confidence <= rule.Confidence {
		c.metrics.RecordFallback("kept_rule")
		return rule
	}

	c.metrics.RecordFallback("replaced")
	c.logger.Debug("fallback classification accepted",
		zap.String("category", string(fb.Category)),
		zap.Float64("confidence", fb.Confidence))
	return Result{
		Category:   fb.Category,
		Confidence: clamp(fb.Confidence),
		Method:     domain.ClassificationMethodLLM,
		Reasoning:  fb.Reasoning,
	}
}
