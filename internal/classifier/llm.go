package classifier

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/spec-kit/ai-secretary/internal/domain"
)

const (
	DefaultLLMBaseURL = "http://localhost:11434/v1"
	DefaultLLMModel   = "mistral"

	probeTimeout        = 5 * time.Second
	defaultTemperature  = 0.1
	defaultMaxTokens    = 500
	parseFailConfidence = 0.5
)

// ErrLLMDisabled is returned by ClassifyMessage while the backend is switched off.
var ErrLLMDisabled = errors.New("llm classifier disabled")

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// koreanLabels maps free-form Korean labels to categories, checked in order.
var koreanLabels = []struct {
	keyword  string
	category domain.Category
}{
	{"소음", domain.CategoryNoise},
	{"주차", domain.CategoryParking},
	{"시설관리", domain.CategoryMaintenance},
	{"수리", domain.CategoryMaintenance},
	{"관리비", domain.CategoryBilling},
	{"요금", domain.CategoryBilling},
	{"보안", domain.CategorySecurity},
	{"출입", domain.CategorySecurity},
	{"응급", domain.CategoryEmergency},
	{"긴급", domain.CategoryEmergency},
	{"택배", domain.CategoryDelivery},
	{"흡연", domain.CategorySmoking},
	{"청소", domain.CategoryHygiene},
	{"문의", domain.CategoryInquiry},
}

// FallbackResult is what a fallback backend returns.
type FallbackResult struct {
	Category   domain.Category `json:"category"`
	Confidence float64         `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
}

// Fallback is consulted when the rule table is not confident enough.
type Fallback interface {
	IsAvailable(ctx context.Context) bool
	ClassifyMessage(ctx context.Context, text string) (*FallbackResult, error)
}

// LLMConfig configures the OpenAI-compatible backend (Ollama by default).
type LLMConfig struct {
	Enabled     bool
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float32
	MaxTokens   int
}

// LLMClassifier talks to an OpenAI-compatible chat completion endpoint.
type LLMClassifier struct {
	client  *openai.Client
	cfg     LLMConfig
	enabled atomic.Bool
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewLLMClassifier builds the backend; it does not contact the server.
func NewLLMClassifier(cfg LLMConfig, logger *zap.Logger) *LLMClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultLLMBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &LLMClassifier{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: logger,
	}
	c.enabled.Store(cfg.Enabled)
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm-classifier",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

// SetEnabled toggles the backend at runtime.
func (c *LLMClassifier) SetEnabled(enabled bool) {
	c.enabled.Store(enabled)
	c.logger.Info("llm classifier toggled", zap.Bool("enabled", enabled))
}

// Enabled reports the runtime toggle.
func (c *LLMClassifier) Enabled() bool {
	return c.enabled.Load()
}

// Model returns the configured model name.
func (c *LLMClassifier) Model() string { return c.cfg.Model }

// BaseURL returns the configured endpoint.
func (c *LLMClassifier) BaseURL() string { return c.cfg.BaseURL }

// BreakerState reports the circuit breaker state ("closed", "half-open", "open").
func (c *LLMClassifier) BreakerState() string { return c.breaker.State().String() }

// IsAvailable probes the model list within a bounded timeout and checks that
// the configured model is served. It never returns an error.
func (c *LLMClassifier) IsAvailable(ctx context.Context) bool {
	if !c.Enabled() || c.breaker.State() == gobreaker.StateOpen {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	models, err := c.client.ListModels(ctx)
	if err != nil {
		c.logger.Warn("llm backend not available", zap.Error(err))
		return false
	}
	for _, m := range models.Models {
		if strings.Contains(m.ID, c.cfg.Model) {
			return true
		}
	}
	c.logger.Warn("llm model not served", zap.String("model", c.cfg.Model))
	return false
}

// ClassifyMessage asks the model for a category. Replies that cannot be parsed
// become inquiry at 0.5; transport failures are returned as errors.
func (c *LLMClassifier) ClassifyMessage(ctx context.Context, text string) (*FallbackResult, error) {
	if !c.Enabled() {
		return nil, ErrLLMDisabled
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.cfg.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: buildPrompt(text)},
			},
			Temperature: c.cfg.Temperature,
			MaxTokens:   c.cfg.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return "", nil
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return nil, fmt.Errorf("llm classify: %w", err)
	}
	return parseReply(out.(string)), nil
}

func buildPrompt(text string) string {
	var b strings.Builder
	b.WriteString("아파트 관리사무소에 접수된 다음 메시지를 분류해주세요.\n\n")
	fmt.Fprintf(&b, "메시지: %q\n\n", text)
	b.WriteString("다음 카테고리 중 하나로 분류하고, 신뢰도(0-1)와 이유를 제공해주세요:\n\n카테고리:\n")
	for _, c := range domain.AllCategories {
		fmt.Fprintf(&b, "- %s\n", strings.ToUpper(string(c)))
	}
	b.WriteString("\n응답 형식 (JSON):\n{\n  \"classification\": \"카테고리명\",\n  \"confidence\": 0.85,\n  \"reasoning\": \"분류 이유\"\n}")
	return b.String()
}

func parseReply(reply string) *FallbackResult {
	raw := jsonObject.FindString(reply)
	if raw == "" {
		return unparsable()
	}
	var parsed struct {
		Classification string  `json:"classification"`
		Confidence     float64 `json:"confidence"`
		Reasoning      string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return unparsable()
	}

	confidence := parsed.Confidence
	if confidence == 0 {
		confidence = parseFailConfidence
	}
	reasoning := parsed.Reasoning
	if reasoning == "" {
		reasoning = "LLM classification"
	}
	return &FallbackResult{
		Category:   mapLabel(parsed.Classification),
		Confidence: clamp(confidence),
		Reasoning:  reasoning,
	}
}

func unparsable() *FallbackResult {
	return &FallbackResult{
		Category:   domain.CategoryInquiry,
		Confidence: parseFailConfidence,
		Reasoning:  "Failed to parse LLM response",
	}
}

// mapLabel accepts enum names in any case or a Korean keyword.
func mapLabel(label string) domain.Category {
	normalized := strings.ReplaceAll(strings.TrimSpace(label), "-", "_")
	if c, ok := domain.ParseCategory(normalized); ok {
		return c
	}
	for _, kl := range koreanLabels {
		if strings.Contains(label, kl.keyword) {
			return kl.category
		}
	}
	return domain.CategoryInquiry
}
