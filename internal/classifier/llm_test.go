package classifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ai-secretary/internal/domain"
)

type fakeOllama struct {
	models  []string
	reply   string
	status  int
	lastReq openai.ChatCompletionRequest
}

func (f *fakeOllama) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		data := make([]map[string]string, 0, len(f.models))
		for _, m := range f.models {
			data = append(data, map[string]string{"id": m, "object": "model"})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&f.lastReq)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  f.lastReq.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": f.reply},
				"finish_reason": "stop",
			}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestLLM(srv *httptest.Server, enabled bool) *LLMClassifier {
	return NewLLMClassifier(LLMConfig{Enabled: enabled, BaseURL: srv.URL + "/v1", Model: "mistral", APIKey: "ollama"}, nil)
}

func TestLLMIsAvailable(t *testing.T) {
	ctx := context.Background()

	served := &fakeOllama{models: []string{"llama3:8b", "mistral:7b"}}
	assert.True(t, newTestLLM(served.server(t), true).IsAvailable(ctx))

	missing := &fakeOllama{models: []string{"llama3:8b"}}
	assert.False(t, newTestLLM(missing.server(t), true).IsAvailable(ctx))

	broken := &fakeOllama{status: http.StatusInternalServerError}
	assert.False(t, newTestLLM(broken.server(t), true).IsAvailable(ctx))

	disabled := &fakeOllama{models: []string{"mistral:7b"}}
	assert.False(t, newTestLLM(disabled.server(t), false).IsAvailable(ctx))
}

func TestLLMClassifyMessage(t *testing.T) {
	fake := &fakeOllama{reply: "분석 결과:\n{\"classification\": \"NOISE\", \"confidence\": 0.92, \"reasoning\": \"층간소음\"}"}
	llm := newTestLLM(fake.server(t), true)

	res, err := llm.ClassifyMessage(context.Background(), "윗집이 밤마다 쿵쿵거려요")

	require.NoError(t, err)
	assert.Equal(t, domain.CategoryNoise, res.Category)
	assert.Equal(t, 0.92, res.Confidence)
	assert.Equal(t, "층간소음", res.Reasoning)
	assert.Equal(t, "mistral", fake.lastReq.Model)
	assert.InDelta(t, 0.1, fake.lastReq.Temperature, 1e-6)
	require.Len(t, fake.lastReq.Messages, 1)
	assert.Contains(t, fake.lastReq.Messages[0].Content, "윗집이 밤마다 쿵쿵거려요")
}

func TestLLMClassifyMessageErrors(t *testing.T) {
	fake := &fakeOllama{status: http.StatusBadGateway}
	llm := newTestLLM(fake.server(t), true)

	_, err := llm.ClassifyMessage(context.Background(), "문의")
	assert.Error(t, err)

	llm.SetEnabled(false)
	_, err = llm.ClassifyMessage(context.Background(), "문의")
	assert.ErrorIs(t, err, ErrLLMDisabled)
}

func TestLLMBreakerOpensAfterRepeatedFailures(t *testing.T) {
	fake := &fakeOllama{status: http.StatusBadGateway}
	llm := newTestLLM(fake.server(t), true)

	for i := 0; i < 3; i++ {
		_, _ = llm.ClassifyMessage(context.Background(), "문의")
	}

	assert.Equal(t, "open", llm.BreakerState())
	assert.False(t, llm.IsAvailable(context.Background()))
}

func TestParseReply(t *testing.T) {
	cases := []struct {
		name       string
		reply      string
		category   domain.Category
		confidence float64
	}{
		{"enum upper", `{"classification":"PARKING","confidence":0.8}`, domain.CategoryParking, 0.8},
		{"enum lower with dash", `{"classification":"common-facility","confidence":0.7}`, domain.CategoryCommonFacility, 0.7},
		{"korean label", `{"classification":"주차 문제","confidence":0.6}`, domain.CategoryParking, 0.6},
		{"unknown label", `{"classification":"날씨","confidence":0.6}`, domain.CategoryInquiry, 0.6},
		{"missing confidence", `{"classification":"BILLING"}`, domain.CategoryBilling, 0.5},
		{"clamped", `{"classification":"EMERGENCY","confidence":1.7}`, domain.CategoryEmergency, 1},
		{"no json", "잘 모르겠습니다", domain.CategoryInquiry, 0.5},
		{"broken json", `{"classification": }`, domain.CategoryInquiry, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseReply(tc.reply)
			assert.Equal(t, tc.category, got.Category)
			assert.InDelta(t, tc.confidence, got.Confidence, 1e-9)
			assert.NotEmpty(t, got.Reasoning)
		})
	}
}
