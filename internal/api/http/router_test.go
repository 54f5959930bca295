package http

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ai-secretary/internal/api/http/handlers"
	"github.com/spec-kit/ai-secretary/internal/auth"
	"github.com/spec-kit/ai-secretary/internal/classifier"
	"github.com/spec-kit/ai-secretary/internal/config"
	"github.com/spec-kit/ai-secretary/internal/events"
	"github.com/spec-kit/ai-secretary/internal/observability"
	"github.com/spec-kit/ai-secretary/internal/repository"
	"github.com/spec-kit/ai-secretary/internal/service"
)

const testAccessCode = "0000"

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return assert.AnError }

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func newTestApp(t *testing.T, deps map[string]handlers.Pinger) *fiber.App {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	staff := repository.NewStaffRepository(nil)
	ticketRepo := repository.NewMemoryTicketRepository()
	assignment := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: ticketRepo,
		StaffRepo:  staff,
		Pick:       func(int) int { return 0 },
	})
	rules := classifier.NewRuleBased(nil)
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		StaffRepo:  staff,
		Assignment: assignment,
		Rules:      rules,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	})
	intake := service.NewIntakeService(service.IntakeDependencies{
		MessageRepo: repository.NewMemoryMessageRepository(),
		Classifier:  classifier.New(rules, nil, classifier.Options{}, logger, metrics),
		Dispatcher:  dispatcher,
		Metrics:     metrics,
	})
	integration := service.NewTicketIntegration(intake, tickets, logger)
	integration.RegisterHandlers(dispatcher)

	hash, err := auth.HashAccessCode(testAccessCode, bcrypt.MinCost)
	require.NoError(t, err)
	authService := service.NewAuthService(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, AccessCodeHash: hash},
		service.AuthDependencies{StaffRepo: staff})

	app := NewApp("ai-secretary-test")
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("ai-secretary", "test", deps),
		Intake:         handlers.NewIntakeHandler(intake),
		Tickets:        handlers.NewTicketsHandler(tickets, integration, 0),
		Staff:          handlers.NewStaffHandler(authService, assignment),
		LLM:            handlers.NewLLMHandler(nil),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), staff),
		Metrics:        metrics,
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data object: %v", body)
	return d
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func login(t *testing.T, app *fiber.App, staffID string) string {
	t.Helper()
	status, body := doJSON(t, app, fiber.MethodPost, "/auth/staff/login", map[string]string{
		"staff_id": staffID, "access_code": testAccessCode,
	}, "")
	require.Equal(t, fiber.StatusOK, status, body)
	authBlock := data(t, body)["auth"].(map[string]any)
	return authBlock["token"].(string)
}

func TestUrgentSMSCreatesTicket(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := doJSON(t, app, fiber.MethodPost, "/api/intake/sms", map[string]string{
		"from": "010-1234-5678", "body": "101동 1502호 화재가 발생했어요! 빨리 와주세요",
	}, "")
	require.Equal(t, fiber.StatusCreated, status, body)
	msg := data(t, body)
	assert.Equal(t, "urgent", msg["priority"])
	assert.Equal(t, "classified", msg["status"])
	assert.Equal(t, "emergency", msg["classification"])
	assert.Equal(t, "010-****-5678", msg["sender"])
	assert.NotContains(t, msg, "masked_content")
	unit := msg["apartment_unit"].(map[string]any)
	assert.Equal(t, "101동 1502호", unit["formatted"])

	ticketID, ok := msg["ticket_id"].(string)
	require.True(t, ok, "ticket_id should be linked")

	status, body = doJSON(t, app, fiber.MethodGet, "/api/tickets/by-message/"+msg["id"].(string), nil, "")
	require.Equal(t, fiber.StatusOK, status)
	ticket := data(t, body)
	assert.Equal(t, ticketID, ticket["id"])
	assert.Equal(t, "staff_001", ticket["assignee_id"])
	assert.Equal(t, "emergency", ticket["category"])
}

func TestEmailSubjectIsPrepended(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := doJSON(t, app, fiber.MethodPost, "/api/intake/email", map[string]string{
		"from": "resident@example.com", "subject": "관리비 문의", "body": "이번 달 관리비가 너무 많이 나왔어요",
	}, "")
	require.Equal(t, fiber.StatusCreated, status, body)
	msg := data(t, body)
	assert.Equal(t, "관리비 문의\n\n이번 달 관리비가 너무 많이 나왔어요", msg["content"])
	assert.Equal(t, "pending", msg["status"])
	assert.Nil(t, msg["ticket_id"])
}

func TestWebFormUsesNameWithoutEmail(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := doJSON(t, app, fiber.MethodPost, "/api/intake/web", map[string]string{
		"name": "홍길동", "message": "관리비 문의드립니다",
	}, "")
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, "홍*동", data(t, body)["sender"])

	status, body = doJSON(t, app, fiber.MethodPost, "/api/intake/web", map[string]string{
		"message": "관리비 문의드립니다",
	}, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestIntakeValidation(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := doJSON(t, app, fiber.MethodPost, "/api/intake/call", map[string]string{"caller": "010-1111-2222"}, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = doJSON(t, app, fiber.MethodPost, "/api/intake/messages", map[string]string{
		"channel": "fax", "content": "안녕하세요", "sender": "x",
	}, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = doJSON(t, app, fiber.MethodGet, "/api/intake/messages/missing", nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestMessageLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t, nil)

	_, body := doJSON(t, app, fiber.MethodPost, "/api/intake/chat", map[string]string{
		"from": "chat-42", "message": "엘리베이터가 고장났어요",
	}, "")
	id := data(t, body)["id"].(string)

	status, body := doJSON(t, app, fiber.MethodPatch, "/api/intake/messages/"+id+"/status", map[string]string{"status": "classified"}, "")
	require.Equal(t, fiber.StatusOK, status, body)
	msg := data(t, body)
	assert.Equal(t, "classified", msg["status"])
	assert.NotNil(t, msg["ticket_id"])

	status, body = doJSON(t, app, fiber.MethodPatch, "/api/intake/messages/"+id+"/status", map[string]string{"status": "pending"}, "")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(body))

	status, body = doJSON(t, app, fiber.MethodGet, "/api/intake/stats", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, data(t, body)["total_messages"])
}

func TestTicketMutationsRequireStaff(t *testing.T) {
	app := newTestApp(t, nil)

	_, body := doJSON(t, app, fiber.MethodPost, "/api/intake/web", map[string]string{
		"name": "홍길동", "email": "hong@example.com", "message": "가스 냄새가 심하게 나요",
	}, "")
	ticketID := data(t, body)["ticket_id"].(string)

	status, body := doJSON(t, app, fiber.MethodPatch, "/api/tickets/"+ticketID+"/status", map[string]string{"status": "resolved"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	token := login(t, app, "staff_004")

	status, body = doJSON(t, app, fiber.MethodPatch, "/api/tickets/"+ticketID+"/assign", map[string]string{"assignee_id": "staff_004"}, token)
	require.Equal(t, fiber.StatusOK, status, body)
	ticket := data(t, body)
	assert.Equal(t, "staff_004", ticket["assignee_id"])
	assert.Equal(t, "in_progress", ticket["status"])

	status, body = doJSON(t, app, fiber.MethodPatch, "/api/tickets/"+ticketID+"/status", map[string]string{"status": "resolved"}, token)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.NotNil(t, data(t, body)["resolved_at"])

	status, body = doJSON(t, app, fiber.MethodPatch, "/api/tickets/"+ticketID+"/status", map[string]string{"status": "open"}, token)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(body))
}

func TestLoginFailures(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := doJSON(t, app, fiber.MethodPost, "/auth/staff/login", map[string]string{"staff_id": "staff_001", "access_code": "wrong"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, _ = doJSON(t, app, fiber.MethodPost, "/auth/staff/login", map[string]string{"staff_id": ""}, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestSLAAndStaffViews(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := doJSON(t, app, fiber.MethodGet, "/api/tickets/sla/dashboard", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	dashboard := data(t, body)["dashboard"].(map[string]any)
	assert.EqualValues(t, 0, dashboard["total_tickets"])

	status, _ = doJSON(t, app, fiber.MethodGet, "/api/tickets/sla/upcoming?hours=-2", nil, "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doJSON(t, app, fiber.MethodGet, "/api/tickets/sla/upcoming?hours=12", nil, "")
	assert.Equal(t, fiber.StatusOK, status)

	status, body = doJSON(t, app, fiber.MethodGet, "/api/tickets/staff", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], len(repository.DefaultRoster))

	status, body = doJSON(t, app, fiber.MethodGet, "/api/tickets/staff/workload", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], len(repository.DefaultRoster))

	status, body = doJSON(t, app, fiber.MethodGet, "/api/tickets?status=bogus", nil, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestLLMStatusWithoutBackend(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := doJSON(t, app, fiber.MethodGet, "/api/llm/status", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, data(t, body)["configured"])

	token := login(t, app, "staff_001")
	status, body = doJSON(t, app, fiber.MethodPatch, "/api/llm/toggle", map[string]bool{"enabled": true}, token)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(body))
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t, map[string]handlers.Pinger{"postgres": okPinger{}, "redis": failingPinger{}})

	status, body := doJSON(t, app, fiber.MethodGet, "/health/live", nil, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = doJSON(t, app, fiber.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "ok", details["postgres"])
	assert.NotEqual(t, "ok", details["redis"])

	status, _ = doJSON(t, app, fiber.MethodGet, "/metrics", nil, "")
	assert.Equal(t, fiber.StatusOK, status)

	status, body = doJSON(t, app, fiber.MethodGet, "/nope", nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}
