package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ai-secretary/internal/domain"
	"github.com/spec-kit/ai-secretary/internal/repository"
	apperrors "github.com/spec-kit/ai-secretary/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 15)

	token, expiresAt, err := tm.GenerateToken("staff_001", domain.SubjectTypeStaff, "관리소장")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "staff_001", claims.Subject)
	assert.Equal(t, domain.SubjectTypeStaff, claims.SubjectType)
	assert.Equal(t, "관리소장", claims.Role)
}

func TestParseTokenRejects(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	token, _, err := tm.GenerateToken("staff_001", domain.SubjectTypeStaff, "")
	require.NoError(t, err)

	_, err = NewTokenManager("other", 1).ParseToken(token)
	assert.Error(t, err, "wrong secret")

	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tm.ParseToken(token)
	assert.Error(t, err, "expired")

	_, err = tm.ParseToken("not-a-jwt")
	assert.Error(t, err)
}

func TestAccessCode(t *testing.T) {
	hash, err := HashAccessCode("1234", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, CompareAccessCode(hash, "1234"))
	assert.Error(t, CompareAccessCode(hash, "4321"))
}

func newProtectedApp(tm *TokenManager, roles ...string) *fiber.App {
	roster := append([]domain.StaffMember{}, repository.DefaultRoster...)
	roster = append(roster, domain.StaffMember{ID: "staff_retired", Name: "퇴직자", Role: "경비원"})
	mw := NewAuthMiddleware(tm, repository.NewStaffRepository(roster))

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		domainErr := apperrors.ToDomainError(err)
		return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
	}})
	app.Get("/private", mw.Handle, RequireStaffRole(roles...), func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		return c.SendString(principal.StaffID())
	})
	return app
}

func doGet(t *testing.T, app *fiber.App, header string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if header != "" {
		req.Header.Set(fiber.HeaderAuthorization, header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	app := newProtectedApp(tm)

	valid, _, err := tm.GenerateToken("staff_002", domain.SubjectTypeStaff, "경비원")
	require.NoError(t, err)
	unknown, _, err := tm.GenerateToken("staff_999", domain.SubjectTypeStaff, "")
	require.NoError(t, err)
	inactive, _, err := tm.GenerateToken("staff_retired", domain.SubjectTypeStaff, "")
	require.NoError(t, err)
	system, _, err := tm.GenerateToken("staff_002", domain.SubjectTypeSystem, "")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, doGet(t, app, "Bearer "+valid))
	assert.Equal(t, http.StatusUnauthorized, doGet(t, app, ""))
	assert.Equal(t, http.StatusUnauthorized, doGet(t, app, "Token "+valid))
	assert.Equal(t, http.StatusUnauthorized, doGet(t, app, "Bearer garbage"))
	assert.Equal(t, http.StatusUnauthorized, doGet(t, app, "Bearer "+unknown))
	assert.Equal(t, http.StatusUnauthorized, doGet(t, app, "Bearer "+inactive))
	assert.Equal(t, http.StatusUnauthorized, doGet(t, app, "Bearer "+system))
}

func TestRequireStaffRole(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	app := newProtectedApp(tm, "관리소장")

	head, _, err := tm.GenerateToken("staff_001", domain.SubjectTypeStaff, "관리소장")
	require.NoError(t, err)
	guard, _, err := tm.GenerateToken("staff_002", domain.SubjectTypeStaff, "경비원")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, doGet(t, app, "Bearer "+head))
	assert.Equal(t, http.StatusForbidden, doGet(t, app, "Bearer "+guard))
}
