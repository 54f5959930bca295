package errorutil_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/ai-secretary/pkg/util/errorutil"
)

func TestToDomainError(t *testing.T) {
	conflict := apperrors.NewConflict("ticket number already used", map[string]any{"number": "TK2403150001"})

	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"domain error passes through", conflict, "CONFLICT", http.StatusConflict},
		{"wrapped domain error", fmt.Errorf("create: %w", conflict), "CONFLICT", http.StatusConflict},
		{"fiber error", fiber.NewError(fiber.StatusRequestEntityTooLarge, "too big"), "REQUEST_ENTITY_TOO_LARGE", http.StatusRequestEntityTooLarge},
		{"plain error", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := apperrors.ToDomainError(tc.err)
			require.NotNil(t, got)
			assert.Equal(t, tc.code, got.Code)
			assert.Equal(t, tc.status, got.HTTPStatus)
		})
	}

	assert.Nil(t, apperrors.ToDomainError(nil))
	assert.NoError(t, apperrors.MapError(nil))
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("lookup: %w", apperrors.NewNotFound("ticket", nil))

	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
	assert.False(t, apperrors.IsCode(err, "CONFLICT"))
	assert.False(t, apperrors.IsCode(errors.New("boom"), "NOT_FOUND"))
}

func TestInternalErrorHidesCause(t *testing.T) {
	cause := errors.New("pool closed")
	err := apperrors.NewInternalError(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal server error: pool closed", err.Error())
	assert.Equal(t, "internal server error", apperrors.ToDomainError(err).Message)
}
