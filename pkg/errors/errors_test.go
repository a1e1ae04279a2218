package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Sentinel error identity ---

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrConnectivity, ErrValidation, ErrSessionExpired, ErrForbidden,
		ErrNotFound, ErrConflict, ErrUnprocessable, ErrRateLimited,
		ErrServerError, ErrUpstreamUnavailable, ErrUnknown,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

// --- AppError behavior ---

func TestAppError_ErrorString_WithWrappedError(t *testing.T) {
	inner := fmt.Errorf("dial tcp: connection refused")
	appErr := Connectivity(inner)
	assert.Contains(t, appErr.Error(), "CONNECTIVITY")
	assert.Contains(t, appErr.Error(), "connection refused")
}

func TestAppError_ErrorString_WithoutWrappedError(t *testing.T) {
	appErr := &AppError{Kind: KindNotFound, Message: "nope"}
	assert.Equal(t, "NOT_FOUND: nope", appErr.Error())
}

func TestAppError_UnwrapsKindSentinelAndCause(t *testing.T) {
	cause := errors.New("boom")
	appErr := Connectivity(cause)
	assert.True(t, errors.Is(appErr, ErrConnectivity))
	assert.True(t, errors.Is(appErr, cause))
	assert.False(t, errors.Is(appErr, ErrServerError))
}

func TestAppError_WrappedStillMatches(t *testing.T) {
	err := fmt.Errorf("create user: %w", Conflict("CPF already exists"))
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, "CPF already exists", UserMessage(err))
}

// --- Classification ---

func TestFromStatus_Table(t *testing.T) {
	tests := []struct {
		status  int
		kind    Kind
		message string
	}{
		{0, KindConnectivity, MsgConnectivity},
		{http.StatusBadRequest, KindValidation, MsgValidation},
		{http.StatusUnauthorized, KindSessionExpired, MsgSessionExpired},
		{http.StatusForbidden, KindForbidden, MsgForbidden},
		{http.StatusNotFound, KindNotFound, MsgNotFound},
		{http.StatusConflict, KindConflict, MsgConflict},
		{http.StatusUnprocessableEntity, KindUnprocessable, MsgUnprocessable},
		{http.StatusTooManyRequests, KindRateLimited, MsgRateLimited},
		{http.StatusInternalServerError, KindServerError, MsgServerError},
		{http.StatusBadGateway, KindUpstreamUnavailable, MsgUpstreamUnavailable},
		{http.StatusServiceUnavailable, KindUpstreamUnavailable, MsgUpstreamUnavailable},
		{http.StatusGatewayTimeout, KindUpstreamUnavailable, MsgUpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := FromStatus(tt.status, http.StatusText(tt.status), "")
			require.NotNil(t, err)
			assert.Equal(t, tt.kind, err.Kind)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.status, err.Status)
		})
	}
}

func TestFromStatus_ServerMessageOnlyForMessageKinds(t *testing.T) {
	assert.Equal(t, "bad cpf", FromStatus(400, "Bad Request", "bad cpf").Message)
	assert.Equal(t, "dup", FromStatus(409, "Conflict", "dup").Message)
	assert.Equal(t, "nope", FromStatus(422, "Unprocessable Entity", "nope").Message)
	assert.Equal(t, MsgForbidden, FromStatus(403, "Forbidden", "ignored").Message)
	assert.Equal(t, MsgServerError, FromStatus(500, "Internal Server Error", "stack").Message)
}

func TestFromStatus_Unknown(t *testing.T) {
	err := FromStatus(418, "I'm a teapot", "")
	assert.Equal(t, KindUnknown, err.Kind)
	assert.Equal(t, 418, err.Status)
	assert.Equal(t, "I'm a teapot", err.StatusText)
	assert.Equal(t, "Erro 418: I'm a teapot", err.Message)
	assert.True(t, errors.Is(err, ErrUnknown))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestIsSessionExpired(t *testing.T) {
	assert.True(t, IsSessionExpired(SessionExpired()))
	assert.True(t, IsSessionExpired(fmt.Errorf("whoami: %w", SessionExpired())))
	assert.False(t, IsSessionExpired(Forbidden()))
}

func TestUserMessage_Fallbacks(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "Ocorreu um erro inesperado", UserMessage(errors.New("x")))
}
