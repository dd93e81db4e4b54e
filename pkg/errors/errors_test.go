package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := ErrStoreUnavailable.WithCause(fmt.Errorf("dial tcp: refused"))

	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.True(t, IsStoreUnavailable(fmt.Errorf("append m1: %w", err)))
}

func TestError_WithDetailDoesNotMutateSentinel(t *testing.T) {
	_ = ErrValidation.WithDetail("field", "id")

	assert.Empty(t, ErrValidation.Details)
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", ErrValidation, http.StatusBadRequest},
		{"configuration", ErrConfiguration.WithMessage("verify token not registered"), http.StatusForbidden},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"store", ErrStoreUnavailable, http.StatusServiceUnavailable},
		{"wrapped", fmt.Errorf("outer: %w", ErrUpstream), http.StatusBadGateway},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTTPStatus(tt.err))
		})
	}
}

func TestToErrorResponse(t *testing.T) {
	resp := ToErrorResponse(ErrValidation.WithMessage("id is required"))
	assert.Equal(t, "id is required", resp["error"])
	assert.Equal(t, "VALIDATION_ERROR", resp["error_code"])

	resp = ToErrorResponse(errors.New("boom"))
	assert.Equal(t, "internal server error", resp["error"])
	assert.Equal(t, "INTERNAL_ERROR", resp["error_code"])
}

func TestRetryClassification(t *testing.T) {
	assert.False(t, ErrValidation.IsRetryable())
	assert.True(t, ErrValidation.IsFatal())
	assert.True(t, ErrStoreUnavailable.IsRetryable())
	assert.False(t, ErrStoreUnavailable.IsFatal())
	assert.True(t, ErrValidation.AsRetryable().IsRetryable())
}

func TestRecoverPanic(t *testing.T) {
	assert.Nil(t, RecoverPanic(nil))

	err := RecoverPanic("kaboom")
	var appErr *Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.True(t, appErr.IsFatal())
	assert.Equal(t, true, appErr.Details["panic"])
}

func TestGuard(t *testing.T) {
	err := Guard(func() error { panic("nil map write") })
	require.Error(t, err)
	assert.True(t, IsPanic(err))
	assert.Contains(t, err.Error(), "nil map write")

	plain := errors.New("store down")
	err = Guard(func() error { return plain })
	assert.Same(t, plain, err)
	assert.False(t, IsPanic(err))

	assert.NoError(t, Guard(func() error { return nil }))
}
