package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("redis down")

	tests := []struct {
		name   string
		err    *Error
		typ    ErrorType
		status int
	}{
		{"validation", ValidationError("bad input"), TypeValidation, http.StatusBadRequest},
		{"unauthorized", UnauthorizedError("missing token"), TypeUnauthorized, http.StatusUnauthorized},
		{"not found", NotFoundError("no config"), TypeNotFound, http.StatusNotFound},
		{"internal", InternalError("failed", cause), TypeInternal, http.StatusInternalServerError},
		{"external", ExternalError("store unavailable", cause), TypeExternal, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.err.Type)
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
			assert.NotNil(t, tt.err.Context)
			assert.Contains(t, tt.err.Error(), string(tt.typ))
		})
	}
}

func TestErrorIncludesCause(t *testing.T) {
	err := InternalError("failed to save config", errors.New("connection refused"))

	assert.Equal(t, "internal: failed to save config: connection refused", err.Error())
	assert.NotContains(t, InternalError("no cause", nil).Error(), "<nil>")
}

func TestUnwrap(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := ExternalError("wrapped", fmt.Errorf("ctx: %w", sentinel))

	assert.ErrorIs(t, err, sentinel)
}

func TestWithField(t *testing.T) {
	err := ValidationError("bad input").
		WithField("field", "perfect_45_message").
		WithField("broadcaster_id", "123")

	assert.Equal(t, "perfect_45_message", err.Context["field"])
	assert.Equal(t, "123", err.Context["broadcaster_id"])

	var bare Error
	bare.WithField("k", "v")
	assert.Equal(t, "v", bare.Context["k"])
}

func TestToResponse(t *testing.T) {
	resp := NotFoundError("config not found").WithField("broadcaster_id", "42").ToResponse()

	assert.Equal(t, "config not found", resp.Error)
	assert.Equal(t, TypeNotFound, resp.Type)
	assert.Equal(t, map[string]any{"broadcaster_id": "42"}, resp.Context)
}

func TestAsStructuredError(t *testing.T) {
	assert.Nil(t, AsStructuredError(nil))

	structured := ValidationError("bad")
	assert.Same(t, structured, AsStructuredError(fmt.Errorf("handler: %w", structured)))

	plain := errors.New("boom")
	got := AsStructuredError(plain)
	require.NotNil(t, got)
	assert.Equal(t, TypeInternal, got.Type)
	assert.Equal(t, "internal server error", got.Message)
	assert.ErrorIs(t, got, plain)
}

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{http.StatusBadRequest, TypeValidation},
		{http.StatusUnauthorized, TypeUnauthorized},
		{http.StatusNotFound, TypeNotFound},
		{http.StatusBadGateway, TypeExternal},
		{http.StatusServiceUnavailable, TypeExternal},
		{http.StatusTeapot, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, FromHTTPStatus(tt.code, "msg").Type)
		})
	}
}
