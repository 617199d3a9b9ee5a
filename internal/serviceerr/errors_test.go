package serviceerr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Geodev122/cogniflow-sub002/internal/serviceerr"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name        string
		err         *serviceerr.Error
		expectedMsg string
	}{
		{
			name:        "Error with description",
			err:         &serviceerr.Error{Err: serviceerr.CodeNotFound, Description: "resource not found"},
			expectedMsg: "not_found: resource not found",
		},
		{
			name:        "Error without description",
			err:         &serviceerr.Error{Err: serviceerr.CodeInvalidRequest, Description: ""},
			expectedMsg: "invalid_request",
		},
		{
			name:        "Predefined error - ErrUnknown",
			err:         serviceerr.ErrUnknown,
			expectedMsg: "unknown: unknown error",
		},
		{
			name:        "Predefined error - ErrInvalidRole",
			err:         serviceerr.ErrInvalidRole,
			expectedMsg: "invalid_role: role must be therapist or client",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedMsg, tt.err.Error())
		})
	}
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		name               string
		code               serviceerr.Code
		expectedHTTPStatus int
	}{
		{
			name:               "CodeUnreachable returns BadGateway",
			code:               serviceerr.CodeUnreachable,
			expectedHTTPStatus: http.StatusBadGateway,
		},
		{
			name:               "CodeInvalidCredentials returns Unauthorized",
			code:               serviceerr.CodeInvalidCredentials,
			expectedHTTPStatus: http.StatusUnauthorized,
		},
		{
			name:               "CodeProfileNotFound returns NotFound",
			code:               serviceerr.CodeProfileNotFound,
			expectedHTTPStatus: http.StatusNotFound,
		},
		{
			name:               "CodeProfileFetchTimeout returns GatewayTimeout",
			code:               serviceerr.CodeProfileFetchTimeout,
			expectedHTTPStatus: http.StatusGatewayTimeout,
		},
		{
			name:               "CodeProfileCreationFailed returns Conflict",
			code:               serviceerr.CodeProfileCreationFailed,
			expectedHTTPStatus: http.StatusConflict,
		},
		{
			name:               "CodeInvalidRole returns BadRequest",
			code:               serviceerr.CodeInvalidRole,
			expectedHTTPStatus: http.StatusBadRequest,
		},
		{
			name:               "CodeUnknown returns InternalServerError",
			code:               serviceerr.CodeUnknown,
			expectedHTTPStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedHTTPStatus, tt.code.HTTPStatus())
		})
	}
}

func TestCode_Retryable(t *testing.T) {
	assert.True(t, serviceerr.CodeUnreachable.Retryable())
	assert.True(t, serviceerr.CodeProfileFetchTimeout.Retryable())
	assert.False(t, serviceerr.CodeInvalidCredentials.Retryable())
	assert.False(t, serviceerr.CodeInvalidRole.Retryable())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected serviceerr.Code
	}{
		{
			name:     "Classified error",
			err:      serviceerr.ErrInvalidCredentials,
			expected: serviceerr.CodeInvalidCredentials,
		},
		{
			name:     "Wrapped classified error",
			err:      fmt.Errorf("signing in: %w", serviceerr.ErrUnreachable),
			expected: serviceerr.CodeUnreachable,
		},
		{
			name:     "Repository not-found sentinel",
			err:      fmt.Errorf("loading profile: %w", serviceerr.ErrNotFound),
			expected: serviceerr.CodeNotFound,
		},
		{
			name:     "Repository conflict sentinel",
			err:      serviceerr.ErrConflict,
			expected: serviceerr.CodeConflict,
		},
		{
			name:     "Unclassified error",
			err:      errors.New("boom"),
			expected: serviceerr.CodeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, serviceerr.Classify(tt.err))
		})
	}
}
