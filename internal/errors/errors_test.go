package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsCarryCategoryAndStatus(t *testing.T) {
	cases := []struct {
		name     string
		err      *AppError
		category ErrorCategory
		status   int
	}{
		{"validation", NewValidationError("bad url"), CategoryValidation, http.StatusBadRequest},
		{"timeout", NewTimeoutError("probe timed out", nil), CategoryTimeout, http.StatusGatewayTimeout},
		{"network", NewNetworkError("dial failed", nil), CategoryNetwork, http.StatusBadGateway},
		{"rate_limit", NewRateLimitError("60"), CategoryRateLimit, http.StatusTooManyRequests},
		{"storage", NewStorageError("insert failed", nil), CategoryStorage, http.StatusInternalServerError},
		{"internal", NewInternalError("boom", nil), CategoryInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.category, tc.err.Category)
			assert.Equal(t, tc.status, tc.err.HTTPStatus)
			assert.False(t, tc.err.Timestamp.IsZero())
		})
	}
}

func TestErrorStringIncludesCode(t *testing.T) {
	assert.Contains(t, NewValidationError("url cannot be empty").Error(), "[VALIDATION_ERROR]")
	assert.Contains(t, NewStorageError("write failed", nil).Error(), "[STORAGE_ERROR]")
	assert.Contains(t, NewRateLimitError("60").Error(), "[RATE_LIMIT_EXCEEDED]")
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := NewNetworkError("whois lookup failed", cause)

	assert.Equal(t, cause, err.Unwrap())
}

func TestToAppErrorPassthrough(t *testing.T) {
	orig := NewValidationError("bad input")
	assert.Same(t, orig, ToAppError(orig))
	assert.Nil(t, ToAppError(nil))
}

func TestToAppErrorClassifiesByMessage(t *testing.T) {
	cases := []struct {
		err      error
		category ErrorCategory
	}{
		{fmt.Errorf("dial tcp: connection refused"), CategoryNetwork},
		{fmt.Errorf("lookup example.invalid: no such host"), CategoryNetwork},
		{fmt.Errorf("i/o timeout"), CategoryTimeout},
		{context.DeadlineExceeded, CategoryTimeout},
		{context.Canceled, CategoryTimeout},
		{fmt.Errorf("something else entirely"), CategoryInternal},
	}

	for _, tc := range cases {
		appErr := ToAppError(tc.err)
		require.NotNil(t, appErr)
		assert.Equal(t, tc.category, appErr.Category, "error %v", tc.err)
	}
}

func TestErrorHandlerWritesStructuredResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorHandler())
	router.POST("/analyze", func(c *gin.Context) {
		c.Error(NewValidationError("url cannot be empty"))
	})

	req := httptest.NewRequest(http.MethodPost, "/analyze", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "url cannot be empty", body["error"])
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Equal(t, "validation", body["category"])
}

func TestRecoveryHandlerTurnsPanicInto500(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RecoveryHandler())
	router.GET("/boom", func(c *gin.Context) {
		panic("unexpected state")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
}

func TestWrapError(t *testing.T) {
	base := fmt.Errorf("disk full")
	wrapped := WrapError(base, "saving analysis %s", "abc123")

	require.Error(t, wrapped)
	assert.Contains(t, wrapped.Error(), "saving analysis abc123")
	assert.ErrorIs(t, wrapped, base)

	assert.Nil(t, WrapError(nil, "ignored"))
}
