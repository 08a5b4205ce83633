package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/SAP-F-2025/mocktest-service/internal/services"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("lookup: %w", services.ErrAttemptNotFound), http.StatusNotFound},
		{"invalid input", services.ErrInvalidAnswerIndex, http.StatusBadRequest},
		{"validation", validator.ValidationErrors{{Field: "title", Rule: "required"}}, http.StatusBadRequest},
		{"limit reached", services.NewBusinessRuleError(services.ErrAttemptLimitExceeded, "max_attempts", "no attempts left", nil), http.StatusOK},
		{"not ready", services.ErrAttemptNotReady, http.StatusBadRequest},
		{"already evaluated", services.ErrAttemptAlreadyEvaluated, http.StatusBadRequest},
		{"incomplete", services.ErrEvaluationIncomplete, http.StatusBadRequest},
		{"not active", services.ErrAttemptNotActive, http.StatusConflict},
		{"locked", services.ErrMockTestLocked, http.StatusConflict},
		{"concurrent", services.ErrConcurrentModification, http.StatusConflict},
		{"permission", services.NewPermissionError("u1", 3, "attempt", "delete", "not yours"), http.StatusForbidden},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewBaseHandler(testLogger())
			router := gin.New()
			router.GET("/", func(c *gin.Context) { h.handleServiceError(c, tt.err) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.want, w.Code)
			assert.False(t, decode(t, w).Success)
		})
	}
}

func TestHandleServiceError_HidesInternalDetails(t *testing.T) {
	h := NewBaseHandler(testLogger())
	router := gin.New()
	router.GET("/", func(c *gin.Context) { h.handleServiceError(c, errors.New("pq: password authentication failed")) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotContains(t, w.Body.String(), "password")
}

func TestPagination(t *testing.T) {
	tests := []struct {
		query      string
		limit, off int
	}{
		{"", defaultPageSize, 0},
		{"?page=3&size=10", 10, 20},
		{"?page=0&size=500", defaultPageSize, 0},
		{"?page=x&size=y", defaultPageSize, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			h := NewBaseHandler(testLogger())
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)

			limit, offset := h.pagination(c)
			assert.Equal(t, tt.limit, limit)
			assert.Equal(t, tt.off, offset)
		})
	}
}
