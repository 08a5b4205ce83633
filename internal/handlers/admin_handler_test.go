package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/services"
)

func TestAdminHandler_ListAttemptsFilters(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodGet, "/api/v1/admin/attempts?user_id=s1&mock_test_id=5&status=submitted,evaluated&page=2&size=10&sort_by=total_marks", "teacher", "")
	require.Equal(t, http.StatusOK, w.Code)

	filters := srv.services.query.filters
	require.NotNil(t, filters.UserID)
	assert.Equal(t, "s1", *filters.UserID)
	require.NotNil(t, filters.MockTestID)
	assert.Equal(t, uint(5), *filters.MockTestID)
	assert.Nil(t, filters.SubjectID)
	assert.Equal(t, []models.AttemptStatus{models.AttemptSubmitted, models.AttemptEvaluated}, filters.Statuses)
	assert.Equal(t, 10, filters.Limit)
	assert.Equal(t, 10, filters.Offset)
	assert.Equal(t, "total_marks", filters.SortBy)

	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodGet, "/api/v1/admin/attempts?status=lost", "teacher", "").Code)
	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodGet, "/api/v1/admin/mock-tests/5/submitted-users?status=lost", "teacher", "").Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/v1/admin/mock-tests/5/submitted-users?status=evaluated", "teacher", "").Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/v1/admin/mock-tests/5/users", "teacher", "").Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/v1/admin/attempts/user/s1", "teacher", "").Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/v1/admin/attempts/7", "teacher", "").Code)
}

func TestAdminHandler_BulkDelete(t *testing.T) {
	srv := newTestServer(t)
	srv.services.attempts.bulkResult = []services.BulkDeleteResult{
		{AttemptID: 1, Success: true},
		{AttemptID: 2, Success: false, Error: "attempt not found"},
	}

	w := srv.do(t, http.MethodPost, "/api/v1/admin/attempts/bulk-delete", "admin", `{"attempt_ids": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPost, "/api/v1/admin/attempts/bulk-delete", "admin", `{"attempt_ids": [1, 2]}`)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.True(t, env.Success)
	assert.Equal(t, "Deleted 1 of 2 attempts", env.Message)

	var results []services.BulkDeleteResult
	decodeData(t, w, &results)
	assert.Len(t, results, 2)
}

func TestAdminHandler_ExportSubmissions(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodGet, "/api/v1/admin/mock-tests/5/export", "admin", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "submissions-5.xlsx")
}
