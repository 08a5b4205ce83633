package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
	"github.com/SAP-F-2025/mocktest-service/internal/services"
	"github.com/SAP-F-2025/mocktest-service/internal/utils"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

// AdminHandler serves the staff views over every user's attempts
type AdminHandler struct {
	BaseHandler
	queryService   services.QueryService
	attemptService services.AttemptService
	exportService  services.ExportService
	validator      *validator.Validator
}

func NewAdminHandler(
	queryService services.QueryService,
	attemptService services.AttemptService,
	exportService services.ExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *AdminHandler {
	return &AdminHandler{
		BaseHandler:    NewBaseHandler(logger),
		queryService:   queryService,
		attemptService: attemptService,
		exportService:  exportService,
		validator:      validator,
	}
}

// parseAttemptFilters reads the list filters; ok is false after a 400 was written
func (h *AdminHandler) parseAttemptFilters(c *gin.Context) (repositories.AttemptFilters, bool) {
	var filters repositories.AttemptFilters

	if userID := c.Query("user_id"); userID != "" {
		filters.UserID = &userID
	}
	mockTestID, ok := h.parseUintQuery(c, "mock_test_id")
	if !ok {
		return filters, false
	}
	subjectID, ok := h.parseUintQuery(c, "subject_id")
	if !ok {
		return filters, false
	}
	filters.MockTestID = mockTestID
	filters.SubjectID = subjectID

	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := models.AttemptStatus(strings.TrimSpace(s))
			if !status.IsValid() {
				h.fail(c, http.StatusBadRequest, "Invalid status", s)
				return filters, false
			}
			filters.Statuses = append(filters.Statuses, status)
		}
	}

	filters.SortBy = c.Query("sort_by")
	filters.SortOrder = c.Query("sort_order")
	filters.Limit, filters.Offset = h.pagination(c)
	return filters, true
}

// ListAttempts lists finished attempts of all users
// @Summary List attempts
// @Tags admin
// @Produce json
// @Param user_id query string false "User ID"
// @Param mock_test_id query uint false "Mock test ID"
// @Param subject_id query uint false "Subject ID"
// @Param status query string false "Comma separated statuses"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} SuccessResponse{data=services.AttemptListResponse}
// @Router /admin/attempts [get]
func (h *AdminHandler) ListAttempts(c *gin.Context) {
	filters, ok := h.parseAttemptFilters(c)
	if !ok {
		return
	}

	list, err := h.queryService.ListAttempts(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "", list)
}

func (h *AdminHandler) GetAttemptByID(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	detail, err := h.queryService.GetAttemptByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "", detail)
}

func (h *AdminHandler) GetAttemptsByUser(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		h.fail(c, http.StatusBadRequest, "Invalid user_id", nil)
		return
	}

	attempts, err := h.queryService.GetAttemptsByUser(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "", attempts)
}

// GetSubmittedUsers groups finished attempts of a test by user, optionally by ?status=
// @Router /admin/mock-tests/{id}/submitted-users [get]
func (h *AdminHandler) GetSubmittedUsers(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var status *models.AttemptStatus
	if raw := c.Query("status"); raw != "" {
		s := models.AttemptStatus(raw)
		if !s.IsValid() {
			h.fail(c, http.StatusBadRequest, "Invalid status", raw)
			return
		}
		status = &s
	}

	users, err := h.queryService.GetSubmittedUsersByTest(c.Request.Context(), id, status)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "", users)
}

func (h *AdminHandler) GetUsersSubmittedTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	users, err := h.queryService.GetUsersSubmittedTest(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "", users)
}

// ExportSubmissions streams every finished attempt of a test as an Excel workbook
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /admin/mock-tests/{id}/export [get]
func (h *AdminHandler) ExportSubmissions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Exporting submissions", "mock_test_id", id)

	data, err := h.exportService.ExportSubmissions(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	sendWorkbook(c, fmt.Sprintf("submissions-%d.xlsx", id), data)
}

// DeleteAttempt removes an attempt, renumbers the rest and refreshes the ranking
// @Router /admin/attempts/{id} [delete]
func (h *AdminHandler) DeleteAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting attempt", "attempt_id", id)

	deleted, err := h.attemptService.Delete(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "Attempt deleted", deleted)
}

// BulkDeleteAttempts reports a result per id; one failure does not stop the others
// @Router /admin/attempts/bulk-delete [post]
func (h *AdminHandler) BulkDeleteAttempts(c *gin.Context) {
	var req validator.BulkDeleteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Bulk deleting attempts", "count", len(req.AttemptIDs))

	results := h.attemptService.BulkDelete(c.Request.Context(), req.AttemptIDs)

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	h.respond(c, http.StatusOK, fmt.Sprintf("Deleted %d of %d attempts", len(results)-failed, len(results)), results)
}
