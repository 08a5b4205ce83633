package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
	"github.com/SAP-F-2025/mocktest-service/internal/services"
	"github.com/SAP-F-2025/mocktest-service/internal/utils"
)

type MockTestHandler struct {
	BaseHandler
	mockTestService services.MockTestService
}

func NewMockTestHandler(mockTestService services.MockTestService, logger utils.Logger) *MockTestHandler {
	return &MockTestHandler{
		BaseHandler:     NewBaseHandler(logger),
		mockTestService: mockTestService,
	}
}

// CreateMockTest creates a mock test with its questions
// @Summary Create mock test
// @Tags mock-tests
// @Accept json
// @Produce json
// @Param mock_test body services.CreateMockTestRequest true "Mock test"
// @Success 201 {object} SuccessResponse{data=models.MockTest}
// @Failure 400 {object} ErrorResponse
// @Router /mock-tests [post]
func (h *MockTestHandler) CreateMockTest(c *gin.Context) {
	h.LogRequest(c, "Creating mock test")

	var req services.CreateMockTestRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	test, err := h.mockTestService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusCreated, "Mock test created", test)
}

func (h *MockTestHandler) GetMockTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	test, err := h.mockTestService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "", test)
}

// ListMockTests supports ?subject_id=, ?created_by=, ?page= and ?size=
func (h *MockTestHandler) ListMockTests(c *gin.Context) {
	subjectID, ok := h.parseUintQuery(c, "subject_id")
	if !ok {
		return
	}

	filters := repositories.MockTestFilters{SubjectID: subjectID}
	if createdBy := c.Query("created_by"); createdBy != "" {
		filters.CreatedBy = &createdBy
	}
	filters.Limit, filters.Offset = h.pagination(c)

	list, err := h.mockTestService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "", list)
}

// UpdateQuestions replaces the question list of a test nobody has attempted yet
// @Router /mock-tests/{id}/questions [put]
func (h *MockTestHandler) UpdateQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateQuestionsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Updating mock test questions", "mock_test_id", id, "count", len(req.Questions))

	test, err := h.mockTestService.UpdateQuestions(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "Questions updated", test)
}

func (h *MockTestHandler) DeleteMockTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting mock test", "mock_test_id", id)

	if err := h.mockTestService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "Mock test deleted", nil)
}
