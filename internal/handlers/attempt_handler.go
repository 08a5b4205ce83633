package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/mocktest-service/internal/services"
	"github.com/SAP-F-2025/mocktest-service/internal/utils"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	queryService   services.QueryService
}

func NewAttemptHandler(
	attemptService services.AttemptService,
	queryService services.QueryService,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		queryService:   queryService,
	}
}

// StartAttempt starts a new attempt on a mock test
// @Summary Start attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param attempt body services.StartAttemptRequest true "Start attempt data"
// @Success 201 {object} SuccessResponse{data=models.Attempt}
// @Success 200 {object} ErrorResponse "attempt limit reached"
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts/start [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	h.LogRequest(c, "Starting attempt")

	var req services.StartAttemptRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusCreated, "Attempt started", attempt)
}

// SaveAnswer records one answer of an in-progress attempt
// @Summary Save answer
// @Tags attempts
// @Accept json
// @Produce json
// @Param answer body services.SaveAnswerRequest true "Answer"
// @Success 200 {object} SuccessResponse{data=models.Answer}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/save [put]
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	var req services.SaveAnswerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Saving answer", "attempt_id", req.AttemptID, "question_id", req.QuestionID)

	answer, err := h.attemptService.SaveAnswer(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "Answer saved", answer)
}

// SubmitAttempt finalizes an attempt and scores its MCQ answers
// @Summary Submit attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param attempt body services.SubmitAttemptRequest true "Submit attempt data"
// @Success 200 {object} SuccessResponse{data=services.AttemptDetail}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/submit [put]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	var req services.SubmitAttemptRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting attempt", "attempt_id", req.AttemptID)

	detail, err := h.attemptService.Submit(c.Request.Context(), req.AttemptID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "Attempt submitted", detail)
}

// GetAttempt returns one of the caller's attempts with question details
// @Summary Get attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} SuccessResponse{data=services.AttemptDetail}
// @Failure 404 {object} ErrorResponse
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	detail, err := h.queryService.GetAttempt(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "", detail)
}

func (h *AttemptHandler) GetUserAttempts(c *gin.Context) {
	mockTestID := h.parseIDParam(c, "mock_test_id")
	if mockTestID == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	attempts, err := h.queryService.GetUserAttempts(c.Request.Context(), userID, mockTestID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "", attempts)
}

// GetUserResults summarizes the caller's attempts and standing on a mock test
func (h *AttemptHandler) GetUserResults(c *gin.Context) {
	mockTestID := h.parseIDParam(c, "mock_test_id")
	if mockTestID == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	results, err := h.queryService.GetUserResults(c.Request.Context(), userID, mockTestID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "", results)
}

func (h *AttemptHandler) GetUserAttemptsBySubject(c *gin.Context) {
	subjectID := h.parseIDParam(c, "subject_id")
	if subjectID == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	attempts, err := h.queryService.GetUserAttemptsBySubject(c.Request.Context(), userID, subjectID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "", attempts)
}
