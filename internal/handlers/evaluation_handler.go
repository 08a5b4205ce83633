package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/mocktest-service/internal/services"
	"github.com/SAP-F-2025/mocktest-service/internal/utils"
)

// EvaluationHandler serves manual marking of subjective answers
type EvaluationHandler struct {
	BaseHandler
	evaluationService services.EvaluationService
}

func NewEvaluationHandler(evaluationService services.EvaluationService, logger utils.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		BaseHandler:       NewBaseHandler(logger),
		evaluationService: evaluationService,
	}
}

// EvaluateQuestion marks a single subjective answer
// @Summary Evaluate one question
// @Tags evaluations
// @Accept json
// @Produce json
// @Param evaluation body services.EvaluateQuestionRequest true "Evaluation"
// @Success 200 {object} SuccessResponse{data=models.Attempt}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /evaluations/question [put]
func (h *EvaluationHandler) EvaluateQuestion(c *gin.Context) {
	var req services.EvaluateQuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Evaluating question", "attempt_id", req.AttemptID, "question_id", req.QuestionID)

	attempt, err := h.evaluationService.EvaluateSingleQuestion(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "Question evaluated", attempt)
}

// EvaluateSubjective marks every listed subjective answer and finishes the evaluation
// @Summary Evaluate subjective answers
// @Tags evaluations
// @Accept json
// @Produce json
// @Param evaluation body services.EvaluateSubjectiveRequest true "Evaluations"
// @Success 200 {object} SuccessResponse{data=models.Attempt}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /evaluations/batch [put]
func (h *EvaluationHandler) EvaluateSubjective(c *gin.Context) {
	var req services.EvaluateSubjectiveRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Evaluating subjective answers", "attempt_id", req.AttemptID, "count", len(req.Evaluations))

	attempt, err := h.evaluationService.EvaluateSubjective(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "Attempt evaluated", attempt)
}

// CompleteEvaluation closes an evaluation once every subjective answer is marked
// @Router /evaluations/{id}/complete [put]
func (h *EvaluationHandler) CompleteEvaluation(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Completing evaluation", "attempt_id", id)

	attempt, err := h.evaluationService.CompleteEvaluation(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "Evaluation completed", attempt)
}
