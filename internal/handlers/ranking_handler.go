package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/mocktest-service/internal/services"
	"github.com/SAP-F-2025/mocktest-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type RankingHandler struct {
	BaseHandler
	rankingService  services.RankingService
	mockTestService services.MockTestService
	exportService   services.ExportService
}

func NewRankingHandler(
	rankingService services.RankingService,
	mockTestService services.MockTestService,
	exportService services.ExportService,
	logger utils.Logger,
) *RankingHandler {
	return &RankingHandler{
		BaseHandler:     NewBaseHandler(logger),
		rankingService:  rankingService,
		mockTestService: mockTestService,
		exportService:   exportService,
	}
}

// cohort resolves the leaderboard of a request; subject_id defaults to the test's subject
func (h *RankingHandler) cohort(c *gin.Context) (mockTestID, subjectID uint, ok bool) {
	mockTestID = h.parseIDParam(c, "mock_test_id")
	if mockTestID == 0 {
		return 0, 0, false
	}

	subject, ok := h.parseUintQuery(c, "subject_id")
	if !ok {
		return 0, 0, false
	}
	if subject != nil {
		return mockTestID, *subject, true
	}

	test, err := h.mockTestService.GetByID(c.Request.Context(), mockTestID)
	if err != nil {
		h.handleServiceError(c, err)
		return 0, 0, false
	}
	return mockTestID, test.SubjectID, true
}

// GetRankings returns a leaderboard ordered by rank
// @Summary Leaderboard
// @Tags rankings
// @Produce json
// @Param mock_test_id path uint true "Mock test ID"
// @Param subject_id query uint false "Subject ID"
// @Success 200 {object} SuccessResponse{data=[]models.Ranking}
// @Router /rankings/{mock_test_id} [get]
func (h *RankingHandler) GetRankings(c *gin.Context) {
	mockTestID, subjectID, ok := h.cohort(c)
	if !ok {
		return
	}

	rankings, err := h.rankingService.GetRankings(c.Request.Context(), mockTestID, subjectID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "", rankings)
}

func (h *RankingHandler) GetUserRanking(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	mockTestID, subjectID, ok := h.cohort(c)
	if !ok {
		return
	}

	ranking, err := h.rankingService.GetUserRanking(c.Request.Context(), userID, mockTestID, subjectID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respond(c, http.StatusOK, "", ranking)
}

// ExportRankings streams the leaderboard as an Excel workbook
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /rankings/{mock_test_id}/export [get]
func (h *RankingHandler) ExportRankings(c *gin.Context) {
	mockTestID, subjectID, ok := h.cohort(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting rankings", "mock_test_id", mockTestID, "subject_id", subjectID)

	data, err := h.exportService.ExportRankings(c.Request.Context(), mockTestID, subjectID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	sendWorkbook(c, fmt.Sprintf("rankings-%d-%d.xlsx", mockTestID, subjectID), data)
}

func sendWorkbook(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
