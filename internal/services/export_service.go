package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
)

type exportService struct {
	repo    repositories.Repository
	ranking RankingService
	logger  *slog.Logger
}

func NewExportService(repo repositories.Repository, ranking RankingService, logger *slog.Logger) ExportService {
	return &exportService{repo: repo, ranking: ranking, logger: logger}
}

var (
	rankingHeaders    = []interface{}{"Rank", "User ID", "Name", "Email", "Best Score", "Attempts", "Best Attempt", "Last Updated"}
	submissionHeaders = []interface{}{"User ID", "Name", "Email", "Attempt", "Status", "MCQ Score", "Subjective Score", "Total", "Within Window", "Best", "Submitted At", "Evaluated At"}
)

func (s *exportService) ExportRankings(ctx context.Context, mockTestID, subjectID uint) ([]byte, error) {
	if _, err := getMockTest(ctx, s.repo, mockTestID); err != nil {
		return nil, err
	}

	rankings, err := s.ranking.GetRankings(ctx, mockTestID, subjectID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rankings))
	for _, r := range rankings {
		ids = append(ids, r.UserID)
	}
	users := s.userIndex(ctx, ids)

	rows := make([][]interface{}, 0, len(rankings))
	for _, r := range rankings {
		u := users[r.UserID]
		rows = append(rows, []interface{}{
			r.Rank, r.UserID, u.FullName, u.Email, r.BestScore, r.AttemptsCount, r.BestAttemptID,
			r.LastUpdated.UTC().Format(time.RFC3339),
		})
	}

	s.logger.Info("Exporting rankings", "mock_test_id", mockTestID, "subject_id", subjectID, "rows", len(rows))
	return writeWorkbook("Rankings", rankingHeaders, rows)
}

func (s *exportService) ExportSubmissions(ctx context.Context, mockTestID uint) ([]byte, error) {
	if _, err := getMockTest(ctx, s.repo, mockTestID); err != nil {
		return nil, err
	}

	attempts, _, err := s.repo.Attempt().List(ctx, repositories.AttemptFilters{
		MockTestID: &mockTestID,
		Statuses:   models.FinishedStatuses,
		SortBy:     "submitted_at",
		SortOrder:  "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, a := range attempts {
		if !seen[a.UserID] {
			seen[a.UserID] = true
			ids = append(ids, a.UserID)
		}
	}
	users := s.userIndex(ctx, ids)

	rows := make([][]interface{}, 0, len(attempts))
	for _, a := range attempts {
		u := users[a.UserID]
		rows = append(rows, []interface{}{
			a.UserID, u.FullName, u.Email, a.AttemptNumber, string(a.Status),
			a.MCQScore, a.SubjectiveScore, a.TotalMarks,
			a.IsWithinTestWindow, a.IsBestAttempt,
			formatTime(a.SubmittedAt), formatTime(a.EvaluatedAt),
		})
	}

	s.logger.Info("Exporting submissions", "mock_test_id", mockTestID, "rows", len(rows))
	return writeWorkbook("Submissions", submissionHeaders, rows)
}

// userIndex never returns nil entries so exports still render unknown users
func (s *exportService) userIndex(ctx context.Context, ids []string) map[string]*models.User {
	index := make(map[string]*models.User, len(ids))
	if len(ids) > 0 {
		users, err := s.repo.User().GetByIDs(ctx, ids)
		if err != nil {
			s.logger.Warn("Failed to load users for export", "error", err)
		}
		for _, u := range users {
			index[u.ID] = u
		}
	}
	for _, id := range ids {
		if _, ok := index[id]; !ok {
			index[id] = &models.User{ID: id}
		}
	}
	return index
}

func writeWorkbook(sheet string, headers []interface{}, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
