package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
)

const defaultPageSize = 20

type queryService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewQueryService(repo repositories.Repository, logger *slog.Logger) QueryService {
	return &queryService{repo: repo, logger: logger}
}

// enrichAttempt joins each answer with its question. test may be nil when it has been removed.
func enrichAttempt(attempt *models.Attempt, test *models.MockTest) *AttemptDetail {
	detail := &AttemptDetail{
		Attempt: attempt,
		Answers: make([]AnswerDetail, 0, len(attempt.Answers)),
	}

	var questions map[string]*models.Question
	if test != nil {
		detail.MockTestTitle = test.Title
		questions = test.QuestionMap()
	}

	for _, answer := range attempt.Answers {
		ad := AnswerDetail{Answer: answer}
		if q, ok := questions[answer.QuestionID]; ok {
			ad.QuestionDetails = q
			ad.AnswerSubmitted = answer.HasContent(q.Type)
		}
		detail.Answers = append(detail.Answers, ad)
	}
	return detail
}

// ===== SINGLE ATTEMPT VIEWS =====

func (s *queryService) GetAttempt(ctx context.Context, attemptID uint, userID string) (*AttemptDetail, error) {
	attempt, err := getAttempt(ctx, s.repo, attemptID)
	if err != nil {
		return nil, err
	}
	// someone else's attempt is reported as missing
	if attempt.UserID != userID {
		return nil, ErrAttemptNotFound
	}

	test, err := getMockTest(ctx, s.repo, attempt.MockTestID)
	if err != nil {
		return nil, err
	}
	return enrichAttempt(attempt, test), nil
}

func (s *queryService) GetAttemptByID(ctx context.Context, attemptID uint) (*AttemptDetail, error) {
	attempt, err := getAttempt(ctx, s.repo, attemptID)
	if err != nil {
		return nil, err
	}

	test, err := getMockTest(ctx, s.repo, attempt.MockTestID)
	if err != nil {
		return nil, err
	}

	detail := enrichAttempt(attempt, test)
	detail.User = s.lookupUser(ctx, attempt.UserID)
	return detail, nil
}

// ===== PER-USER LISTS =====

func (s *queryService) GetUserAttempts(ctx context.Context, userID string, mockTestID uint) ([]*AttemptDetail, error) {
	test, err := getMockTest(ctx, s.repo, mockTestID)
	if err != nil {
		return nil, err
	}

	attempts, _, err := s.repo.Attempt().List(ctx, repositories.AttemptFilters{
		UserID:     &userID,
		MockTestID: &mockTestID,
		SortBy:     "attempt_number",
		SortOrder:  "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	details := make([]*AttemptDetail, 0, len(attempts))
	for _, attempt := range attempts {
		details = append(details, enrichAttempt(attempt, test))
	}
	return details, nil
}

func (s *queryService) GetUserAttemptsBySubject(ctx context.Context, userID string, subjectID uint) ([]*AttemptDetail, error) {
	return s.listEnriched(ctx, repositories.AttemptFilters{
		UserID:    &userID,
		SubjectID: &subjectID,
		Statuses:  models.FinishedStatuses,
		SortBy:    "submitted_at",
		SortOrder: "desc",
	})
}

func (s *queryService) GetAttemptsByUser(ctx context.Context, userID string) ([]*AttemptDetail, error) {
	return s.listEnriched(ctx, repositories.AttemptFilters{
		UserID:    &userID,
		Statuses:  models.FinishedStatuses,
		SortBy:    "submitted_at",
		SortOrder: "desc",
	})
}

func (s *queryService) GetUserResults(ctx context.Context, userID string, mockTestID uint) (*UserResults, error) {
	test, err := getMockTest(ctx, s.repo, mockTestID)
	if err != nil {
		return nil, err
	}

	attempts, _, err := s.repo.Attempt().List(ctx, repositories.AttemptFilters{
		UserID:     &userID,
		MockTestID: &mockTestID,
		SortBy:     "attempt_number",
		SortOrder:  "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	results := &UserResults{
		MockTestID:   test.ID,
		MaxAttempts:  test.MaxAttempts,
		AttemptsUsed: len(attempts),
	}
	if remaining := test.MaxAttempts - len(attempts); remaining > 0 {
		results.RemainingAttempts = remaining
	}

	var latest *models.Attempt
	for _, a := range attempts {
		if !a.Status.IsFinished() || a.SubmittedAt == nil {
			continue
		}
		if latest == nil || a.SubmittedAt.After(*latest.SubmittedAt) {
			latest = a
		}
	}
	if latest != nil {
		results.LatestAttempt = enrichAttempt(latest, test)
	}

	ranking, err := s.repo.Ranking().GetByScope(ctx, models.RankingScope{
		UserID:     userID,
		MockTestID: test.ID,
		SubjectID:  test.SubjectID,
	})
	switch {
	case err == nil:
		results.Ranking = ranking
	case !repositories.IsNotFoundError(err):
		return nil, fmt.Errorf("failed to get ranking: %w", err)
	}

	return results, nil
}

// ===== ADMIN VIEWS =====

func (s *queryService) ListAttempts(ctx context.Context, filters repositories.AttemptFilters) (*AttemptListResponse, error) {
	if len(filters.Statuses) == 0 {
		filters.Statuses = models.FinishedStatuses
	}
	if filters.Limit <= 0 {
		filters.Limit = defaultPageSize
	}
	if filters.SortBy == "" {
		filters.SortBy = "submitted_at"
		filters.SortOrder = "desc"
	}

	attempts, total, err := s.repo.Attempt().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	details, err := s.enrichAll(ctx, attempts)
	if err != nil {
		return nil, err
	}
	s.decorateUsers(ctx, details)

	return &AttemptListResponse{
		Attempts: details,
		Total:    total,
		Page:     filters.Offset/filters.Limit + 1,
		Size:     filters.Limit,
	}, nil
}

func (s *queryService) GetSubmittedUsersByTest(ctx context.Context, mockTestID uint, status *models.AttemptStatus) ([]*SubmittedUser, error) {
	test, err := getMockTest(ctx, s.repo, mockTestID)
	if err != nil {
		return nil, err
	}

	statuses := models.FinishedStatuses
	if status != nil {
		if !status.IsFinished() {
			return nil, fmt.Errorf("%w: status must be submitted, evaluating or evaluated", ErrValidationFailed)
		}
		statuses = []models.AttemptStatus{*status}
	}

	attempts, _, err := s.repo.Attempt().List(ctx, repositories.AttemptFilters{
		MockTestID: &mockTestID,
		Statuses:   statuses,
		SortBy:     "submitted_at",
		SortOrder:  "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	if len(attempts) == 0 {
		return nil, ErrNoSubmissions
	}

	var order []string
	groups := make(map[string]*SubmittedUser)
	for _, attempt := range attempts {
		group, ok := groups[attempt.UserID]
		if !ok {
			group = &SubmittedUser{User: &models.User{ID: attempt.UserID}}
			groups[attempt.UserID] = group
			order = append(order, attempt.UserID)
		}
		group.Attempts = append(group.Attempts, enrichAttempt(attempt, test))
	}

	for _, user := range s.lookupUsers(ctx, order) {
		if g, ok := groups[user.ID]; ok {
			g.User = user
		}
	}

	out := make([]*SubmittedUser, 0, len(order))
	for _, userID := range order {
		group := groups[userID]

		var best *models.Attempt
		for i, d := range group.Attempts {
			if i == 0 || d.TotalMarks > group.HighestScore {
				group.HighestScore = d.TotalMarks
			}
			if d.IsBestAttempt {
				best = d.Attempt
			}
		}
		if best == nil {
			// not ranked yet: fall back to the same ordering the ranking engine uses
			candidates := make([]*models.Attempt, 0, len(group.Attempts))
			for _, d := range group.Attempts {
				candidates = append(candidates, d.Attempt)
			}
			best = selectBestAttempt(candidates)
		}
		if best != nil {
			id := best.ID
			group.BestAttemptID = &id
		}

		out = append(out, group)
	}
	return out, nil
}

func (s *queryService) GetUsersSubmittedTest(ctx context.Context, mockTestID uint) ([]*models.User, error) {
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
	var userIDs []string
	for _, a := range attempts {
		if !seen[a.UserID] {
			seen[a.UserID] = true
			userIDs = append(userIDs, a.UserID)
		}
	}

	found := make(map[string]*models.User)
	for _, u := range s.lookupUsers(ctx, userIDs) {
		found[u.ID] = u
	}

	users := make([]*models.User, 0, len(userIDs))
	for _, id := range userIDs {
		if u, ok := found[id]; ok {
			users = append(users, u)
			continue
		}
		users = append(users, &models.User{ID: id})
	}
	return users, nil
}

// ===== HELPERS =====

func (s *queryService) listEnriched(ctx context.Context, filters repositories.AttemptFilters) ([]*AttemptDetail, error) {
	attempts, _, err := s.repo.Attempt().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return s.enrichAll(ctx, attempts)
}

// enrichAll loads each referenced test once
func (s *queryService) enrichAll(ctx context.Context, attempts []*models.Attempt) ([]*AttemptDetail, error) {
	tests := make(map[uint]*models.MockTest)
	details := make([]*AttemptDetail, 0, len(attempts))

	for _, attempt := range attempts {
		test, loaded := tests[attempt.MockTestID]
		if !loaded {
			t, err := getMockTest(ctx, s.repo, attempt.MockTestID)
			switch {
			case err == nil:
				test = t
			case errors.Is(err, ErrMockTestNotFound):
				s.logger.Warn("Attempt references a missing mock test",
					"attempt_id", attempt.ID,
					"mock_test_id", attempt.MockTestID)
			default:
				return nil, err
			}
			tests[attempt.MockTestID] = test
		}
		details = append(details, enrichAttempt(attempt, test))
	}
	return details, nil
}

func (s *queryService) decorateUsers(ctx context.Context, details []*AttemptDetail) {
	seen := make(map[string]bool)
	var ids []string
	for _, d := range details {
		if !seen[d.UserID] {
			seen[d.UserID] = true
			ids = append(ids, d.UserID)
		}
	}

	users := make(map[string]*models.User)
	for _, u := range s.lookupUsers(ctx, ids) {
		users[u.ID] = u
	}
	for _, d := range details {
		d.User = users[d.UserID]
	}
}

// lookupUsers decorates views only, so directory failures are logged and ignored
func (s *queryService) lookupUsers(ctx context.Context, ids []string) []*models.User {
	if len(ids) == 0 {
		return nil
	}
	users, err := s.repo.User().GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to load users from directory", "count", len(ids), "error", err)
		return nil
	}
	return users
}

func (s *queryService) lookupUser(ctx context.Context, id string) *models.User {
	user, err := s.repo.User().GetByID(ctx, id)
	if err != nil {
		s.logger.Warn("Failed to load user from directory", "user_id", id, "error", err)
		return nil
	}
	return user
}
