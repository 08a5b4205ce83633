package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

type mockTestService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

// NewMockTestService manages tests; the repository owns their cache
func NewMockTestService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) MockTestService {
	return &mockTestService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *mockTestService) Create(ctx context.Context, req *CreateMockTestRequest, creatorID string) (*models.MockTest, error) {
	s.logger.Info("Creating mock test", "title", req.Title, "creator_id", creatorID)

	if errs := s.validator.ValidateMockTestCreate(req); len(errs) > 0 {
		return nil, fmt.Errorf("validation failed: %w", errs)
	}

	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	test := &models.MockTest{
		Title:       req.Title,
		SubjectID:   req.SubjectID,
		Questions:   questions,
		MaxAttempts: req.MaxAttempts,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		CreatedBy:   creatorID,
	}
	if err := s.repo.MockTest().Create(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to create mock test: %w", err)
	}

	s.logger.Info("Mock test created", "mock_test_id", test.ID, "questions", len(questions))
	return test, nil
}

func (s *mockTestService) GetByID(ctx context.Context, id uint) (*models.MockTest, error) {
	return getMockTest(ctx, s.repo, id)
}

func (s *mockTestService) List(ctx context.Context, filters repositories.MockTestFilters) (*MockTestListResponse, error) {
	if filters.Limit <= 0 {
		filters.Limit = defaultPageSize
	}

	tests, total, err := s.repo.MockTest().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list mock tests: %w", err)
	}

	return &MockTestListResponse{
		MockTests: tests,
		Total:     total,
		Page:      filters.Offset/filters.Limit + 1,
		Size:      filters.Limit,
	}, nil
}

// UpdateQuestions replaces the question list. Scores already awarded depend on the
// questions, so a test that has been attempted is frozen.
func (s *mockTestService) UpdateQuestions(ctx context.Context, id uint, req *UpdateQuestionsRequest) (*models.MockTest, error) {
	if errs := s.validator.ValidateQuestionsUpdate(req); len(errs) > 0 {
		return nil, fmt.Errorf("validation failed: %w", errs)
	}

	test, err := getMockTest(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnattempted(ctx, id); err != nil {
		return nil, err
	}

	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	test.Questions = questions
	if err := s.repo.MockTest().Update(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to update mock test: %w", err)
	}

	s.logger.Info("Mock test questions replaced", "mock_test_id", id, "questions", len(questions))
	return test, nil
}

func (s *mockTestService) Delete(ctx context.Context, id uint) error {
	if _, err := getMockTest(ctx, s.repo, id); err != nil {
		return err
	}
	if err := s.ensureUnattempted(ctx, id); err != nil {
		return err
	}

	if err := s.repo.MockTest().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrMockTestNotFound
		}
		return fmt.Errorf("failed to delete mock test: %w", err)
	}

	s.logger.Info("Mock test deleted", "mock_test_id", id)
	return nil
}

func (s *mockTestService) ensureUnattempted(ctx context.Context, id uint) error {
	count, err := s.repo.Attempt().CountByMockTest(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count attempts: %w", err)
	}
	if count > 0 {
		return ErrMockTestLocked
	}
	return nil
}

// buildQuestions assigns missing ids and rejects ids used twice
func buildQuestions(reqs []validator.QuestionRequest) ([]models.Question, error) {
	seen := make(map[string]bool, len(reqs))
	questions := make([]models.Question, 0, len(reqs))

	for _, r := range reqs {
		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateQuestionID, id)
		}
		seen[id] = true

		q := models.Question{
			ID:     id,
			Type:   r.Type,
			Prompt: r.Prompt,
			Marks:  r.Marks,
		}
		if r.Type == models.QuestionMCQ {
			q.CorrectAnswer = r.CorrectAnswer
			q.Options = make([]models.Option, 0, len(r.Options))
			for _, o := range r.Options {
				q.Options = append(q.Options, models.Option{Text: o.Text, Marks: o.Marks})
			}
		}
		questions = append(questions, q)
	}
	return questions, nil
}
