package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/mocktest-service/internal/events"
	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

type evaluationService struct {
	repo       repositories.Repository
	ranking    RankingService
	publisher  events.EventPublisher
	logger     *slog.Logger
	validator  *validator.Validator
	maxRetries int
	now        func() time.Time
}

func NewEvaluationService(repo repositories.Repository, ranking RankingService, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator, maxRetries int) EvaluationService {
	return &evaluationService{
		repo:       repo,
		ranking:    ranking,
		publisher:  publisher,
		logger:     logger,
		validator:  validator,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// checkEvaluable allows evaluation only of handed-in attempts that may move to next
func checkEvaluable(attempt *models.Attempt, next models.AttemptStatus) error {
	switch {
	case attempt.Status == models.AttemptEvaluated:
		return ErrAttemptAlreadyEvaluated
	case !attempt.Status.IsFinished(), !attempt.Status.CanTransitionTo(next):
		return ErrAttemptNotReady
	}
	return nil
}

// applyMarks records an evaluator's marks on one subjective answer
func applyMarks(attempt *models.Attempt, test *models.MockTest, questionID string, marks float64, isCorrect bool) error {
	question := test.FindQuestion(questionID)
	if question == nil {
		return ErrQuestionNotFound
	}
	if !question.IsSubjective() {
		return fmt.Errorf("%w: %s", ErrInvalidQuestion, questionID)
	}

	slot := attempt.FindAnswer(questionID)
	if slot < 0 {
		return ErrAnswerNotFound
	}

	attempt.Answers[slot].MarksAwarded = marks
	attempt.Answers[slot].IsCorrect = isCorrect
	attempt.Answers[slot].Evaluated = true
	return nil
}

func (s *evaluationService) EvaluateSingleQuestion(ctx context.Context, req *EvaluateQuestionRequest) (*models.Attempt, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var test *models.MockTest
	attempt, err := mutateAttempt(ctx, s.repo, req.AttemptID, s.maxRetries, func(attempt *models.Attempt) error {
		if err := checkEvaluable(attempt, models.AttemptEvaluating); err != nil {
			return err
		}
		if test == nil {
			var err error
			if test, err = getMockTest(ctx, s.repo, attempt.MockTestID); err != nil {
				return err
			}
		}

		if err := applyMarks(attempt, test, req.QuestionID, req.Marks, req.IsCorrect); err != nil {
			return err
		}

		recomputeTotals(attempt, test)
		// stays evaluating even after the last question; completion is explicit
		attempt.Status = models.AttemptEvaluating
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Question evaluated",
		"attempt_id", attempt.ID,
		"question_id", req.QuestionID,
		"marks", req.Marks,
		"total_marks", attempt.TotalMarks)

	return attempt, nil
}

func (s *evaluationService) EvaluateSubjective(ctx context.Context, req *EvaluateSubjectiveRequest) (*models.Attempt, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var test *models.MockTest
	attempt, err := mutateAttempt(ctx, s.repo, req.AttemptID, s.maxRetries, func(attempt *models.Attempt) error {
		if err := checkEvaluable(attempt, models.AttemptEvaluated); err != nil {
			return err
		}
		if test == nil {
			var err error
			if test, err = getMockTest(ctx, s.repo, attempt.MockTestID); err != nil {
				return err
			}
		}

		for _, evaluation := range req.Evaluations {
			if err := applyMarks(attempt, test, evaluation.QuestionID, evaluation.Marks, evaluation.IsCorrect); err != nil {
				return err
			}
		}

		recomputeTotals(attempt, test)
		attempt.Status = models.AttemptEvaluated
		attempt.EvaluatedAt = timePtr(s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.finalize(ctx, attempt); err != nil {
		return nil, err
	}

	s.logger.Info("Subjective answers evaluated",
		"attempt_id", attempt.ID,
		"evaluations", len(req.Evaluations),
		"total_marks", attempt.TotalMarks)

	return attempt, nil
}

func (s *evaluationService) CompleteEvaluation(ctx context.Context, attemptID uint) (*models.Attempt, error) {
	var test *models.MockTest
	attempt, err := mutateAttempt(ctx, s.repo, attemptID, s.maxRetries, func(attempt *models.Attempt) error {
		if err := checkEvaluable(attempt, models.AttemptEvaluated); err != nil {
			return err
		}
		if test == nil {
			var err error
			if test, err = getMockTest(ctx, s.repo, attempt.MockTestID); err != nil {
				return err
			}
		}

		if pending := unevaluatedSubjective(attempt, test); len(pending) > 0 {
			return fmt.Errorf("%w: %s", ErrEvaluationIncomplete, strings.Join(pending, ", "))
		}

		recomputeTotals(attempt, test)
		attempt.Status = models.AttemptEvaluated
		attempt.EvaluatedAt = timePtr(s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.finalize(ctx, attempt); err != nil {
		return nil, err
	}

	s.logger.Info("Evaluation completed", "attempt_id", attempt.ID, "total_marks", attempt.TotalMarks)
	return attempt, nil
}

// finalize runs after an attempt reaches evaluated: ranking when eligible, then the event
func (s *evaluationService) finalize(ctx context.Context, attempt *models.Attempt) error {
	if attempt.IsWithinTestWindow {
		if err := s.ranking.UpdateRankings(ctx, attempt); err != nil {
			return fmt.Errorf("attempt evaluated but ranking update failed: %w", err)
		}
		if err := refreshBestFlag(ctx, s.repo, attempt); err != nil {
			s.logger.Warn("Failed to refresh best attempt flag", "attempt_id", attempt.ID, "error", err)
		}
	}

	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.AttemptEvaluated, events.AttemptEvaluatedData{
		AttemptID:       attempt.ID,
		UserID:          attempt.UserID,
		MockTestID:      attempt.MockTestID,
		SubjectiveScore: attempt.SubjectiveScore,
		TotalMarks:      attempt.TotalMarks,
	}))
	return nil
}
