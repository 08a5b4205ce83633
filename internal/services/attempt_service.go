package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SAP-F-2025/mocktest-service/internal/cache"
	"github.com/SAP-F-2025/mocktest-service/internal/events"
	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

type AttemptServiceConfig struct {
	MaxUpdateRetries      int
	BulkDeleteConcurrency int
}

type attemptService struct {
	repo      repositories.Repository
	locker    cache.Locker
	ranking   RankingService
	notifier  NotificationService
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	config    AttemptServiceConfig
	now       func() time.Time

	// submission notices still being delivered
	notifying sync.WaitGroup
}

func NewAttemptService(
	repo repositories.Repository,
	locker cache.Locker,
	ranking RankingService,
	notifier NotificationService,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *validator.Validator,
	config AttemptServiceConfig,
) AttemptService {
	return &attemptService{
		repo:      repo,
		locker:    locker,
		ranking:   ranking,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		config:    config,
		now:       time.Now,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, userID string) (*models.Attempt, error) {
	s.logger.Info("Starting attempt",
		"mock_test_id", req.MockTestID,
		"subject_id", req.SubjectID,
		"user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	test, err := getMockTest(ctx, s.repo, req.MockTestID)
	if err != nil {
		return nil, err
	}

	subjectID := req.SubjectID
	if subjectID == 0 {
		subjectID = test.SubjectID
	} else if subjectID != test.SubjectID {
		return nil, ErrSubjectMismatch
	}

	scope := models.RankingScope{UserID: userID, MockTestID: test.ID, SubjectID: subjectID}

	unlock, err := s.locker.Lock(ctx, attemptLockKey(scope))
	if err != nil {
		return nil, fmt.Errorf("failed to acquire attempt lock: %w", err)
	}
	defer unlock()

	var attempt *models.Attempt
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		count, err := tx.Attempt().CountByScope(ctx, scope)
		if err != nil {
			return fmt.Errorf("failed to count attempts: %w", err)
		}

		if int(count) >= test.MaxAttempts {
			return NewBusinessRuleError(ErrAttemptLimitExceeded, "max_attempts",
				fmt.Sprintf("you have already used %d of %d attempts", count, test.MaxAttempts),
				map[string]interface{}{
					"max_attempts":  test.MaxAttempts,
					"attempts_used": count,
				})
		}

		now := s.now()
		attempt = &models.Attempt{
			UserID:             userID,
			MockTestID:         test.ID,
			SubjectID:          subjectID,
			AttemptNumber:      int(count) + 1,
			Answers:            newAnswers(test),
			Status:             models.AttemptInProgress,
			IsWithinTestWindow: test.IsWithinWindow(now),
		}
		return tx.Attempt().Create(ctx, attempt)
	})
	if err != nil {
		if errors.Is(err, ErrAttemptLimitExceeded) {
			s.logger.Info("Attempt limit reached", "user_id", userID, "mock_test_id", test.ID)
			return nil, err
		}
		return nil, fmt.Errorf("failed to start attempt: %w", err)
	}

	s.logger.Info("Attempt started",
		"attempt_id", attempt.ID,
		"attempt_number", attempt.AttemptNumber,
		"within_window", attempt.IsWithinTestWindow)

	return attempt, nil
}

func (s *attemptService) SaveAnswer(ctx context.Context, req *SaveAnswerRequest, userID string) (*models.Answer, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var (
		test  *models.MockTest
		saved models.Answer
	)
	_, err := mutateAttempt(ctx, s.repo, req.AttemptID, s.config.MaxUpdateRetries, func(attempt *models.Attempt) error {
		if attempt.UserID != userID {
			return ErrAttemptNotFound
		}
		if attempt.Status != models.AttemptInProgress {
			return ErrAttemptNotActive
		}

		if test == nil {
			var err error
			if test, err = getMockTest(ctx, s.repo, attempt.MockTestID); err != nil {
				return err
			}
		}

		question := test.FindQuestion(req.QuestionID)
		if question == nil {
			return ErrQuestionNotFound
		}
		slot := attempt.FindAnswer(req.QuestionID)
		if slot < 0 {
			return ErrAnswerNotFound
		}

		// clearing or flagging without an answer keeps the slot and only moves its status
		if req.Status.ClearsContent() {
			attempt.Answers[slot].Status = req.Status
			saved = attempt.Answers[slot]
			return nil
		}

		answer := models.Answer{QuestionID: req.QuestionID, Status: req.Status}
		if question.IsMCQ() {
			correct, marks, err := scoreMCQ(question, req.AnswerIndex)
			if err != nil {
				return err
			}
			if req.AnswerIndex != nil {
				index := *req.AnswerIndex
				answer.AnswerIndex = &index
			}
			answer.IsCorrect = correct
			answer.MarksAwarded = marks
		} else {
			answer.Answer = req.Answer
		}

		attempt.Answers[slot] = answer
		saved = answer
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Answer saved",
		"attempt_id", req.AttemptID,
		"question_id", req.QuestionID,
		"status", req.Status)

	return &saved, nil
}

func (s *attemptService) Submit(ctx context.Context, attemptID uint, userID string) (*AttemptDetail, error) {
	s.logger.Info("Submitting attempt", "attempt_id", attemptID, "user_id", userID)

	var test *models.MockTest
	attempt, err := mutateAttempt(ctx, s.repo, attemptID, s.config.MaxUpdateRetries, func(attempt *models.Attempt) error {
		if attempt.UserID != userID {
			return ErrAttemptNotFound
		}
		if attempt.Status != models.AttemptInProgress {
			return ErrAttemptNotActive
		}

		if test == nil {
			var err error
			if test, err = getMockTest(ctx, s.repo, attempt.MockTestID); err != nil {
				return err
			}
		}

		next := models.AttemptSubmitted
		if !test.HasSubjective() {
			next = models.AttemptEvaluated
		}
		if !attempt.Status.CanTransitionTo(next) {
			return ErrAttemptNotActive
		}

		now := s.now()
		attempt.MCQScore = rescoreMCQ(attempt, test)
		attempt.SubjectiveScore = 0
		attempt.TotalMarks = attempt.MCQScore
		attempt.SubmittedAt = timePtr(now)
		attempt.Status = next
		if next == models.AttemptEvaluated {
			attempt.EvaluatedAt = timePtr(now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if attempt.Status == models.AttemptEvaluated && attempt.IsWithinTestWindow {
		if err := s.ranking.UpdateRankings(ctx, attempt); err != nil {
			return nil, fmt.Errorf("attempt submitted but ranking update failed: %w", err)
		}
		if err := refreshBestFlag(ctx, s.repo, attempt); err != nil {
			s.logger.Warn("Failed to refresh best attempt flag", "attempt_id", attempt.ID, "error", err)
		}
	}

	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.AttemptSubmitted, events.AttemptSubmittedData{
		AttemptID:     attempt.ID,
		UserID:        attempt.UserID,
		MockTestID:    attempt.MockTestID,
		SubjectID:     attempt.SubjectID,
		AttemptNumber: attempt.AttemptNumber,
		Status:        string(attempt.Status),
		MCQScore:      attempt.MCQScore,
		SubmittedAt:   *attempt.SubmittedAt,
	}))

	if s.notifier != nil {
		// the response does not wait for administrators to be told
		notifyCtx := context.WithoutCancel(ctx)
		submitted := *attempt
		s.notifying.Add(1)
		go func() {
			defer s.notifying.Done()
			s.notifier.NotifySubmission(notifyCtx, &submitted, test)
		}()
	}

	s.logger.Info("Attempt submitted",
		"attempt_id", attempt.ID,
		"status", attempt.Status,
		"mcq_score", attempt.MCQScore)

	return enrichAttempt(attempt, test), nil
}

// WaitForNotifications blocks until submission notices in flight are delivered or ctx ends
func (s *attemptService) WaitForNotifications(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.notifying.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ===== ADMINISTRATIVE OPERATIONS =====

func (s *attemptService) Delete(ctx context.Context, attemptID uint) (*models.Attempt, error) {
	existing, err := getAttempt(ctx, s.repo, attemptID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, attemptLockKey(existing.Scope()))
	if err != nil {
		return nil, fmt.Errorf("failed to acquire attempt lock: %w", err)
	}
	defer unlock()

	var deleted *models.Attempt
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		// re-read under the lock, an earlier delete may have renumbered it
		attempt, err := getAttempt(ctx, tx, attemptID)
		if err != nil {
			return err
		}

		if err := tx.Attempt().Delete(ctx, attemptID); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return err
		}
		if err := tx.Ranking().DeleteByBestAttempt(ctx, attemptID); err != nil {
			return err
		}
		if err := tx.Attempt().RenumberAfter(ctx, attempt.Scope(), attempt.AttemptNumber); err != nil {
			return err
		}

		deleted = attempt
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAttemptNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete attempt: %w", err)
	}

	if err := s.ranking.UpdateRankings(ctx, deleted); err != nil {
		return nil, fmt.Errorf("attempt deleted but ranking update failed: %w", err)
	}

	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.AttemptDeleted, events.AttemptDeletedData{
		AttemptID:  deleted.ID,
		UserID:     deleted.UserID,
		MockTestID: deleted.MockTestID,
		SubjectID:  deleted.SubjectID,
	}))

	s.logger.Info("Attempt deleted",
		"attempt_id", deleted.ID,
		"user_id", deleted.UserID,
		"attempt_number", deleted.AttemptNumber)

	return deleted, nil
}

func (s *attemptService) BulkDelete(ctx context.Context, attemptIDs []uint) []BulkDeleteResult {
	results := make([]BulkDeleteResult, len(attemptIDs))

	limit := s.config.BulkDeleteConcurrency
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i, id := range attemptIDs {
		g.Go(func() error {
			results[i] = BulkDeleteResult{AttemptID: id, Success: true}
			if _, err := s.Delete(ctx, id); err != nil {
				results[i].Success = false
				results[i].Error = err.Error()
				s.logger.Warn("Bulk delete item failed", "attempt_id", id, "error", err)
			}
			// failures are reported per item and never stop the batch
			return nil
		})
	}
	_ = g.Wait()

	return results
}
