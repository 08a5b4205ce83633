package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/mocktest-service/internal/events"
	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
)

// mutateAttempt re-reads the attempt, applies fn and writes it back with a version check.
// On a version conflict the whole read-apply-write is retried, so fn must be safe to run again.
func mutateAttempt(ctx context.Context, repo repositories.Repository, attemptID uint, retries int, fn func(*models.Attempt) error) (*models.Attempt, error) {
	if retries < 1 {
		retries = 1
	}

	for i := 0; i < retries; i++ {
		attempt, err := getAttempt(ctx, repo, attemptID)
		if err != nil {
			return nil, err
		}

		if err := fn(attempt); err != nil {
			return nil, err
		}

		err = repo.Attempt().UpdateVersioned(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if !errors.Is(err, repositories.ErrVersionConflict) {
			return nil, fmt.Errorf("failed to update attempt: %w", err)
		}
	}

	return nil, ErrConcurrentModification
}

func getAttempt(ctx context.Context, repo repositories.Repository, attemptID uint) (*models.Attempt, error) {
	attempt, err := repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return attempt, nil
}

// refreshBestFlag picks up the best-attempt flag a ranking update may have moved
func refreshBestFlag(ctx context.Context, repo repositories.Repository, attempt *models.Attempt) error {
	stored, err := repo.Attempt().GetByID(ctx, attempt.ID)
	if err != nil {
		return fmt.Errorf("failed to reload attempt: %w", err)
	}
	attempt.IsBestAttempt = stored.IsBestAttempt
	return nil
}

func getMockTest(ctx context.Context, repo repositories.Repository, mockTestID uint) (*models.MockTest, error) {
	test, err := repo.MockTest().GetByID(ctx, mockTestID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrMockTestNotFound
		}
		return nil, fmt.Errorf("failed to get mock test: %w", err)
	}
	return test, nil
}

// attemptLockKey serialises attempt creation and deletion within one user's scope
func attemptLockKey(scope models.RankingScope) string {
	return "attempts:" + scope.UserID + ":" + scope.CohortKey()
}

func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, event *events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish event", "type", event.Type, "event_id", event.ID, "error", err)
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
