package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/mocktest-service/internal/cache"
	"github.com/SAP-F-2025/mocktest-service/internal/events"
	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
)

type rankingService struct {
	repo      repositories.Repository
	cache     *cache.CacheManager
	locker    cache.Locker
	publisher events.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewRankingService(repo repositories.Repository, cacheManager *cache.CacheManager, locker cache.Locker, publisher events.EventPublisher, logger *slog.Logger) RankingService {
	return &rankingService{
		repo:      repo,
		cache:     cacheManager,
		locker:    locker,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func rankingLockKey(mockTestID, subjectID uint) string {
	return "ranking:" + models.CohortKey(mockTestID, subjectID)
}

func (s *rankingService) UpdateRankings(ctx context.Context, attempt *models.Attempt) error {
	scope := attempt.Scope()
	s.logger.Debug("Updating rankings",
		"user_id", scope.UserID,
		"mock_test_id", scope.MockTestID,
		"subject_id", scope.SubjectID)

	unlock, err := s.locker.Lock(ctx, rankingLockKey(scope.MockTestID, scope.SubjectID))
	if err != nil {
		return fmt.Errorf("failed to acquire ranking lock: %w", err)
	}
	defer unlock()

	var (
		cohortSize int
		removed    bool
	)
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		eligible, err := tx.Attempt().ListRankingEligible(ctx, scope)
		if err != nil {
			return err
		}

		best := selectBestAttempt(eligible)
		if best == nil {
			if err := tx.Attempt().SetBestAttempt(ctx, scope, 0); err != nil {
				return err
			}
			if err := tx.Ranking().DeleteByScope(ctx, scope); err != nil {
				return err
			}
			removed = true
		} else {
			if err := tx.Attempt().SetBestAttempt(ctx, scope, best.ID); err != nil {
				return err
			}
			if err := tx.Ranking().Upsert(ctx, &models.Ranking{
				UserID:        scope.UserID,
				MockTestID:    scope.MockTestID,
				SubjectID:     scope.SubjectID,
				BestAttemptID: best.ID,
				BestScore:     best.TotalMarks,
				AttemptsCount: len(eligible),
				LastUpdated:   s.now(),
			}); err != nil {
				return err
			}
		}

		cohortSize, err = s.recomputeRanks(ctx, tx, scope.MockTestID, scope.SubjectID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update rankings: %w", err)
	}

	cache.InvalidateLeaderboardCache(ctx, s.cache, scope.MockTestID, scope.SubjectID)

	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.RankingUpdated, events.RankingUpdatedData{
		MockTestID: scope.MockTestID,
		SubjectID:  scope.SubjectID,
		UserID:     scope.UserID,
		CohortSize: cohortSize,
		Removed:    removed,
	}))

	s.logger.Info("Rankings updated",
		"user_id", scope.UserID,
		"mock_test_id", scope.MockTestID,
		"subject_id", scope.SubjectID,
		"cohort_size", cohortSize,
		"removed", removed)

	return nil
}

func (s *rankingService) RecomputeRanks(ctx context.Context, mockTestID, subjectID uint) error {
	unlock, err := s.locker.Lock(ctx, rankingLockKey(mockTestID, subjectID))
	if err != nil {
		return fmt.Errorf("failed to acquire ranking lock: %w", err)
	}
	defer unlock()

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		_, err := s.recomputeRanks(ctx, tx, mockTestID, subjectID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to recompute ranks: %w", err)
	}

	cache.InvalidateLeaderboardCache(ctx, s.cache, mockTestID, subjectID)
	return nil
}

// recomputeRanks must run inside a transaction while holding the cohort lock
func (s *rankingService) recomputeRanks(ctx context.Context, tx repositories.Repository, mockTestID, subjectID uint) (int, error) {
	rankings, err := tx.Ranking().ListByCohort(ctx, mockTestID, subjectID, true)
	if err != nil {
		return 0, err
	}

	assignRanks(rankings)

	if err := tx.Ranking().UpdateRanks(ctx, rankings); err != nil {
		return 0, err
	}
	return len(rankings), nil
}

func (s *rankingService) GetRankings(ctx context.Context, mockTestID, subjectID uint) ([]*models.Ranking, error) {
	var rankings []*models.Ranking
	err := s.cache.Ranking.CacheOrExecute(ctx, cache.LeaderboardKey(mockTestID, subjectID), &rankings, cache.RankingCacheConfig.TTL, func() (interface{}, error) {
		return s.repo.Ranking().ListByCohort(ctx, mockTestID, subjectID, false)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get rankings: %w", err)
	}
	return rankings, nil
}

func (s *rankingService) GetUserRanking(ctx context.Context, userID string, mockTestID, subjectID uint) (*models.Ranking, error) {
	ranking, err := s.repo.Ranking().GetByScope(ctx, models.RankingScope{
		UserID:     userID,
		MockTestID: mockTestID,
		SubjectID:  subjectID,
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRankingNotFound
		}
		return nil, fmt.Errorf("failed to get ranking: %w", err)
	}
	return ranking, nil
}
