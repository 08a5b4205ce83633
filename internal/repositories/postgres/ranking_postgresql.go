package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
)

type RankingPostgreSQL struct {
	db *gorm.DB
}

func NewRankingPostgreSQL(db *gorm.DB) repositories.RankingRepository {
	return &RankingPostgreSQL{db: db}
}

func (r *RankingPostgreSQL) GetByScope(ctx context.Context, scope models.RankingScope) (*models.Ranking, error) {
	var ranking models.Ranking
	if err := scopeQuery(r.db.WithContext(ctx), scope).First(&ranking).Error; err != nil {
		return nil, err
	}
	return &ranking, nil
}

func (r *RankingPostgreSQL) Upsert(ctx context.Context, ranking *models.Ranking) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "mock_test_id"}, {Name: "subject_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"best_attempt_id", "best_score", "attempts_count", "last_updated", "updated_at",
		}),
	}).Create(ranking).Error
	if err != nil {
		return fmt.Errorf("failed to upsert ranking: %w", err)
	}
	return nil
}

func (r *RankingPostgreSQL) DeleteByScope(ctx context.Context, scope models.RankingScope) error {
	if err := scopeQuery(r.db.WithContext(ctx), scope).Delete(&models.Ranking{}).Error; err != nil {
		return fmt.Errorf("failed to delete ranking: %w", err)
	}
	return nil
}

func (r *RankingPostgreSQL) DeleteByBestAttempt(ctx context.Context, attemptID uint) error {
	if err := r.db.WithContext(ctx).
		Where("best_attempt_id = ?", attemptID).
		Delete(&models.Ranking{}).Error; err != nil {
		return fmt.Errorf("failed to delete ranking by best attempt: %w", err)
	}
	return nil
}

func (r *RankingPostgreSQL) ListByCohort(ctx context.Context, mockTestID, subjectID uint, forUpdate bool) ([]*models.Ranking, error) {
	var rankings []*models.Ranking
	query := r.db.WithContext(ctx).
		Where("mock_test_id = ? AND subject_id = ?", mockTestID, subjectID).
		Order("best_score DESC").
		Order("last_updated ASC").
		Order("id ASC")
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.Find(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to list rankings: %w", err)
	}
	return rankings, nil
}

func (r *RankingPostgreSQL) UpdateRanks(ctx context.Context, rankings []*models.Ranking) error {
	for _, ranking := range rankings {
		if err := r.db.WithContext(ctx).
			Model(&models.Ranking{}).
			Where("id = ?", ranking.ID).
			UpdateColumn("rank", ranking.Rank).Error; err != nil {
			return fmt.Errorf("failed to update rank for ranking %d: %w", ranking.ID, err)
		}
	}
	return nil
}
