package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
)

// AttemptPostgreSQL reads attempts straight from the database: they carry a version
// and a cached copy would only produce version conflicts.
type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.Attempt) error {
	if err := a.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	return nil
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) UpdateVersioned(ctx context.Context, attempt *models.Attempt) error {
	expected := attempt.Version
	attempt.Version = expected + 1

	result := a.db.WithContext(ctx).
		Model(attempt).
		Where("version = ?", expected).
		Select("*").
		Omit("id", "created_at", "is_best_attempt").
		Updates(attempt)
	if result.Error != nil {
		attempt.Version = expected
		return fmt.Errorf("failed to update attempt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		attempt.Version = expected
		return repositories.ErrVersionConflict
	}
	return nil
}

func (a *AttemptPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := a.db.WithContext(ctx).Delete(&models.Attempt{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete attempt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (a *AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	var attempts []*models.Attempt
	var total int64

	// apply filter first
	query := applyAttemptFilters(a.db.WithContext(ctx).Model(&models.Attempt{}), filters)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	// then apply pagination and sorting
	query = applyAttemptSortAndPagination(query, filters)
	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, total, nil
}

func (a *AttemptPostgreSQL) CountByScope(ctx context.Context, scope models.RankingScope) (int64, error) {
	var count int64
	err := scopeQuery(a.db.WithContext(ctx).Model(&models.Attempt{}), scope).Count(&count).Error
	return count, err
}

func (a *AttemptPostgreSQL) CountByMockTest(ctx context.Context, mockTestID uint) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("mock_test_id = ?", mockTestID).
		Count(&count).Error
	return count, err
}

func (a *AttemptPostgreSQL) ListByScope(ctx context.Context, scope models.RankingScope) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	if err := scopeQuery(a.db.WithContext(ctx), scope).
		Order("attempt_number ASC").
		Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list attempts in scope: %w", err)
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) ListRankingEligible(ctx context.Context, scope models.RankingScope) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	if err := scopeQuery(a.db.WithContext(ctx), scope).
		Where("status = ? AND is_within_test_window = ?", models.AttemptEvaluated, true).
		Order("total_marks DESC").
		Order("submitted_at ASC").
		Order("id ASC").
		Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list ranking eligible attempts: %w", err)
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) SetBestAttempt(ctx context.Context, scope models.RankingScope, bestID uint) error {
	err := scopeQuery(a.db.WithContext(ctx).Model(&models.Attempt{}), scope).
		UpdateColumn("is_best_attempt", gorm.Expr("(id = ?)", bestID)).Error
	if err != nil {
		return fmt.Errorf("failed to flag best attempt: %w", err)
	}
	return nil
}

func (a *AttemptPostgreSQL) RenumberAfter(ctx context.Context, scope models.RankingScope, attemptNumber int) error {
	err := scopeQuery(a.db.WithContext(ctx).Model(&models.Attempt{}), scope).
		Where("attempt_number > ?", attemptNumber).
		UpdateColumns(map[string]interface{}{
			"attempt_number": gorm.Expr("attempt_number - 1"),
			"version":        gorm.Expr("version + 1"),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to renumber attempts: %w", err)
	}
	return nil
}
