package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/mocktest-service/internal/cache"
	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
)

type MockTestPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewMockTestPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.MockTestRepository {
	return &MockTestPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (m *MockTestPostgreSQL) Create(ctx context.Context, test *models.MockTest) error {
	if err := m.db.WithContext(ctx).Create(test).Error; err != nil {
		return fmt.Errorf("failed to create mock test: %w", err)
	}
	cache.SafeInvalidatePattern(ctx, m.cacheManager.MockTest, "list:*")
	return nil
}

// GetByID is read on every attempt operation, so tests are served cache-aside
func (m *MockTestPostgreSQL) GetByID(ctx context.Context, id uint) (*models.MockTest, error) {
	var test models.MockTest
	err := m.cacheManager.MockTest.CacheOrExecute(ctx, fmt.Sprintf("id:%d", id), &test, cache.MockTestCacheConfig.TTL, func() (interface{}, error) {
		var dbTest models.MockTest
		if err := m.db.WithContext(ctx).First(&dbTest, id).Error; err != nil {
			return nil, err
		}
		return &dbTest, nil
	})
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (m *MockTestPostgreSQL) Update(ctx context.Context, test *models.MockTest) error {
	result := m.db.WithContext(ctx).Model(test).Select("*").Omit("created_at").Updates(test)
	if result.Error != nil {
		return fmt.Errorf("failed to update mock test: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	cache.InvalidateMockTestCache(ctx, m.cacheManager, test.ID)
	return nil
}

func (m *MockTestPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := m.db.WithContext(ctx).Delete(&models.MockTest{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete mock test: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	cache.InvalidateMockTestCache(ctx, m.cacheManager, id)
	return nil
}

func (m *MockTestPostgreSQL) List(ctx context.Context, filters repositories.MockTestFilters) ([]*models.MockTest, int64, error) {
	var tests []*models.MockTest
	var total int64

	query := applyMockTestFilters(m.db.WithContext(ctx).Model(&models.MockTest{}), filters)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count mock tests: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	query = applyPagination(query.Order("start_date DESC").Order("id DESC"), limit, filters.Offset)
	if err := query.Find(&tests).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list mock tests: %w", err)
	}
	return tests, total, nil
}
