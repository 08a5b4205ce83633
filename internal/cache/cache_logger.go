package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates a cache pattern, logging instead of failing
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes cache keys, logging instead of failing
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateMockTestCache drops a test and every cached test listing
func InvalidateMockTestCache(ctx context.Context, cm *CacheManager, mockTestID uint) {
	SafeDelete(ctx, cm.MockTest, fmt.Sprintf("id:%d", mockTestID))
	SafeInvalidatePattern(ctx, cm.MockTest, "list:*")
}

// LeaderboardKey is the ranking cache key of one (test, subject) cohort
func LeaderboardKey(mockTestID, subjectID uint) string {
	return fmt.Sprintf("cohort:%d:%d", mockTestID, subjectID)
}

func InvalidateLeaderboardCache(ctx context.Context, cm *CacheManager, mockTestID, subjectID uint) {
	SafeDelete(ctx, cm.Ranking, LeaderboardKey(mockTestID, subjectID))
}
