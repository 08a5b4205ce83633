package postgres

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var attemptSortColumns = map[string]string{
	"attempt_number": "attempt_number",
	"submitted_at":   "submitted_at",
	"total_marks":    "total_marks",
	"created_at":     "created_at",
}

// scopeQuery narrows a query to one (user, test, subject) scope
func scopeQuery(query *gorm.DB, scope models.RankingScope) *gorm.DB {
	return query.Where("user_id = ? AND mock_test_id = ? AND subject_id = ?",
		scope.UserID, scope.MockTestID, scope.SubjectID)
}

func applyAttemptFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.MockTestID != nil {
		query = query.Where("mock_test_id = ?", *filters.MockTestID)
	}
	if filters.SubjectID != nil {
		query = query.Where("subject_id = ?", *filters.SubjectID)
	}
	if len(filters.Statuses) > 0 {
		query = query.Where("status IN ?", filters.Statuses)
	}
	return query
}

func applyAttemptSortAndPagination(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	column, ok := attemptSortColumns[filters.SortBy]
	if !ok {
		column = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(filters.SortOrder, "asc") {
		order = "ASC"
	}
	query = query.Order(fmt.Sprintf("%s %s", column, order)).Order("id ASC")

	return applyPagination(query, filters.Limit, filters.Offset)
}

func applyMockTestFilters(query *gorm.DB, filters repositories.MockTestFilters) *gorm.DB {
	if filters.SubjectID != nil {
		query = query.Where("subject_id = ?", *filters.SubjectID)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	return query
}

// applyPagination leaves the query unbounded when limit is 0
func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 {
		return query
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return query.Limit(limit).Offset(offset)
}
