package repositories

import (
	"context"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

// ===== FILTERS =====

type MockTestFilters struct {
	SubjectID *uint
	CreatedBy *string
	Limit     int
	Offset    int
}

type AttemptFilters struct {
	UserID     *string
	MockTestID *uint
	SubjectID  *uint
	Statuses   []models.AttemptStatus

	// Pagination; Limit 0 returns everything
	Limit  int
	Offset int

	SortBy    string // attempt_number, submitted_at, total_marks, created_at
	SortOrder string // asc, desc
}

// ===== REPOSITORIES =====

// MockTestRepository is the test provider: tests with their embedded questions
type MockTestRepository interface {
	Create(ctx context.Context, test *models.MockTest) error
	GetByID(ctx context.Context, id uint) (*models.MockTest, error)
	Update(ctx context.Context, test *models.MockTest) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filters MockTestFilters) ([]*models.MockTest, int64, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.Attempt) error
	GetByID(ctx context.Context, id uint) (*models.Attempt, error)
	// UpdateVersioned writes the attempt only if its stored version still equals
	// attempt.Version, then bumps the version. Returns ErrVersionConflict otherwise.
	// IsBestAttempt is never written here.
	UpdateVersioned(ctx context.Context, attempt *models.Attempt) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filters AttemptFilters) ([]*models.Attempt, int64, error)

	CountByScope(ctx context.Context, scope models.RankingScope) (int64, error)
	CountByMockTest(ctx context.Context, mockTestID uint) (int64, error)
	ListByScope(ctx context.Context, scope models.RankingScope) ([]*models.Attempt, error)
	// ListRankingEligible returns evaluated, in-window attempts of the scope
	ListRankingEligible(ctx context.Context, scope models.RankingScope) ([]*models.Attempt, error)
	// SetBestAttempt flags bestID and clears every other attempt of the scope; 0 clears all
	SetBestAttempt(ctx context.Context, scope models.RankingScope, bestID uint) error
	// RenumberAfter shifts attempts numbered above attemptNumber down by one
	RenumberAfter(ctx context.Context, scope models.RankingScope, attemptNumber int) error
}

type RankingRepository interface {
	GetByScope(ctx context.Context, scope models.RankingScope) (*models.Ranking, error)
	Upsert(ctx context.Context, ranking *models.Ranking) error
	DeleteByScope(ctx context.Context, scope models.RankingScope) error
	DeleteByBestAttempt(ctx context.Context, attemptID uint) error
	// ListByCohort returns the leaderboard ordered by best score desc, last update asc.
	// forUpdate row-locks the result inside a transaction.
	ListByCohort(ctx context.Context, mockTestID, subjectID uint, forUpdate bool) ([]*models.Ranking, error)
	UpdateRanks(ctx context.Context, rankings []*models.Ranking) error
}
