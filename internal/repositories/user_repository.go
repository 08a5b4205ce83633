package repositories

import (
	"context"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
)

type UserFilters struct {
	Query  string // Search query for name or email
	Limit  int
	Offset int
}

// UserRepository reads the user directory. This service does not own user data.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	ListByRole(ctx context.Context, role models.UserRole) ([]*models.User, error)
	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)
}
