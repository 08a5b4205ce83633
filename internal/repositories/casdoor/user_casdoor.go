package casdoor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/mocktest-service/internal/cache"
	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
)

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// casdoorClient is the subset of the SDK client the directory needs
type casdoorClient interface {
	GetUserByUserId(userId string) (*casdoorsdk.User, error)
	GetUsers() ([]*casdoorsdk.User, error)
	GetPaginationUsers(p int, pageSize int, queryMap map[string]string) ([]*casdoorsdk.User, int, error)
}

type UserCasdoor struct {
	client casdoorClient
	cache  *cache.CacheHelper

	userTTL time.Duration
	roleTTL time.Duration
}

func NewUserCasdoor(config CasdoorConfig, redisClient *redis.Client) repositories.UserRepository {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)
	return newUserCasdoor(client, cache.NewCacheManager(redisClient).User)
}

func newUserCasdoor(client casdoorClient, helper *cache.CacheHelper) *UserCasdoor {
	return &UserCasdoor{
		client:  client,
		cache:   helper,
		userTTL: 15 * time.Minute,
		// admin lists change rarely but must not lag behind role changes for long
		roleTTL: 2 * time.Minute,
	}
}

// ===== CONVERSION METHODS =====

func convertCasdoorUserToModel(casdoorUser *casdoorsdk.User) *models.User {
	if casdoorUser == nil {
		return nil
	}

	user := &models.User{
		ID:            casdoorUser.Id,
		FullName:      casdoorUser.DisplayName,
		Email:         casdoorUser.Email,
		Role:          convertCasdoorRolesToModel(casdoorUser),
		EmailVerified: casdoorUser.EmailVerified,
	}
	if user.FullName == "" {
		user.FullName = casdoorUser.Name
	}
	if casdoorUser.Avatar != "" {
		avatar := casdoorUser.Avatar
		user.AvatarURL = &avatar
	}
	return user
}

func convertCasdoorRolesToModel(casdoorUser *casdoorsdk.User) models.UserRole {
	var roles []models.UserRole
	for _, casdoorRole := range casdoorUser.Roles {
		if casdoorRole == nil {
			continue
		}
		mapped := MapCasdoorRole(casdoorRole.Name)
		if !slices.Contains(roles, mapped) {
			roles = append(roles, mapped)
		}
	}

	// admin wins over any other role
	if casdoorUser.IsAdmin || slices.Contains(roles, models.RoleAdmin) {
		return models.RoleAdmin
	}
	if slices.Contains(roles, models.RoleTeacher) {
		return models.RoleTeacher
	}
	return models.RoleStudent
}

// MapCasdoorRole maps a Casdoor role or user type name onto a service role
func MapCasdoorRole(name string) models.UserRole {
	switch strings.ToLower(name) {
	case "admin", "administrator":
		return models.RoleAdmin
	case "teacher", "instructor", "evaluator", "proctor":
		return models.RoleTeacher
	default:
		return models.RoleStudent
	}
}

// ===== READ OPERATIONS =====

func (u *UserCasdoor) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := u.cache.CacheOrExecute(ctx, fmt.Sprintf("id:%s", id), &user, u.userTTL, func() (interface{}, error) {
		casdoorUser, err := u.client.GetUserByUserId(id)
		if err != nil {
			return nil, fmt.Errorf("failed to get user from Casdoor: %w", err)
		}
		if casdoorUser == nil {
			return nil, repositories.ErrNotFound
		}
		return convertCasdoorUserToModel(casdoorUser), nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIDs skips users that cannot be resolved
func (u *UserCasdoor) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		user, err := u.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

func (u *UserCasdoor) ListByRole(ctx context.Context, role models.UserRole) ([]*models.User, error) {
	var users []*models.User
	err := u.cache.CacheOrExecute(ctx, fmt.Sprintf("role:%s", role), &users, u.roleTTL, func() (interface{}, error) {
		casdoorUsers, err := u.client.GetUsers()
		if err != nil {
			return nil, fmt.Errorf("failed to list users from Casdoor: %w", err)
		}
		matched := make([]*models.User, 0)
		for _, casdoorUser := range casdoorUsers {
			if user := convertCasdoorUserToModel(casdoorUser); user != nil && user.Role == role {
				matched = append(matched, user)
			}
		}
		return matched, nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// List retrieves a paginated list of users
func (u *UserCasdoor) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	if filters.Limit <= 0 {
		filters.Limit = 10
	}
	if filters.Limit > 100 {
		filters.Limit = 100
	}

	// Casdoor pages are 1-indexed
	page := (filters.Offset / filters.Limit) + 1

	queryMap := make(map[string]string)
	if filters.Query != "" {
		queryMap["field"] = "email"
		queryMap["value"] = filters.Query
	}

	casdoorUsers, count, err := u.client.GetPaginationUsers(page, filters.Limit, queryMap)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get users from Casdoor: %w", err)
	}

	users := make([]*models.User, 0, len(casdoorUsers))
	for _, casdoorUser := range casdoorUsers {
		if user := convertCasdoorUserToModel(casdoorUser); user != nil {
			users = append(users, user)
		}
	}
	return users, int64(count), nil
}
