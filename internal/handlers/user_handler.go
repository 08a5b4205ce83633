package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
	"github.com/SAP-F-2025/mocktest-service/internal/utils"
)

// UserHandler exposes the user directory to staff, e.g. to pick whose attempts to review
type UserHandler struct {
	BaseHandler
	userRepo repositories.UserRepository
}

func NewUserHandler(userRepo repositories.UserRepository, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		userRepo:    userRepo,
	}
}

// ListUsers lists directory users
// @Summary List users
// @Tags users
// @Produce json
// @Param q query string false "Search by name or email"
// @Param page query int false "Page number"
// @Param size query int false "Page size (max 100)"
// @Success 200 {object} SuccessResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	h.LogRequest(c, "Listing users")

	filters := repositories.UserFilters{Query: c.Query("q")}
	filters.Limit, filters.Offset = h.pagination(c)

	users, total, err := h.userRepo.List(c.Request.Context(), filters)
	if err != nil {
		h.LogError(c, err, "Failed to list users")
		h.fail(c, http.StatusInternalServerError, "Failed to list users", nil)
		return
	}

	h.respond(c, http.StatusOK, "", gin.H{
		"users": users,
		"total": total,
		"page":  filters.Offset/filters.Limit + 1,
		"size":  filters.Limit,
	})
}

// GetCurrentUser returns the caller as resolved by the auth middleware
// @Summary Current user
// @Tags users
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /me [get]
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	user, err := GetUserFromContext(c)
	if err != nil {
		h.fail(c, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}
	h.respond(c, http.StatusOK, "", user)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id := c.Param("id")

	user, err := h.userRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			h.fail(c, http.StatusNotFound, "User not found", nil)
			return
		}
		h.LogError(c, err, "Failed to get user")
		h.fail(c, http.StatusInternalServerError, "Failed to get user", nil)
		return
	}

	h.respond(c, http.StatusOK, "", user)
}
