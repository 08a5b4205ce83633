package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/mocktest-service/internal/services"
	"github.com/SAP-F-2025/mocktest-service/internal/utils"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// BaseHandler carries what every handler needs: a logger and the response helpers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// requestLogger prefers the request scoped logger set by utils.ContextLogger
func (h *BaseHandler) requestLogger(c *gin.Context) utils.Logger {
	return utils.FromContext(c.Request.Context(), h.logger)
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args, "method", c.Request.Method, "path", c.FullPath())
	h.requestLogger(c).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string) {
	h.requestLogger(c).Error(msg, "error", err, "path", c.FullPath())
}

func (h *BaseHandler) respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, SuccessResponse{Success: true, Message: message, Data: data})
}

func (h *BaseHandler) fail(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Success: false, Message: message, Details: details})
}

func (h *BaseHandler) bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		h.fail(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return false
	}
	return true
}

func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		h.fail(c, http.StatusBadRequest, "Invalid "+param, c.Param(param))
		return 0
	}
	return uint(id)
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	value, err := strconv.Atoi(c.Query(param))
	if err != nil {
		return defaultValue
	}
	return value
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pagination turns ?page= and ?size= into limit and offset
func (h *BaseHandler) pagination(c *gin.Context) (limit, offset int) {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", defaultPageSize)
	if page < 1 {
		page = 1
	}
	if size < 1 || size > maxPageSize {
		size = defaultPageSize
	}
	return size, (page - 1) * size
}

// parseUintQuery returns nil when the parameter is absent; ok is false after a 400 was written
func (h *BaseHandler) parseUintQuery(c *gin.Context, param string) (*uint, bool) {
	raw := c.Query(param)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		h.fail(c, http.StatusBadRequest, "Invalid "+param, raw)
		return nil, false
	}
	id := uint(v)
	return &id, true
}

// currentUserID aborts with 401 when the auth middleware did not run
func (h *BaseHandler) currentUserID(c *gin.Context) (string, bool) {
	userID, err := GetUserIDFromContext(c)
	if err != nil || userID == "" {
		h.fail(c, http.StatusUnauthorized, "User not authenticated", nil)
		return "", false
	}
	return userID, true
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.fail(c, http.StatusBadRequest, "Validation failed", validationErrors)
		return
	}

	// rejected by a business rule: the request was fine, the answer is no
	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		h.fail(c, http.StatusOK, businessRuleError.Message, map[string]interface{}{
			"rule":    businessRuleError.Rule,
			"context": businessRuleError.Context,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		h.fail(c, http.StatusForbidden, "Access denied", map[string]interface{}{
			"resource": permissionError.ResourceType,
			"action":   permissionError.Action,
			"reason":   permissionError.Reason,
		})
		return
	}

	switch {
	case services.IsNotFound(err):
		h.fail(c, http.StatusNotFound, err.Error(), nil)
	case services.IsInvalidInput(err):
		h.fail(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, services.ErrAttemptNotReady),
		errors.Is(err, services.ErrAttemptAlreadyEvaluated),
		errors.Is(err, services.ErrEvaluationIncomplete):
		h.fail(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, services.ErrAttemptNotActive),
		errors.Is(err, services.ErrMockTestLocked),
		errors.Is(err, services.ErrConcurrentModification):
		h.fail(c, http.StatusConflict, err.Error(), nil)
	default:
		h.LogError(c, err, "Unexpected service error")
		h.fail(c, http.StatusInternalServerError, "Internal server error", nil)
	}
}
