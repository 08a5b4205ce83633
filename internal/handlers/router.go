package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/mocktest-service/internal/config"
	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
	"github.com/SAP-F-2025/mocktest-service/internal/services"
	"github.com/SAP-F-2025/mocktest-service/internal/utils"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

type HandlerManager struct {
	attemptHandler    *AttemptHandler
	evaluationHandler *EvaluationHandler
	rankingHandler    *RankingHandler
	mockTestHandler   *MockTestHandler
	adminHandler      *AdminHandler
	userHandler       *UserHandler
	authMiddleware    *CasdoorAuthMiddleware
	serviceManager    services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	return newHandlerManager(serviceManager, validator, logger, NewCasdoorAuthMiddleware(casdoorConfig, userRepo), userRepo)
}

func newHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	authMiddleware *CasdoorAuthMiddleware,
	userRepo repositories.UserRepository,
) *HandlerManager {
	return &HandlerManager{
		attemptHandler:    NewAttemptHandler(serviceManager.Attempt(), serviceManager.Query(), logger),
		evaluationHandler: NewEvaluationHandler(serviceManager.Evaluation(), logger),
		rankingHandler:    NewRankingHandler(serviceManager.Ranking(), serviceManager.MockTest(), serviceManager.Export(), logger),
		mockTestHandler:   NewMockTestHandler(serviceManager.MockTest(), logger),
		adminHandler:      NewAdminHandler(serviceManager.Query(), serviceManager.Attempt(), serviceManager.Export(), validator, logger),
		userHandler:       NewUserHandler(userRepo, logger),
		authMiddleware:    authMiddleware,
		serviceManager:    serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	staff := hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin)
	adminOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Student attempt flow
		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.PUT("/save", hm.attemptHandler.SaveAnswer)
			attempts.PUT("/submit", hm.attemptHandler.SubmitAttempt)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.GET("/user/:mock_test_id", hm.attemptHandler.GetUserAttempts)
			attempts.GET("/results/:mock_test_id", hm.attemptHandler.GetUserResults)
			attempts.GET("/subject/:subject_id", hm.attemptHandler.GetUserAttemptsBySubject)
		}

		evaluations := v1.Group("/evaluations")
		evaluations.Use(staff)
		{
			evaluations.PUT("/question", hm.evaluationHandler.EvaluateQuestion)
			evaluations.PUT("/batch", hm.evaluationHandler.EvaluateSubjective)
			evaluations.PUT("/:id/complete", hm.evaluationHandler.CompleteEvaluation)
		}

		rankings := v1.Group("/rankings")
		{
			rankings.GET("/:mock_test_id", hm.rankingHandler.GetRankings)
			rankings.GET("/:mock_test_id/me", hm.rankingHandler.GetUserRanking)
			rankings.GET("/:mock_test_id/export", staff, hm.rankingHandler.ExportRankings)
		}

		mockTests := v1.Group("/mock-tests")
		{
			mockTests.GET("", hm.mockTestHandler.ListMockTests)
			mockTests.GET("/:id", hm.mockTestHandler.GetMockTest)
			mockTests.POST("", staff, hm.mockTestHandler.CreateMockTest)
			mockTests.PUT("/:id/questions", staff, hm.mockTestHandler.UpdateQuestions)
			mockTests.DELETE("/:id", staff, hm.mockTestHandler.DeleteMockTest)
		}

		admin := v1.Group("/admin")
		admin.Use(staff)
		{
			admin.GET("/attempts", hm.adminHandler.ListAttempts)
			admin.GET("/attempts/:id", hm.adminHandler.GetAttemptByID)
			admin.GET("/attempts/user/:user_id", hm.adminHandler.GetAttemptsByUser)
			admin.DELETE("/attempts/:id", adminOnly, hm.adminHandler.DeleteAttempt)
			admin.POST("/attempts/bulk-delete", adminOnly, hm.adminHandler.BulkDeleteAttempts)

			admin.GET("/mock-tests/:id/submitted-users", hm.adminHandler.GetSubmittedUsers)
			admin.GET("/mock-tests/:id/users", hm.adminHandler.GetUsersSubmittedTest)
			admin.GET("/mock-tests/:id/export", hm.adminHandler.ExportSubmissions)
		}

		v1.GET("/me", hm.userHandler.GetCurrentUser)

		users := v1.Group("/users")
		users.Use(staff)
		{
			users.GET("", hm.userHandler.ListUsers)
			users.GET("/:id", hm.userHandler.GetUser)
		}
	}

	router.GET("/health", hm.health)
}

// health reports liveness and whether the database answers
func (hm *HandlerManager) health(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	var details string
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		status, code, details = "unhealthy", http.StatusServiceUnavailable, err.Error()
	}

	body := gin.H{
		"status":    status,
		"service":   "mocktest-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if details != "" {
		body["error"] = details
	}
	c.JSON(code, body)
}
