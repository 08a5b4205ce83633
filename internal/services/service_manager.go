package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/mocktest-service/internal/cache"
	"github.com/SAP-F-2025/mocktest-service/internal/events"
	"github.com/SAP-F-2025/mocktest-service/internal/repositories"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Attempt engine
	MaxUpdateRetries      int
	BulkDeleteConcurrency int

	// Notification fan-out
	NotificationTimeout     time.Duration
	NotificationConcurrency int
}

// Dependencies are the shared collaborators every service is built from
type Dependencies struct {
	Repo      repositories.Repository
	Cache     *cache.CacheManager
	Locker    cache.Locker
	Publisher events.EventPublisher
	Logger    *slog.Logger
	Validator *validator.Validator

	// Sender defaults to publishing notification events
	Sender NotificationSender
}

type notificationWaiter interface {
	WaitForNotifications(ctx context.Context) error
}

type serviceManager struct {
	deps   Dependencies
	config ServiceManagerConfig

	mockTestService     MockTestService
	attemptService      AttemptService
	evaluationService   EvaluationService
	rankingService      RankingService
	queryService        QueryService
	notificationService NotificationService
	exportService       ExportService

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(deps Dependencies, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		deps:   deps,
		config: config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(deps Dependencies) ServiceManager {
	return NewServiceManager(deps, ServiceManagerConfig{
		MaxUpdateRetries:        3,
		BulkDeleteConcurrency:   4,
		NotificationTimeout:     5 * time.Second,
		NotificationConcurrency: 4,
	})
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	if err := sm.config.Validate(); err != nil {
		return err
	}
	if err := sm.deps.validate(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	sm.deps.Logger.Info("Initializing service manager")
	sm.initializeServices()

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized successfully")
	return nil
}

func (sm *serviceManager) initializeServices() {
	d := sm.deps

	cacheManager := d.Cache
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	sender := d.Sender
	if sender == nil {
		sender = NewEventNotificationSender(d.Publisher)
	}

	sm.rankingService = NewRankingService(d.Repo, cacheManager, d.Locker, d.Publisher, d.Logger)
	sm.deps.Logger.Info("Ranking service initialized")

	sm.notificationService = NewNotificationService(d.Repo.User(), sender, d.Logger, NotificationConfig{
		Timeout:     sm.config.NotificationTimeout,
		Concurrency: sm.config.NotificationConcurrency,
	})
	sm.deps.Logger.Info("Notification service initialized")

	sm.mockTestService = NewMockTestService(d.Repo, d.Logger, d.Validator)
	sm.deps.Logger.Info("MockTest service initialized")

	sm.attemptService = NewAttemptService(d.Repo, d.Locker, sm.rankingService, sm.notificationService, d.Publisher, d.Logger, d.Validator, AttemptServiceConfig{
		MaxUpdateRetries:      sm.config.MaxUpdateRetries,
		BulkDeleteConcurrency: sm.config.BulkDeleteConcurrency,
	})
	sm.deps.Logger.Info("Attempt service initialized")

	sm.evaluationService = NewEvaluationService(d.Repo, sm.rankingService, d.Publisher, d.Logger, d.Validator, sm.config.MaxUpdateRetries)
	sm.deps.Logger.Info("Evaluation service initialized")

	sm.queryService = NewQueryService(d.Repo, d.Logger)
	sm.exportService = NewExportService(d.Repo, sm.rankingService, d.Logger)
	sm.deps.Logger.Info("Query and export services initialized")
}

func (d Dependencies) validate() error {
	switch {
	case d.Repo == nil:
		return fmt.Errorf("repository is required")
	case d.Locker == nil:
		return fmt.Errorf("locker is required")
	case d.Publisher == nil:
		return fmt.Errorf("event publisher is required")
	case d.Logger == nil:
		return fmt.Errorf("logger is required")
	case d.Validator == nil:
		return fmt.Errorf("validator is required")
	}
	return nil
}

// ensureReady must be called with at least the read lock held
func (sm *serviceManager) ensureReady() {
	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Service getters
func (sm *serviceManager) MockTest() MockTestService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ensureReady()
	return sm.mockTestService
}

func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ensureReady()
	return sm.attemptService
}

func (sm *serviceManager) Evaluation() EvaluationService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ensureReady()
	return sm.evaluationService
}

func (sm *serviceManager) Ranking() RankingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ensureReady()
	return sm.rankingService
}

func (sm *serviceManager) Query() QueryService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ensureReady()
	return sm.queryService
}

func (sm *serviceManager) Notification() NotificationService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ensureReady()
	return sm.notificationService
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ensureReady()
	return sm.exportService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")

	// notices are published through the event publisher, so they drain first
	if waiter, ok := sm.attemptService.(notificationWaiter); ok {
		if err := waiter.WaitForNotifications(ctx); err != nil {
			sm.deps.Logger.Warn("Submission notices still in flight at shutdown", "error", err)
		}
	}

	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.deps.Logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down completed")
	return nil
}

// Validate checks the service manager configuration
func (config *ServiceManagerConfig) Validate() error {
	var problems []string

	if config.MaxUpdateRetries < 1 {
		problems = append(problems, "max update retries must be at least 1")
	}
	if config.BulkDeleteConcurrency < 1 {
		problems = append(problems, "bulk delete concurrency must be at least 1")
	}
	if config.NotificationConcurrency < 1 {
		problems = append(problems, "notification concurrency must be at least 1")
	}
	if config.NotificationTimeout <= 0 {
		problems = append(problems, "notification timeout must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %v", problems)
	}
	return nil
}
