package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yyup/kindergarten-service/internal/cache"
	"github.com/yyup/kindergarten-service/internal/config"
	"github.com/yyup/kindergarten-service/internal/events"
	"github.com/yyup/kindergarten-service/internal/repositories"
	"github.com/yyup/kindergarten-service/internal/utils"
	"github.com/yyup/kindergarten-service/internal/validator"
)

// ServiceManagerConfig holds the settings services read at construction.
type ServiceManagerConfig struct {
	Environment string
	UploadDir   string
	AI          config.AIConfig
	StartedAt   time.Time
}

// Dependencies are the shared collaborators handed to every service.
type Dependencies struct {
	Repo      repositories.Repository
	Cache     *cache.CacheManager
	Streamer  ChatStreamer
	Publisher events.EventPublisher
	Logger    utils.Logger
	Validator *validator.Validator
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   Dependencies
	config ServiceManagerConfig

	studentService      StudentService
	activityService     ActivityService
	checkinService      CheckinService
	notificationService NotificationService
	aiService           AIService
	statisticsService   StatisticsService
	systemService       SystemService
	taskService         TaskService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(deps Dependencies, config ServiceManagerConfig) *serviceManager {
	if deps.Publisher == nil {
		deps.Publisher = events.NewMockEventPublisher()
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewCacheManager(nil, deps.Logger)
	}
	if config.StartedAt.IsZero() {
		config.StartedAt = time.Now()
	}
	return &serviceManager{deps: deps, config: config}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}
	if sm.deps.Repo == nil {
		return fmt.Errorf("failed to initialize services: repository is required")
	}

	d := sm.deps
	d.Logger.Info("Initializing service manager")

	sm.studentService = NewStudentService(d.Repo, d.Logger, d.Validator, d.Publisher)
	sm.activityService = NewActivityService(d.Repo, d.Cache, d.Logger, d.Validator, d.Publisher)
	sm.checkinService = NewCheckinService(d.Logger, d.Validator, d.Publisher)
	sm.notificationService = NewNotificationService(d.Repo, d.Cache, d.Logger, d.Validator, d.Publisher)
	sm.aiService = NewAIService(d.Repo, d.Streamer, sm.config.AI, d.Logger, d.Validator)
	sm.statisticsService = NewStatisticsService(d.Repo, d.Cache, d.Logger)
	sm.systemService = NewSystemService(sm.config.Environment, sm.config.StartedAt, d.Logger)
	sm.taskService = NewTaskService(d.Repo, sm.config.UploadDir, d.Logger, d.Validator)

	sm.initialized = true
	d.Logger.Info("Service manager initialized successfully", "ai_streaming", d.Streamer != nil)
	return nil
}

func (sm *serviceManager) mustBeReady(name string, svc interface{}) {
	if !sm.initialized {
		panic("service manager not initialized")
	}
	if svc == nil {
		panic(name + " service not initialized")
	}
}

// Service getters
func (sm *serviceManager) Student() StudentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("student", sm.studentService)
	return sm.studentService
}

func (sm *serviceManager) Activity() ActivityService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("activity", sm.activityService)
	return sm.activityService
}

func (sm *serviceManager) Checkin() CheckinService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("checkin", sm.checkinService)
	return sm.checkinService
}

func (sm *serviceManager) Notification() NotificationService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("notification", sm.notificationService)
	return sm.notificationService
}

func (sm *serviceManager) AI() AIService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("ai", sm.aiService)
	return sm.aiService
}

func (sm *serviceManager) Statistics() StatisticsService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("statistics", sm.statisticsService)
	return sm.statisticsService
}

func (sm *serviceManager) System() SystemService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("system", sm.systemService)
	return sm.systemService
}

func (sm *serviceManager) Task() TaskService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady("task", sm.taskService)
	return sm.taskService
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

// Shutdown closes the event publisher. The repository is owned by the caller.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")
	if err := sm.deps.Publisher.Close(); err != nil {
		sm.deps.Logger.Error("Failed to close event publisher", "error", err)
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down completed")
	return nil
}

// IsInitialized returns whether the service manager has been initialized
func (sm *serviceManager) IsInitialized() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.initialized
}
