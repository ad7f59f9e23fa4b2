package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yyup/kindergarten-service/internal/cache"
	"github.com/yyup/kindergarten-service/internal/repositories"
	"github.com/yyup/kindergarten-service/internal/utils"
)

const startupPingTimeout = 5 * time.Second

// PostgreSQLRepository serves every tenant table through one gorm handle.
// The tenant schema is taken from the request context by each query.
type PostgreSQLRepository struct {
	db    *gorm.DB
	redis *redis.Client
	cache *cache.CacheManager

	student      *studentRepository
	activity     *activityRepository
	notification *notificationRepository
	aiShortcut   *aiShortcutRepository
	task         *taskRepository
	grants       *grantRepository
	metadata     *metadataRepository
}

// RepositoryConfig wires the connections opened at startup.
type RepositoryConfig struct {
	DB          *gorm.DB
	RedisClient *redis.Client
	Logger      utils.Logger
}

func NewPostgreSQLRepository(config RepositoryConfig) *PostgreSQLRepository {
	return bind(config.DB, config.RedisClient, cache.NewCacheManager(config.RedisClient, config.Logger))
}

// bind builds the table repositories over db, which may be a transaction.
func bind(db *gorm.DB, redisClient *redis.Client, cacheManager *cache.CacheManager) *PostgreSQLRepository {
	return &PostgreSQLRepository{
		db:           db,
		redis:        redisClient,
		cache:        cacheManager,
		student:      &studentRepository{db: db},
		activity:     &activityRepository{db: db},
		notification: &notificationRepository{db: db},
		aiShortcut:   &aiShortcutRepository{db: db},
		task:         &taskRepository{db: db},
		grants:       &grantRepository{db: db},
		metadata:     &metadataRepository{db: db},
	}
}

func (r *PostgreSQLRepository) Student() repositories.StudentRepository { return r.student }

func (r *PostgreSQLRepository) Activity() repositories.ActivityRepository { return r.activity }

func (r *PostgreSQLRepository) Notification() repositories.NotificationRepository {
	return r.notification
}

func (r *PostgreSQLRepository) AIShortcut() repositories.AIShortcutRepository { return r.aiShortcut }

func (r *PostgreSQLRepository) Task() repositories.TaskRepository { return r.task }

func (r *PostgreSQLRepository) Grants() repositories.GrantRepository { return r.grants }

func (r *PostgreSQLRepository) Metadata() repositories.MetadataRepository { return r.metadata }

// CacheManager exposes the shared cache for services layered on this repository.
func (r *PostgreSQLRepository) CacheManager() *cache.CacheManager {
	return r.cache
}

// WithTransaction runs fn against repositories bound to a single transaction.
// Returning an error from fn rolls it back.
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(bind(tx, r.redis, r.cache))
	})
}

// Ping reports database reachability. Redis is optional and checked only when configured.
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if r.redis == nil {
		return nil
	}
	return r.cache.HealthCheck(ctx)
}

// Close releases the pool and the redis client. Both are attempted.
func (r *PostgreSQLRepository) Close() error {
	var errs []error
	if sqlDB, err := r.db.DB(); err != nil {
		errs = append(errs, fmt.Errorf("database handle: %w", err))
	} else if err := sqlDB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// RepositoryManager owns the repository lifecycle for main.
type RepositoryManager struct {
	config RepositoryConfig
	repo   *PostgreSQLRepository
}

func NewRepositoryManager(config RepositoryConfig) *RepositoryManager {
	return &RepositoryManager{config: config}
}

// Initialize pings the database and builds the repositories. An unreachable
// redis disables caching instead of failing startup.
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return errors.New("database connection is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupPingTimeout)
	defer cancel()

	sqlDB, err := rm.config.DB.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	if rm.config.RedisClient != nil {
		if err := rm.config.RedisClient.Ping(ctx).Err(); err != nil {
			if rm.config.Logger != nil {
				rm.config.Logger.Warn("Redis unreachable, caching disabled", "error", err)
			}
			_ = rm.config.RedisClient.Close()
			rm.config.RedisClient = nil
		}
	}

	rm.repo = NewPostgreSQLRepository(rm.config)
	return nil
}

func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

// Postgres returns the concrete repository, for wiring that needs the cache manager.
func (rm *RepositoryManager) Postgres() *PostgreSQLRepository {
	return rm.repo
}

func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return errors.New("repository not initialized")
	}
	return rm.repo.Ping(ctx)
}

func (rm *RepositoryManager) Shutdown(_ context.Context) error {
	if rm.repo == nil {
		return nil
	}
	return rm.repo.Close()
}
