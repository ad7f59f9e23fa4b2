package repositories

import "context"

// Repository aggregates the tenant-scoped table repositories. Every call
// expects the tenant schema on ctx.
type Repository interface {
	Student() StudentRepository
	Activity() ActivityRepository
	Notification() NotificationRepository
	AIShortcut() AIShortcutRepository
	Task() TaskRepository

	Grants() GrantRepository
	Metadata() MetadataRepository

	// WithTransaction rolls back when fn returns an error.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager owns startup and shutdown of a Repository.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
