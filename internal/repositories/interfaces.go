package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/yyup/kindergarten-service/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// ===== SHARED FILTER STRUCTS =====

type StudentFilters struct {
	Search    string
	ClassID   *uint
	Status    *models.StudentStatus
	Limit     int
	Offset    int
	SortBy    string // "created_at", "name", "student_no"
	SortOrder string // "asc", "desc"
}

type ActivityFilters struct {
	Search    string
	Type      *string
	Status    *models.ActivityStatus
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

type NotificationFilters struct {
	IsRead *bool
	Type   *models.NotificationType
	Limit  int
	Offset int
}

type TaskFilters struct {
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	AssigneeID *string
	Limit      int
	Offset     int
	SortBy     string
	SortOrder  string
}

type ShortcutFilters struct {
	Category *string
	Limit    int
	Offset   int
}

// ColumnInfo describes one column from information_schema.
type ColumnInfo struct {
	Name     string `json:"name" gorm:"column:column_name"`
	DataType string `json:"dataType" gorm:"column:data_type"`
	Nullable bool   `json:"nullable" gorm:"column:nullable"`
}

// ===== REPOSITORY INTERFACES =====
// All repositories resolve their tables from the tenant schema bound to ctx.

type StudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	GetByID(ctx context.Context, id uint) (*models.Student, error)
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filters StudentFilters) ([]*models.Student, int64, error)
	ListByClass(ctx context.Context, classID uint) ([]*models.Student, error)
	ListAll(ctx context.Context) ([]*models.Student, error)
	ExistsByStudentNo(ctx context.Context, studentNo string, excludeID uint) (bool, error)
	CountByStatus(ctx context.Context) (map[models.StudentStatus]int64, error)
}

type ActivityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
	GetByID(ctx context.Context, id uint) (*models.Activity, error)
	Update(ctx context.Context, activity *models.Activity) error
	UpdateStatus(ctx context.Context, id uint, status models.ActivityStatus) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filters ActivityFilters) ([]*models.Activity, int64, error)
	ExistsByTitleOnDate(ctx context.Context, title string, day time.Time, excludeID uint) (bool, error)
	Statistics(ctx context.Context) (*models.ActivityStatistics, error)
	Count(ctx context.Context) (int64, error)
}

type NotificationRepository interface {
	CreateBatch(ctx context.Context, notifications []*models.Notification) error
	GetForReceiver(ctx context.Context, id uint, receiverID string) (*models.Notification, error)
	ListForReceiver(ctx context.Context, receiverID string, filters NotificationFilters) ([]*models.Notification, int64, error)
	CountUnread(ctx context.Context, receiverID string) (int64, error)
	CountAllUnread(ctx context.Context) (int64, error)
	MarkRead(ctx context.Context, id uint, receiverID string) error
	MarkAllRead(ctx context.Context, receiverID string) (int64, error)
	Delete(ctx context.Context, id uint) error
}

type AIShortcutRepository interface {
	Create(ctx context.Context, shortcut *models.AIShortcut) error
	GetByID(ctx context.Context, id uint, userID string) (*models.AIShortcut, error)
	Update(ctx context.Context, shortcut *models.AIShortcut) error
	Delete(ctx context.Context, id uint, userID string) error
	ListByUser(ctx context.Context, userID string, filters ShortcutFilters) ([]*models.AIShortcut, int64, error)
	ExistsByName(ctx context.Context, userID, name string, excludeID uint) (bool, error)
}

type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uint) (*models.Task, error)
	UpdateStatus(ctx context.Context, id uint, status models.TaskStatus, completedAt *time.Time) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filters TaskFilters) ([]*models.Task, int64, error)
	CreateAttachment(ctx context.Context, attachment *models.TaskAttachment) error
	ListAttachments(ctx context.Context, taskID uint) ([]*models.TaskAttachment, error)
}

// GrantRepository reads role grants from the tenant schema. It satisfies auth.GrantStore.
type GrantRepository interface {
	HasPermission(ctx context.Context, userID string, permission models.Permission) (bool, error)
}

// MetadataRepository reads information_schema for an allowlisted schema.
type MetadataRepository interface {
	ListTables(ctx context.Context, schema string) ([]string, error)
	ListColumns(ctx context.Context, schema, table string) ([]ColumnInfo, error)
}
