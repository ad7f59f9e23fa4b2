package services

import (
	"context"
	"io"
	"time"

	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/repositories"
)

// ===== STUDENT DTOs =====

type CreateStudentRequest struct {
	Name           string               `json:"name" validate:"required,not_blank,max=100"`
	StudentNo      string               `json:"studentNo" validate:"required,not_blank,max=50"`
	Gender         models.Gender        `json:"gender" validate:"omitempty,oneof=male female"`
	BirthDate      *string              `json:"birthDate" validate:"omitempty,date"`
	EnrollmentDate *string              `json:"enrollmentDate" validate:"omitempty,date"`
	ClassID        *uint                `json:"classId"`
	ParentName     *string              `json:"parentName" validate:"omitempty,max=100"`
	ParentPhone    *string              `json:"parentPhone" validate:"omitempty,mobile"`
	Status         models.StudentStatus `json:"status" validate:"omitempty,oneof=active graduated suspended withdrawn"`
	Remark         *string              `json:"remark" validate:"omitempty,max=1000"`
}

type UpdateStudentRequest struct {
	Name           *string               `json:"name" validate:"omitempty,not_blank,max=100"`
	StudentNo      *string               `json:"studentNo" validate:"omitempty,not_blank,max=50"`
	Gender         *models.Gender        `json:"gender" validate:"omitempty,oneof=male female"`
	BirthDate      *string               `json:"birthDate" validate:"omitempty,date"`
	EnrollmentDate *string               `json:"enrollmentDate" validate:"omitempty,date"`
	ClassID        *uint                 `json:"classId"`
	ParentName     *string               `json:"parentName" validate:"omitempty,max=100"`
	ParentPhone    *string               `json:"parentPhone" validate:"omitempty,mobile"`
	Status         *models.StudentStatus `json:"status" validate:"omitempty,oneof=active graduated suspended withdrawn"`
	Remark         *string               `json:"remark" validate:"omitempty,max=1000"`
}

type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Imported int              `json:"imported"`
	Failed   int              `json:"failed"`
	Errors   []ImportRowError `json:"errors"`
}

// ===== ACTIVITY DTOs =====

type CreateActivityRequest struct {
	Title       string                `json:"title" validate:"required,not_blank,max=200"`
	Description *string               `json:"description"`
	Type        string                `json:"type" validate:"required,not_blank,max=50"`
	Location    *string               `json:"location" validate:"omitempty,max=200"`
	StartTime   time.Time             `json:"startTime" validate:"required"`
	EndTime     time.Time             `json:"endTime" validate:"required,gtefield=StartTime"`
	Capacity    int                   `json:"capacity" validate:"min=0"`
	Status      models.ActivityStatus `json:"status" validate:"omitempty,oneof=draft published ongoing finished cancelled"`
	Tags        []string              `json:"tags"`
}

type UpdateActivityRequest struct {
	Title       *string    `json:"title" validate:"omitempty,not_blank,max=200"`
	Description *string    `json:"description"`
	Type        *string    `json:"type" validate:"omitempty,not_blank,max=50"`
	Location    *string    `json:"location" validate:"omitempty,max=200"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	Capacity    *int       `json:"capacity" validate:"omitempty,min=0"`
	Tags        []string   `json:"tags"`
}

type UpdateActivityStatusRequest struct {
	Status models.ActivityStatus `json:"status" validate:"required,oneof=draft published ongoing finished cancelled"`
}

// ===== CHECK-IN DTOs =====

type BatchCheckinRequest struct {
	RegistrationIDs []uint  `json:"registrationIds" validate:"required,min=1"`
	CheckinMethod   *string `json:"checkinMethod"`
	Location        *string `json:"location"`
}

type BatchCheckinResult struct {
	SuccessCount int `json:"successCount"`
	FailedCount  int `json:"failedCount"`
}

type CheckinStats struct {
	ActivityID      uint    `json:"activityId"`
	TotalRegistered int     `json:"totalRegistered"`
	CheckedIn       int     `json:"checkedIn"`
	NotCheckedIn    int     `json:"notCheckedIn"`
	CheckinRate     float64 `json:"checkinRate"`
}

// ===== NOTIFICATION DTOs =====

type CreateNotificationRequest struct {
	Title       string                      `json:"title" validate:"required,not_blank,max=200"`
	Content     string                      `json:"content" validate:"required,not_blank"`
	Type        models.NotificationType     `json:"type" validate:"required,oneof=system activity notice reminder"`
	Priority    models.NotificationPriority `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	ReceiverIDs []string                    `json:"receiverIds" validate:"required,min=1,dive,required"`
	Extra       map[string]interface{}      `json:"extra"`
}

// ===== AI DTOs =====

type ChatRequest struct {
	Model    string               `json:"model" validate:"omitempty,max=100"`
	Messages []models.ChatMessage `json:"messages" validate:"required,min=1,dive"`
}

type CreateShortcutRequest struct {
	Name      string                 `json:"name" validate:"required,not_blank,max=100"`
	Prompt    string                 `json:"prompt" validate:"required,not_blank"`
	Category  *string                `json:"category" validate:"omitempty,max=50"`
	Config    map[string]interface{} `json:"config"`
	SortOrder int                    `json:"sortOrder"`
	IsActive  *bool                  `json:"isActive"`
}

type UpdateShortcutRequest struct {
	Name      *string                `json:"name" validate:"omitempty,not_blank,max=100"`
	Prompt    *string                `json:"prompt" validate:"omitempty,not_blank"`
	Category  *string                `json:"category" validate:"omitempty,max=50"`
	Config    map[string]interface{} `json:"config"`
	SortOrder *int                   `json:"sortOrder"`
	IsActive  *bool                  `json:"isActive"`
}

// ChatStreamer forwards a conversation to a model provider and emits content deltas in order.
type ChatStreamer interface {
	Stream(ctx context.Context, modelID string, messages []models.ChatMessage, emit func(chunk string) error) error
}

// ===== STATISTICS / SYSTEM DTOs =====

type OverviewStats struct {
	Students            int64 `json:"students"`
	ActiveStudents      int64 `json:"activeStudents"`
	Activities          int64 `json:"activities"`
	UnreadNotifications int64 `json:"unreadNotifications"`
}

type SystemInfo struct {
	Service       string `json:"service"`
	Version       string `json:"version"`
	Environment   string `json:"environment"`
	StartedAt     string `json:"startedAt"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	GoVersion     string `json:"goVersion"`
}

// ===== TASK DTOs =====

type CreateTaskRequest struct {
	Title       string              `json:"title" validate:"required,not_blank,max=200"`
	Description *string             `json:"description"`
	Priority    models.TaskPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	AssigneeID  *string             `json:"assigneeId" validate:"omitempty,max=255"`
	DueDate     *time.Time          `json:"dueDate"`
}

type UpdateTaskStatusRequest struct {
	Status models.TaskStatus `json:"status" validate:"required,oneof=pending in_progress completed cancelled"`
}

// AttachmentUpload is one multipart file handed to the task service.
type AttachmentUpload struct {
	FileName string
	// MimeType is what the client declared. The stored type is detected from content.
	MimeType string
	Size     int64
	Body     io.Reader
}

// ===== SERVICE INTERFACES =====

type StudentService interface {
	List(ctx context.Context, filters repositories.StudentFilters) ([]*models.Student, int64, error)
	GetByID(ctx context.Context, id uint) (*models.Student, error)
	Create(ctx context.Context, req *CreateStudentRequest) (*models.Student, error)
	Update(ctx context.Context, id uint, req *UpdateStudentRequest) (*models.Student, error)
	Delete(ctx context.Context, id uint) error
	ListByClass(ctx context.Context, classID uint) ([]*models.Student, error)
	Stats(ctx context.Context) (*models.StudentStats, error)

	// Import and export
	Import(ctx context.Context, fileName string, r io.Reader) (*ImportResult, error)
	Export(ctx context.Context, w io.Writer) error
}

type ActivityService interface {
	List(ctx context.Context, filters repositories.ActivityFilters) ([]*models.Activity, int64, error)
	GetByID(ctx context.Context, id uint) (*models.Activity, error)
	Create(ctx context.Context, req *CreateActivityRequest, creatorID string) (*models.Activity, error)
	Update(ctx context.Context, id uint, req *UpdateActivityRequest) (*models.Activity, error)
	UpdateStatus(ctx context.Context, id uint, req *UpdateActivityStatusRequest) (*models.Activity, error)
	Delete(ctx context.Context, id uint) error
	Statistics(ctx context.Context) (*models.ActivityStatistics, error)
}

// CheckinService has no backing store; see checkin_service.go.
type CheckinService interface {
	Create(ctx context.Context, body map[string]interface{}) (map[string]interface{}, error)
	Batch(ctx context.Context, req *BatchCheckinRequest) (*BatchCheckinResult, error)
	GetByID(ctx context.Context, id uint) (map[string]interface{}, error)
	Update(ctx context.Context, id uint, body map[string]interface{}) (map[string]interface{}, error)
	Delete(ctx context.Context, id uint) error
	Stats(ctx context.Context, activityID uint) (*CheckinStats, error)
}

type NotificationService interface {
	ListForUser(ctx context.Context, userID string, filters repositories.NotificationFilters) ([]*models.Notification, int64, error)
	GetForUser(ctx context.Context, id uint, userID string) (*models.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id uint, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Create(ctx context.Context, req *CreateNotificationRequest, senderID string) (int, error)
	Delete(ctx context.Context, id uint) error
}

type AIService interface {
	Models() []models.AIModel
	ListShortcuts(ctx context.Context, userID string, filters repositories.ShortcutFilters) ([]*models.AIShortcut, int64, error)
	GetShortcut(ctx context.Context, id uint, userID string) (*models.AIShortcut, error)
	CreateShortcut(ctx context.Context, req *CreateShortcutRequest, userID string) (*models.AIShortcut, error)
	UpdateShortcut(ctx context.Context, id uint, req *UpdateShortcutRequest, userID string) (*models.AIShortcut, error)
	DeleteShortcut(ctx context.Context, id uint, userID string) error
	Analysis(ctx context.Context, id uint) (map[string]interface{}, error)

	// Streaming
	ValidateChat(req *ChatRequest) error
	StreamAvailable() bool
	StreamChat(ctx context.Context, req *ChatRequest, emit func(chunk string) error) error
}

type StatisticsService interface {
	Overview(ctx context.Context) (*OverviewStats, error)
	Dashboard(ctx context.Context) (map[string]interface{}, error)
	Export(ctx context.Context) error
}

type SystemService interface {
	Info(ctx context.Context) *SystemInfo
	ClearCache(ctx context.Context) error
	TestEmail(ctx context.Context) error
}

type TaskService interface {
	List(ctx context.Context, filters repositories.TaskFilters) ([]*models.Task, int64, error)
	GetByID(ctx context.Context, id uint) (*models.Task, error)
	Create(ctx context.Context, req *CreateTaskRequest, creatorID string) (*models.Task, error)
	UpdateStatus(ctx context.Context, id uint, req *UpdateTaskStatusRequest) (*models.Task, error)
	Delete(ctx context.Context, id uint) error
	AddAttachment(ctx context.Context, taskID uint, upload *AttachmentUpload, uploaderID string) (*models.TaskAttachment, error)
	ListAttachments(ctx context.Context, taskID uint) ([]*models.TaskAttachment, error)
}

// ServiceManager manages all services and their dependencies
type ServiceManager interface {
	Student() StudentService
	Activity() ActivityService
	Checkin() CheckinService
	Notification() NotificationService
	AI() AIService
	Statistics() StatisticsService
	System() SystemService
	Task() TaskService

	// Health and lifecycle
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
