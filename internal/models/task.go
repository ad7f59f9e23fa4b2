package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

type Task struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	Title       string       `json:"title" gorm:"not null;size:200"`
	Description *string      `json:"description" gorm:"type:text"`
	Status      TaskStatus   `json:"status" gorm:"not null;size:20;default:pending;index"`
	Priority    TaskPriority `json:"priority" gorm:"not null;size:20;default:medium"`

	AssigneeID *string `json:"assigneeId" gorm:"size:255;index"`
	CreatorID  string  `json:"creatorId" gorm:"not null;size:255"`

	DueDate     *time.Time `json:"dueDate"`
	CompletedAt *time.Time `json:"completedAt"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Task) TableName() string {
	return "tasks"
}

type TaskAttachment struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	TaskID     uint      `json:"taskId" gorm:"not null;index"`
	FileName   string    `json:"fileName" gorm:"not null;size:255"`
	StoredName string    `json:"storedName" gorm:"not null;size:255"`
	Path       string    `json:"-" gorm:"not null;size:500"`
	MimeType   string    `json:"mimeType" gorm:"size:100"`
	Size       int64     `json:"size"`
	UploadedBy string    `json:"uploadedBy" gorm:"not null;size:255"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (TaskAttachment) TableName() string {
	return "task_attachments"
}
