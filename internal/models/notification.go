package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationSystem   NotificationType = "system"
	NotificationActivity NotificationType = "activity"
	NotificationNotice   NotificationType = "notice"
	NotificationReminder NotificationType = "reminder"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

type Notification struct {
	ID       uint                 `json:"id" gorm:"primaryKey"`
	Title    string               `json:"title" gorm:"not null;size:200"`
	Content  string               `json:"content" gorm:"type:text;not null"`
	Type     NotificationType     `json:"type" gorm:"not null;size:20;index"`
	Priority NotificationPriority `json:"priority" gorm:"not null;size:20;default:normal"`

	SenderID   string `json:"senderId" gorm:"not null;size:255"`
	ReceiverID string `json:"receiverId" gorm:"not null;size:255;index"`

	IsRead bool       `json:"isRead" gorm:"default:false;index"`
	ReadAt *time.Time `json:"readAt"`

	Extra datatypes.JSON `json:"extra,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Notification) TableName() string {
	return "notifications"
}
