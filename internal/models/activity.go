package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActivityStatus string

const (
	ActivityDraft     ActivityStatus = "draft"
	ActivityPublished ActivityStatus = "published"
	ActivityOngoing   ActivityStatus = "ongoing"
	ActivityFinished  ActivityStatus = "finished"
	ActivityCancelled ActivityStatus = "cancelled"
)

type Activity struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Title       string  `json:"title" gorm:"not null;size:200"`
	Description *string `json:"description" gorm:"type:text"`
	Type        string  `json:"type" gorm:"not null;size:50;index"`
	Location    *string `json:"location" gorm:"size:200"`

	StartTime time.Time `json:"startTime" gorm:"not null;index"`
	EndTime   time.Time `json:"endTime" gorm:"not null"`

	Capacity        int `json:"capacity" gorm:"default:0"`
	RegisteredCount int `json:"registeredCount" gorm:"default:0"`

	Status ActivityStatus `json:"status" gorm:"not null;size:20;default:draft;index"`
	Tags   datatypes.JSON `json:"tags" gorm:"type:jsonb"`

	CreatedBy string         `json:"createdBy" gorm:"not null;size:255"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Activity) TableName() string {
	return "activities"
}

type ActivityStatistics struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"byStatus"`
	ByType   map[string]int64 `json:"byType"`
}
