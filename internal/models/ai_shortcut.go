package models

import (
	"time"

	"gorm.io/datatypes"
)

// AIShortcut is a saved prompt owned by one user. Names are unique per user.
type AIShortcut struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    string         `json:"userId" gorm:"not null;size:255;uniqueIndex:idx_ai_shortcut_user_name"`
	Name      string         `json:"name" gorm:"not null;size:100;uniqueIndex:idx_ai_shortcut_user_name"`
	Prompt    string         `json:"prompt" gorm:"type:text;not null"`
	Category  *string        `json:"category" gorm:"size:50"`
	Config    datatypes.JSON `json:"config,omitempty" gorm:"type:jsonb"`
	SortOrder int            `json:"sortOrder" gorm:"default:0"`
	IsActive  bool           `json:"isActive" gorm:"default:true"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func (AIShortcut) TableName() string {
	return "ai_shortcuts"
}

// AIModel describes one chat model the assistant can route to.
type AIModel struct {
	ID        string `json:"id"`
	Provider  string `json:"provider"`
	IsDefault bool   `json:"isDefault"`
}

// ChatMessage is one turn of an assistant conversation.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required,not_blank"`
}
