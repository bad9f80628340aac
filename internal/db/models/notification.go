package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotifyDocumentAction   NotificationType = "document_action"
	NotifySystem           NotificationType = "system"
	NotifyComment          NotificationType = "comment"
	NotifyDeadlineReminder NotificationType = "deadline_reminder"
	NotifyApprovalRequest  NotificationType = "approval_request"
)

type NotificationPriority string

const (
	NotifyPriorityLow    NotificationPriority = "low"
	NotifyPriorityMedium NotificationPriority = "medium"
	NotifyPriorityHigh   NotificationPriority = "high"
	NotifyPriorityUrgent NotificationPriority = "urgent"
)

type Notification struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Title   string `gorm:"size:255;not null" json:"title"`
	Message string `gorm:"type:text;not null" json:"message"`

	Type     NotificationType     `gorm:"size:30;not null;index" json:"type"`
	Priority NotificationPriority `gorm:"size:20;not null;default:'medium'" json:"priority"`

	UserID     uint  `gorm:"not null;index" json:"user_id"`
	DocumentID *uint `json:"document_id"`

	IsRead         bool `gorm:"not null;default:false;index" json:"is_read"`
	ActionRequired bool `gorm:"not null;default:false" json:"action_required"`

	ExtraData datatypes.JSON `json:"extra_data"`

	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at"`

	User     *User     `gorm:"foreignKey:UserID" json:"-"`
	Document *Document `gorm:"foreignKey:DocumentID" json:"-"`
}
