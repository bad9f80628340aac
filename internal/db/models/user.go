package models

import (
	"time"

	"gorm.io/datatypes"
)

type UserRole string

const (
	RoleAdmin       UserRole = "admin"
	RoleExecutive   UserRole = "executive"
	RoleMaintenance UserRole = "maintenance"
	RoleCompliance  UserRole = "compliance"
	RoleFinance     UserRole = "finance"
	RoleUser        UserRole = "user"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleExecutive, RoleMaintenance, RoleCompliance, RoleFinance, RoleUser:
		return true
	}
	return false
}

type UserDepartment string

const (
	DeptManagement      UserDepartment = "management"
	DeptEngineering     UserDepartment = "engineering"
	DeptOperations      UserDepartment = "operations"
	DeptLegalCompliance UserDepartment = "legal_compliance"
	DeptFinance         UserDepartment = "finance"
	DeptGeneral         UserDepartment = "general"
)

func (d UserDepartment) Valid() bool {
	switch d {
	case DeptManagement, DeptEngineering, DeptOperations, DeptLegalCompliance, DeptFinance, DeptGeneral:
		return true
	}
	return false
}

// ChannelSettings toggles delivery per event class for one channel.
type ChannelSettings struct {
	DocumentApproval  bool `json:"document_approval"`
	DeadlineReminders bool `json:"deadline_reminders"`
	SystemUpdates     bool `json:"system_updates"`
	Comments          bool `json:"comments"`
}

type NotificationSettings struct {
	Email     ChannelSettings `json:"email"`
	Push      ChannelSettings `json:"push"`
	Frequency string          `json:"frequency"`
}

func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		Email: ChannelSettings{
			DocumentApproval:  true,
			DeadlineReminders: true,
			SystemUpdates:     true,
			Comments:          true,
		},
		Push: ChannelSettings{
			DocumentApproval:  true,
			DeadlineReminders: true,
			SystemUpdates:     false,
			Comments:          true,
		},
		Frequency: "immediate",
	}
}

type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`

	FullName   string         `gorm:"size:100" json:"full_name"`
	Role       UserRole       `gorm:"size:20;not null;default:'user'" json:"role"`
	Department UserDepartment `gorm:"size:30;not null;default:'general'" json:"department"`

	Permissions          datatypes.JSONSlice[string]              `json:"permissions"`
	LanguagePreference   string                                   `gorm:"size:10;default:'en'" json:"language_preference"`
	NotificationSettings datatypes.JSONType[NotificationSettings] `json:"notification_settings"`

	IsActive   bool `gorm:"not null;default:true" json:"is_active"`
	IsVerified bool `gorm:"not null;default:false" json:"is_verified"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastLogin *time.Time `json:"last_login"`

	Documents     []Document     `gorm:"foreignKey:UploadedBy" json:"-"`
	Comments      []Comment      `gorm:"foreignKey:AuthorID" json:"-"`
	Notifications []Notification `gorm:"foreignKey:UserID" json:"-"`
}

// AuthorSummary is the trimmed user shape embedded in comment responses.
type AuthorSummary struct {
	ID       uint     `json:"id"`
	Username string   `json:"username"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}

func (u *User) Summary() AuthorSummary {
	return AuthorSummary{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Role:     u.Role,
	}
}
