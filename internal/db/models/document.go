package models

import (
	"time"

	"gorm.io/datatypes"
)

type DocumentType string

const (
	TypeSafety      DocumentType = "safety"
	TypeMaintenance DocumentType = "maintenance"
	TypeCompliance  DocumentType = "compliance"
	TypeFinance     DocumentType = "finance"
	TypeOperations  DocumentType = "operations"
	TypeTraining    DocumentType = "training"
)

// Valid reports membership in the closed type set. Inputs arrive as free
// text from multipart forms and must be checked before they reach a row.
func (t DocumentType) Valid() bool {
	switch t {
	case TypeSafety, TypeMaintenance, TypeCompliance, TypeFinance, TypeOperations, TypeTraining:
		return true
	}
	return false
}

type DocumentStatus string

const (
	StatusDraft    DocumentStatus = "draft"
	StatusPending  DocumentStatus = "pending"
	StatusApproved DocumentStatus = "approved"
	StatusRejected DocumentStatus = "rejected"
	StatusArchived DocumentStatus = "archived"
)

type DocumentPriority string

const (
	PriorityLow    DocumentPriority = "low"
	PriorityMedium DocumentPriority = "medium"
	PriorityHigh   DocumentPriority = "high"
	PriorityUrgent DocumentPriority = "urgent"
)

func (p DocumentPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type WorkflowAction string

const (
	ActionUploaded        WorkflowAction = "uploaded"
	ActionApprove         WorkflowAction = "approve"
	ActionReject          WorkflowAction = "reject"
	ActionRequestRevision WorkflowAction = "request_revision"
)

type Document struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Title string `gorm:"size:255;not null;index" json:"title"`

	Summary string `gorm:"type:text" json:"summary"`
	Content string `gorm:"type:text" json:"content"`

	Type       DocumentType     `gorm:"size:20;not null;index" json:"type"`
	Department string           `gorm:"size:50;not null;index" json:"department"`
	Status     DocumentStatus   `gorm:"size:20;not null;default:'draft';index" json:"status"`
	Priority   DocumentPriority `gorm:"size:20;not null;default:'medium';index" json:"priority"`

	FilePath string `gorm:"size:500;not null" json:"file_path"`
	FileName string `gorm:"size:255;not null" json:"file_name"`
	FileType string `gorm:"size:10;not null" json:"file_type"`
	FileSize int64  `gorm:"not null" json:"file_size"`

	Version   string `gorm:"size:20;default:'1.0'" json:"version"`
	PageCount *int   `json:"page_count"`

	UploadedBy uint  `gorm:"not null;index" json:"uploaded_by"`
	ApprovedBy *uint `json:"approved_by"`

	ApprovalRequired bool       `gorm:"not null;default:true" json:"approval_required"`
	Deadline         *time.Time `json:"deadline"`

	ViewCount     int64 `gorm:"not null;default:0" json:"view_count"`
	DownloadCount int64 `gorm:"not null;default:0" json:"download_count"`

	BookmarkedBy datatypes.JSONSlice[uint] `json:"bookmarked_by"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ApprovedAt *time.Time `json:"approved_at"`

	Uploader        *User             `gorm:"foreignKey:UploadedBy" json:"-"`
	Approver        *User             `gorm:"foreignKey:ApprovedBy" json:"-"`
	DocComments     []Comment         `gorm:"foreignKey:DocumentID" json:"-"`
	WorkflowHistory []WorkflowHistory `gorm:"foreignKey:DocumentID" json:"-"`
}

// WorkflowHistory rows are immutable once written. One row per transition,
// created in the same transaction as the status change it records.
type WorkflowHistory struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	DocumentID uint `gorm:"not null;index" json:"document_id"`
	UserID     uint `gorm:"not null" json:"user_id"`

	Action         WorkflowAction `gorm:"size:50;not null" json:"action"`
	Comments       string         `gorm:"type:text" json:"comments"`
	PreviousStatus DocumentStatus `gorm:"size:20" json:"previous_status"`
	NewStatus      DocumentStatus `gorm:"size:20" json:"new_status"`

	Timestamp time.Time `gorm:"autoCreateTime;index" json:"timestamp"`

	Document *Document `gorm:"foreignKey:DocumentID" json:"-"`
	User     *User     `gorm:"foreignKey:UserID" json:"-"`
}
