package models

import "time"

// Comment threads are two tiers deep: a comment either has no parent or
// points at a top-level comment. Replies to replies are rejected at write
// time by the comment service.
type Comment struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Content string `gorm:"type:text;not null" json:"content"`

	// Optional spatial anchor for page annotations.
	PageNumber *int `json:"page_number"`
	PositionX  *int `json:"position_x"`
	PositionY  *int `json:"position_y"`

	DocumentID uint  `gorm:"not null;index" json:"document_id"`
	AuthorID   uint  `gorm:"not null;index" json:"author_id"`
	ParentID   *uint `gorm:"index" json:"parent_id"`

	IsResolved bool `gorm:"not null;default:false" json:"is_resolved"`
	IsInternal bool `gorm:"not null;default:false" json:"is_internal"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Document *Document `gorm:"foreignKey:DocumentID" json:"-"`
	Author   *User     `gorm:"foreignKey:AuthorID" json:"-"`
}
