package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/KMohnishM/SIH-25/internal/db/models"
	"github.com/KMohnishM/SIH-25/pkg/metrics"
)

type NotificationService struct {
	db      *gorm.DB
	logger  *zap.Logger
	metrics *metrics.Collector
}

func NewNotificationService(db *gorm.DB, logger *zap.Logger, metrics *metrics.Collector) *NotificationService {
	return &NotificationService{
		db:      db,
		logger:  logger.With(zap.String("service", "notification_service")),
		metrics: metrics,
	}
}

type NotificationFilters struct {
	Type       models.NotificationType
	UnreadOnly bool
	Page       int
	Limit      int
}

type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	UnreadCount   int64                 `json:"unread_count"`
	Page          int                   `json:"page"`
	Limit         int                   `json:"limit"`
}

func (ns *NotificationService) List(ctx context.Context, userID uint, f NotificationFilters) (*NotificationPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}

	query := ns.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}
	if f.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var unread int64
	if err := ns.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&unread).Error; err != nil {
		return nil, err
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&notifications).Error; err != nil {
		return nil, err
	}

	return &NotificationPage{
		Notifications: notifications,
		Total:         total,
		UnreadCount:   unread,
		Page:          f.Page,
		Limit:         f.Limit,
	}, nil
}

// MarkRead is idempotent: a second call leaves is_read and read_at untouched.
func (ns *NotificationService) MarkRead(ctx context.Context, userID, notificationID uint) (*models.Notification, error) {
	var notification models.Notification
	err := ns.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("notification %d: %w", notificationID, ErrNotFound)
		}
		return nil, err
	}

	if !notification.IsRead {
		now := time.Now().UTC()
		notification.IsRead = true
		notification.ReadAt = &now
		if err := ns.db.WithContext(ctx).
			Model(&notification).
			Select("is_read", "read_at").
			Updates(&notification).Error; err != nil {
			return nil, err
		}
	}

	return &notification, nil
}

func (ns *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	now := time.Now().UTC()
	result := ns.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	return result.RowsAffected, result.Error
}

func (ns *NotificationService) Delete(ctx context.Context, userID, notificationID uint) error {
	result := ns.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("notification %d: %w", notificationID, ErrNotFound)
	}
	return nil
}

type NotificationInput struct {
	Title          string                      `json:"title" binding:"required"`
	Message        string                      `json:"message" binding:"required"`
	Type           models.NotificationType     `json:"type" binding:"required"`
	Priority       models.NotificationPriority `json:"priority"`
	UserID         uint                        `json:"user_id" binding:"required"`
	DocumentID     *uint                       `json:"document_id"`
	ActionRequired bool                        `json:"action_required"`
	ExtraData      datatypes.JSON              `json:"extra_data"`
}

// Create writes a notification row directly. Exposed to admins through the
// API; workflow and comment events go through the Notify helpers instead.
func (ns *NotificationService) Create(ctx context.Context, in NotificationInput) (*models.Notification, error) {
	if in.Priority == "" {
		in.Priority = models.NotifyPriorityMedium
	}

	notification := models.Notification{
		Title:          in.Title,
		Message:        in.Message,
		Type:           in.Type,
		Priority:       in.Priority,
		UserID:         in.UserID,
		DocumentID:     in.DocumentID,
		ActionRequired: in.ActionRequired,
		ExtraData:      in.ExtraData,
	}
	if err := ns.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, err
	}
	ns.metrics.NotificationCreated()
	return &notification, nil
}

// NotifyRevisionRequested tells the uploader their document went back to
// draft. Best effort: a failed insert is logged, never propagated, so the
// transition that triggered it stands.
func (ns *NotificationService) NotifyRevisionRequested(ctx context.Context, doc *models.Document) {
	ns.dispatch(ctx, models.Notification{
		Title:          "Document Revision Requested",
		Message:        fmt.Sprintf("Revision requested for %s", doc.Title),
		Type:           models.NotifyDocumentAction,
		Priority:       models.NotifyPriorityHigh,
		UserID:         doc.UploadedBy,
		DocumentID:     &doc.ID,
		ActionRequired: true,
	})
}

// NotifyDecision covers approve and reject outcomes.
func (ns *NotificationService) NotifyDecision(ctx context.Context, doc *models.Document, action models.WorkflowAction) {
	priority := models.NotifyPriorityMedium
	verb := "approved"
	if action == models.ActionReject {
		priority = models.NotifyPriorityHigh
		verb = "rejected"
	}
	ns.dispatch(ctx, models.Notification{
		Title:      fmt.Sprintf("Document %s", verb),
		Message:    fmt.Sprintf("%s was %s", doc.Title, verb),
		Type:       models.NotifyDocumentAction,
		Priority:   priority,
		UserID:     doc.UploadedBy,
		DocumentID: &doc.ID,
	})
}

// NotifyComment tells the uploader about a new comment on their document.
// Callers skip this when the commenter is the uploader.
func (ns *NotificationService) NotifyComment(ctx context.Context, doc *models.Document, commenter *models.User) {
	name := commenter.FullName
	if name == "" {
		name = commenter.Username
	}
	ns.dispatch(ctx, models.Notification{
		Title:      "New Comment on Document",
		Message:    fmt.Sprintf("%s commented on %s", name, doc.Title),
		Type:       models.NotifyComment,
		Priority:   models.NotifyPriorityMedium,
		UserID:     doc.UploadedBy,
		DocumentID: &doc.ID,
	})
}

func (ns *NotificationService) dispatch(ctx context.Context, notification models.Notification) {
	if err := ns.db.WithContext(ctx).Create(&notification).Error; err != nil {
		ns.logger.Error("notification dispatch failed",
			zap.Error(err),
			zap.Uint("user_id", notification.UserID),
			zap.String("type", string(notification.Type)))
		return
	}
	ns.metrics.NotificationCreated()
}
