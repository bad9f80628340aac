package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KMohnishM/SIH-25/internal/authz"
	"github.com/KMohnishM/SIH-25/internal/db/models"
	"github.com/KMohnishM/SIH-25/pkg/metrics"
)

type CommentService struct {
	db            *gorm.DB
	notifications *NotificationService
	logger        *zap.Logger
	metrics       *metrics.Collector
}

func NewCommentService(db *gorm.DB, notifications *NotificationService, logger *zap.Logger, metrics *metrics.Collector) *CommentService {
	return &CommentService{
		db:            db,
		notifications: notifications,
		logger:        logger.With(zap.String("service", "comment_service")),
		metrics:       metrics,
	}
}

// CommentView is the response shape: comment plus author summary plus one
// level of replies.
type CommentView struct {
	models.Comment
	Author  *models.AuthorSummary `json:"author"`
	Replies []CommentView         `json:"replies"`
}

type CommentPage struct {
	Comments []CommentView `json:"comments"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	Limit    int           `json:"limit"`
}

// ListForDocument returns top-level comments newest first, each with its
// replies oldest first. Internal comments are filtered out unless the actor
// asked for them and holds an elevated role.
func (cs *CommentService) ListForDocument(ctx context.Context, actor *models.User, docID uint, page, limit int, includeInternal bool) (*CommentPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var doc models.Document
	if err := cs.db.WithContext(ctx).First(&doc, docID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document %d: %w", docID, ErrNotFound)
		}
		return nil, err
	}

	showInternal := includeInternal && authz.CanViewInternalComments(actor)

	query := cs.db.WithContext(ctx).Model(&models.Comment{}).
		Where("document_id = ? AND parent_id IS NULL", docID)
	if !showInternal {
		query = query.Where("is_internal = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var comments []models.Comment
	if err := query.Preload("Author").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&comments).Error; err != nil {
		return nil, err
	}

	views := make([]CommentView, 0, len(comments))
	for i := range comments {
		replyQuery := cs.db.WithContext(ctx).
			Where("parent_id = ?", comments[i].ID)
		if !showInternal {
			replyQuery = replyQuery.Where("is_internal = ?", false)
		}

		var replies []models.Comment
		if err := replyQuery.Preload("Author").
			Order("created_at ASC").
			Find(&replies).Error; err != nil {
			return nil, err
		}

		view := toView(&comments[i])
		view.Replies = make([]CommentView, 0, len(replies))
		for j := range replies {
			view.Replies = append(view.Replies, toView(&replies[j]))
		}
		views = append(views, view)
	}

	return &CommentPage{
		Comments: views,
		Total:    total,
		Page:     page,
		Limit:    limit,
	}, nil
}

type CommentInput struct {
	Content    string `json:"content" binding:"required"`
	PageNumber *int   `json:"page_number"`
	PositionX  *int   `json:"position_x"`
	PositionY  *int   `json:"position_y"`
	ParentID   *uint  `json:"parent_id"`
	IsInternal bool   `json:"is_internal"`
}

// Create validates the thread shape: a parent must exist on the same
// document and must itself be top-level. Replies to replies are rejected.
func (cs *CommentService) Create(ctx context.Context, actor *models.User, docID uint, in CommentInput) (*CommentView, error) {
	var doc models.Document
	if err := cs.db.WithContext(ctx).First(&doc, docID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document %d: %w", docID, ErrNotFound)
		}
		return nil, err
	}

	if in.ParentID != nil {
		var parent models.Comment
		err := cs.db.WithContext(ctx).
			Where("id = ? AND document_id = ?", *in.ParentID, docID).
			First(&parent).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("parent comment %d: %w", *in.ParentID, ErrNotFound)
			}
			return nil, err
		}
		if parent.ParentID != nil {
			return nil, fmt.Errorf("replies to replies are not supported: %w", ErrValidation)
		}
	}

	comment := models.Comment{
		Content:    in.Content,
		PageNumber: in.PageNumber,
		PositionX:  in.PositionX,
		PositionY:  in.PositionY,
		DocumentID: docID,
		AuthorID:   actor.ID,
		ParentID:   in.ParentID,
		IsInternal: in.IsInternal,
	}
	if err := cs.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, err
	}
	cs.metrics.CommentCreated()

	if doc.UploadedBy != actor.ID {
		cs.notifications.NotifyComment(ctx, &doc, actor)
	}

	comment.Author = actor
	view := toView(&comment)
	view.Replies = []CommentView{}
	return &view, nil
}

type CommentUpdate struct {
	Content    *string `json:"content"`
	IsResolved *bool   `json:"is_resolved"`
	IsInternal *bool   `json:"is_internal"`
}

func (cs *CommentService) Update(ctx context.Context, actor *models.User, commentID uint, in CommentUpdate) (*CommentView, error) {
	comment, err := cs.get(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if !authz.Decide(actor, authz.ActionEditComment, authz.Resource{Comment: comment}) {
		return nil, fmt.Errorf("user %d cannot edit comment %d: %w", actor.ID, commentID, ErrForbidden)
	}

	updates := map[string]interface{}{}
	if in.Content != nil {
		updates["content"] = *in.Content
	}
	if in.IsResolved != nil {
		updates["is_resolved"] = *in.IsResolved
	}
	if in.IsInternal != nil {
		updates["is_internal"] = *in.IsInternal
	}
	if len(updates) > 0 {
		if err := cs.db.WithContext(ctx).Model(comment).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	view := toView(comment)
	view.Replies = []CommentView{}
	return &view, nil
}

// Delete removes the comment and, for a top-level comment, its replies in
// the same transaction. The cascade is explicit; nothing relies on
// database-level referential actions.
func (cs *CommentService) Delete(ctx context.Context, actor *models.User, commentID uint) error {
	comment, err := cs.get(ctx, commentID)
	if err != nil {
		return err
	}
	if !authz.Decide(actor, authz.ActionDeleteComment, authz.Resource{Comment: comment}) {
		return fmt.Errorf("user %d cannot delete comment %d: %w", actor.ID, commentID, ErrForbidden)
	}

	return cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if comment.ParentID == nil {
			if err := tx.Where("parent_id = ?", comment.ID).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(comment).Error
	})
}

func (cs *CommentService) get(ctx context.Context, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	if err := cs.db.WithContext(ctx).Preload("Author").First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("comment %d: %w", commentID, ErrNotFound)
		}
		return nil, err
	}
	return &comment, nil
}

func toView(c *models.Comment) CommentView {
	view := CommentView{Comment: *c}
	if c.Author != nil {
		summary := c.Author.Summary()
		view.Author = &summary
	}
	return view
}
