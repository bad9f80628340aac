package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KMohnishM/SIH-25/internal/authz"
	"github.com/KMohnishM/SIH-25/internal/db/models"
	"github.com/KMohnishM/SIH-25/pkg/metrics"
)

type DocumentService struct {
	db            *gorm.DB
	notifications *NotificationService
	logger        *zap.Logger
	metrics       *metrics.Collector
}

func NewDocumentService(db *gorm.DB, notifications *NotificationService, logger *zap.Logger, metrics *metrics.Collector) *DocumentService {
	return &DocumentService{
		db:            db,
		notifications: notifications,
		logger:        logger.With(zap.String("service", "document_service")),
		metrics:       metrics,
	}
}

// transitionTarget maps a workflow action to the status it leads to and the
// status it requires. Anything outside this table is an invalid transition.
var transitionTarget = map[models.WorkflowAction]struct {
	from models.DocumentStatus
	to   models.DocumentStatus
}{
	models.ActionApprove:         {from: models.StatusPending, to: models.StatusApproved},
	models.ActionReject:          {from: models.StatusPending, to: models.StatusRejected},
	models.ActionRequestRevision: {from: models.StatusPending, to: models.StatusDraft},
}

type UploadInput struct {
	Title      string
	Summary    string
	Type       models.DocumentType
	Department string
	Priority   models.DocumentPriority
	FilePath   string
	FileName   string
	FileType   string
	FileSize   int64
}

// Upload creates the document together with its "uploaded" ledger row in one
// transaction. Admin uploads skip the pending state and land approved.
func (ds *DocumentService) Upload(ctx context.Context, uploader *models.User, in UploadInput) (*models.Document, error) {
	if in.Title == "" || in.Department == "" {
		return nil, fmt.Errorf("title and department are required: %w", ErrValidation)
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("unknown document type %q: %w", in.Type, ErrValidation)
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, fmt.Errorf("unknown priority %q: %w", in.Priority, ErrValidation)
	}

	status := models.StatusPending
	var approvedBy *uint
	var approvedAt *time.Time
	if uploader.Role == models.RoleAdmin {
		status = models.StatusApproved
		now := time.Now().UTC()
		approvedBy = &uploader.ID
		approvedAt = &now
	}

	doc := models.Document{
		Title:      in.Title,
		Summary:    in.Summary,
		Type:       in.Type,
		Department: in.Department,
		Priority:   in.Priority,
		Status:     status,
		FilePath:   in.FilePath,
		FileName:   in.FileName,
		FileType:   in.FileType,
		FileSize:   in.FileSize,
		UploadedBy: uploader.ID,
		ApprovedBy: approvedBy,
		ApprovedAt: approvedAt,
	}

	err := ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&doc).Error; err != nil {
			return err
		}
		entry := models.WorkflowHistory{
			DocumentID: doc.ID,
			UserID:     uploader.ID,
			Action:     models.ActionUploaded,
			NewStatus:  doc.Status,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}

	ds.metrics.DocumentUploaded(in.FileSize)
	ds.logger.Info("document uploaded",
		zap.Uint("doc_id", doc.ID),
		zap.Uint("user_id", uploader.ID),
		zap.String("status", string(doc.Status)))
	return &doc, nil
}

func (ds *DocumentService) Get(ctx context.Context, docID uint) (*models.Document, error) {
	var doc models.Document
	if err := ds.db.WithContext(ctx).First(&doc, docID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document %d: %w", docID, ErrNotFound)
		}
		return nil, err
	}
	return &doc, nil
}

type DocumentFilters struct {
	Type       models.DocumentType
	Department string
	Status     models.DocumentStatus
	Priority   models.DocumentPriority
	Search     string
	Page       int
	Limit      int
}

type DocumentPage struct {
	Documents []models.Document `json:"documents"`
	Total     int64             `json:"total"`
	Page      int               `json:"page"`
	Limit     int               `json:"limit"`
	Pages     int               `json:"pages"`
}

func (ds *DocumentService) List(ctx context.Context, f DocumentFilters) (*DocumentPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}

	query := ds.db.WithContext(ctx).Model(&models.Document{})
	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}
	if f.Department != "" {
		query = query.Where("department = ?", f.Department)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		query = query.Where("priority = ?", f.Priority)
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		query = query.Where("title LIKE ? OR summary LIKE ? OR content LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var docs []models.Document
	if err := query.Order("created_at DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&docs).Error; err != nil {
		return nil, err
	}

	pages := int((total + int64(f.Limit) - 1) / int64(f.Limit))
	return &DocumentPage{
		Documents: docs,
		Total:     total,
		Page:      f.Page,
		Limit:     f.Limit,
		Pages:     pages,
	}, nil
}

type DocumentUpdate struct {
	Title            *string                  `json:"title"`
	Summary          *string                  `json:"summary"`
	Content          *string                  `json:"content"`
	Type             *models.DocumentType     `json:"type"`
	Department       *string                  `json:"department"`
	Priority         *models.DocumentPriority `json:"priority"`
	Version          *string                  `json:"version"`
	PageCount        *int                     `json:"page_count"`
	ApprovalRequired *bool                    `json:"approval_required"`
	Deadline         *time.Time               `json:"deadline"`
}

// Update changes metadata only. It never touches status and writes no
// ledger row; workflow transitions go through Transition.
func (ds *DocumentService) Update(ctx context.Context, actor *models.User, docID uint, in DocumentUpdate) (*models.Document, error) {
	doc, err := ds.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !authz.Decide(actor, authz.ActionEditDocument, authz.Resource{Document: doc}) {
		return nil, fmt.Errorf("user %d cannot edit document %d: %w", actor.ID, docID, ErrForbidden)
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.Summary != nil {
		updates["summary"] = *in.Summary
	}
	if in.Content != nil {
		updates["content"] = *in.Content
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, fmt.Errorf("unknown document type %q: %w", *in.Type, ErrValidation)
		}
		updates["type"] = *in.Type
	}
	if in.Department != nil {
		updates["department"] = *in.Department
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return nil, fmt.Errorf("unknown priority %q: %w", *in.Priority, ErrValidation)
		}
		updates["priority"] = *in.Priority
	}
	if in.Version != nil {
		updates["version"] = *in.Version
	}
	if in.PageCount != nil {
		updates["page_count"] = *in.PageCount
	}
	if in.ApprovalRequired != nil {
		updates["approval_required"] = *in.ApprovalRequired
	}
	if in.Deadline != nil {
		updates["deadline"] = *in.Deadline
	}

	if len(updates) > 0 {
		if err := ds.db.WithContext(ctx).Model(doc).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// Archive is the soft delete: status flips to archived, the record stays.
// Allowed from any state for the uploader or an admin.
func (ds *DocumentService) Archive(ctx context.Context, actor *models.User, docID uint) error {
	doc, err := ds.Get(ctx, docID)
	if err != nil {
		return err
	}
	if !authz.Decide(actor, authz.ActionArchiveDocument, authz.Resource{Document: doc}) {
		return fmt.Errorf("user %d cannot archive document %d: %w", actor.ID, docID, ErrForbidden)
	}

	if err := ds.db.WithContext(ctx).Model(doc).
		Update("status", models.StatusArchived).Error; err != nil {
		return err
	}
	ds.logger.Info("document archived", zap.Uint("doc_id", docID), zap.Uint("user_id", actor.ID))
	return nil
}

// Transition runs one workflow action through the guard table. The status
// change and its ledger row commit together; notifications go out after the
// transaction, best effort.
func (ds *DocumentService) Transition(ctx context.Context, actor *models.User, docID uint, action models.WorkflowAction, comments string) (*models.Document, error) {
	target, ok := transitionTarget[action]
	if !ok {
		return nil, fmt.Errorf("unknown workflow action %q: %w", action, ErrValidation)
	}

	doc, err := ds.Get(ctx, docID)
	if err != nil {
		return nil, err
	}

	if !authz.Decide(actor, authz.Action(action), authz.Resource{Document: doc}) {
		return nil, fmt.Errorf("user %d cannot %s document %d: %w", actor.ID, action, docID, ErrForbidden)
	}

	if doc.Status != target.from {
		return nil, fmt.Errorf("cannot %s a document in status %q: %w", action, doc.Status, ErrInvalidTransition)
	}

	previous := doc.Status
	updates := map[string]interface{}{"status": target.to}
	if action == models.ActionApprove {
		now := time.Now().UTC()
		updates["approved_by"] = actor.ID
		updates["approved_at"] = now
		doc.ApprovedBy = &actor.ID
		doc.ApprovedAt = &now
	}

	err = ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Document{}).Where("id = ?", doc.ID).Updates(updates).Error; err != nil {
			return err
		}
		entry := models.WorkflowHistory{
			DocumentID:     doc.ID,
			UserID:         actor.ID,
			Action:         action,
			Comments:       comments,
			PreviousStatus: previous,
			NewStatus:      target.to,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}

	doc.Status = target.to
	ds.metrics.WorkflowTransition(string(action))
	ds.logger.Info("workflow transition",
		zap.Uint("doc_id", doc.ID),
		zap.Uint("user_id", actor.ID),
		zap.String("action", string(action)),
		zap.String("from", string(previous)),
		zap.String("to", string(target.to)))

	switch action {
	case models.ActionRequestRevision:
		ds.notifications.NotifyRevisionRequested(ctx, doc)
	case models.ActionApprove, models.ActionReject:
		ds.notifications.NotifyDecision(ctx, doc, action)
	}

	return doc, nil
}

// Workflow lists the ledger most-recent-first for the audit view.
func (ds *DocumentService) Workflow(ctx context.Context, docID uint) ([]models.WorkflowHistory, error) {
	if _, err := ds.Get(ctx, docID); err != nil {
		return nil, err
	}
	var entries []models.WorkflowHistory
	err := ds.db.WithContext(ctx).
		Where("document_id = ?", docID).
		Order("timestamp DESC").
		Find(&entries).Error
	return entries, err
}

// RecordView bumps view_count with a single UPDATE so concurrent viewers
// do not lose increments. No guard beyond document existence.
func (ds *DocumentService) RecordView(ctx context.Context, docID uint) error {
	return ds.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ?", docID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func (ds *DocumentService) RecordDownload(ctx context.Context, docID uint) error {
	return ds.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ?", docID).
		UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error
}

// ToggleBookmark flips the actor's presence in the document's bookmark list
// and reports the resulting state.
func (ds *DocumentService) ToggleBookmark(ctx context.Context, actor *models.User, docID uint) (bool, error) {
	doc, err := ds.Get(ctx, docID)
	if err != nil {
		return false, err
	}

	bookmarked := false
	list := make([]uint, 0, len(doc.BookmarkedBy)+1)
	for _, id := range doc.BookmarkedBy {
		if id == actor.ID {
			bookmarked = true
			continue
		}
		list = append(list, id)
	}
	if !bookmarked {
		list = append(list, actor.ID)
	}

	doc.BookmarkedBy = list
	if err := ds.db.WithContext(ctx).Model(doc).
		Update("bookmarked_by", doc.BookmarkedBy).Error; err != nil {
		return false, err
	}
	return !bookmarked, nil
}

type DocumentStats struct {
	TotalDocuments    int64            `json:"total_documents"`
	PendingApprovals  int64            `json:"pending_approvals"`
	ApprovedDocuments int64            `json:"approved_documents"`
	RejectedDocuments int64            `json:"rejected_documents"`
	ByType            map[string]int64 `json:"by_type"`
	ByDepartment      map[string]int64 `json:"by_department"`
	ByPriority        map[string]int64 `json:"by_priority"`
}

func (ds *DocumentService) Stats(ctx context.Context) (*DocumentStats, error) {
	stats := &DocumentStats{
		ByType:       map[string]int64{},
		ByDepartment: map[string]int64{},
		ByPriority:   map[string]int64{},
	}

	model := ds.db.WithContext(ctx).Model(&models.Document{})
	if err := model.Count(&stats.TotalDocuments).Error; err != nil {
		return nil, err
	}
	for status, dest := range map[models.DocumentStatus]*int64{
		models.StatusPending:  &stats.PendingApprovals,
		models.StatusApproved: &stats.ApprovedDocuments,
		models.StatusRejected: &stats.RejectedDocuments,
	} {
		if err := ds.db.WithContext(ctx).Model(&models.Document{}).
			Where("status = ?", status).Count(dest).Error; err != nil {
			return nil, err
		}
	}

	type bucket struct {
		Key   string
		Count int64
	}
	for column, dest := range map[string]map[string]int64{
		"type":       stats.ByType,
		"department": stats.ByDepartment,
		"priority":   stats.ByPriority,
	} {
		var rows []bucket
		if err := ds.db.WithContext(ctx).Model(&models.Document{}).
			Select(column + " AS key, COUNT(id) AS count").
			Group(column).
			Scan(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			dest[r.Key] = r.Count
		}
	}

	return stats, nil
}
