package handlers

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KMohnishM/SIH-25/internal/api/middleware"
	"github.com/KMohnishM/SIH-25/internal/config"
	"github.com/KMohnishM/SIH-25/internal/db/models"
	"github.com/KMohnishM/SIH-25/internal/services"
	"github.com/KMohnishM/SIH-25/internal/storage"
)

type DocumentHandler struct {
	documents *services.DocumentService
	store     storage.Store
	upload    config.UploadConfig
	logger    *zap.Logger
}

func NewDocumentHandler(documents *services.DocumentService, store storage.Store, upload config.UploadConfig, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		store:     store,
		upload:    upload,
		logger:    logger.With(zap.String("handler", "document")),
	}
}

func (h *DocumentHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.documents.List(c.Request.Context(), services.DocumentFilters{
		Type:       models.DocumentType(c.Query("type")),
		Department: c.Query("department"),
		Status:     models.DocumentStatus(c.Query("status")),
		Priority:   models.DocumentPriority(c.Query("priority")),
		Search:     c.Query("search"),
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		h.logger.Error("list documents failed", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	docID, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	doc, err := h.documents.Get(c.Request.Context(), docID)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.documents.RecordView(c.Request.Context(), docID); err != nil {
		h.logger.Warn("view count update failed", zap.Error(err), zap.Uint("doc_id", docID))
	} else {
		doc.ViewCount++
	}

	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)

	title := c.PostForm("title")
	department := c.PostForm("department")
	docType := models.DocumentType(c.PostForm("type"))
	if title == "" || department == "" || docType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title, type and department are required"})
		return
	}

	priority := models.DocumentPriority(c.DefaultPostForm("priority", string(models.PriorityMedium)))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !h.extensionAllowed(ext) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("File type %s not allowed", ext)})
		return
	}
	if fileHeader.Size > h.upload.MaxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File exceeds the maximum allowed size"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("open uploaded file failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer f.Close()

	contentType := mime.TypeByExtension(ext)
	key, err := h.store.Save(c.Request.Context(), fileHeader.Filename, f, fileHeader.Size, contentType)
	if err != nil {
		h.logger.Error("store uploaded file failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save file"})
		return
	}

	doc, err := h.documents.Upload(c.Request.Context(), user, services.UploadInput{
		Title:      title,
		Summary:    c.PostForm("summary"),
		Type:       docType,
		Department: department,
		Priority:   priority,
		FilePath:   key,
		FileName:   fileHeader.Filename,
		FileType:   strings.TrimPrefix(ext, "."),
		FileSize:   fileHeader.Size,
	})
	if err != nil {
		// Record creation failed; drop the orphaned blob.
		if rmErr := h.store.Remove(c.Request.Context(), key); rmErr != nil {
			h.logger.Warn("orphaned object cleanup failed", zap.Error(rmErr), zap.String("key", key))
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

func (h *DocumentHandler) Update(c *gin.Context) {
	user := middleware.CurrentUser(c)
	docID, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var update services.DocumentUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.documents.Update(c.Request.Context(), user, docID, update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	docID, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.documents.Archive(c.Request.Context(), user, docID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document deleted successfully"})
}

type transitionRequest struct {
	Comments string `json:"comments"`
}

func (h *DocumentHandler) Approve(c *gin.Context) {
	h.transition(c, models.ActionApprove)
}

func (h *DocumentHandler) Reject(c *gin.Context) {
	h.transition(c, models.ActionReject)
}

func (h *DocumentHandler) RequestRevision(c *gin.Context) {
	h.transition(c, models.ActionRequestRevision)
}

func (h *DocumentHandler) transition(c *gin.Context, action models.WorkflowAction) {
	user := middleware.CurrentUser(c)
	docID, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req transitionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	doc, err := h.documents.Transition(c.Request.Context(), user, docID, action, req.Comments)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document_id": doc.ID,
		"action":      action,
		"status":      doc.Status,
		"acted_by":    user.ID,
		"comments":    req.Comments,
	})
}

func (h *DocumentHandler) Workflow(c *gin.Context) {
	docID, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	entries, err := h.documents.Workflow(c.Request.Context(), docID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflow": entries})
}

func (h *DocumentHandler) Download(c *gin.Context) {
	docID, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	doc, err := h.documents.Get(c.Request.Context(), docID)
	if err != nil {
		respondError(c, err)
		return
	}

	reader, err := h.store.Open(c.Request.Context(), doc.FilePath)
	if err != nil {
		h.logger.Error("open stored file failed", zap.Error(err), zap.Uint("doc_id", docID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not read stored file"})
		return
	}
	defer reader.Close()

	if err := h.documents.RecordDownload(c.Request.Context(), docID); err != nil {
		h.logger.Warn("download count update failed", zap.Error(err), zap.Uint("doc_id", docID))
	}

	contentType := mime.TypeByExtension("." + doc.FileType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.DataFromReader(http.StatusOK, doc.FileSize, contentType, reader, nil)
}

func (h *DocumentHandler) ToggleBookmark(c *gin.Context) {
	user := middleware.CurrentUser(c)
	docID, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	bookmarked, err := h.documents.ToggleBookmark(c.Request.Context(), user, docID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document_id": docID, "bookmarked": bookmarked})
}

func (h *DocumentHandler) Stats(c *gin.Context) {
	stats, err := h.documents.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("document stats failed", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *DocumentHandler) extensionAllowed(ext string) bool {
	for _, allowed := range h.upload.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// pathID parses the :id route parameter.
func pathID(c *gin.Context) (uint, error) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("malformed id %q: %w", raw, services.ErrValidation)
	}
	return uint(id), nil
}
