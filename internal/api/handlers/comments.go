package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KMohnishM/SIH-25/internal/api/middleware"
	"github.com/KMohnishM/SIH-25/internal/services"
)

type CommentHandler struct {
	comments *services.CommentService
	logger   *zap.Logger
}

func NewCommentHandler(comments *services.CommentService, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{
		comments: comments,
		logger:   logger.With(zap.String("handler", "comment")),
	}
}

func (h *CommentHandler) ListForDocument(c *gin.Context) {
	user := middleware.CurrentUser(c)
	docID, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	includeInternal := c.DefaultQuery("include_internal", "true") == "true"

	result, err := h.comments.ListForDocument(c.Request.Context(), user, docID, page, limit, includeInternal)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *CommentHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)
	docID, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var in services.CommentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), user, docID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) Update(c *gin.Context) {
	user := middleware.CurrentUser(c)
	commentID, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var in services.CommentUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.comments.Update(c.Request.Context(), user, commentID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (h *CommentHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	commentID, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.comments.Delete(c.Request.Context(), user, commentID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
