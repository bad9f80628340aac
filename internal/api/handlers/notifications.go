package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/KMohnishM/SIH-25/internal/api/middleware"
	"github.com/KMohnishM/SIH-25/internal/db/models"
	"github.com/KMohnishM/SIH-25/internal/services"
)

type NotificationHandler struct {
	notifications *services.NotificationService
	db            *gorm.DB
	logger        *zap.Logger
}

func NewNotificationHandler(notifications *services.NotificationService, db *gorm.DB, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		db:            db,
		logger:        logger.With(zap.String("handler", "notification")),
	}
}

func (h *NotificationHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.notifications.List(c.Request.Context(), user.ID, services.NotificationFilters{
		Type:       models.NotificationType(c.Query("type")),
		UnreadOnly: c.Query("unread_only") == "true",
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	user := middleware.CurrentUser(c)
	notificationID, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	notification, err := h.notifications.MarkRead(c.Request.Context(), user.ID, notificationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notification)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	user := middleware.CurrentUser(c)

	updated, err := h.notifications.MarkAllRead(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": updated})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	notificationID, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.notifications.Delete(c.Request.Context(), user.ID, notificationID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted successfully"})
}

// Create is the admin notice endpoint.
func (h *NotificationHandler) Create(c *gin.Context) {
	var in services.NotificationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	notification, err := h.notifications.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, notification)
}

func (h *NotificationHandler) GetSettings(c *gin.Context) {
	user := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, user.NotificationSettings.Data())
}

func (h *NotificationHandler) UpdateSettings(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var settings models.NotificationSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user.NotificationSettings = datatypes.NewJSONType(settings)
	if err := h.db.WithContext(c.Request.Context()).Model(user).
		Update("notification_settings", user.NotificationSettings).Error; err != nil {
		h.logger.Error("update notification settings failed", zap.Error(err), zap.Uint("user_id", user.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, settings)
}
