package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/KMohnishM/SIH-25/internal/api/middleware"
	"github.com/KMohnishM/SIH-25/internal/db/models"
	"github.com/KMohnishM/SIH-25/internal/services"
)

type AuthHandler struct {
	tokens *services.TokenService
	db     *gorm.DB
	logger *zap.Logger
}

func NewAuthHandler(tokens *services.TokenService, db *gorm.DB, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		tokens: tokens,
		db:     db,
		logger: logger.With(zap.String("handler", "auth")),
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (ah *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := ah.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		ah.logger.Warn("login with unknown username", zap.String("username", req.Username))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect username or password"})
		return
	}

	if !ah.tokens.CheckPassword(req.Password, user.PasswordHash) {
		ah.logger.Warn("login with bad password", zap.String("username", req.Username))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect username or password"})
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Inactive user"})
		return
	}

	token, err := ah.tokens.Issue(&user)
	if err != nil {
		ah.logger.Error("token issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	now := time.Now().UTC()
	user.LastLogin = &now
	if err := ah.db.Model(&user).Update("last_login", now).Error; err != nil {
		ah.logger.Warn("last_login update failed", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(ah.tokens.TTL().Seconds()),
		"user":         user,
	})
}

// Logout is a no-op server side: tokens are stateless and simply expire.
func (ah *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

func (ah *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

type profileUpdateRequest struct {
	FullName             *string                      `json:"full_name"`
	LanguagePreference   *string                      `json:"language_preference"`
	NotificationSettings *models.NotificationSettings `json:"notification_settings"`
}

func (ah *AuthHandler) UpdateProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req profileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.LanguagePreference != nil {
		user.LanguagePreference = *req.LanguagePreference
	}
	if req.NotificationSettings != nil {
		user.NotificationSettings = datatypes.NewJSONType(*req.NotificationSettings)
	}

	if err := ah.db.Save(user).Error; err != nil {
		ah.logger.Error("profile update failed", zap.Error(err), zap.Uint("user_id", user.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, user)
}
