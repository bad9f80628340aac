package handlers

import (
	"errors"
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

type UserHandler struct {
	db     *gorm.DB
	tokens *services.TokenService
	logger *zap.Logger
}

func NewUserHandler(db *gorm.DB, tokens *services.TokenService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		db:     db,
		tokens: tokens,
		logger: logger.With(zap.String("handler", "user")),
	}
}

func (h *UserHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := h.db.WithContext(c.Request.Context()).Model(&models.User{})
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if department := c.Query("department"); department != "" {
		query = query.Where("department = ?", department)
	}
	if active := c.Query("is_active"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		h.logger.Error("count users failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var users []models.User
	if err := query.Order("id ASC").Offset((page - 1) * limit).Limit(limit).Find(&users).Error; err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// Get allows admins to read any user, everyone else only themselves.
func (h *UserHandler) Get(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	userID, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if actor.Role != models.RoleAdmin && actor.ID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not enough permissions"})
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.logger.Error("load user failed", zap.Error(err), zap.Uint("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, user)
}

type createUserRequest struct {
	Username   string                `json:"username" binding:"required,min=3,max=50"`
	Email      string                `json:"email" binding:"required,email"`
	Password   string                `json:"password" binding:"required,min=6"`
	FullName   string                `json:"full_name" binding:"required"`
	Role       models.UserRole       `json:"role"`
	Department models.UserDepartment `json:"department"`
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role == "" {
		req.Role = models.RoleUser
	}
	if req.Department == "" {
		req.Department = models.DeptGeneral
	}
	if !req.Role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role: " + string(req.Role)})
		return
	}
	if !req.Department.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown department: " + string(req.Department)})
		return
	}

	var existing int64
	h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("username = ? OR email = ?", req.Username, req.Email).Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Username or email already registered"})
		return
	}

	hash, err := h.tokens.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	user := models.User{
		Username:             req.Username,
		Email:                req.Email,
		PasswordHash:         hash,
		FullName:             req.FullName,
		Role:                 req.Role,
		Department:           req.Department,
		IsActive:             true,
		NotificationSettings: datatypes.NewJSONType(models.DefaultNotificationSettings()),
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		// The existence check above races with concurrent inserts; the unique
		// indexes are the authority.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username or email already registered"})
			return
		}
		h.logger.Error("create user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.logger.Info("user created", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	c.JSON(http.StatusCreated, user)
}

type updateUserRequest struct {
	Email      *string                `json:"email"`
	FullName   *string                `json:"full_name"`
	Role       *models.UserRole       `json:"role"`
	Department *models.UserDepartment `json:"department"`
	IsActive   *bool                  `json:"is_active"`
	Password   *string                `json:"password"`
}

func (h *UserHandler) Update(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	userID, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if req.IsActive != nil && !*req.IsActive && actor.ID == user.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot deactivate your own account"})
		return
	}

	if req.Email != nil {
		var clash int64
		h.db.WithContext(c.Request.Context()).Model(&models.User{}).
			Where("email = ? AND id <> ?", *req.Email, user.ID).Count(&clash)
		if clash > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		user.Email = *req.Email
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role: " + string(*req.Role)})
			return
		}
		user.Role = *req.Role
	}
	if req.Department != nil {
		if !req.Department.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown department: " + string(*req.Department)})
			return
		}
		user.Department = *req.Department
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.Password != nil {
		hash, err := h.tokens.HashPassword(*req.Password)
		if err != nil {
			h.logger.Error("hash password failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		user.PasswordHash = hash
	}

	if err := h.db.WithContext(c.Request.Context()).Save(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		h.logger.Error("update user failed", zap.Error(err), zap.Uint("user_id", user.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// Delete deactivates instead of removing, keeping ledger references intact.
func (h *UserHandler) Delete(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	userID, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if actor.ID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot deactivate your own account"})
		return
	}

	result := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", userID).Update("is_active", false)
	if result.Error != nil {
		h.logger.Error("deactivate user failed", zap.Error(result.Error), zap.Uint("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deactivated successfully"})
}
