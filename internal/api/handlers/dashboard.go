package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KMohnishM/SIH-25/internal/api/middleware"
	"github.com/KMohnishM/SIH-25/internal/services"
)

type DashboardHandler struct {
	dashboard *services.DashboardService
	logger    *zap.Logger
}

func NewDashboardHandler(dashboard *services.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboard: dashboard,
		logger:    logger.With(zap.String("handler", "dashboard")),
	}
}

func (h *DashboardHandler) Overview(c *gin.Context) {
	user := middleware.CurrentUser(c)

	overview, err := h.dashboard.Overview(c.Request.Context(), user)
	if err != nil {
		h.logger.Error("dashboard overview failed", zap.Error(err), zap.Uint("user_id", user.ID))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *DashboardHandler) Analytics(c *gin.Context) {
	period := c.DefaultQuery("period", "month")
	department := c.Query("department")

	analytics, err := h.dashboard.Analytics(c.Request.Context(), period, department)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}
