package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KMohnishM/SIH-25/internal/api/handlers"
	"github.com/KMohnishM/SIH-25/internal/api/middleware"
	"github.com/KMohnishM/SIH-25/internal/config"
	"github.com/KMohnishM/SIH-25/internal/services"
	"github.com/KMohnishM/SIH-25/internal/storage"
	"github.com/KMohnishM/SIH-25/pkg/metrics"
)

type Router struct {
	engine              *gin.Engine
	logger              *zap.Logger
	metrics             *metrics.Collector
	authHandler         *handlers.AuthHandler
	documentHandler     *handlers.DocumentHandler
	commentHandler      *handlers.CommentHandler
	notificationHandler *handlers.NotificationHandler
	userHandler         *handlers.UserHandler
	dashboardHandler    *handlers.DashboardHandler
	authMiddleware      *middleware.AuthMiddleware
	reqMiddleware       *middleware.RequestMiddleware
}

func NewRouter(
	cfg *config.Configuration,
	logger *zap.Logger,
	collector *metrics.Collector,
	tokenService *services.TokenService,
	documentService *services.DocumentService,
	commentService *services.CommentService,
	notificationService *services.NotificationService,
	dashboardService *services.DashboardService,
	store storage.Store,
	db *gorm.DB,
) *Router {
	if cfg.Logging.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	reqMiddleware := middleware.NewRequestMiddleware(logger, collector, cfg.Security.MaxFailedAttempts)
	authMiddleware := middleware.NewAuthMiddleware(tokenService, db)

	engine.Use(reqMiddleware.ProcessRequest())
	engine.Use(reqMiddleware.RecoverPanic())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	return &Router{
		engine:              engine,
		logger:              logger,
		metrics:             collector,
		authHandler:         handlers.NewAuthHandler(tokenService, db, logger),
		documentHandler:     handlers.NewDocumentHandler(documentService, store, cfg.Upload, logger),
		commentHandler:      handlers.NewCommentHandler(commentService, logger),
		notificationHandler: handlers.NewNotificationHandler(notificationService, db, logger),
		userHandler:         handlers.NewUserHandler(db, tokenService, logger),
		dashboardHandler:    handlers.NewDashboardHandler(dashboardService, logger),
		authMiddleware:      authMiddleware,
		reqMiddleware:       reqMiddleware,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "up", "name": "kmrl-document-hub"})
	})
	r.engine.GET("/metrics", gin.WrapH(r.metrics.Handler()))

	v1 := r.engine.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/login", r.reqMiddleware.LoginThrottle(), r.authHandler.Login)
		auth.POST("/logout", r.authMiddleware.RequireAuth(), r.authHandler.Logout)
		auth.GET("/me", r.authMiddleware.RequireAuth(), r.authHandler.Me)
		auth.PUT("/me", r.authMiddleware.RequireAuth(), r.authHandler.UpdateProfile)
	}

	authorized := v1.Group("/")
	authorized.Use(r.authMiddleware.RequireAuth())
	{
		documents := authorized.Group("/documents")
		{
			documents.GET("", r.documentHandler.List)
			documents.POST("", r.documentHandler.Create)
			documents.GET("/stats", r.documentHandler.Stats)
			documents.GET("/:id", r.documentHandler.Get)
			documents.PUT("/:id", r.documentHandler.Update)
			documents.DELETE("/:id", r.documentHandler.Delete)
			documents.GET("/:id/download", r.documentHandler.Download)
			documents.GET("/:id/workflow", r.documentHandler.Workflow)
			documents.POST("/:id/approve", r.documentHandler.Approve)
			documents.POST("/:id/reject", r.documentHandler.Reject)
			documents.POST("/:id/request-revision", r.documentHandler.RequestRevision)
			documents.POST("/:id/bookmark", r.documentHandler.ToggleBookmark)
			documents.GET("/:id/comments", r.commentHandler.ListForDocument)
			documents.POST("/:id/comments", r.commentHandler.Create)
		}

		comments := authorized.Group("/comments")
		{
			comments.PUT("/:id", r.commentHandler.Update)
			comments.DELETE("/:id", r.commentHandler.Delete)
		}

		notifications := authorized.Group("/notifications")
		{
			notifications.GET("", r.notificationHandler.List)
			notifications.POST("", r.authMiddleware.RequireAdmin(), r.notificationHandler.Create)
			notifications.GET("/settings", r.notificationHandler.GetSettings)
			notifications.PUT("/settings", r.notificationHandler.UpdateSettings)
			notifications.PUT("/read-all", r.notificationHandler.MarkAllRead)
			notifications.PUT("/:id/read", r.notificationHandler.MarkRead)
			notifications.DELETE("/:id", r.notificationHandler.Delete)
		}

		users := authorized.Group("/users")
		{
			users.GET("/:id", r.userHandler.Get)
			users.GET("", r.authMiddleware.RequireAdmin(), r.userHandler.List)
			users.POST("", r.authMiddleware.RequireAdmin(), r.userHandler.Create)
			users.PUT("/:id", r.authMiddleware.RequireAdmin(), r.userHandler.Update)
			users.DELETE("/:id", r.authMiddleware.RequireAdmin(), r.userHandler.Delete)
		}

		dashboard := authorized.Group("/dashboard")
		{
			dashboard.GET("/overview", r.dashboardHandler.Overview)
			dashboard.GET("/analytics", r.dashboardHandler.Analytics)
		}
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) Run(addr string) error {
	r.logger.Info("Starting HTTP server", zap.String("address", addr))
	return r.engine.Run(addr)
}
