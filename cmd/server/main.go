package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/KMohnishM/SIH-25/internal/api"
	"github.com/KMohnishM/SIH-25/internal/config"
	"github.com/KMohnishM/SIH-25/internal/db"
	"github.com/KMohnishM/SIH-25/internal/db/models"
	"github.com/KMohnishM/SIH-25/internal/services"
	"github.com/KMohnishM/SIH-25/internal/storage"
	"github.com/KMohnishM/SIH-25/pkg/logger"
	"github.com/KMohnishM/SIH-25/pkg/metrics"
)

func main() {
	cfg := config.Load()

	zapLogger, err := logger.NewLogger(cfg.Logging.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	config.LogConfig(cfg, zapLogger)

	database, err := db.Initialize(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize database", zap.Error(err))
	}

	collector := metrics.NewCollector()

	store, err := storage.New(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize storage backend", zap.Error(err))
	}

	tokenService := services.NewTokenService(cfg, zapLogger)
	notificationService := services.NewNotificationService(database, zapLogger, collector)
	documentService := services.NewDocumentService(database, notificationService, zapLogger, collector)
	commentService := services.NewCommentService(database, notificationService, zapLogger, collector)
	dashboardService := services.NewDashboardService(database, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := seedDatabase(ctx, database, tokenService, zapLogger); err != nil {
		zapLogger.Fatal("Failed to seed database", zap.Error(err))
	}

	router := api.NewRouter(cfg, zapLogger, collector, tokenService, documentService,
		commentService, notificationService, dashboardService, store, database)
	router.SetupRoutes()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}
	go func() {
		if err := router.Run(":" + port); err != nil {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()
	zapLogger.Info("Server started", zap.String("port", port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	sqlDB, err := database.DB()
	if err == nil {
		sqlDB.Close()
	}
	zapLogger.Info("Server gracefully stopped")
}

// seedDatabase creates the demo accounts on first boot. Subsequent starts
// with a populated users table skip seeding entirely.
func seedDatabase(ctx context.Context, database *gorm.DB, tokens *services.TokenService, logger *zap.Logger) error {
	var count int64
	database.WithContext(ctx).Model(&models.User{}).Count(&count)
	if count > 0 {
		logger.Info("Database already seeded, skipping")
		return nil
	}
	logger.Info("Seeding database with initial data")

	demoHash, err := tokens.HashPassword("demo123")
	if err != nil {
		return err
	}
	adminHash, err := tokens.HashPassword("admin123")
	if err != nil {
		return err
	}

	defaults := datatypes.NewJSONType(models.DefaultNotificationSettings())
	users := []models.User{
		{
			Username: "executive.user", Email: "executive@kmrl.co.in", PasswordHash: demoHash,
			FullName: "Executive Director", Role: models.RoleExecutive, Department: models.DeptManagement,
			Permissions:          datatypes.NewJSONSlice([]string{"read_documents", "upload_documents", "approve_documents", "view_analytics"}),
			IsActive:             true, IsVerified: true,
			NotificationSettings: defaults,
		},
		{
			Username: "maintenance.engineer", Email: "maintenance@kmrl.co.in", PasswordHash: demoHash,
			FullName: "Maintenance Engineer", Role: models.RoleMaintenance, Department: models.DeptEngineering,
			Permissions:          datatypes.NewJSONSlice([]string{"read_documents", "upload_documents"}),
			IsActive:             true, IsVerified: true,
			NotificationSettings: defaults,
		},
		{
			Username: "compliance.officer", Email: "compliance@kmrl.co.in", PasswordHash: demoHash,
			FullName: "Compliance Officer", Role: models.RoleCompliance, Department: models.DeptLegalCompliance,
			Permissions:          datatypes.NewJSONSlice([]string{"read_documents", "upload_documents", "approve_documents"}),
			IsActive:             true, IsVerified: true,
			NotificationSettings: defaults,
		},
		{
			Username: "finance.manager", Email: "finance@kmrl.co.in", PasswordHash: demoHash,
			FullName: "Finance Manager", Role: models.RoleFinance, Department: models.DeptFinance,
			Permissions:          datatypes.NewJSONSlice([]string{"read_documents", "upload_documents", "approve_documents"}),
			IsActive:             true, IsVerified: true,
			NotificationSettings: defaults,
		},
		{
			Username: "admin.user", Email: "admin@kmrl.co.in", PasswordHash: adminHash,
			FullName: "System Administrator", Role: models.RoleAdmin, Department: models.DeptManagement,
			Permissions:          datatypes.NewJSONSlice([]string{"read_documents", "upload_documents", "approve_documents", "manage_users", "view_analytics", "system_admin"}),
			IsActive:             true, IsVerified: true,
			NotificationSettings: defaults,
		},
	}

	if err := database.WithContext(ctx).Create(&users).Error; err != nil {
		return err
	}
	logger.Info("Created initial users", zap.Int("count", len(users)))
	return nil
}
