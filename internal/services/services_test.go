package services

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/KMohnishM/SIH-25/internal/db/models"
	"github.com/KMohnishM/SIH-25/pkg/metrics"
)

// testEnv wires every service against a fresh in-memory database.
type testEnv struct {
	db            *gorm.DB
	documents     *DocumentService
	comments      *CommentService
	notifications *NotificationService
	dashboard     *DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Document{},
		&models.WorkflowHistory{},
		&models.Comment{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	logger := zap.NewNop()
	collector := metrics.NewCollector()
	notifications := NewNotificationService(db, logger, collector)

	return &testEnv{
		db:            db,
		documents:     NewDocumentService(db, notifications, logger, collector),
		comments:      NewCommentService(db, notifications, logger, collector),
		notifications: notifications,
		dashboard:     NewDashboardService(db, logger),
	}
}

func (e *testEnv) createUser(t *testing.T, username string, role models.UserRole, dept models.UserDepartment) *models.User {
	t.Helper()
	user := models.User{
		Username:     username,
		Email:        username + "@kmrl.co.in",
		PasswordHash: "x",
		FullName:     username,
		Role:         role,
		Department:   dept,
		IsActive:     true,
	}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return &user
}

func (e *testEnv) uploadDocument(t *testing.T, uploader *models.User, department string) *models.Document {
	t.Helper()
	doc, err := e.documents.Upload(context.Background(), uploader, UploadInput{
		Title:      "Track Maintenance Report",
		Type:       models.TypeMaintenance,
		Department: department,
		FilePath:   "20240101_000000_test.pdf",
		FileName:   "report.pdf",
		FileType:   "pdf",
		FileSize:   2048,
	})
	if err != nil {
		t.Fatalf("upload document: %v", err)
	}
	return doc
}
