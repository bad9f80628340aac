package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/KMohnishM/SIH-25/internal/config"
	"github.com/KMohnishM/SIH-25/internal/db/models"
	"github.com/KMohnishM/SIH-25/internal/services"
	"github.com/KMohnishM/SIH-25/internal/storage"
	"github.com/KMohnishM/SIH-25/pkg/metrics"
)

var apiEnvSeq atomic.Int64

type apiEnv struct {
	router *Router
	db     *gorm.DB
	tokens *services.TokenService
}

func setupAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	cfg := &config.Configuration{
		Server:   config.ServerConfig{Port: "0"},
		Security: config.SecurityConfig{JWTSecret: "test-secret", TokenTTL: time.Hour, MaxFailedAttempts: 100},
		Logging:  config.LoggingConfig{Environment: "production"},
		Upload: config.UploadConfig{
			MaxFileSize:       1 << 20,
			AllowedExtensions: []string{".pdf", ".txt"},
		},
	}

	// A named shared-cache DSN keeps every pool connection on the same
	// in-memory database; plain ":memory:" gives each connection its own.
	// The counter keeps repeated runs of the same test (-count=N) apart.
	dsn := fmt.Sprintf("file:apitest_%s_%d?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"), apiEnvSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Document{},
		&models.WorkflowHistory{},
		&models.Comment{},
		&models.Notification{},
	))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	logger := zap.NewNop()
	collector := metrics.NewCollector()
	store, err := storage.NewLocalStore(t.TempDir(), logger)
	require.NoError(t, err)

	tokens := services.NewTokenService(cfg, logger)
	notifications := services.NewNotificationService(db, logger, collector)
	documents := services.NewDocumentService(db, notifications, logger, collector)
	comments := services.NewCommentService(db, notifications, logger, collector)
	dashboard := services.NewDashboardService(db, logger)

	router := NewRouter(cfg, logger, collector, tokens, documents, comments, notifications, dashboard, store, db)
	router.SetupRoutes()

	return &apiEnv{router: router, db: db, tokens: tokens}
}

func (e *apiEnv) createUser(t *testing.T, username, password string, role models.UserRole, dept models.UserDepartment) *models.User {
	t.Helper()
	hash, err := e.tokens.HashPassword(password)
	require.NoError(t, err)
	user := models.User{
		Username:     username,
		Email:        username + "@kmrl.co.in",
		PasswordHash: hash,
		FullName:     username,
		Role:         role,
		Department:   dept,
		IsActive:     true,
	}
	require.NoError(t, e.db.Create(&user).Error)
	return &user
}

func (e *apiEnv) bearerFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := e.tokens.Issue(user)
	require.NoError(t, err)
	return "Bearer " + token
}

func (e *apiEnv) doRequest(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	w := httptest.NewRecorder()
	e.router.Engine().ServeHTTP(w, req)
	return w
}

func (e *apiEnv) uploadViaAPI(t *testing.T, bearer, title, department string) uint {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", title))
	require.NoError(t, mw.WriteField("type", "maintenance"))
	require.NoError(t, mw.WriteField("department", department))
	part, err := mw.CreateFormFile("file", "report.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 test"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", bearer)
	w := httptest.NewRecorder()
	e.router.Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var doc models.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	return doc.ID
}

func TestHealthEndpoint(t *testing.T) {
	env := setupAPIEnv(t)
	w := env.doRequest(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"up"`)
}

func TestLoginFlow(t *testing.T) {
	env := setupAPIEnv(t)
	env.createUser(t, "maintenance.engineer", "demo123", models.RoleMaintenance, models.DeptEngineering)

	w := env.doRequest(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "maintenance.engineer",
		"password": "demo123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		AccessToken string      `json:"access_token"`
		TokenType   string      `json:"token_type"`
		ExpiresIn   int         `json:"expires_in"`
		User        models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "bearer", resp.TokenType)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "maintenance.engineer", resp.User.Username)

	// The issued token works on an authenticated route.
	me := env.doRequest(t, http.MethodGet, "/api/v1/auth/me", "Bearer "+resp.AccessToken, nil)
	assert.Equal(t, http.StatusOK, me.Code)

	// Wrong password and unknown user are indistinguishable.
	w = env.doRequest(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "maintenance.engineer",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.doRequest(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "ghost",
		"password": "demo123",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginInactiveUser(t *testing.T) {
	env := setupAPIEnv(t)
	user := env.createUser(t, "former.employee", "demo123", models.RoleUser, models.DeptGeneral)
	require.NoError(t, env.db.Model(user).Update("is_active", false).Error)

	w := env.doRequest(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "former.employee",
		"password": "demo123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Inactive user")
}

func TestAuthRequired(t *testing.T) {
	env := setupAPIEnv(t)
	w := env.doRequest(t, http.MethodGet, "/api/v1/documents", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.doRequest(t, http.MethodGet, "/api/v1/documents", "Bearer not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDocumentWorkflowEndToEnd(t *testing.T) {
	env := setupAPIEnv(t)
	engineer := env.createUser(t, "maintenance.engineer", "demo123", models.RoleMaintenance, models.DeptEngineering)
	finance := env.createUser(t, "finance.manager", "demo123", models.RoleFinance, models.DeptFinance)
	executive := env.createUser(t, "executive.user", "demo123", models.RoleExecutive, models.DeptManagement)

	docID := env.uploadViaAPI(t, env.bearerFor(t, engineer), "Signal Relay Audit", "engineering")

	// Finance cannot approve an engineering document.
	w := env.doRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/documents/%d/approve", docID),
		env.bearerFor(t, finance), map[string]string{"comments": "approved from finance"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The executive can.
	w = env.doRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/documents/%d/approve", docID),
		env.bearerFor(t, executive), map[string]string{"comments": "cleared"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"approved"`)

	// A second approval is an invalid transition.
	w = env.doRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/documents/%d/approve", docID),
		env.bearerFor(t, executive), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The ledger shows both entries, newest first.
	w = env.doRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/documents/%d/workflow", docID),
		env.bearerFor(t, engineer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ledger struct {
		Workflow []models.WorkflowHistory `json:"workflow"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ledger))
	require.Len(t, ledger.Workflow, 2)
	assert.Equal(t, models.ActionApprove, ledger.Workflow[0].Action)
	assert.Equal(t, "cleared", ledger.Workflow[0].Comments)
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	env := setupAPIEnv(t)
	engineer := env.createUser(t, "maintenance.engineer", "demo123", models.RoleMaintenance, models.DeptEngineering)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "Malware"))
	require.NoError(t, mw.WriteField("type", "maintenance"))
	require.NoError(t, mw.WriteField("department", "engineering"))
	part, err := mw.CreateFormFile("file", "payload.exe")
	require.NoError(t, err)
	_, err = part.Write([]byte("MZ"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", env.bearerFor(t, engineer))
	w := httptest.NewRecorder()
	env.router.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not allowed")
}

func TestDocumentDownload(t *testing.T) {
	env := setupAPIEnv(t)
	engineer := env.createUser(t, "maintenance.engineer", "demo123", models.RoleMaintenance, models.DeptEngineering)
	docID := env.uploadViaAPI(t, env.bearerFor(t, engineer), "Download Me", "engineering")

	w := env.doRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/documents/%d/download", docID),
		env.bearerFor(t, engineer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "report.pdf")

	var doc models.Document
	require.NoError(t, env.db.First(&doc, docID).Error)
	assert.Equal(t, int64(1), doc.DownloadCount)
}

func TestInternalCommentsHiddenOverAPI(t *testing.T) {
	env := setupAPIEnv(t)
	engineer := env.createUser(t, "maintenance.engineer", "demo123", models.RoleMaintenance, models.DeptEngineering)
	executive := env.createUser(t, "executive.user", "demo123", models.RoleExecutive, models.DeptManagement)

	docID := env.uploadViaAPI(t, env.bearerFor(t, engineer), "Tender Evaluation", "engineering")

	w := env.doRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/documents/%d/comments", docID),
		env.bearerFor(t, executive), map[string]any{
			"content":     "internal: legal review pending",
			"is_internal": true,
		})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.doRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/documents/%d/comments", docID),
		env.bearerFor(t, engineer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "legal review pending")

	w = env.doRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/documents/%d/comments", docID),
		env.bearerFor(t, executive), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "legal review pending")
}

func TestNotificationReadAll(t *testing.T) {
	env := setupAPIEnv(t)
	engineer := env.createUser(t, "maintenance.engineer", "demo123", models.RoleMaintenance, models.DeptEngineering)
	executive := env.createUser(t, "executive.user", "demo123", models.RoleExecutive, models.DeptManagement)

	docID := env.uploadViaAPI(t, env.bearerFor(t, engineer), "Budget Revision", "engineering")

	w := env.doRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/documents/%d/reject", docID),
		env.bearerFor(t, executive), map[string]string{"comments": "wrong fiscal year"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.doRequest(t, http.MethodGet, "/api/v1/notifications?unread_only=true",
		env.bearerFor(t, engineer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Total       int64 `json:"total"`
		UnreadCount int64 `json:"unread_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.UnreadCount)

	w = env.doRequest(t, http.MethodPut, "/api/v1/notifications/read-all",
		env.bearerFor(t, engineer), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.doRequest(t, http.MethodGet, "/api/v1/notifications?unread_only=true",
		env.bearerFor(t, engineer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Zero(t, page.UnreadCount)
}

func TestUserRoutesAdminOnly(t *testing.T) {
	env := setupAPIEnv(t)
	engineer := env.createUser(t, "maintenance.engineer", "demo123", models.RoleMaintenance, models.DeptEngineering)
	admin := env.createUser(t, "admin.user", "admin123", models.RoleAdmin, models.DeptManagement)

	w := env.doRequest(t, http.MethodGet, "/api/v1/users", env.bearerFor(t, engineer), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.doRequest(t, http.MethodGet, "/api/v1/users", env.bearerFor(t, admin), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Users can read themselves but not each other.
	w = env.doRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", engineer.ID),
		env.bearerFor(t, engineer), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.doRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", admin.ID),
		env.bearerFor(t, engineer), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Duplicate username is a conflict.
	w = env.doRequest(t, http.MethodPost, "/api/v1/users", env.bearerFor(t, admin), map[string]string{
		"username":  "maintenance.engineer",
		"email":     "dup@kmrl.co.in",
		"password":  "demo123",
		"full_name": "Duplicate",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Admins cannot deactivate themselves.
	w = env.doRequest(t, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", admin.ID),
		env.bearerFor(t, admin), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserCreateRejectsUnknownRoleAndDepartment(t *testing.T) {
	env := setupAPIEnv(t)
	admin := env.createUser(t, "admin.user", "admin123", models.RoleAdmin, models.DeptManagement)

	w := env.doRequest(t, http.MethodPost, "/api/v1/users", env.bearerFor(t, admin), map[string]string{
		"username":  "new.user",
		"email":     "new.user@kmrl.co.in",
		"password":  "demo123",
		"full_name": "New User",
		"role":      "superuser",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = env.doRequest(t, http.MethodPost, "/api/v1/users", env.bearerFor(t, admin), map[string]string{
		"username":   "new.user",
		"email":      "new.user@kmrl.co.in",
		"password":   "demo123",
		"full_name":  "New User",
		"department": "skunkworks",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	var count int64
	require.NoError(t, env.db.Model(&models.User{}).Where("username = ?", "new.user").Count(&count).Error)
	assert.Zero(t, count)
}

func TestUserUpdateRejectsUnknownRole(t *testing.T) {
	env := setupAPIEnv(t)
	admin := env.createUser(t, "admin.user", "admin123", models.RoleAdmin, models.DeptManagement)
	engineer := env.createUser(t, "maintenance.engineer", "demo123", models.RoleMaintenance, models.DeptEngineering)

	w := env.doRequest(t, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", engineer.ID),
		env.bearerFor(t, admin), map[string]string{"role": "superuser"})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestDocumentUploadRejectsUnknownType(t *testing.T) {
	env := setupAPIEnv(t)
	engineer := env.createUser(t, "maintenance.engineer", "demo123", models.RoleMaintenance, models.DeptEngineering)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "Daily Log"))
	require.NoError(t, mw.WriteField("type", "banana"))
	require.NoError(t, mw.WriteField("department", "engineering"))
	part, err := mw.CreateFormFile("file", "report.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 test"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", env.bearerFor(t, engineer))
	w := httptest.NewRecorder()
	env.router.Engine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

// A user inserted between the handler's existence check and its INSERT must
// still come back as a conflict, not a server error.
func TestUserCreateDuplicateLosesRaceCleanly(t *testing.T) {
	env := setupAPIEnv(t)
	admin := env.createUser(t, "admin.user", "admin123", models.RoleAdmin, models.DeptManagement)

	raced := false
	require.NoError(t, env.db.Callback().Create().Before("gorm:create").Register("test:late_insert", func(tx *gorm.DB) {
		if raced || tx.Statement.Schema == nil || tx.Statement.Schema.Table != "users" {
			return
		}
		raced = true
		seed := models.User{
			Username:     "late.arrival",
			Email:        "late.arrival@kmrl.co.in",
			PasswordHash: "x",
			FullName:     "Late Arrival",
			Role:         models.RoleUser,
			Department:   models.DeptGeneral,
			IsActive:     true,
		}
		require.NoError(t, env.db.Session(&gorm.Session{NewDB: true}).Create(&seed).Error)
	}))
	defer func() {
		require.NoError(t, env.db.Callback().Create().Remove("test:late_insert"))
	}()

	w := env.doRequest(t, http.MethodPost, "/api/v1/users", env.bearerFor(t, admin), map[string]string{
		"username":  "late.arrival",
		"email":     "late.arrival@kmrl.co.in",
		"password":  "demo123",
		"full_name": "Late Arrival",
	})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.True(t, raced)
}

func TestDashboardOverviewEndpoint(t *testing.T) {
	env := setupAPIEnv(t)
	engineer := env.createUser(t, "maintenance.engineer", "demo123", models.RoleMaintenance, models.DeptEngineering)
	env.uploadViaAPI(t, env.bearerFor(t, engineer), "Daily Log", "engineering")

	w := env.doRequest(t, http.MethodGet, "/api/v1/dashboard/overview", env.bearerFor(t, engineer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_documents":1`)

	w = env.doRequest(t, http.MethodGet, "/api/v1/dashboard/analytics?period=decade",
		env.bearerFor(t, engineer), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
