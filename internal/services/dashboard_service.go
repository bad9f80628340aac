package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KMohnishM/SIH-25/internal/db/models"
)

// DashboardService serves the read-only rollups backing the overview and
// analytics views. Everything here is a plain aggregate query.
type DashboardService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewDashboardService(db *gorm.DB, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		db:     db,
		logger: logger.With(zap.String("service", "dashboard_service")),
	}
}

type OverviewStats struct {
	TotalDocuments      int64   `json:"total_documents"`
	PendingApprovals    int64   `json:"pending_approvals"`
	RecentUploads       int64   `json:"recent_uploads"`
	ComplianceRate      float64 `json:"compliance_rate"`
	UnreadNotifications int64   `json:"unread_notifications"`
}

type PendingAction struct {
	Type       string                  `json:"type"`
	DocumentID uint                    `json:"document_id"`
	Title      string                  `json:"title"`
	Priority   models.DocumentPriority `json:"priority"`
	CreatedAt  time.Time               `json:"created_at"`
}

type Alert struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Count    int64  `json:"count"`
}

type Overview struct {
	Stats           OverviewStats     `json:"stats"`
	RecentDocuments []models.Document `json:"recent_documents"`
	PendingActions  []PendingAction   `json:"pending_actions"`
	Alerts          []Alert           `json:"alerts"`
}

func (s *DashboardService) Overview(ctx context.Context, user *models.User) (*Overview, error) {
	now := time.Now().UTC()
	out := &Overview{
		PendingActions: []PendingAction{},
		Alerts:         []Alert{},
	}

	docs := func() *gorm.DB { return s.db.WithContext(ctx).Model(&models.Document{}) }

	if err := docs().Count(&out.Stats.TotalDocuments).Error; err != nil {
		return nil, err
	}
	if err := docs().Where("status = ?", models.StatusPending).
		Count(&out.Stats.PendingApprovals).Error; err != nil {
		return nil, err
	}
	if err := docs().Where("created_at >= ?", now.AddDate(0, 0, -7)).
		Count(&out.Stats.RecentUploads).Error; err != nil {
		return nil, err
	}

	var approved int64
	if err := docs().Where("status = ?", models.StatusApproved).Count(&approved).Error; err != nil {
		return nil, err
	}
	if out.Stats.TotalDocuments > 0 {
		out.Stats.ComplianceRate = round1(float64(approved) / float64(out.Stats.TotalDocuments) * 100)
	}

	if err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		Count(&out.Stats.UnreadNotifications).Error; err != nil {
		return nil, err
	}

	// Non-elevated users only see their department's documents or their own.
	recentQuery := docs()
	elevated := user.Role == models.RoleAdmin || user.Role == models.RoleExecutive
	if !elevated {
		recentQuery = recentQuery.Where("department = ? OR uploaded_by = ?", user.Department, user.ID)
	}
	if err := recentQuery.Order("created_at DESC").Limit(5).
		Find(&out.RecentDocuments).Error; err != nil {
		return nil, err
	}

	if elevated {
		var pending []models.Document
		if err := docs().Where("status = ?", models.StatusPending).
			Limit(10).Find(&pending).Error; err != nil {
			return nil, err
		}
		for _, d := range pending {
			out.PendingActions = append(out.PendingActions, PendingAction{
				Type:       "approval_required",
				DocumentID: d.ID,
				Title:      d.Title,
				Priority:   d.Priority,
				CreatedAt:  d.CreatedAt,
			})
		}
	}

	var highPriorityPending int64
	if err := docs().Where("status = ? AND priority IN ?",
		models.StatusPending,
		[]models.DocumentPriority{models.PriorityHigh, models.PriorityUrgent}).
		Count(&highPriorityPending).Error; err != nil {
		return nil, err
	}
	if highPriorityPending > 0 {
		out.Alerts = append(out.Alerts, Alert{
			Type:     "high_priority_pending",
			Message:  fmt.Sprintf("%d high priority documents awaiting approval", highPriorityPending),
			Severity: "warning",
			Count:    highPriorityPending,
		})
	}

	var overdue int64
	if err := docs().Where("deadline < ? AND status = ?", now, models.StatusPending).
		Count(&overdue).Error; err != nil {
		return nil, err
	}
	if overdue > 0 {
		out.Alerts = append(out.Alerts, Alert{
			Type:     "overdue_documents",
			Message:  fmt.Sprintf("%d documents are overdue for approval", overdue),
			Severity: "error",
			Count:    overdue,
		})
	}

	return out, nil
}

type TrendPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type ApprovalMetrics struct {
	TotalDocuments int64   `json:"total_documents"`
	Approved       int64   `json:"approved"`
	Rejected       int64   `json:"rejected"`
	Pending        int64   `json:"pending"`
	ApprovalRate   float64 `json:"approval_rate"`
	RejectionRate  float64 `json:"rejection_rate"`
}

type DepartmentStat struct {
	Total        int64   `json:"total"`
	Approved     int64   `json:"approved"`
	Pending      int64   `json:"pending"`
	ApprovalRate float64 `json:"approval_rate"`
}

type ComplianceStat struct {
	Total          int64   `json:"total"`
	Approved       int64   `json:"approved"`
	ComplianceRate float64 `json:"compliance_rate"`
}

type Analytics struct {
	Period             string                    `json:"period"`
	DateRange          map[string]string         `json:"date_range"`
	DocumentTrends     []TrendPoint              `json:"document_trends"`
	ApprovalMetrics    ApprovalMetrics           `json:"approval_metrics"`
	DepartmentStats    map[string]DepartmentStat `json:"department_stats"`
	ComplianceTracking map[string]ComplianceStat `json:"compliance_tracking"`
}

var periodDays = map[string]int{
	"week":    7,
	"month":   30,
	"quarter": 90,
	"year":    365,
}

func (s *DashboardService) Analytics(ctx context.Context, period, department string) (*Analytics, error) {
	days, ok := periodDays[period]
	if !ok {
		return nil, fmt.Errorf("unknown analytics period %q: %w", period, ErrValidation)
	}

	now := time.Now().UTC()
	start := now.AddDate(0, 0, -days)

	base := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Document{}).Where("created_at >= ?", start)
		if department != "" {
			q = q.Where("department = ?", department)
		}
		return q
	}

	out := &Analytics{
		Period: period,
		DateRange: map[string]string{
			"start": start.Format(time.RFC3339),
			"end":   now.Format(time.RFC3339),
		},
		DepartmentStats:    map[string]DepartmentStat{},
		ComplianceTracking: map[string]ComplianceStat{},
	}

	trendDays := 30
	if period == "week" {
		trendDays = 7
	}
	out.DocumentTrends = make([]TrendPoint, 0, trendDays)
	for i := trendDays - 1; i >= 0; i-- {
		dayStart := now.AddDate(0, 0, -i).Truncate(24 * time.Hour)
		dayEnd := dayStart.AddDate(0, 0, 1)
		var count int64
		if err := base().Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
			Count(&count).Error; err != nil {
			return nil, err
		}
		out.DocumentTrends = append(out.DocumentTrends, TrendPoint{
			Date:  dayStart.Format("2006-01-02"),
			Count: count,
		})
	}

	if err := base().Count(&out.ApprovalMetrics.TotalDocuments).Error; err != nil {
		return nil, err
	}
	for status, dest := range map[models.DocumentStatus]*int64{
		models.StatusApproved: &out.ApprovalMetrics.Approved,
		models.StatusRejected: &out.ApprovalMetrics.Rejected,
		models.StatusPending:  &out.ApprovalMetrics.Pending,
	} {
		if err := base().Where("status = ?", status).Count(dest).Error; err != nil {
			return nil, err
		}
	}
	if total := out.ApprovalMetrics.TotalDocuments; total > 0 {
		out.ApprovalMetrics.ApprovalRate = round1(float64(out.ApprovalMetrics.Approved) / float64(total) * 100)
		out.ApprovalMetrics.RejectionRate = round1(float64(out.ApprovalMetrics.Rejected) / float64(total) * 100)
	}

	type deptRow struct {
		Department string
		Total      int64
		Approved   int64
		Pending    int64
	}
	var deptRows []deptRow
	if err := s.db.WithContext(ctx).Model(&models.Document{}).
		Select(`department,
			COUNT(id) AS total,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS approved,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS pending`,
			models.StatusApproved, models.StatusPending).
		Where("created_at >= ?", start).
		Group("department").
		Scan(&deptRows).Error; err != nil {
		return nil, err
	}
	for _, r := range deptRows {
		stat := DepartmentStat{Total: r.Total, Approved: r.Approved, Pending: r.Pending}
		if r.Total > 0 {
			stat.ApprovalRate = round1(float64(r.Approved) / float64(r.Total) * 100)
		}
		out.DepartmentStats[r.Department] = stat
	}

	type typeRow struct {
		Type     string
		Total    int64
		Approved int64
	}
	var typeRows []typeRow
	if err := s.db.WithContext(ctx).Model(&models.Document{}).
		Select(`type,
			COUNT(id) AS total,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS approved`,
			models.StatusApproved).
		Where("created_at >= ?", start).
		Group("type").
		Scan(&typeRows).Error; err != nil {
		return nil, err
	}
	for _, r := range typeRows {
		stat := ComplianceStat{Total: r.Total, Approved: r.Approved}
		if r.Total > 0 {
			stat.ComplianceRate = round1(float64(r.Approved) / float64(r.Total) * 100)
		}
		out.ComplianceTracking[r.Type] = stat
	}

	return out, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
