// services/analytics_service.go - dashboard counts and daily trends over visible tasks
package services

import (
	"context"
	"fmt"
	"time"

	"taskhub/logging"
	"taskhub/models"
	"taskhub/policy"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	defaultTrendDays = 30
	maxTrendDays     = 365
)

type Dashboard struct {
	Total             int64            `json:"total"`
	ByStatus          map[string]int64 `json:"byStatus"`
	ByPriority        map[string]int64 `json:"byPriority"`
	Overdue           int64            `json:"overdue"`
	CompletedLastWeek int64            `json:"completedLastWeek"`
	AssignedToMe      int64            `json:"assignedToMe"`
	CompletionRate    float64          `json:"completionRate"`
}

type TrendPoint struct {
	Date      string `json:"date"`
	Created   int64  `json:"created"`
	Completed int64  `json:"completed"`
}

type AnalyticsService struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewAnalyticsService(db *gorm.DB, log *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		db:  db,
		log: logging.OrNop(log),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Dashboard runs its independent counts concurrently.
func (s *AnalyticsService) Dashboard(ctx context.Context, caps policy.Capabilities) (*Dashboard, error) {
	d := &Dashboard{ByStatus: map[string]int64{}, ByPriority: map[string]int64{}}
	now := s.now()

	var byStatus, byPriority []groupCount
	g, gctx := errgroup.WithContext(ctx)

	visible := func() *gorm.DB {
		return s.db.WithContext(gctx).Model(&models.Task{}).Scopes(policy.VisibleTasks(caps))
	}

	g.Go(func() error {
		return visible().Count(&d.Total).Error
	})
	g.Go(func() error {
		return visible().Select("tasks.status AS bucket, COUNT(*) AS total").Group("tasks.status").Scan(&byStatus).Error
	})
	g.Go(func() error {
		return visible().Select("tasks.priority AS bucket, COUNT(*) AS total").Group("tasks.priority").Scan(&byPriority).Error
	})
	g.Go(func() error {
		return visible().
			Where("tasks.due_date IS NOT NULL AND tasks.due_date < ? AND tasks.status <> ?", now, models.StatusCompleted).
			Count(&d.Overdue).Error
	})
	g.Go(func() error {
		return visible().
			Where("tasks.status = ? AND tasks.updated_at >= ?", models.StatusCompleted, now.AddDate(0, 0, -7)).
			Count(&d.CompletedLastWeek).Error
	})
	g.Go(func() error {
		return visible().Where("tasks.assigned_to_id = ?", caps.UserID).Count(&d.AssignedToMe).Error
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	for _, c := range byStatus {
		d.ByStatus[c.Bucket] = c.Total
	}
	for _, c := range byPriority {
		d.ByPriority[c.Bucket] = c.Total
	}
	if d.Total > 0 {
		d.CompletionRate = float64(d.ByStatus[string(models.StatusCompleted)]) / float64(d.Total)
	}
	return d, nil
}

type dayCount struct {
	Day   string
	Total int64
}

// Trends buckets task creations and completions by calendar day (UTC) for the
// last days days, oldest first, with empty days reported as zero.
func (s *AnalyticsService) Trends(ctx context.Context, caps policy.Capabilities, days int) ([]TrendPoint, error) {
	if days <= 0 {
		days = defaultTrendDays
	}
	if days > maxTrendDays {
		days = maxTrendDays
	}

	today := s.now().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(days - 1))

	var created, completed []dayCount
	g, gctx := errgroup.WithContext(ctx)

	history := func() *gorm.DB {
		return s.db.WithContext(gctx).Table("task_histories").
			Joins("JOIN tasks ON tasks.id = task_histories.task_id").
			Scopes(policy.VisibleTasks(caps)).
			Where("task_histories.created_at >= ?", since).
			Select("DATE(task_histories.created_at) AS day, COUNT(*) AS total").
			Group("DATE(task_histories.created_at)")
	}

	g.Go(func() error {
		return history().Where("task_histories.action = ?", models.HistoryCreated).Scan(&created).Error
	})
	g.Go(func() error {
		return history().
			Where("task_histories.action = ? AND task_histories.new_value = ?", models.HistoryStatusChanged, models.StatusCompleted).
			Scan(&completed).Error
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("trends: %w", err)
	}

	points := make([]TrendPoint, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		date := since.AddDate(0, 0, i).Format("2006-01-02")
		points[i] = TrendPoint{Date: date}
		index[date] = i
	}
	for _, c := range created {
		if i, ok := index[dayKey(c.Day)]; ok {
			points[i].Created += c.Total
		}
	}
	for _, c := range completed {
		if i, ok := index[dayKey(c.Day)]; ok {
			points[i].Completed += c.Total
		}
	}
	return points, nil
}

// dayKey normalizes DATE() output, which drivers return either as
// "2006-01-02" or as a full timestamp.
func dayKey(day string) string {
	if len(day) >= 10 {
		return day[:10]
	}
	return day
}
