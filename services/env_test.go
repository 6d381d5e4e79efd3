package services_test

import (
	"regexp"
	"testing"
	"time"

	"taskhub/models"
	"taskhub/services"
	"taskhub/testutil"
	"taskhub/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type env struct {
	db     *gorm.DB
	fx     *testutil.Fixtures
	pusher *testutil.Pusher

	audit         *services.AuditService
	history       *services.HistoryService
	notifications *services.NotificationService
	tasks         *services.TaskService
	bulk          *services.BulkService
	analytics     *services.AnalyticsService
	ai            *services.AIService
	comments      *services.CommentService
	teams         *services.TeamService
	orgs          *services.OrganizationService
	access        *services.AccessService
	auth          *services.AuthService
	admin         *services.AdminService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	log := zap.NewNop()
	pusher := &testutil.Pusher{}

	e := &env{db: db, fx: testutil.NewFixtures(t, db), pusher: pusher}
	e.audit = services.NewAuditService(db, log, services.AuditToDB)
	e.history = services.NewHistoryService(db, log)
	e.notifications = services.NewNotificationService(db, log, pusher)
	e.tasks = services.NewTaskService(db, log, e.history, e.notifications, pusher)
	e.bulk = services.NewBulkService(db, log, e.audit, e.history, e.notifications, pusher)
	e.analytics = services.NewAnalyticsService(db, log)
	e.ai = services.NewAIService(db, log, e.tasks, e.analytics)
	e.comments = services.NewCommentService(db, log, e.tasks, e.notifications)
	e.teams = services.NewTeamService(db, log)
	e.orgs = services.NewOrganizationService(db, log)
	e.access = services.NewAccessService(db, log)
	e.auth = services.NewAuthService(db, log, utils.NewTokenIssuer(testSecret, time.Hour), regexp.MustCompile(`^admin@`))
	e.admin = services.NewAdminService(db, log, e.audit)
	return e
}

func (e *env) notificationCount(t *testing.T, userID string) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	return n
}

func (e *env) historyFor(t *testing.T, taskID, action string) []models.TaskHistory {
	t.Helper()
	var rows []models.TaskHistory
	if err := e.db.Where("task_id = ? AND action = ?", taskID, action).Find(&rows).Error; err != nil {
		t.Fatalf("load history: %v", err)
	}
	return rows
}

func (e *env) reloadTask(t *testing.T, id string) models.Task {
	t.Helper()
	var task models.Task
	if err := e.db.Where("id = ?", id).First(&task).Error; err != nil {
		t.Fatalf("reload task %s: %v", id, err)
	}
	return task
}
