package services_test

import (
	"testing"
	"time"

	"taskhub/models"
	"taskhub/services"
	"taskhub/testutil"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func seedAuditLog(t *testing.T, e *env, entityID, action, actorID string, at time.Time) models.AuditLog {
	t.Helper()
	row := models.AuditLog{
		Base:       models.Base{CreatedAt: at.UTC()},
		EntityType: models.EntityUser,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
	}
	if err := e.db.Create(&row).Error; err != nil {
		t.Fatalf("seed audit log: %v", err)
	}
	return row
}

func TestAudit_GetLogsFiltersAndPages(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		seedAuditLog(t, e, "user-1", models.AuditUserRoleChanged, "admin-1", base.Add(time.Duration(i)*time.Hour))
	}
	seedAuditLog(t, e, "user-2", models.AuditUserSuspended, "admin-2", base.Add(10*time.Hour))

	page, err := e.audit.GetLogs(ctx, services.AuditFilter{}, 1, 4)
	if err != nil {
		t.Fatalf("GetLogs: %v", err)
	}
	if page.Total != 6 || page.TotalPages != 2 || len(page.Logs) != 4 {
		t.Fatalf("page = total %d pages %d len %d", page.Total, page.TotalPages, len(page.Logs))
	}
	if page.Logs[0].EntityID != "user-2" {
		t.Errorf("first entry = %s, want newest (user-2)", page.Logs[0].EntityID)
	}
	for i := 1; i < len(page.Logs); i++ {
		if page.Logs[i].CreatedAt.After(page.Logs[i-1].CreatedAt) {
			t.Errorf("entries not newest first at %d", i)
		}
	}

	cases := []struct {
		name   string
		filter services.AuditFilter
		want   int64
	}{
		{"by entity", services.AuditFilter{EntityType: models.EntityUser, EntityID: "user-1"}, 5},
		{"by actor", services.AuditFilter{ActorID: "admin-2"}, 1},
		{"by action", services.AuditFilter{Action: models.AuditUserRoleChanged}, 5},
		{"from", services.AuditFilter{From: testutil.Ptr(base.Add(3 * time.Hour))}, 3},
		{"window", services.AuditFilter{From: testutil.Ptr(base.Add(time.Hour)), To: testutil.Ptr(base.Add(2 * time.Hour))}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, err := e.audit.GetLogs(ctx, tc.filter, 1, 50)
			if err != nil {
				t.Fatalf("GetLogs: %v", err)
			}
			if page.Total != tc.want || int64(len(page.Logs)) != tc.want {
				t.Errorf("total = %d len = %d, want %d", page.Total, len(page.Logs), tc.want)
			}
		})
	}
}

func TestAudit_GetEntityHistory(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	seedAuditLog(t, e, "user-1", models.AuditUserCreated, "admin", base)
	seedAuditLog(t, e, "user-1", models.AuditUserSuspended, "admin", base.Add(time.Minute))
	seedAuditLog(t, e, "user-2", models.AuditUserCreated, "admin", base)

	logs, err := e.audit.GetEntityHistory(ctx, models.EntityUser, "user-1", 0)
	if err != nil {
		t.Fatalf("GetEntityHistory: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("entries = %d, want 2", len(logs))
	}
	if logs[0].Action != models.AuditUserSuspended {
		t.Errorf("first action = %s, want newest", logs[0].Action)
	}

	logs, err = e.audit.GetEntityHistory(ctx, models.EntityUser, "user-1", 1)
	if err != nil {
		t.Fatalf("GetEntityHistory: %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("limited entries = %d, want 1", len(logs))
	}
}

func TestAudit_Destinations(t *testing.T) {
	entry := services.AuditEntry{
		EntityType: models.EntityUser,
		EntityID:   "user-1",
		Action:     models.AuditUserDeleted,
		Actor:      services.AuditActor{ID: "admin-1", Email: "admin@example.com"},
		Metadata:   models.UserAdminMetadata{TargetEmail: "gone@example.com"},
	}

	cases := []struct {
		dest     string
		wantRow  bool
		wantLogs int
	}{
		{services.AuditToAll, true, 1},
		{services.AuditToDB, true, 0},
		{services.AuditToLog, false, 1},
		{services.AuditOff, false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.dest, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			core, logs := observer.New(zapcore.InfoLevel)
			audit := services.NewAuditService(db, zap.New(core), tc.dest)

			row, err := audit.Record(testutil.TestContext(t), entry)
			if err != nil {
				t.Fatalf("Record: %v", err)
			}
			if (row != nil) != tc.wantRow {
				t.Errorf("row returned = %v, want %v", row != nil, tc.wantRow)
			}

			var stored int64
			db.Model(&models.AuditLog{}).Count(&stored)
			if (stored == 1) != tc.wantRow {
				t.Errorf("stored rows = %d", stored)
			}

			mirrored := logs.FilterField(zap.Bool("audit", true)).Len()
			if mirrored != tc.wantLogs {
				t.Errorf("audit log lines = %d, want %d", mirrored, tc.wantLogs)
			}
		})
	}
}

func TestAudit_MetadataRoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)

	row, err := e.audit.Record(ctx, services.AuditEntry{
		EntityType: models.EntityUser,
		EntityID:   "user-1",
		Action:     models.AuditUserRoleChanged,
		Actor:      services.AuditActor{ID: "admin-1"},
		Changes:    models.Changes{"role": {Old: "USER", New: "MANAGER"}},
		Metadata:   models.UserAdminMetadata{TargetEmail: "user@example.com"},
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	var stored models.AuditLog
	if err := e.db.Where("id = ?", row.ID).First(&stored).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	changes, err := stored.DecodeChanges()
	if err != nil {
		t.Fatalf("DecodeChanges: %v", err)
	}
	if changes["role"].New != "MANAGER" {
		t.Errorf("changes = %+v", changes)
	}
	meta, err := models.DecodeAuditMetadata(stored.Action, stored.Metadata)
	if err != nil {
		t.Fatalf("DecodeAuditMetadata: %v", err)
	}
	if m := meta.(*models.UserAdminMetadata); m.TargetEmail != "user@example.com" {
		t.Errorf("metadata = %+v", m)
	}
}

func TestAudit_LogIsNilSafe(t *testing.T) {
	var audit *services.AuditService
	audit.Log(testutil.TestContext(t), services.AuditEntry{Action: "ANY"})
}
