package services_test

import (
	"sort"
	"strings"
	"testing"
	"time"

	"taskhub/apperr"
	"taskhub/models"
	"taskhub/policy"
	"taskhub/services"
	"taskhub/testutil"
)

// orgWorld is an organization with a team and a spread of tasks.
type orgWorld struct {
	org, other                   models.Organization
	team                         models.Team
	alice, bob, carol, dave, eve models.User
	tasks                        []models.Task
}

// buildOrgWorld: alice leads team "core" with bob; carol and dave are plain org
// members; eve belongs to another organization.
func buildOrgWorld(t *testing.T, e *env) orgWorld {
	t.Helper()
	w := orgWorld{
		alice: e.fx.CreateUser("alice@example.com", models.RoleUser),
		bob:   e.fx.CreateUser("bob@example.com", models.RoleUser),
		carol: e.fx.CreateUser("carol@example.com", models.RoleUser),
		dave:  e.fx.CreateUser("dave@example.com", models.RoleUser),
		eve:   e.fx.CreateUser("eve@example.com", models.RoleUser),
	}
	w.org = e.fx.CreateOrganization("Acme", w.alice)
	e.fx.AddOrgMember(w.org.ID, w.bob.ID, models.OrgRoleMember)
	e.fx.AddOrgMember(w.org.ID, w.carol.ID, models.OrgRoleMember)
	e.fx.AddOrgMember(w.org.ID, w.dave.ID, models.OrgRoleMember)
	w.team = e.fx.CreateTeam(w.org.ID, "core", w.alice)
	e.fx.AddTeamMember(w.team.ID, w.bob.ID, models.TeamRoleMember)

	w.other = e.fx.CreateOrganization("Other", w.eve)
	orgID := &w.org.ID

	w.tasks = []models.Task{
		e.fx.CreateTask(models.Task{Title: "alice private", CreatorID: w.alice.ID, OrganizationID: orgID, Visibility: models.VisibilityPrivate}),
		e.fx.CreateTask(models.Task{Title: "alice org", CreatorID: w.alice.ID, OrganizationID: orgID, Visibility: models.VisibilityOrganization}),
		e.fx.CreateTask(models.Task{Title: "alice team", CreatorID: w.alice.ID, OrganizationID: orgID, TeamID: &w.team.ID, Visibility: models.VisibilityTeam}),
		e.fx.CreateTask(models.Task{Title: "private for carol", CreatorID: w.alice.ID, OrganizationID: orgID, Visibility: models.VisibilityPrivate, AssignedToID: &w.carol.ID}),
		e.fx.CreateTask(models.Task{Title: "team for dave", CreatorID: w.bob.ID, OrganizationID: orgID, TeamID: &w.team.ID, Visibility: models.VisibilityTeam, AssignedToID: &w.dave.ID}),
		e.fx.CreateTask(models.Task{Title: "carol individual", CreatorID: w.carol.ID, Visibility: models.VisibilityPrivate}),
		e.fx.CreateTask(models.Task{Title: "other org", CreatorID: w.eve.ID, OrganizationID: &w.other.ID, Visibility: models.VisibilityOrganization}),
	}
	return w
}

func titles(tasks []models.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestList_VisibilityUnion(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	w := buildOrgWorld(t, e)

	members := map[string]struct {
		user  models.User
		org   *string
		teams []string
		want  []string
	}{
		"alice":            {w.alice, &w.org.ID, []string{w.team.ID}, []string{"alice org", "alice private", "alice team", "private for carol", "team for dave"}},
		"bob":              {w.bob, &w.org.ID, []string{w.team.ID}, []string{"alice org", "alice team", "team for dave"}},
		"carol":            {w.carol, &w.org.ID, nil, []string{"alice org", "private for carol"}},
		"dave":             {w.dave, &w.org.ID, nil, []string{"alice org", "team for dave"}},
		"carol individual": {w.carol, nil, nil, []string{"carol individual"}},
		"dave individual":  {w.dave, nil, nil, nil},
		"eve":              {w.eve, &w.other.ID, nil, []string{"other org"}},
	}

	for name, m := range members {
		t.Run(name, func(t *testing.T) {
			caps := testutil.Caps(m.user, m.org, m.teams...)
			page, err := e.tasks.List(ctx, caps, services.TaskFilter{Limit: 100})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			got := titles(page.Tasks)
			want := append([]string{}, m.want...)
			sort.Strings(want)
			if !equalStrings(got, want) {
				t.Errorf("visible = %v, want %v", got, want)
			}
			if page.Total != int64(len(want)) {
				t.Errorf("total = %d, want %d", page.Total, len(want))
			}

			// The query, the single-task predicate and GetByID must agree on every task.
			listed := map[string]bool{}
			for _, task := range page.Tasks {
				listed[task.ID] = true
			}
			for _, task := range w.tasks {
				task := task
				if can := policy.CanViewTask(caps, &task); listed[task.ID] != can {
					t.Errorf("task %q: listed=%v CanViewTask=%v", task.Title, listed[task.ID], can)
				}
				_, err := e.tasks.GetByID(ctx, caps, task.ID)
				if listed[task.ID] != (err == nil) {
					t.Errorf("task %q: listed=%v GetByID err=%v", task.Title, listed[task.ID], err)
				}
			}
		})
	}
}

func TestList_IndividualMode(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	w := buildOrgWorld(t, e)

	page, err := e.tasks.List(ctx, testutil.Caps(w.carol, nil), services.TaskFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := titles(page.Tasks); !equalStrings(got, []string{"carol individual"}) {
		t.Errorf("individual mode tasks = %v", got)
	}

	page, err = e.tasks.List(ctx, testutil.Caps(w.alice, nil), services.TaskFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Tasks) != 0 {
		t.Errorf("alice should see no individual tasks, got %v", titles(page.Tasks))
	}
}

func TestList_FiltersAndPrioritySort(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	u := e.fx.CreateUser("sorter@example.com", models.RoleUser)

	past := time.Now().UTC().Add(-48 * time.Hour)
	future := time.Now().UTC().Add(48 * time.Hour)
	e.fx.CreateTask(models.Task{Title: "low", CreatorID: u.ID, Priority: models.PriorityLow, DueDate: &past})
	e.fx.CreateTask(models.Task{Title: "urgent", CreatorID: u.ID, Priority: models.PriorityUrgent, DueDate: &future})
	e.fx.CreateTask(models.Task{Title: "medium", CreatorID: u.ID, Priority: models.PriorityMedium})
	e.fx.CreateTask(models.Task{Title: "high", CreatorID: u.ID, Priority: models.PriorityHigh, DueDate: &past, Status: models.StatusCompleted})

	caps := testutil.Caps(u, nil)

	page, err := e.tasks.List(ctx, caps, services.TaskFilter{SortBy: "priority"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var order []string
	for _, task := range page.Tasks {
		order = append(order, task.Title)
	}
	if !equalStrings(order, []string{"urgent", "high", "medium", "low"}) {
		t.Errorf("priority desc order = %v", order)
	}

	page, err = e.tasks.List(ctx, caps, services.TaskFilter{SortBy: "priority", SortOrder: "asc"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Tasks[0].Title != "low" {
		t.Errorf("priority asc first = %s, want low", page.Tasks[0].Title)
	}

	page, err = e.tasks.List(ctx, caps, services.TaskFilter{Overdue: true})
	if err != nil {
		t.Fatalf("List overdue: %v", err)
	}
	if got := titles(page.Tasks); !equalStrings(got, []string{"low"}) {
		t.Errorf("overdue = %v, want [low]", got)
	}

	page, err = e.tasks.List(ctx, caps, services.TaskFilter{Status: models.StatusCompleted})
	if err != nil {
		t.Fatalf("List completed: %v", err)
	}
	if got := titles(page.Tasks); !equalStrings(got, []string{"high"}) {
		t.Errorf("completed = %v", got)
	}

	page, err = e.tasks.List(ctx, caps, services.TaskFilter{Limit: 3, Page: 2})
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	if len(page.Tasks) != 1 || page.Total != 4 || page.TotalPages != 2 {
		t.Errorf("page 2 = %d tasks, total %d, pages %d", len(page.Tasks), page.Total, page.TotalPages)
	}

	if _, err := e.tasks.List(ctx, caps, services.TaskFilter{SortBy: "bogus"}); !apperr.Is(err, apperr.KindBadRequest) {
		t.Errorf("unknown sort field err = %v, want BadRequest", err)
	}
}

func TestSearch(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	u := e.fx.CreateUser("searcher@example.com", models.RoleUser)
	e.fx.CreateTask(models.Task{Title: "Write Quarterly report", CreatorID: u.ID})
	e.fx.CreateTask(models.Task{Title: "Other", Description: "the report appendix", CreatorID: u.ID})
	e.fx.CreateTask(models.Task{Title: "Unrelated", CreatorID: u.ID})

	tasks, err := e.tasks.Search(ctx, testutil.Caps(u, nil), "REPORT", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("search hits = %v, want 2", titles(tasks))
	}

	if _, err := e.tasks.Search(ctx, testutil.Caps(u, nil), "  ", 10); !apperr.Is(err, apperr.KindBadRequest) {
		t.Errorf("empty query err = %v, want BadRequest", err)
	}
}

func TestCreate_NotifiesAssignee(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	a := e.fx.CreateUser("a@example.com", models.RoleUser)
	b := e.fx.CreateUser("b@example.com", models.RoleUser)

	result, err := e.tasks.Create(ctx, testutil.Caps(a, nil), services.CreateTaskInput{
		Title:        "T1",
		AssignedToID: &b.ID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if result.SendNotificationTo == nil || *result.SendNotificationTo != b.ID {
		t.Fatalf("SendNotificationTo = %v, want %s", result.SendNotificationTo, b.ID)
	}

	var notifications []models.Notification
	if err := e.db.Where("user_id = ?", b.ID).Find(&notifications).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("notifications for b = %d, want 1", len(notifications))
	}
	if notifications[0].Type != models.NotificationTaskAssigned {
		t.Errorf("type = %s, want %s", notifications[0].Type, models.NotificationTaskAssigned)
	}
	if notifications[0].TaskID == nil || *notifications[0].TaskID != result.Task.ID {
		t.Errorf("notification task id = %v", notifications[0].TaskID)
	}

	if got := len(e.historyFor(t, result.Task.ID, models.HistoryCreated)); got != 1 {
		t.Errorf("created history rows = %d, want 1", got)
	}
	if got := len(e.pusher.ToUser(b.ID)); got != 1 {
		t.Errorf("pushes to b = %d, want 1", got)
	}
	if got := len(e.pusher.Broadcasts(services.EventTaskCreated)); got != 1 {
		t.Errorf("task:created broadcasts = %d, want 1", got)
	}
}

func TestCreate_SelfAssignmentDoesNotNotify(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	a := e.fx.CreateUser("a@example.com", models.RoleUser)

	result, err := e.tasks.Create(ctx, testutil.Caps(a, nil), services.CreateTaskInput{Title: "mine", AssignedToID: &a.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if result.SendNotificationTo != nil {
		t.Errorf("SendNotificationTo = %v, want nil", *result.SendNotificationTo)
	}
	if n := e.notificationCount(t, a.ID); n != 0 {
		t.Errorf("notifications = %d, want 0", n)
	}
	if got := len(e.historyFor(t, result.Task.ID, models.HistoryCreated)); got != 1 {
		t.Errorf("created history rows = %d, want 1", got)
	}
}

func TestCreate_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	a := e.fx.CreateUser("a@example.com", models.RoleUser)
	suspended := e.fx.CreateUser("gone@example.com", models.RoleUser)
	e.fx.Suspend(suspended.ID)
	caps := testutil.Caps(a, nil)

	cases := []struct {
		name string
		in   services.CreateTaskInput
		msg  string
	}{
		{"missing title", services.CreateTaskInput{Title: " "}, "Title is required"},
		{"unknown assignee", services.CreateTaskInput{Title: "x", AssignedToID: testutil.Ptr("nobody")}, "Assignee not found"},
		{"suspended assignee", services.CreateTaskInput{Title: "x", AssignedToID: &suspended.ID}, "Assignee account is suspended"},
		{"bad priority", services.CreateTaskInput{Title: "x", Priority: "SOON"}, "Invalid priority"},
		{"team outside org", services.CreateTaskInput{Title: "x", TeamID: testutil.Ptr("t")}, "Teams require an organization context"},
		{"individual shared", services.CreateTaskInput{Title: "x", Visibility: models.VisibilityOrganization}, "Individual tasks are always private"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.tasks.Create(ctx, caps, tc.in)
			if !apperr.Is(err, apperr.KindBadRequest) {
				t.Fatalf("err = %v, want BadRequest", err)
			}
			if err.Error() != tc.msg {
				t.Errorf("message = %q, want %q", err.Error(), tc.msg)
			}
		})
	}

	var count int64
	e.db.Model(&models.Task{}).Count(&count)
	if count != 0 {
		t.Errorf("tasks created despite validation errors: %d", count)
	}
}

func TestTitleLength_CountsCharacters(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	a := e.fx.CreateUser("a@example.com", models.RoleUser)
	caps := testutil.Caps(a, nil)

	// 200 three-byte runes is 600 bytes but still within the limit.
	wide := strings.Repeat("任", 200)
	res, err := e.tasks.Create(ctx, caps, services.CreateTaskInput{Title: wide})
	if err != nil {
		t.Fatalf("Create 200-rune title: %v", err)
	}
	task := res.Task
	if task.Title != wide {
		t.Errorf("title = %q, want %q", task.Title, wide)
	}

	over := strings.Repeat("任", 201)
	if _, err := e.tasks.Create(ctx, caps, services.CreateTaskInput{Title: over}); !apperr.Is(err, apperr.KindBadRequest) {
		t.Errorf("Create 201-rune title err = %v, want BadRequest", err)
	}

	short := strings.Repeat("é", 150)
	if _, err := e.tasks.Update(ctx, caps, task.ID, services.UpdateTaskInput{Title: &short}); err != nil {
		t.Errorf("Update 150-rune title: %v", err)
	}
	if _, err := e.tasks.Update(ctx, caps, task.ID, services.UpdateTaskInput{Title: &over}); !apperr.Is(err, apperr.KindBadRequest) {
		t.Errorf("Update 201-rune title err = %v, want BadRequest", err)
	}
	if got := e.reloadTask(t, task.ID); got.Title != short {
		t.Errorf("stored title = %q, want %q", got.Title, short)
	}
}

func TestCreate_InOrganizationTeam(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	w := buildOrgWorld(t, e)

	caps := testutil.Caps(w.bob, &w.org.ID, w.team.ID)
	result, err := e.tasks.Create(ctx, caps, services.CreateTaskInput{
		Title:      "team work",
		TeamID:     &w.team.ID,
		Visibility: models.VisibilityTeam,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if result.Task.OrganizationID == nil || *result.Task.OrganizationID != w.org.ID {
		t.Errorf("organization id = %v", result.Task.OrganizationID)
	}

	_, err = e.tasks.Create(ctx, testutil.Caps(w.carol, &w.org.ID), services.CreateTaskInput{
		Title:  "not my team",
		TeamID: &w.team.ID,
	})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("non-member team task err = %v, want Forbidden", err)
	}

	_, err = e.tasks.Create(ctx, caps, services.CreateTaskInput{Title: "no team", Visibility: models.VisibilityTeam})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Errorf("team visibility without team err = %v, want BadRequest", err)
	}
}

func TestUpdate_SelfAssignmentSuppressesNotification(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	a := e.fx.CreateUser("a@example.com", models.RoleUser)
	b := e.fx.CreateUser("b@example.com", models.RoleUser)
	task := e.fx.CreateTask(models.Task{Title: "T", CreatorID: a.ID, AssignedToID: &b.ID})

	result, err := e.tasks.Update(ctx, testutil.Caps(a, nil), task.ID, services.UpdateTaskInput{AssignedToID: &a.ID})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if result.SendNotificationTo != nil {
		t.Errorf("SendNotificationTo = %v, want nil", *result.SendNotificationTo)
	}
	if n := e.notificationCount(t, a.ID); n != 0 {
		t.Errorf("notifications for a = %d, want 0", n)
	}

	rows := e.historyFor(t, task.ID, models.HistoryAssigned)
	if len(rows) != 1 {
		t.Fatalf("assigned history rows = %d, want 1", len(rows))
	}
	if rows[0].OldValue == nil || *rows[0].OldValue != b.ID || rows[0].NewValue == nil || *rows[0].NewValue != a.ID {
		t.Errorf("assigned history = %v -> %v", rows[0].OldValue, rows[0].NewValue)
	}
}

func TestUpdate_UnchangedAssigneeDoesNotNotify(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	a := e.fx.CreateUser("a@example.com", models.RoleUser)
	b := e.fx.CreateUser("b@example.com", models.RoleUser)
	task := e.fx.CreateTask(models.Task{Title: "T", CreatorID: a.ID, AssignedToID: &b.ID})

	title := "renamed"
	status := models.StatusInProgress
	_, err := e.tasks.Update(ctx, testutil.Caps(a, nil), task.ID, services.UpdateTaskInput{
		Title:        &title,
		Status:       &status,
		AssignedToID: &b.ID,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if n := e.notificationCount(t, b.ID); n != 0 {
		t.Errorf("notifications for b = %d, want 0", n)
	}
	if rows := e.historyFor(t, task.ID, models.HistoryAssigned); len(rows) != 0 {
		t.Errorf("assigned history rows = %d, want 0", len(rows))
	}

	rows := e.historyFor(t, task.ID, models.HistoryStatusChanged)
	if len(rows) != 1 {
		t.Fatalf("status history rows = %d, want 1", len(rows))
	}
	if *rows[0].OldValue != string(models.StatusTodo) || *rows[0].NewValue != string(models.StatusInProgress) {
		t.Errorf("status history = %s -> %s", *rows[0].OldValue, *rows[0].NewValue)
	}

	got := e.reloadTask(t, task.ID)
	if got.Title != "renamed" || got.Status != models.StatusInProgress {
		t.Errorf("task after update = %+v", got)
	}
}

func TestUpdate_ReassignNotifiesNewAssignee(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	a := e.fx.CreateUser("a@example.com", models.RoleUser)
	b := e.fx.CreateUser("b@example.com", models.RoleUser)
	c := e.fx.CreateUser("c@example.com", models.RoleUser)
	task := e.fx.CreateTask(models.Task{Title: "T", CreatorID: a.ID, AssignedToID: &b.ID})

	// The assignee may hand the task on.
	result, err := e.tasks.Update(ctx, testutil.Caps(b, nil), task.ID, services.UpdateTaskInput{AssignedToID: &c.ID})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if result.SendNotificationTo == nil || *result.SendNotificationTo != c.ID {
		t.Errorf("SendNotificationTo = %v, want %s", result.SendNotificationTo, c.ID)
	}
	if n := e.notificationCount(t, c.ID); n != 1 {
		t.Errorf("notifications for c = %d, want 1", n)
	}

	// Unassigning notifies nobody but is still history.
	empty := ""
	if _, err := e.tasks.Update(ctx, testutil.Caps(a, nil), task.ID, services.UpdateTaskInput{AssignedToID: &empty}); err != nil {
		t.Fatalf("Update unassign: %v", err)
	}
	if got := e.reloadTask(t, task.ID); got.AssignedToID != nil {
		t.Errorf("assignee after unassign = %v", *got.AssignedToID)
	}
	if rows := e.historyFor(t, task.ID, models.HistoryAssigned); len(rows) != 2 {
		t.Errorf("assigned history rows = %d, want 2", len(rows))
	}
	if n := e.notificationCount(t, a.ID) + e.notificationCount(t, b.ID); n != 0 {
		t.Errorf("unexpected notifications = %d", n)
	}
}

func TestUpdate_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	a := e.fx.CreateUser("a@example.com", models.RoleUser)
	stranger := e.fx.CreateUser("s@example.com", models.RoleUser)
	task := e.fx.CreateTask(models.Task{Title: "T", CreatorID: a.ID})

	title := "x"
	if _, err := e.tasks.Update(ctx, testutil.Caps(a, nil), "missing", services.UpdateTaskInput{Title: &title}); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("missing task err = %v, want NotFound", err)
	}
	if _, err := e.tasks.Update(ctx, testutil.Caps(stranger, nil), task.ID, services.UpdateTaskInput{Title: &title}); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("stranger err = %v, want Forbidden", err)
	}
	if _, err := e.tasks.Update(ctx, testutil.Caps(a, nil), task.ID, services.UpdateTaskInput{AssignedToID: testutil.Ptr("ghost")}); !apperr.Is(err, apperr.KindBadRequest) {
		t.Errorf("unknown assignee err = %v, want BadRequest", err)
	}
}

func TestUpdate_TeamLeaderMayEdit(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	w := buildOrgWorld(t, e)

	// "team for dave" was created by bob in alice's team.
	task := w.tasks[4]
	lead := testutil.Caps(w.alice, &w.org.ID, w.team.ID)
	lead.LedTeamIDs = []string{w.team.ID}

	priority := models.PriorityUrgent
	if _, err := e.tasks.Update(ctx, lead, task.ID, services.UpdateTaskInput{Priority: &priority}); err != nil {
		t.Fatalf("leader Update: %v", err)
	}
	if got := e.reloadTask(t, task.ID); got.Priority != models.PriorityUrgent {
		t.Errorf("priority = %s", got.Priority)
	}
}

func TestDelete_CreatorOnly(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	a := e.fx.CreateUser("a@example.com", models.RoleUser)
	b := e.fx.CreateUser("b@example.com", models.RoleUser)
	c := e.fx.CreateUser("c@example.com", models.RoleUser)

	result, err := e.tasks.Create(ctx, testutil.Caps(a, nil), services.CreateTaskInput{Title: "T", AssignedToID: &b.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := result.Task.ID

	if err := e.tasks.Delete(ctx, testutil.Caps(c, nil), id); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("stranger delete err = %v, want Forbidden", err)
	}
	if err := e.tasks.Delete(ctx, testutil.Caps(b, nil), id); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("assignee delete err = %v, want Forbidden", err)
	}

	notificationsBefore := e.notificationCount(t, b.ID)
	if err := e.tasks.Delete(ctx, testutil.Caps(a, nil), id); err != nil {
		t.Fatalf("creator delete: %v", err)
	}
	if _, err := e.tasks.GetByID(ctx, testutil.Caps(a, nil), id); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("GetByID after delete err = %v, want NotFound", err)
	}
	if err := e.tasks.Delete(ctx, testutil.Caps(a, nil), id); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("second delete err = %v, want NotFound", err)
	}

	var historyRows int64
	e.db.Model(&models.TaskHistory{}).Where("task_id = ?", id).Count(&historyRows)
	if historyRows != 0 {
		t.Errorf("history rows after delete = %d, want 0", historyRows)
	}
	if n := e.notificationCount(t, b.ID); n != notificationsBefore {
		t.Errorf("delete produced notifications: %d -> %d", notificationsBefore, n)
	}
}

func TestGetByID_HiddenTaskIsForbidden(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	w := buildOrgWorld(t, e)

	_, err := e.tasks.GetByID(ctx, testutil.Caps(w.carol, &w.org.ID), w.tasks[0].ID)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("err = %v, want Forbidden", err)
	}

	history, err := e.tasks.History(ctx, testutil.Caps(w.alice, &w.org.ID), w.tasks[0].ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("fixture task history = %d entries, want 0", len(history))
	}
}
