package services_test

import (
	"strings"
	"testing"

	"taskhub/models"
	"taskhub/services"
	"taskhub/testutil"
)

func aiContext(u models.User) services.AIContext {
	return services.AIContext{UserID: u.ID, Role: u.Role}
}

func (e *env) aiLogs(t *testing.T, userID string) []models.AIInteractionLog {
	t.Helper()
	var rows []models.AIInteractionLog
	if err := e.db.Where("user_id = ?", userID).Order("created_at").Find(&rows).Error; err != nil {
		t.Fatalf("load ai logs: %v", err)
	}
	return rows
}

func TestAI_UnknownFunction(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	u := e.fx.CreateUser("ai@example.com", models.RoleUser)

	result := e.ai.ExecuteFunction(ctx, "launch_rocket", nil, aiContext(u))
	if result.Success || result.Error != "Unknown function: launch_rocket" {
		t.Errorf("result = %+v", result)
	}

	logs := e.aiLogs(t, u.ID)
	if len(logs) != 1 || logs[0].Action != "launch_rocket" || logs[0].Error == "" {
		t.Errorf("ai logs = %+v", logs)
	}
}

func TestAI_CreateListSearch(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	u := e.fx.CreateUser("ai@example.com", models.RoleUser)
	ac := aiContext(u)

	created := e.ai.ExecuteFunction(ctx, "create_task", map[string]interface{}{
		"title":    "Write quarterly report",
		"priority": "high",
		"dueDate":  "2030-01-15",
	}, ac)
	if !created.Success {
		t.Fatalf("create_task failed: %s", created.Error)
	}
	res := created.Data.(*services.TaskResult)
	if res.Task.Priority != models.PriorityHigh || res.Task.DueDate == nil || res.Task.CreatorID != u.ID {
		t.Errorf("created task = %+v", res.Task)
	}

	listed := e.ai.ExecuteFunction(ctx, "list_tasks", map[string]interface{}{"priority": "HIGH"}, ac)
	if !listed.Success {
		t.Fatalf("list_tasks failed: %s", listed.Error)
	}
	if got := listed.Data.(map[string]interface{})["count"]; got != 1 {
		t.Errorf("list count = %v, want 1", got)
	}

	found := e.ai.ExecuteFunction(ctx, "search_tasks", map[string]interface{}{"query": "quarterly"}, ac)
	if !found.Success {
		t.Fatalf("search_tasks failed: %s", found.Error)
	}
	if got := found.Data.(map[string]interface{})["count"]; got != 1 {
		t.Errorf("search count = %v, want 1", got)
	}

	missing := e.ai.ExecuteFunction(ctx, "search_tasks", map[string]interface{}{}, ac)
	if missing.Success || missing.Error != "query is required" {
		t.Errorf("search without query = %+v", missing)
	}

	if logs := e.aiLogs(t, u.ID); len(logs) != 4 {
		t.Errorf("ai logs = %d, want 4", len(logs))
	}
}

func TestAI_CreateValidation(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	u := e.fx.CreateUser("ai@example.com", models.RoleUser)

	cases := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"no title", map[string]interface{}{}, "title is required"},
		{"bad priority", map[string]interface{}{"title": "x", "priority": "whenever"}, "invalid priority: whenever"},
		{"bad date", map[string]interface{}{"title": "x", "dueDate": "next tuesday"}, "invalid date: next tuesday"},
		{"unknown assignee", map[string]interface{}{"title": "x", "assignedToId": "ghost"}, "Assignee not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := e.ai.ExecuteFunction(ctx, "create_task", tc.args, aiContext(u))
			if result.Success || result.Error != tc.want {
				t.Errorf("result = %+v, want error %q", result, tc.want)
			}
		})
	}
}

func TestAI_UpdateAndDeleteOwnership(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	owner := e.fx.CreateUser("owner@example.com", models.RoleUser)
	assignee := e.fx.CreateUser("assignee@example.com", models.RoleUser)
	stranger := e.fx.CreateUser("stranger@example.com", models.RoleUser)
	task := e.fx.CreateTask(models.Task{Title: "shared", CreatorID: owner.ID, AssignedToID: &assignee.ID})

	denied := e.ai.ExecuteFunction(ctx, "update_task", map[string]interface{}{"taskId": task.ID, "status": "REVIEW"}, aiContext(stranger))
	if denied.Success || denied.Error != "Not authorized to update this task" {
		t.Errorf("stranger update = %+v", denied)
	}

	notFound := e.ai.ExecuteFunction(ctx, "update_task", map[string]interface{}{"taskId": "ghost"}, aiContext(owner))
	if notFound.Success || notFound.Error != "Task not found" {
		t.Errorf("missing task = %+v", notFound)
	}

	updated := e.ai.ExecuteFunction(ctx, "update_task", map[string]interface{}{"taskId": task.ID, "status": "in_progress"}, aiContext(assignee))
	if !updated.Success {
		t.Fatalf("assignee update failed: %s", updated.Error)
	}
	if got := e.reloadTask(t, task.ID); got.Status != models.StatusInProgress {
		t.Errorf("status = %s, want IN_PROGRESS", got.Status)
	}

	deniedDelete := e.ai.ExecuteFunction(ctx, "delete_task", map[string]interface{}{"taskId": task.ID}, aiContext(stranger))
	if deniedDelete.Success || deniedDelete.Error != "Not authorized to delete this task" {
		t.Errorf("stranger delete = %+v", deniedDelete)
	}

	assigneeDelete := e.ai.ExecuteFunction(ctx, "delete_task", map[string]interface{}{"taskId": task.ID}, aiContext(assignee))
	if assigneeDelete.Success || assigneeDelete.Error != "Only the task creator can delete this task" {
		t.Errorf("assignee delete = %+v", assigneeDelete)
	}
	if got := e.reloadTask(t, task.ID); got.ID != task.ID {
		t.Error("assignee delete removed the task")
	}

	deleted := e.ai.ExecuteFunction(ctx, "delete_task", map[string]interface{}{"taskId": task.ID}, aiContext(owner))
	if !deleted.Success {
		t.Fatalf("owner delete failed: %s", deleted.Error)
	}
	var remaining int64
	e.db.Model(&models.Task{}).Where("id = ?", task.ID).Count(&remaining)
	if remaining != 0 {
		t.Error("task still present after delete_task")
	}
}

func TestAI_GetAnalytics(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	u := e.fx.CreateUser("ai@example.com", models.RoleUser)
	e.fx.CreateTask(models.Task{Title: "a", CreatorID: u.ID})
	e.fx.CreateTask(models.Task{Title: "b", CreatorID: u.ID, Status: models.StatusCompleted})

	result := e.ai.ExecuteFunction(ctx, "get_analytics", nil, aiContext(u))
	if !result.Success {
		t.Fatalf("get_analytics failed: %s", result.Error)
	}
	dash := result.Data.(*services.Dashboard)
	if dash.Total != 2 || dash.ByStatus["COMPLETED"] != 1 {
		t.Errorf("dashboard = %+v", dash)
	}
}

func TestAI_FunctionsDeclared(t *testing.T) {
	e := newEnv(t)
	names := map[string]bool{}
	for _, fn := range e.ai.Functions() {
		if fn.Description == "" || fn.Parameters == nil {
			t.Errorf("%s is missing description or parameters", fn.Name)
		}
		names[fn.Name] = true
	}
	for _, want := range []string{"create_task", "list_tasks", "update_task", "delete_task", "get_analytics", "search_tasks"} {
		if !names[want] {
			t.Errorf("missing declaration %s", want)
		}
	}
	if len(names) != 6 {
		t.Errorf("declarations = %s", strings.Join(keys(names), ","))
	}
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
