// services/ai_service.go - task operations exposed as assistant functions
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"taskhub/apperr"
	"taskhub/logging"
	"taskhub/models"
	"taskhub/policy"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AIContext is the caller on whose behalf a function runs.
type AIContext struct {
	UserID         string      `json:"userId"`
	OrganizationID *string     `json:"organizationId,omitempty"`
	TeamIDs        []string    `json:"teamIds,omitempty"`
	Role           models.Role `json:"role"`
}

func (c AIContext) capabilities() policy.Capabilities {
	return policy.Capabilities{
		UserID:         c.UserID,
		Role:           c.Role,
		OrganizationID: c.OrganizationID,
		TeamIDs:        c.TeamIDs,
	}
}

// FunctionResult is the only shape ExecuteFunction ever returns.
type FunctionResult struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// FunctionDeclaration describes one callable function to the model.
type FunctionDeclaration struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  interface{} `json:"parameters"`
}

type AIService struct {
	db        *gorm.DB
	log       *zap.Logger
	tasks     *TaskService
	analytics *AnalyticsService
}

func NewAIService(db *gorm.DB, log *zap.Logger, tasks *TaskService, analytics *AnalyticsService) *AIService {
	return &AIService{db: db, log: logging.OrNop(log), tasks: tasks, analytics: analytics}
}

// ExecuteFunction dispatches name with args. It never returns an error or
// panics: every failure becomes a FunctionResult with Success false. Each
// call is recorded in the AI interaction log.
func (s *AIService) ExecuteFunction(ctx context.Context, name string, args map[string]interface{}, ac AIContext) (result FunctionResult) {
	if args == nil {
		args = map[string]interface{}{}
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("ai function panicked", zap.String("function", name), zap.Any("panic", r))
			result = FunctionResult{Success: false, Error: fmt.Sprintf("internal error: %v", r)}
		}
		s.record(ctx, name, args, ac, result)
	}()

	data, err := s.dispatch(ctx, name, args, ac)
	if err != nil {
		return FunctionResult{Success: false, Error: err.Error()}
	}
	return FunctionResult{Success: true, Data: data}
}

func (s *AIService) dispatch(ctx context.Context, name string, args map[string]interface{}, ac AIContext) (interface{}, error) {
	switch name {
	case "create_task":
		return s.createTask(ctx, args, ac)
	case "list_tasks":
		return s.listTasks(ctx, args, ac)
	case "update_task":
		return s.updateTask(ctx, args, ac)
	case "delete_task":
		return s.deleteTask(ctx, args, ac)
	case "get_analytics":
		return s.analytics.Dashboard(ctx, ac.capabilities())
	case "search_tasks":
		return s.searchTasks(ctx, args, ac)
	default:
		return nil, fmt.Errorf("Unknown function: %s", name)
	}
}

func (s *AIService) createTask(ctx context.Context, args map[string]interface{}, ac AIContext) (interface{}, error) {
	title := argString(args, "title")
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	in := CreateTaskInput{
		Title:       title,
		Description: argString(args, "description"),
	}
	if v := argString(args, "priority"); v != "" {
		p, ok := models.ParsePriority(v)
		if !ok {
			return nil, fmt.Errorf("invalid priority: %s", v)
		}
		in.Priority = p
	}
	if v := argString(args, "visibility"); v != "" {
		vis, ok := models.ParseVisibility(v)
		if !ok {
			return nil, fmt.Errorf("invalid visibility: %s", v)
		}
		in.Visibility = vis
	}
	if v := argString(args, "dueDate"); v != "" {
		due, err := parseDate(v)
		if err != nil {
			return nil, err
		}
		in.DueDate = &due
	}
	if v := argString(args, "assignedToId"); v != "" {
		in.AssignedToID = &v
	}
	if v := argString(args, "teamId"); v != "" {
		in.TeamID = &v
	}

	return s.tasks.Create(ctx, ac.capabilities(), in)
}

func (s *AIService) listTasks(ctx context.Context, args map[string]interface{}, ac AIContext) (interface{}, error) {
	f := TaskFilter{
		Overdue: argBool(args, "overdue"),
		Limit:   argInt(args, "limit", 20),
	}
	if v := argString(args, "status"); v != "" {
		st, ok := models.ParseStatus(v)
		if !ok {
			return nil, fmt.Errorf("invalid status: %s", v)
		}
		f.Status = st
	}
	if v := argString(args, "priority"); v != "" {
		p, ok := models.ParsePriority(v)
		if !ok {
			return nil, fmt.Errorf("invalid priority: %s", v)
		}
		f.Priority = p
	}
	if argBool(args, "assignedToMe") {
		f.AssignedToID = ac.UserID
	}

	page, err := s.tasks.List(ctx, ac.capabilities(), f)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"tasks": page.Tasks,
		"count": len(page.Tasks),
		"total": page.Total,
	}, nil
}

func (s *AIService) updateTask(ctx context.Context, args map[string]interface{}, ac AIContext) (interface{}, error) {
	task, err := s.ownedTask(ctx, args, ac, "update")
	if err != nil {
		return nil, err
	}

	var in UpdateTaskInput
	if v, ok := args["title"].(string); ok {
		in.Title = &v
	}
	if v, ok := args["description"].(string); ok {
		in.Description = &v
	}
	if v := argString(args, "status"); v != "" {
		st, ok := models.ParseStatus(v)
		if !ok {
			return nil, fmt.Errorf("invalid status: %s", v)
		}
		in.Status = &st
	}
	if v := argString(args, "priority"); v != "" {
		p, ok := models.ParsePriority(v)
		if !ok {
			return nil, fmt.Errorf("invalid priority: %s", v)
		}
		in.Priority = &p
	}
	if v := argString(args, "dueDate"); v != "" {
		due, err := parseDate(v)
		if err != nil {
			return nil, err
		}
		in.DueDate = &due
	}
	if v, ok := args["assignedToId"].(string); ok {
		in.AssignedToID = &v
	}

	return s.tasks.Update(ctx, ac.capabilities(), task.ID, in)
}

func (s *AIService) deleteTask(ctx context.Context, args map[string]interface{}, ac AIContext) (interface{}, error) {
	task, err := s.ownedTask(ctx, args, ac, "delete")
	if err != nil {
		return nil, err
	}
	if err := s.tasks.Delete(ctx, ac.capabilities(), task.ID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"deleted": true, "taskId": task.ID}, nil
}

func (s *AIService) searchTasks(ctx context.Context, args map[string]interface{}, ac AIContext) (interface{}, error) {
	query := argString(args, "query")
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	tasks, err := s.tasks.Search(ctx, ac.capabilities(), query, argInt(args, "limit", 10))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"tasks": tasks, "count": len(tasks)}, nil
}

// ownedTask loads args["taskId"] and requires the caller to be its creator or assignee.
func (s *AIService) ownedTask(ctx context.Context, args map[string]interface{}, ac AIContext, verb string) (*models.Task, error) {
	id := argString(args, "taskId")
	if id == "" {
		return nil, fmt.Errorf("taskId is required")
	}
	task, err := s.tasks.load(ctx, id)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, fmt.Errorf("Task not found")
		}
		return nil, err
	}
	isAssignee := task.AssignedToID != nil && *task.AssignedToID == ac.UserID
	if task.CreatorID != ac.UserID && !isAssignee {
		return nil, fmt.Errorf("Not authorized to %s this task", verb)
	}
	return task, nil
}

func (s *AIService) record(ctx context.Context, name string, args map[string]interface{}, ac AIContext, result FunctionResult) {
	entry := &models.AIInteractionLog{
		UserID: ac.UserID,
		Action: name,
		Error:  result.Error,
	}
	if raw, err := json.Marshal(args); err == nil {
		entry.Params = datatypes.JSON(raw)
	}
	if result.Data != nil {
		if raw, err := json.Marshal(result.Data); err == nil {
			entry.Result = datatypes.JSON(raw)
		}
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.log.Error("ai interaction log write failed",
			zap.Error(err),
			zap.String("function", name),
			zap.String("user_id", ac.UserID))
	}
}

// ================== ARGUMENTS ==================

func argString(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

// argInt accepts JSON numbers (float64) and numeric strings.
func argInt(args map[string]interface{}, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		var n int
		if _, err := fmt.Sscan(v, &n); err == nil {
			return n
		}
	}
	return def
}

func argBool(args map[string]interface{}, key string) bool {
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

func parseDate(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date: %s", v)
}

// ================== DECLARATIONS ==================

func stringProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": desc}
}

func enumProp(desc string, values ...string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": desc, "enum": values}
}

func objectSchema(props map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Functions returns the declarations handed to the language model.
func (s *AIService) Functions() []FunctionDeclaration {
	priorities := []string{"LOW", "MEDIUM", "HIGH", "URGENT"}
	statuses := []string{"TODO", "IN_PROGRESS", "REVIEW", "COMPLETED"}

	return []FunctionDeclaration{
		{
			Name:        "create_task",
			Description: "Create a new task for the current user",
			Parameters: objectSchema(map[string]interface{}{
				"title":        stringProp("Short task title"),
				"description":  stringProp("Longer task description"),
				"priority":     enumProp("Task priority", priorities...),
				"dueDate":      stringProp("Due date, RFC 3339 or YYYY-MM-DD"),
				"assignedToId": stringProp("User id of the assignee"),
				"teamId":       stringProp("Team id inside the active organization"),
				"visibility":   enumProp("Who can see the task", "PRIVATE", "TEAM", "ORGANIZATION"),
			}, "title"),
		},
		{
			Name:        "list_tasks",
			Description: "List tasks visible to the current user",
			Parameters: objectSchema(map[string]interface{}{
				"status":       enumProp("Only tasks with this status", statuses...),
				"priority":     enumProp("Only tasks with this priority", priorities...),
				"overdue":      map[string]interface{}{"type": "boolean", "description": "Only overdue tasks"},
				"assignedToMe": map[string]interface{}{"type": "boolean", "description": "Only tasks assigned to the current user"},
				"limit":        map[string]interface{}{"type": "integer", "description": "Maximum results (default 20)"},
			}),
		},
		{
			Name:        "update_task",
			Description: "Update a task the current user created or is assigned to",
			Parameters: objectSchema(map[string]interface{}{
				"taskId":       stringProp("Id of the task"),
				"title":        stringProp("New title"),
				"description":  stringProp("New description"),
				"status":       enumProp("New status", statuses...),
				"priority":     enumProp("New priority", priorities...),
				"dueDate":      stringProp("New due date, RFC 3339 or YYYY-MM-DD"),
				"assignedToId": stringProp("New assignee id, empty to unassign"),
			}, "taskId"),
		},
		{
			Name:        "delete_task",
			Description: "Delete a task the current user created",
			Parameters: objectSchema(map[string]interface{}{
				"taskId": stringProp("Id of the task"),
			}, "taskId"),
		},
		{
			Name:        "get_analytics",
			Description: "Summary counts of the current user's visible tasks",
			Parameters:  objectSchema(map[string]interface{}{}),
		},
		{
			Name:        "search_tasks",
			Description: "Search visible tasks by title and description",
			Parameters: objectSchema(map[string]interface{}{
				"query": stringProp("Text to search for"),
				"limit": map[string]interface{}{"type": "integer", "description": "Maximum results (default 10)"},
			}, "query"),
		},
	}
}
