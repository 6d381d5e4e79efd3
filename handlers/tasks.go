// handlers/tasks.go - task CRUD, search and history
package handlers

import (
	"strings"
	"time"

	"taskhub/apperr"
	"taskhub/middleware"
	"taskhub/models"
	"taskhub/services"

	"github.com/gofiber/fiber/v2"
)

type CreateTaskRequest struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	DueDate      *string `json:"dueDate"`
	Priority     string  `json:"priority"`
	Status       string  `json:"status"`
	AssignedToID *string `json:"assignedToId"`
	TeamID       *string `json:"teamId"`
	Visibility   string  `json:"visibility"`
}

// UpdateTaskRequest changes only the fields present. An empty dueDate,
// assignedToId or teamId clears the value.
type UpdateTaskRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	DueDate      *string `json:"dueDate"`
	Priority     *string `json:"priority"`
	Status       *string `json:"status"`
	AssignedToID *string `json:"assignedToId"`
	TeamID       *string `json:"teamId"`
	Visibility   *string `json:"visibility"`
}

// parseDueDate accepts RFC 3339 timestamps and plain dates.
func parseDueDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return &t, nil
	}
	return nil, apperr.BadRequest("Invalid due date")
}

// ListTasks returns the caller's visible tasks, filtered and paginated.
// GET /api/tasks
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	f := services.TaskFilter{
		Status:       models.TaskStatus(strings.ToUpper(c.Query("status"))),
		Priority:     models.Priority(strings.ToUpper(c.Query("priority"))),
		AssignedToID: c.Query("assignedToId"),
		CreatorID:    c.Query("creatorId"),
		TeamID:       c.Query("teamId"),
		Overdue:      c.QueryBool("overdue", false),
		Search:       c.Query("search"),
		SortBy:       c.Query("sortBy"),
		SortOrder:    c.Query("sortOrder"),
		Page:         c.QueryInt("page", 1),
		Limit:        c.QueryInt("limit", 20),
	}
	page, err := h.Tasks.List(c.UserContext(), middleware.Caps(c), f)
	if err != nil {
		return err
	}
	return ok(c, page)
}

// GET /api/tasks/search?q=
func (h *Handlers) SearchTasks(c *fiber.Ctx) error {
	tasks, err := h.Tasks.Search(c.UserContext(), middleware.Caps(c), c.Query("q"), c.QueryInt("limit", 20))
	if err != nil {
		return err
	}
	return ok(c, tasks)
}

// GET /api/tasks/:id
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	task, err := h.Tasks.GetByID(c.UserContext(), middleware.Caps(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, task)
}

// GET /api/tasks/:id/history
func (h *Handlers) GetTaskHistory(c *fiber.Ctx) error {
	history, err := h.Tasks.History(c.UserContext(), middleware.Caps(c), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, history)
}

// CreateTask creates a task in the caller's active organization, or a
// private task in individual mode.
// POST /api/tasks
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	in := services.CreateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		Priority:     models.Priority(strings.ToUpper(req.Priority)),
		Status:       models.TaskStatus(strings.ToUpper(req.Status)),
		AssignedToID: req.AssignedToID,
		TeamID:       req.TeamID,
		Visibility:   models.Visibility(strings.ToUpper(req.Visibility)),
	}
	if req.DueDate != nil && strings.TrimSpace(*req.DueDate) != "" {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			return err
		}
		in.DueDate = due
	}

	result, err := h.Tasks.Create(c.UserContext(), middleware.Caps(c), in)
	if err != nil {
		return err
	}
	return created(c, result)
}

// PUT /api/tasks/:id
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	var req UpdateTaskRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	in := services.UpdateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		AssignedToID: req.AssignedToID,
		TeamID:       req.TeamID,
	}
	if req.DueDate != nil {
		if strings.TrimSpace(*req.DueDate) == "" {
			in.ClearDueDate = true
		} else {
			due, err := parseDueDate(*req.DueDate)
			if err != nil {
				return err
			}
			in.DueDate = due
		}
	}
	if req.Priority != nil {
		p := models.Priority(strings.ToUpper(*req.Priority))
		in.Priority = &p
	}
	if req.Status != nil {
		s := models.TaskStatus(strings.ToUpper(*req.Status))
		in.Status = &s
	}
	if req.Visibility != nil {
		v := models.Visibility(strings.ToUpper(*req.Visibility))
		in.Visibility = &v
	}

	result, err := h.Tasks.Update(c.UserContext(), middleware.Caps(c), c.Params("id"), in)
	if err != nil {
		return err
	}
	return ok(c, result)
}

// DELETE /api/tasks/:id
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	if err := h.Tasks.Delete(c.UserContext(), middleware.Caps(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Task deleted"})
}
