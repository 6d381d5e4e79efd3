// handlers/routes.go - route table for the REST API
package handlers

import (
	"taskhub/handlers/admin"
	"taskhub/middleware"
	"taskhub/models"
	"taskhub/realtime"
	"taskhub/services"
	"taskhub/utils"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
)

// Deps carries what the route table needs besides the REST handlers.
type Deps struct {
	Tokens      *utils.TokenIssuer
	Access      *services.AccessService
	Hub         *realtime.Hub
	AuthLimiter *middleware.RateLimiter
	Admin       *admin.Handlers
}

// Routes registers every endpoint on app.
func (h *Handlers) Routes(app *fiber.App, d Deps) {
	auth := middleware.Auth(d.Tokens, d.Access)

	app.Get("/health", Health)

	// Websocket on the main port; the standalone server on WS_PORT shares the hub
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !fiberws.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	app.Get("/ws", auth, fiberws.New(realtime.FiberHandler(d.Hub, h.Log)))

	api := app.Group("/api")

	// Auth routes with stricter rate limiting
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.FiberRateLimit(d.AuthLimiter, "Too many authentication attempts, please try again later."))
	authGroup.Post("/register", h.Register)
	authGroup.Post("/login", h.Login)

	userGroup := api.Group("/users", auth)
	userGroup.Get("/me", h.GetCurrentUser)
	userGroup.Put("/me", h.UpdateCurrentUser)
	userGroup.Delete("/me", h.DeleteCurrentUser)
	userGroup.Put("/me/password", h.ChangePassword)

	orgGroup := api.Group("/organizations", auth)
	orgGroup.Post("/", h.CreateOrganization)
	orgGroup.Get("/", h.ListOrganizations)
	orgGroup.Get("/:id", h.GetOrganization)
	orgGroup.Get("/:id/members", h.ListOrganizationMembers)
	orgGroup.Post("/:id/members", h.AddOrganizationMember)
	orgGroup.Delete("/:id/members/:userId", h.RemoveOrganizationMember)
	orgGroup.Get("/:orgId/teams", h.ListTeams)
	orgGroup.Post("/:orgId/teams", h.CreateTeam)

	teamGroup := api.Group("/teams", auth)
	teamGroup.Get("/:id", h.GetTeam)
	teamGroup.Put("/:id", h.UpdateTeam)
	teamGroup.Delete("/:id", h.DeleteTeam)
	teamGroup.Get("/:id/members", h.GetTeamMembers)
	teamGroup.Post("/:id/members", h.AddTeamMember)
	teamGroup.Put("/:id/members/:userId", h.ChangeTeamMemberRole)
	teamGroup.Delete("/:id/members/:userId", h.RemoveTeamMember)
	teamGroup.Post("/:id/leave", h.LeaveTeam)

	taskGroup := api.Group("/tasks", auth)
	taskGroup.Get("/", h.ListTasks)
	taskGroup.Post("/", h.CreateTask)
	taskGroup.Get("/search", h.SearchTasks)
	taskGroup.Post("/bulk", middleware.RequireRole(models.RoleManager), h.BulkTasks)
	taskGroup.Post("/bulk/preview", middleware.RequireRole(models.RoleManager), h.PreviewBulkTasks)
	taskGroup.Get("/:id", h.GetTask)
	taskGroup.Put("/:id", h.UpdateTask)
	taskGroup.Delete("/:id", h.DeleteTask)
	taskGroup.Get("/:id/history", h.GetTaskHistory)
	taskGroup.Get("/:id/comments", h.ListComments)
	taskGroup.Post("/:id/comments", h.AddComment)

	commentGroup := api.Group("/comments", auth)
	commentGroup.Put("/:id", h.UpdateComment)
	commentGroup.Delete("/:id", h.DeleteComment)

	notificationGroup := api.Group("/notifications", auth)
	notificationGroup.Get("/", h.ListNotifications)
	notificationGroup.Get("/unread-count", h.UnreadCount)
	notificationGroup.Put("/read-all", h.MarkAllNotificationsRead)
	notificationGroup.Put("/:id/read", h.MarkNotificationRead)
	notificationGroup.Delete("/:id", h.DeleteNotification)

	analyticsGroup := api.Group("/analytics", auth)
	analyticsGroup.Get("/dashboard", h.Dashboard)
	analyticsGroup.Get("/trends", h.Trends)

	aiGroup := api.Group("/ai", auth)
	aiGroup.Get("/functions", h.ListFunctions)
	aiGroup.Post("/execute", h.ExecuteFunction)

	// Protected admin routes
	adminGroup := api.Group("/admin", auth, middleware.RequireRole(models.RoleAdmin))
	adminGroup.Get("/users", d.Admin.GetUsers)
	adminGroup.Post("/users", d.Admin.CreateUser)
	adminGroup.Get("/users/:id", d.Admin.GetUser)
	adminGroup.Put("/users/:id/role", d.Admin.UpdateRole)
	adminGroup.Post("/users/:id/suspend", d.Admin.SuspendUser)
	adminGroup.Post("/users/:id/activate", d.Admin.ActivateUser)
	adminGroup.Put("/users/:id/manager", d.Admin.SetManager)
	adminGroup.Post("/users/:id/reset-password", d.Admin.ResetUserPassword)
	adminGroup.Delete("/users/:id", d.Admin.DeleteUser)
	adminGroup.Get("/audit-logs", d.Admin.GetAuditLogs)
	adminGroup.Get("/audit-logs/:entityType/:entityId", d.Admin.GetEntityHistory)
}
