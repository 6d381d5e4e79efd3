// middleware/auth.go
package middleware

import (
	"errors"
	"strings"

	"taskhub/apperr"
	"taskhub/models"
	"taskhub/policy"
	"taskhub/services"
	"taskhub/utils"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by Auth.
const (
	LocalUserID = "userId"
	LocalCaps   = "caps"
	LocalUser   = "user"
)

// OrganizationHeader selects the active organization. Without it the request
// runs in individual mode.
const OrganizationHeader = "X-Organization-ID"

// Auth verifies the bearer token, loads the user and resolves the caller's
// capabilities for the organization named in OrganizationHeader.
func Auth(tokens *utils.TokenIssuer, access *services.AccessService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := fiberToken(c)
		if tokenString == "" {
			return unauthorized(c, "Missing authorization token")
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		orgID := strings.TrimSpace(c.Get(OrganizationHeader))
		if orgID == "" {
			orgID = c.Query("organizationId")
		}

		caps, user, err := access.Resolve(c.UserContext(), claims.UserID, orgID)
		if err != nil {
			var appErr *apperr.Error
			if errors.As(err, &appErr) {
				return c.Status(appErr.Status()).JSON(fiber.Map{"success": false, "error": appErr.Message})
			}
			return err
		}

		c.Locals(LocalUserID, caps.UserID)
		c.Locals(LocalCaps, caps)
		c.Locals(LocalUser, user)
		return c.Next()
	}
}

// RequireRole rejects callers below min in the role hierarchy. It must run after Auth.
func RequireRole(min models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !policy.HasMinRole(Caps(c), min) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "Access denied. " + string(min) + " privileges required.",
			})
		}
		return c.Next()
	}
}

// Caps returns the capabilities stored by Auth, or the zero value.
func Caps(c *fiber.Ctx) policy.Capabilities {
	caps, _ := c.Locals(LocalCaps).(policy.Capabilities)
	return caps
}

func GetUserID(c *fiber.Ctx) (string, error) {
	userID, ok := c.Locals(LocalUserID).(string)
	if !ok || userID == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "User not authenticated")
	}
	return userID, nil
}

// GetUser returns the user loaded by Auth.
func GetUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(LocalUser).(*models.User)
	return user
}

// fiberToken mirrors utils.BearerToken for fiber requests: header first, then
// the query parameter and cookie browsers use for websocket upgrades.
func fiberToken(c *fiber.Ctx) string {
	if token := utils.ParseBearer(c.Get(fiber.HeaderAuthorization)); token != "" {
		return token
	}
	if token := c.Query("token"); token != "" {
		return token
	}
	return c.Cookies("token")
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": message})
}

// AuditActor identifies the caller for audit entries.
func AuditActor(c *fiber.Ctx) services.AuditActor {
	caps := Caps(c)
	return services.AuditActor{
		ID:        caps.UserID,
		Email:     caps.Email,
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}
