package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pokevisor/pokevisor/internal/pkg/entitlements"
)

// UserContext represents the complete user context for a request
type UserContext struct {
	UserID     uint              `json:"user_id"`
	Username   string            `json:"username"`
	IsLoggedIn bool              `json:"is_logged_in"`
	IsAdmin    bool              `json:"is_admin"`
	Plan       entitlements.Plan `json:"plan"`
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals(KeyUserContext); ctx != nil {
		if uc, ok := ctx.(UserContext); ok {
			return uc
		}
	}
	return UserContext{IsLoggedIn: false, Plan: entitlements.PlanFree}
}

// SetUserContext stores the user context on the request.
func SetUserContext(c *fiber.Ctx, uc UserContext) {
	c.Locals(KeyUserContext, uc)
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}

// GetPlan returns the current user's resolved plan tier.
func GetPlan(c *fiber.Ctx) entitlements.Plan {
	return GetUserContext(c).Plan
}
