package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/pokevisor/pokevisor/app/models"
	"github.com/pokevisor/pokevisor/app/repository"
	"github.com/pokevisor/pokevisor/internal/pkg/billing"
	"github.com/pokevisor/pokevisor/internal/pkg/database"
	"github.com/pokevisor/pokevisor/internal/pkg/entitlements"
	"github.com/pokevisor/pokevisor/internal/pkg/session"
	"github.com/pokevisor/pokevisor/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the session to a user and a plan tier and
// attaches both to the request. Anonymous requests get the free tier.
// Resolution failures degrade to anonymous instead of failing the request;
// the usage core then meters by hashed IP.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := session.GetUserID(c)
		if userID == 0 {
			usercontext.SetUserContext(c, usercontext.UserContext{Plan: entitlements.PlanFree})
			return c.Next()
		}

		repo := repository.GetGlobalFactory().GetUserRepository()
		user, err := repo.GetByID(userID)
		if err != nil || user.Status != models.STATUS_ACTIVE {
			usercontext.SetUserContext(c, usercontext.UserContext{Plan: entitlements.PlanFree})
			return c.Next()
		}

		plan, err := billing.NewServiceFromDB(database.GetDB()).ResolvePlan(c.Context(), user.ID)
		if err != nil {
			log.Printf("plan resolution failed for user %d: %v", user.ID, err)
			plan = entitlements.PlanFree
		}

		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     user.ID,
			Username:   user.Name,
			IsLoggedIn: true,
			IsAdmin:    user.Role == models.ROLE_ADMIN,
			Plan:       plan,
		})
		return c.Next()
	}
}
