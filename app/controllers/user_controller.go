package controllers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/pokevisor/pokevisor/app/repository"
	"github.com/pokevisor/pokevisor/internal/pkg/entitlements"
	"github.com/pokevisor/pokevisor/internal/pkg/identity"
	"github.com/pokevisor/pokevisor/internal/pkg/usage"
	"github.com/pokevisor/pokevisor/internal/pkg/usercontext"
)

// HandleGetUsage returns the caller's effective counters for display. This
// endpoint never blocks the UI on an infrastructure fault: a failed store
// read degrades to zeroed counters, unlike the enforcement path which fails
// closed.
func HandleGetUsage(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	identifier := identity.Resolve(userCtx.UserID, identity.ClientIP(c))

	counters, err := usage.GetGlobalService().Snapshot(c.Context(), identifier)
	if err != nil {
		log.Printf("usage snapshot failed for %s: %v", identifier, err)
		counters = usage.Counters{}
	}

	return c.JSON(fiber.Map{
		"daily_scans":          counters.DailyScans,
		"total_scanned":        counters.TotalScanned,
		"monthly_descriptions": counters.MonthlyDescriptions,
	})
}

// HandleGetPlan returns the resolved tier for the caller plus its limits so
// the client can render remaining-quota UI without hardcoding ceilings.
func HandleGetPlan(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	source := "anonymous"
	if userCtx.IsLoggedIn {
		source = "subscription"
	}

	return c.JSON(fiber.Map{
		"plan":   userCtx.Plan,
		"source": source,
		"limits": entitlements.LimitsFor(userCtx.Plan),
	})
}

// HandleGetPokedex lists the authenticated user's captured species.
func HandleGetPokedex(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "login required")
	}

	repo := repository.GetGlobalFactory().GetPokedexRepository()
	entries, err := repo.ListByUser(c.Context(), userCtx.UserID)
	if err != nil {
		log.Printf("pokedex list failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load pokedex")
	}

	return c.JSON(fiber.Map{
		"entries": entries,
		"count":   len(entries),
	})
}
