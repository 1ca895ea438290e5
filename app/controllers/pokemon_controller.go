package controllers

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/pokevisor/pokevisor/internal/pkg/entitlements"
	"github.com/pokevisor/pokevisor/internal/pkg/identity"
	"github.com/pokevisor/pokevisor/internal/pkg/pokeapi"
	"github.com/pokevisor/pokevisor/internal/pkg/usage"
	"github.com/pokevisor/pokevisor/internal/pkg/usercontext"
	"github.com/pokevisor/pokevisor/internal/pkg/vision"
)

// HandleGetPokemon serves combined species data for one Pokémon. The free
// tier only sees the original species range; everything above the ceiling
// asks for an upgrade.
func HandleGetPokemon(c *fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return jsonError(c, fiber.StatusBadRequest, "Pokémon name is required")
	}

	client := pokeapi.NewClientFromEnv()
	pokemon, err := client.GetPokemon(c.Context(), name)
	if err != nil {
		if errors.Is(err, pokeapi.ErrNotFound) {
			return jsonError(c, fiber.StatusNotFound, "Pokémon not found")
		}
		log.Printf("pokeapi lookup for %q failed: %v", name, err)
		return jsonError(c, fiber.StatusBadGateway, "Pokémon data unavailable")
	}

	plan := usercontext.GetPlan(c)
	if !entitlements.CanAccessPokemonID(plan, pokemon.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "This Pokémon is only available on the PRO plan.",
			"code":    "PRO_REQUIRED",
			"upgrade": true,
		})
	}

	species, err := client.GetSpecies(c.Context(), pokemon.ID)
	if err != nil {
		log.Printf("species lookup for id %d failed: %v", pokemon.ID, err)
		return jsonError(c, fiber.StatusBadGateway, "Pokémon data unavailable")
	}

	var chain *pokeapi.EvolutionChain
	if chainID := pokeapi.IDFromChainURL(species.EvolutionChain.URL); chainID != 0 {
		chain, err = client.GetEvolutionChain(c.Context(), chainID)
		if err != nil {
			// Evolution data is decorative; serve the rest without it.
			log.Printf("evolution chain %d lookup failed: %v", chainID, err)
			chain = nil
		}
	}

	return c.JSON(fiber.Map{
		"pokemon":         pokemon,
		"species":         species,
		"evolution_chain": chain,
	})
}

// HandleListPokemon serves the paginated species index, clamped to the
// tier's species ceiling.
func HandleListPokemon(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "151"))
	if err != nil || limit <= 0 || limit > 500 {
		return jsonError(c, fiber.StatusBadRequest, "Invalid limit")
	}
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		return jsonError(c, fiber.StatusBadRequest, "Invalid offset")
	}

	plan := usercontext.GetPlan(c)
	if max, capped := entitlements.LimitsFor(plan).MaxPokemonID.Value(); capped {
		if offset >= max {
			return c.JSON(fiber.Map{"results": []pokeapi.ListItem{}, "count": max})
		}
		if offset+limit > max {
			limit = max - offset
		}
	}

	items, count, err := pokeapi.NewClientFromEnv().List(c.Context(), limit, offset)
	if err != nil {
		log.Printf("pokemon list failed: %v", err)
		return jsonError(c, fiber.StatusBadGateway, "Pokémon data unavailable")
	}

	if max, capped := entitlements.LimitsFor(plan).MaxPokemonID.Value(); capped {
		filtered := items[:0]
		for _, it := range items {
			if it.ID <= max {
				filtered = append(filtered, it)
			}
		}
		items = filtered
		if count > max {
			count = max
		}
	}

	return c.JSON(fiber.Map{"results": items, "count": count})
}

// HandleDescribe runs one metered description generation. Mirrors the
// identify flow: advisory pre-check, bounded external call, authoritative
// commit. A generator timeout returns 504 and never consumes quota.
func HandleDescribe(c *fiber.Ctx) error {
	var req vision.DescriptionData
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validator.New().Struct(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Missing required fields")
	}

	userCtx := usercontext.GetUserContext(c)
	identifier := identity.Resolve(userCtx.UserID, identity.ClientIP(c))

	usageSvc := usage.GetGlobalService()
	decision, err := usageSvc.ValidateAndCheck(c.Context(), identifier, userCtx.Plan, usage.ActionDescription)
	if err != nil {
		log.Printf("usage check failed for %s: %v", identifier, err)
		return jsonError(c, fiber.StatusInternalServerError, "Usage check unavailable")
	}
	if !decision.Allowed {
		return jsonQuotaRejected(c, decision)
	}

	ctx, cancel := context.WithTimeout(c.Context(), vision.RequestTimeout)
	defer cancel()

	description, err := vision.GetGlobalClient().Describe(ctx, req)
	if err != nil {
		if errors.Is(err, vision.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return jsonError(c, fiber.StatusGatewayTimeout, "Description generation timed out")
		}
		log.Printf("description failed for %s: %v", identifier, err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to generate description")
	}

	counters, err := usageSvc.CommitIncrement(c.Context(), identifier, userCtx.Plan, usage.ActionDescription)
	if err != nil {
		var qe *usage.QuotaError
		if errors.As(err, &qe) {
			return jsonQuotaRejected(c, qe.Decision)
		}
		log.Printf("usage commit failed for %s: %v", identifier, err)
		return jsonError(c, fiber.StatusInternalServerError, "Usage commit unavailable")
	}

	return c.JSON(fiber.Map{
		"description": description,
		"usage": fiber.Map{
			"monthly_descriptions": counters.MonthlyDescriptions,
		},
	})
}
