package controllers

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/pokevisor/pokevisor/app/models"
	"github.com/pokevisor/pokevisor/app/repository"
	"github.com/pokevisor/pokevisor/internal/pkg/capture"
	"github.com/pokevisor/pokevisor/internal/pkg/identity"
	"github.com/pokevisor/pokevisor/internal/pkg/pokeapi"
	"github.com/pokevisor/pokevisor/internal/pkg/usage"
	"github.com/pokevisor/pokevisor/internal/pkg/usercontext"
	"github.com/pokevisor/pokevisor/internal/pkg/vision"
)

type identifyRequest struct {
	Image string `json:"image"`
}

// minImageLength filters obviously broken payloads before the vision call.
const minImageLength = 100

// HandleIdentify runs one metered identification: advisory quota pre-check,
// vision call, then the authoritative commit. A timeout or provider failure
// never consumes quota; a commit that loses against a concurrent request is
// answered like a plain quota rejection and the vision result is discarded.
func HandleIdentify(c *fiber.Ctx) error {
	var req identifyRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Image == "" {
		return jsonError(c, fiber.StatusBadRequest, "Image is required")
	}
	if len(req.Image) < minImageLength {
		return jsonError(c, fiber.StatusBadRequest, "Invalid image format")
	}

	userCtx := usercontext.GetUserContext(c)
	identifier := identity.Resolve(userCtx.UserID, identity.ClientIP(c))

	usageSvc := usage.GetGlobalService()
	decision, err := usageSvc.ValidateAndCheck(c.Context(), identifier, userCtx.Plan, usage.ActionScan)
	if err != nil {
		// Enforcement reads fail closed: no metering, no scan.
		log.Printf("usage check failed for %s: %v", identifier, err)
		return jsonError(c, fiber.StatusInternalServerError, "Usage check unavailable")
	}
	if !decision.Allowed {
		return jsonQuotaRejected(c, decision)
	}

	ctx, cancel := context.WithTimeout(c.Context(), vision.RequestTimeout)
	defer cancel()

	pokemonName, err := vision.GetGlobalClient().Identify(ctx, req.Image)
	if err != nil {
		if errors.Is(err, vision.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return jsonError(c, fiber.StatusGatewayTimeout, "Identification timed out")
		}
		log.Printf("identification failed for %s: %v", identifier, err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to identify Pokémon")
	}

	counters, err := usageSvc.CommitIncrement(c.Context(), identifier, userCtx.Plan, usage.ActionScan)
	if err != nil {
		var qe *usage.QuotaError
		if errors.As(err, &qe) {
			return jsonQuotaRejected(c, qe.Decision)
		}
		log.Printf("usage commit failed for %s: %v", identifier, err)
		return jsonError(c, fiber.StatusInternalServerError, "Usage commit unavailable")
	}

	if userCtx.IsLoggedIn && pokemonName != vision.NameUnknown {
		recordPokedexCapture(c.Context(), userCtx.UserID, pokemonName, req.Image)
	}

	return c.JSON(fiber.Map{
		"pokemon_name": pokemonName,
		"usage": fiber.Map{
			"daily_scans":   counters.DailyScans,
			"total_scanned": counters.TotalScanned,
		},
	})
}

// recordPokedexCapture upserts the user's pokedex entry and, when the
// archive is configured, stores the downscaled photo. Strictly best-effort:
// the identification already succeeded and was billed.
func recordPokedexCapture(ctx context.Context, userID uint, pokemonName, imageBase64 string) {
	p, err := pokeapi.NewClientFromEnv().GetPokemon(ctx, pokemonName)
	if err != nil {
		log.Printf("pokedex lookup for %q failed: %v", pokemonName, err)
		return
	}

	entry := &models.PokedexEntry{
		UserID:      userID,
		PokemonID:   p.ID,
		PokemonName: p.Name,
		SpriteURL:   p.Sprites.FrontDefault,
	}

	if archiver := capture.GetArchiver(); archiver != nil {
		if photo, decErr := decodeImagePayload(imageBase64); decErr == nil {
			if capt, upErr := archiver.Store(ctx, userID, photo); upErr == nil {
				entry.CaptureKey = capt.Key
				entry.Latitude = capt.Latitude
				entry.Longitude = capt.Longitude
			} else {
				log.Printf("capture archive failed for user %d: %v", userID, upErr)
			}
		}
	}

	if _, err := repository.GetGlobalFactory().GetPokedexRepository().RecordCapture(ctx, entry); err != nil {
		log.Printf("pokedex record failed for user %d: %v", userID, err)
	}
}
