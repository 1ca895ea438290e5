package controllers

import (
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pokevisor/pokevisor/internal/pkg/usage"
)

// jsonError writes the uniform error envelope used by every API handler.
func jsonError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// jsonQuotaRejected answers a denied metered action: HTTP 429 with the
// machine-readable code and the upgrade hint the client renders.
func jsonQuotaRejected(c *fiber.Ctx, d usage.Decision) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error":   d.Message,
		"code":    d.Code,
		"upgrade": true,
	})
}

// decodeImagePayload turns the posted base64 image into raw bytes,
// tolerating a data-URL prefix.
func decodeImagePayload(imageBase64 string) ([]byte, error) {
	raw := imageBase64
	if idx := strings.Index(raw, ","); idx != -1 && strings.HasPrefix(raw, "data:") {
		raw = raw[idx+1:]
	}
	return base64.StdEncoding.DecodeString(raw)
}
