// Package identity derives the stable metering key for a request: the user id
// for authenticated callers, a one-way hash of the client IP otherwise.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UnknownIP is the bucket shared by all anonymous traffic whose address
// cannot be determined. Collapsing those callers onto one identifier is an
// accepted degradation, not an error.
const UnknownIP = "unknown"

// Resolve returns the metering identifier for a caller. Authenticated users
// map to "user:<id>" regardless of address; anonymous callers map to
// "ip:<sha256 hex>" so raw IPs are never stored at rest.
func Resolve(userID uint, clientIP string) string {
	if userID != 0 {
		return fmt.Sprintf("user:%d", userID)
	}
	ip := clientIP
	if ip == "" {
		ip = UnknownIP
	}
	sum := sha256.Sum256([]byte(ip))
	return "ip:" + hex.EncodeToString(sum[:])
}

// ClientIP extracts the caller address from proxy headers: first value of
// X-Forwarded-For, then X-Real-IP, else UnknownIP.
func ClientIP(c *fiber.Ctx) string {
	if fwd := strings.TrimSpace(c.Get("X-Forwarded-For")); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(c.Get("X-Real-IP")); real != "" {
		return real
	}
	return UnknownIP
}
