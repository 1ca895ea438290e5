package billing

import (
	"strings"

	"github.com/pokevisor/pokevisor/internal/pkg/entitlements"
)

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// isEntitlingStatus reports whether a subscription in this status still
// grants the paid tier. past_due keeps access during the grace window.
func isEntitlingStatus(status string) bool {
	switch normalizeStatus(status) {
	case "active", "trialing", "past_due":
		return true
	default:
		return false
	}
}

// planOf maps a subscription's stored plan string to a tier.
func planOf(plan string) entitlements.Plan {
	return entitlements.NormalizePlan(plan)
}
