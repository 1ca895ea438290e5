package entitlements

import (
	"encoding/json"
	"strings"
)

type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// NormalizePlan maps arbitrary plan strings to a known Plan, defaulting to free.
func NormalizePlan(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanPro):
		return PlanPro
	default:
		return PlanFree
	}
}

// Limit is a numeric ceiling that can also be "no limit". The unlimited case
// is a distinct state rather than a large number, so it can never be
// compared or serialized as a real ceiling by accident.
type Limit struct {
	unlimited bool
	cap       int
}

// Cap returns a finite limit of n.
func Cap(n int) Limit {
	return Limit{cap: n}
}

// Unlimited returns the no-limit sentinel.
func Unlimited() Limit {
	return Limit{unlimited: true}
}

// IsUnlimited reports whether the limit imposes no ceiling.
func (l Limit) IsUnlimited() bool {
	return l.unlimited
}

// Value returns the finite cap and true, or 0 and false when unlimited.
func (l Limit) Value() (int, bool) {
	if l.unlimited {
		return 0, false
	}
	return l.cap, true
}

// Allows reports whether one more unit on top of current fits under the limit.
func (l Limit) Allows(current int) bool {
	return l.unlimited || current < l.cap
}

// Remaining returns how many units are left under the limit; unlimited
// reports 0 and false.
func (l Limit) Remaining(current int) (int, bool) {
	if l.unlimited {
		return 0, false
	}
	left := l.cap - current
	if left < 0 {
		left = 0
	}
	return left, true
}

// MarshalJSON serializes a finite cap as its number and unlimited as null.
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.unlimited {
		return []byte("null"), nil
	}
	return json.Marshal(l.cap)
}

// Limits bundles every ceiling attached to a plan tier.
type Limits struct {
	DailyScans          Limit `json:"daily_scans"`
	TotalScanned        Limit `json:"total_scanned"`
	MonthlyDescriptions Limit `json:"monthly_descriptions"`
	MaxPokemonID        Limit `json:"max_pokemon_id"`
}

// Free-tier constants. The species ceiling covers the original 151.
var freeLimits = Limits{
	DailyScans:          Cap(10),
	TotalScanned:        Cap(50),
	MonthlyDescriptions: Cap(20),
	MaxPokemonID:        Cap(151),
}

var proLimits = Limits{
	DailyScans:          Unlimited(),
	TotalScanned:        Unlimited(),
	MonthlyDescriptions: Unlimited(),
	MaxPokemonID:        Unlimited(),
}

// LimitsFor returns the ceilings for a plan tier. Pure lookup, no side effects.
func LimitsFor(plan Plan) Limits {
	if plan == PlanPro {
		return proLimits
	}
	return freeLimits
}

// CanAccessPokemonID reports whether a tier may view the given species id.
func CanAccessPokemonID(plan Plan, id int) bool {
	limit := LimitsFor(plan).MaxPokemonID
	if limit.IsUnlimited() {
		return true
	}
	max, _ := limit.Value()
	return id <= max
}
