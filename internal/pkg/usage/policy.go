// Package usage implements the server-side metering core: the pure quota
// policy and the service that applies it atomically against the usage store.
package usage

import (
	"time"

	"github.com/pokevisor/pokevisor/app/models"
	"github.com/pokevisor/pokevisor/internal/pkg/entitlements"
)

// Action is a metered operation kind.
type Action string

const (
	ActionScan        Action = "scan"
	ActionDescription Action = "description"
)

// RejectCode identifies which ceiling a rejected action hit.
type RejectCode string

const (
	CodeDailyLimit   RejectCode = "DAILY_LIMIT"
	CodeTotalLimit   RejectCode = "TOTAL_LIMIT"
	CodeMonthlyLimit RejectCode = "MONTHLY_LIMIT"
)

// rejectMessages is the single place user-facing quota texts live; handlers
// look the message up through the Decision instead of inlining copies.
var rejectMessages = map[RejectCode]string{
	CodeDailyLimit:   "Daily identification limit reached. Upgrade to PRO to continue.",
	CodeTotalLimit:   "Lifetime scan limit reached. Upgrade to PRO to continue.",
	CodeMonthlyLimit: "Monthly description limit reached. Upgrade to PRO to continue.",
}

// Decision is the outcome of a quota evaluation.
type Decision struct {
	Allowed bool
	Code    RejectCode
	Message string
}

func allowed() Decision {
	return Decision{Allowed: true}
}

func rejected(code RejectCode) Decision {
	return Decision{Code: code, Message: rejectMessages[code]}
}

// Evaluate decides whether one more unit of action fits under the tier's
// ceilings, reading the record through its lazy-reset view for "now". It
// never mutates the record; persisting a reset is the commit path's job.
//
// For scans the daily ceiling is checked before the lifetime one: daily
// exhaustion is the common case and the more actionable message.
func Evaluate(rec *models.UsageRecord, plan entitlements.Plan, now time.Time, action Action) Decision {
	limits := entitlements.LimitsFor(plan)

	switch action {
	case ActionDescription:
		if !limits.MonthlyDescriptions.Allows(rec.EffectiveMonthlyDescriptions(now)) {
			return rejected(CodeMonthlyLimit)
		}
	default:
		if !limits.DailyScans.Allows(rec.EffectiveDailyScans(now)) {
			return rejected(CodeDailyLimit)
		}
		if !limits.TotalScanned.Allows(rec.TotalScanned) {
			return rejected(CodeTotalLimit)
		}
	}
	return allowed()
}
