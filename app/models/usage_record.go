package models

import (
	"time"
)

// UsageRecord is the server-side source of truth for metered consumption.
// One row exists per metering identifier ("user:<id>" or "ip:<sha256>").
type UsageRecord struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	Identifier          string    `gorm:"uniqueIndex;type:varchar(80)" json:"identifier"`
	DailyScans          int       `gorm:"not null;default:0" json:"daily_scans"`
	TotalScanned        int       `gorm:"not null;default:0" json:"total_scanned"`
	MonthlyDescriptions int       `gorm:"not null;default:0" json:"monthly_descriptions"`
	LastResetDate       string    `gorm:"type:char(10)" json:"last_reset_date"`
	LastResetMonth      string    `gorm:"type:char(7)" json:"last_reset_month"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName keeps the short table name used by the migrations.
func (UsageRecord) TableName() string {
	return "usage_records"
}

// UsageDay formats t as the UTC calendar date stamp stored in LastResetDate.
func UsageDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// UsageMonth formats t as the UTC calendar month stamp stored in LastResetMonth.
func UsageMonth(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// NewUsageRecord returns a zero-counter record stamped with the current day
// and month. Used when an identifier is seen for the first time.
func NewUsageRecord(identifier string, now time.Time) *UsageRecord {
	return &UsageRecord{
		Identifier:     identifier,
		LastResetDate:  UsageDay(now),
		LastResetMonth: UsageMonth(now),
	}
}

// EffectiveDailyScans returns the daily counter as it should be read at the
// given instant: zero if the stored value belongs to an earlier day. The
// record itself is not mutated; persistence of the reset happens on commit.
func (u *UsageRecord) EffectiveDailyScans(now time.Time) int {
	if u.LastResetDate != UsageDay(now) {
		return 0
	}
	return u.DailyScans
}

// EffectiveMonthlyDescriptions is the monthly analogue of EffectiveDailyScans.
func (u *UsageRecord) EffectiveMonthlyDescriptions(now time.Time) int {
	if u.LastResetMonth != UsageMonth(now) {
		return 0
	}
	return u.MonthlyDescriptions
}

// ApplyResets zeroes any counter whose cadence boundary has been crossed and
// moves the reset stamps forward. Callers must hold the row lock so that a
// reset can never race with a concurrent increment. Returns true if anything
// changed.
func (u *UsageRecord) ApplyResets(now time.Time) bool {
	changed := false
	if day := UsageDay(now); u.LastResetDate != day {
		u.DailyScans = 0
		u.LastResetDate = day
		changed = true
	}
	if month := UsageMonth(now); u.LastResetMonth != month {
		u.MonthlyDescriptions = 0
		u.LastResetMonth = month
		changed = true
	}
	return changed
}
