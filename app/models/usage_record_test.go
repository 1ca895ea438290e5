package models

import (
	"testing"
	"time"
)

var recNow = time.Date(2025, 6, 15, 23, 30, 0, 0, time.UTC)

func TestUsageDayAndMonthAreUTC(t *testing.T) {
	// 23:30 UTC-5 is already the next day in UTC.
	local := time.Date(2025, 6, 15, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	if got := UsageDay(local); got != "2025-06-16" {
		t.Fatalf("UsageDay = %q, want 2025-06-16", got)
	}
	if got := UsageMonth(time.Date(2025, 6, 30, 23, 0, 0, 0, time.FixedZone("EST", -5*3600))); got != "2025-07" {
		t.Fatalf("UsageMonth = %q, want 2025-07", got)
	}
}

func TestNewUsageRecordStamps(t *testing.T) {
	rec := NewUsageRecord("user:1", recNow)
	if rec.Identifier != "user:1" {
		t.Fatalf("identifier = %q", rec.Identifier)
	}
	if rec.DailyScans != 0 || rec.TotalScanned != 0 || rec.MonthlyDescriptions != 0 {
		t.Fatalf("expected zero counters, got %+v", rec)
	}
	if rec.LastResetDate != "2025-06-15" || rec.LastResetMonth != "2025-06" {
		t.Fatalf("unexpected stamps %q %q", rec.LastResetDate, rec.LastResetMonth)
	}
}

func TestEffectiveCountersSameDay(t *testing.T) {
	rec := NewUsageRecord("user:1", recNow)
	rec.DailyScans = 4
	rec.MonthlyDescriptions = 2

	if got := rec.EffectiveDailyScans(recNow); got != 4 {
		t.Fatalf("EffectiveDailyScans = %d, want 4", got)
	}
	if got := rec.EffectiveMonthlyDescriptions(recNow); got != 2 {
		t.Fatalf("EffectiveMonthlyDescriptions = %d, want 2", got)
	}
}

func TestEffectiveCountersAfterBoundary(t *testing.T) {
	rec := NewUsageRecord("user:1", recNow)
	rec.DailyScans = 4
	rec.MonthlyDescriptions = 2

	nextDay := recNow.Add(24 * time.Hour)
	if got := rec.EffectiveDailyScans(nextDay); got != 0 {
		t.Fatalf("EffectiveDailyScans after boundary = %d, want 0", got)
	}
	// Same month, monthly counter survives the day boundary.
	if got := rec.EffectiveMonthlyDescriptions(nextDay); got != 2 {
		t.Fatalf("EffectiveMonthlyDescriptions = %d, want 2", got)
	}

	nextMonth := time.Date(2025, 7, 1, 0, 0, 1, 0, time.UTC)
	if got := rec.EffectiveMonthlyDescriptions(nextMonth); got != 0 {
		t.Fatalf("EffectiveMonthlyDescriptions after month boundary = %d, want 0", got)
	}
}

func TestApplyResetsNoChangeSameDay(t *testing.T) {
	rec := NewUsageRecord("user:1", recNow)
	rec.DailyScans = 4

	if rec.ApplyResets(recNow) {
		t.Fatalf("expected no reset within the same day")
	}
	if rec.DailyScans != 4 {
		t.Fatalf("counter changed without a boundary: %d", rec.DailyScans)
	}
}

func TestApplyResetsDayBoundary(t *testing.T) {
	rec := NewUsageRecord("user:1", recNow)
	rec.DailyScans = 4
	rec.TotalScanned = 9
	rec.MonthlyDescriptions = 2

	nextDay := recNow.Add(24 * time.Hour)
	if !rec.ApplyResets(nextDay) {
		t.Fatalf("expected a reset at the day boundary")
	}
	if rec.DailyScans != 0 {
		t.Fatalf("daily counter = %d, want 0", rec.DailyScans)
	}
	if rec.TotalScanned != 9 {
		t.Fatalf("lifetime counter must never reset, got %d", rec.TotalScanned)
	}
	if rec.MonthlyDescriptions != 2 {
		t.Fatalf("monthly counter reset at a day boundary: %d", rec.MonthlyDescriptions)
	}
	if rec.LastResetDate != UsageDay(nextDay) {
		t.Fatalf("stamp not advanced: %q", rec.LastResetDate)
	}
}

func TestApplyResetsMonthBoundary(t *testing.T) {
	rec := NewUsageRecord("user:1", recNow)
	rec.DailyScans = 4
	rec.MonthlyDescriptions = 2

	nextMonth := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	if !rec.ApplyResets(nextMonth) {
		t.Fatalf("expected a reset at the month boundary")
	}
	if rec.DailyScans != 0 || rec.MonthlyDescriptions != 0 {
		t.Fatalf("expected both cadence counters to reset, got %+v", rec)
	}
	if rec.LastResetMonth != "2025-07" {
		t.Fatalf("month stamp not advanced: %q", rec.LastResetMonth)
	}
}
