package billing

import (
	"testing"

	"github.com/pokevisor/pokevisor/internal/pkg/entitlements"
)

func TestIsEntitlingStatus(t *testing.T) {
	for _, status := range []string{"active", "trialing", "past_due", "ACTIVE", " past_due "} {
		if !isEntitlingStatus(status) {
			t.Fatalf("expected status %q to be entitling", status)
		}
	}
	for _, status := range []string{"canceled", "incomplete", "expired", "paused", ""} {
		if isEntitlingStatus(status) {
			t.Fatalf("expected status %q to be non-entitling", status)
		}
	}
}

func TestPlanOf(t *testing.T) {
	tests := []struct {
		in   string
		want entitlements.Plan
	}{
		{in: "pro", want: entitlements.PlanPro},
		{in: "PRO", want: entitlements.PlanPro},
		{in: "free", want: entitlements.PlanFree},
		{in: "enterprise", want: entitlements.PlanFree},
		{in: "", want: entitlements.PlanFree},
	}

	for _, tt := range tests {
		if got := planOf(tt.in); got != tt.want {
			t.Fatalf("planOf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
