package entitlements

import (
	"encoding/json"
	"testing"
)

func TestNormalizePlan(t *testing.T) {
	tests := []struct {
		in   string
		want Plan
	}{
		{in: "free", want: PlanFree},
		{in: "pro", want: PlanPro},
		{in: "PRO", want: PlanPro},
		{in: " pro ", want: PlanPro},
		{in: "premium", want: PlanFree},
		{in: "", want: PlanFree},
	}

	for _, tt := range tests {
		if got := NormalizePlan(tt.in); got != tt.want {
			t.Fatalf("NormalizePlan(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLimitAllows(t *testing.T) {
	if !Cap(10).Allows(9) {
		t.Fatalf("expected cap 10 to allow a 10th unit at current 9")
	}
	if Cap(10).Allows(10) {
		t.Fatalf("expected cap 10 to reject an 11th unit at current 10")
	}
	if Cap(10).Allows(15) {
		t.Fatalf("expected cap 10 to reject at current 15")
	}
	if !Unlimited().Allows(1 << 30) {
		t.Fatalf("expected unlimited to allow any current value")
	}
}

func TestLimitRemaining(t *testing.T) {
	if left, ok := Cap(10).Remaining(3); !ok || left != 7 {
		t.Fatalf("Remaining(3) under cap 10 = %d,%v, want 7,true", left, ok)
	}
	if left, ok := Cap(10).Remaining(15); !ok || left != 0 {
		t.Fatalf("Remaining(15) under cap 10 = %d,%v, want 0,true", left, ok)
	}
	if _, ok := Unlimited().Remaining(5); ok {
		t.Fatalf("expected unlimited to report no finite remainder")
	}
}

func TestLimitValue(t *testing.T) {
	if v, ok := Cap(151).Value(); !ok || v != 151 {
		t.Fatalf("Value() = %d,%v, want 151,true", v, ok)
	}
	if _, ok := Unlimited().Value(); ok {
		t.Fatalf("expected unlimited to report no finite value")
	}
}

func TestLimitMarshalJSON(t *testing.T) {
	data, err := json.Marshal(Limits{
		DailyScans:          Cap(10),
		TotalScanned:        Cap(50),
		MonthlyDescriptions: Cap(20),
		MaxPokemonID:        Unlimited(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"daily_scans":10,"total_scanned":50,"monthly_descriptions":20,"max_pokemon_id":null}`
	if string(data) != want {
		t.Fatalf("marshaled limits = %s, want %s", data, want)
	}
}

func TestLimitsFor(t *testing.T) {
	free := LimitsFor(PlanFree)
	if v, _ := free.DailyScans.Value(); v != 10 {
		t.Fatalf("free daily scans = %d, want 10", v)
	}
	if v, _ := free.TotalScanned.Value(); v != 50 {
		t.Fatalf("free lifetime scans = %d, want 50", v)
	}
	if v, _ := free.MonthlyDescriptions.Value(); v != 20 {
		t.Fatalf("free monthly descriptions = %d, want 20", v)
	}
	if v, _ := free.MaxPokemonID.Value(); v != 151 {
		t.Fatalf("free species ceiling = %d, want 151", v)
	}

	pro := LimitsFor(PlanPro)
	if !pro.DailyScans.IsUnlimited() || !pro.TotalScanned.IsUnlimited() ||
		!pro.MonthlyDescriptions.IsUnlimited() || !pro.MaxPokemonID.IsUnlimited() {
		t.Fatalf("expected every pro ceiling to be unlimited")
	}
}

func TestCanAccessPokemonID(t *testing.T) {
	if !CanAccessPokemonID(PlanFree, 151) {
		t.Fatalf("expected free tier to access species 151")
	}
	if CanAccessPokemonID(PlanFree, 152) {
		t.Fatalf("expected free tier to be blocked from species 152")
	}
	if !CanAccessPokemonID(PlanPro, 1025) {
		t.Fatalf("expected pro tier to access any species")
	}
}
