package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestResolveAuthenticatedUser(t *testing.T) {
	if got := Resolve(42, "203.0.113.7"); got != "user:42" {
		t.Fatalf("Resolve(42, ip) = %q, want user:42", got)
	}
	// The address must not influence an authenticated identifier.
	if Resolve(42, "198.51.100.1") != Resolve(42, "203.0.113.7") {
		t.Fatalf("expected identical identifier for the same user across addresses")
	}
}

func TestResolveAnonymousHashesIP(t *testing.T) {
	got := Resolve(0, "203.0.113.7")

	sum := sha256.Sum256([]byte("203.0.113.7"))
	want := "ip:" + hex.EncodeToString(sum[:])
	if got != want {
		t.Fatalf("Resolve(0, ip) = %q, want %q", got, want)
	}
	if strings.Contains(got, "203.0.113.7") {
		t.Fatalf("raw address leaked into identifier %q", got)
	}
}

func TestResolveAnonymousStable(t *testing.T) {
	if Resolve(0, "203.0.113.7") != Resolve(0, "203.0.113.7") {
		t.Fatalf("expected identical identifier for repeated calls")
	}
	if Resolve(0, "203.0.113.7") == Resolve(0, "203.0.113.8") {
		t.Fatalf("expected distinct identifiers for distinct addresses")
	}
}

func TestResolveUnknownIPBucket(t *testing.T) {
	sum := sha256.Sum256([]byte(UnknownIP))
	want := "ip:" + hex.EncodeToString(sum[:])
	if got := Resolve(0, ""); got != want {
		t.Fatalf("Resolve(0, \"\") = %q, want shared unknown bucket %q", got, want)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "forwarded list takes first entry",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"},
			want:    "203.0.113.7",
		},
		{
			name:    "real ip fallback",
			headers: map[string]string{"X-Real-IP": "198.51.100.4"},
			want:    "198.51.100.4",
		},
		{
			name:    "forwarded wins over real ip",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "198.51.100.4"},
			want:    "203.0.113.7",
		},
		{
			name: "no headers",
			want: UnknownIP,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			var got string
			app.Get("/", func(c *fiber.Ctx) error {
				got = ClientIP(c)
				return c.SendStatus(fiber.StatusOK)
			})

			req := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if _, err := app.Test(req); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
