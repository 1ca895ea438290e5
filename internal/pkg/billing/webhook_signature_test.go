package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"
)

const testWebhookSecret = "whsec_test_secret"

func signPayload(t *testing.T, payload []byte, secret string, ts time.Time) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyStripeWebhookSignatureValid(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	header := signPayload(t, payload, testWebhookSecret, now)

	if !VerifyStripeWebhookSignature(payload, header, testWebhookSecret, now, DefaultSignatureTolerance) {
		t.Fatalf("expected a valid signature to verify")
	}
}

func TestVerifyStripeWebhookSignatureWrongSecret(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt_1"}`)
	header := signPayload(t, payload, "whsec_other", now)

	if VerifyStripeWebhookSignature(payload, header, testWebhookSecret, now, DefaultSignatureTolerance) {
		t.Fatalf("expected a signature from another secret to fail")
	}
}

func TestVerifyStripeWebhookSignatureTamperedPayload(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	header := signPayload(t, []byte(`{"id":"evt_1"}`), testWebhookSecret, now)

	if VerifyStripeWebhookSignature([]byte(`{"id":"evt_2"}`), header, testWebhookSecret, now, DefaultSignatureTolerance) {
		t.Fatalf("expected a tampered payload to fail")
	}
}

func TestVerifyStripeWebhookSignatureStaleTimestamp(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt_1"}`)
	header := signPayload(t, payload, testWebhookSecret, now.Add(-10*time.Minute))

	if VerifyStripeWebhookSignature(payload, header, testWebhookSecret, now, DefaultSignatureTolerance) {
		t.Fatalf("expected a replayed timestamp outside the window to fail")
	}
}

func TestVerifyStripeWebhookSignatureSecondCandidateMatches(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt_1"}`)
	valid := signPayload(t, payload, testWebhookSecret, now)
	header := fmt.Sprintf("t=%d,v1=%s,%s", now.Unix(), hex.EncodeToString(make([]byte, 32)), valid[len(fmt.Sprintf("t=%d,", now.Unix())):])

	if !VerifyStripeWebhookSignature(payload, header, testWebhookSecret, now, DefaultSignatureTolerance) {
		t.Fatalf("expected verification to accept any matching v1 candidate")
	}
}

func TestVerifyStripeWebhookSignatureMalformedHeaders(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt_1"}`)

	for _, header := range []string{
		"",
		"v1=deadbeef",
		"t=notanumber,v1=deadbeef",
		fmt.Sprintf("t=%d", now.Unix()),
		fmt.Sprintf("t=%d,v1=zznothex", now.Unix()),
	} {
		if VerifyStripeWebhookSignature(payload, header, testWebhookSecret, now, DefaultSignatureTolerance) {
			t.Fatalf("expected malformed header %q to fail", header)
		}
	}
}

func TestVerifyStripeWebhookSignatureEmptySecret(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt_1"}`)
	header := signPayload(t, payload, "", now)

	if VerifyStripeWebhookSignature(payload, header, "", now, DefaultSignatureTolerance) {
		t.Fatalf("expected verification without a configured secret to fail")
	}
}
