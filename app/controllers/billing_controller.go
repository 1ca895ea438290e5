package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pokevisor/pokevisor/app/models"
	"github.com/pokevisor/pokevisor/internal/pkg/billing"
	"github.com/pokevisor/pokevisor/internal/pkg/database"
	"github.com/pokevisor/pokevisor/internal/pkg/env"
	"github.com/pokevisor/pokevisor/internal/pkg/usercontext"
)

// stripeEvent is the envelope shape of provider webhook deliveries.
type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type stripeCheckoutSession struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	Metadata          map[string]string `json:"metadata"`
}

type stripeSubscription struct {
	ID               string            `json:"id"`
	Customer         string            `json:"customer"`
	Status           string            `json:"status"`
	CurrentPeriodEnd int64             `json:"current_period_end"`
	Metadata         map[string]string `json:"metadata"`
}

// HandleCreateCheckout starts a pro-plan checkout for the logged-in user and
// returns the hosted payment URL.
func HandleCreateCheckout(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	if userID == 0 {
		return jsonError(c, fiber.StatusUnauthorized, "Login required")
	}

	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:3000"), "/")
	client := billing.NewCheckoutClientFromEnv()
	session, err := client.CreateCheckoutSession(c.Context(), userID, base+"/upgrade/success", base+"/upgrade/cancelled")
	if err != nil {
		log.Printf("checkout session failed for user %d: %v", userID, err)
		return jsonError(c, fiber.StatusBadGateway, "Could not start checkout")
	}

	return c.JSON(fiber.Map{
		"session_id":   session.ID,
		"checkout_url": session.URL,
	})
}

// HandleBillingWebhook ingests provider webhooks. Deliveries are verified
// against the endpoint secret, stored idempotently, and then applied to the
// local subscription state. Redelivered events acknowledge without reapplying.
func HandleBillingWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	if !billing.VerifyStripeWebhookSignature(payload, c.Get("Stripe-Signature"), secret, time.Now(), billing.DefaultSignatureTolerance) {
		return jsonError(c, fiber.StatusBadRequest, "Invalid webhook signature")
	}

	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid webhook payload")
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	firstDelivery, stored, err := svc.RecordWebhookEvent(c.Context(), billing.WebhookEventInput{
		Provider:        billing.ProviderStripe,
		ProviderEventID: event.ID,
		EventType:       event.Type,
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	})
	if err != nil {
		log.Printf("webhook persist failed for event %s: %v", event.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "Webhook processing failed")
	}
	if !firstDelivery {
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	processErr := applyBillingEvent(c.Context(), svc, &event)
	if err := svc.MarkWebhookProcessed(c.Context(), stored.ID, processErr); err != nil {
		log.Printf("failed to mark webhook %s processed: %v", event.ID, err)
	}
	if processErr != nil {
		log.Printf("webhook %s (%s) failed: %v", event.ID, event.Type, processErr)
		return jsonError(c, fiber.StatusInternalServerError, "Webhook processing failed")
	}

	return c.JSON(fiber.Map{"received": true})
}

func applyBillingEvent(ctx context.Context, svc *billing.Service, event *stripeEvent) error {
	switch event.Type {
	case "checkout.session.completed":
		var session stripeCheckoutSession
		if err := json.Unmarshal(event.Data.Object, &session); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		userID := webhookUserID(session.ClientReferenceID, session.Metadata)
		if userID == 0 {
			return fmt.Errorf("checkout session %s has no user reference", session.ID)
		}
		if session.Subscription == "" {
			return fmt.Errorf("checkout session %s has no subscription", session.ID)
		}
		_, err := svc.SyncSubscription(ctx, billing.NormalizedSubscription{
			UserID:                 userID,
			Provider:               billing.ProviderStripe,
			ProviderSubscriptionID: session.Subscription,
			ProviderCustomerID:     session.Customer,
			Plan:                   "pro",
			Status:                 models.SubscriptionStatusActive,
		})
		return err

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripeSubscription
		if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		status := sub.Status
		if event.Type == "customer.subscription.deleted" {
			status = models.SubscriptionStatusCanceled
		}
		var periodEnd *time.Time
		if sub.CurrentPeriodEnd > 0 {
			t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
			periodEnd = &t
		}
		return svc.UpdateSubscriptionStatus(ctx, billing.ProviderStripe, sub.ID, status, periodEnd)
	}

	// Unhandled event types are acknowledged so the provider stops retrying.
	return nil
}

func webhookUserID(clientReferenceID string, metadata map[string]string) uint {
	for _, raw := range []string{clientReferenceID, metadata["user_id"]} {
		if raw == "" {
			continue
		}
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil && id > 0 {
			return uint(id)
		}
	}
	return 0
}
