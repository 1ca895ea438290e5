package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pokevisor/pokevisor/app/models"
	"github.com/pokevisor/pokevisor/internal/pkg/entitlements"
)

// Service provides provider-neutral billing synchronization and plan
// resolution. The usage core only ever reads the tier it resolves; all
// writes originate from the webhook sync path.
type Service struct {
	repo Repository
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// SyncSubscription upserts provider subscription data keyed by the provider
// subscription id.
func (s *Service) SyncSubscription(ctx context.Context, in NormalizedSubscription) (*models.Subscription, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if in.UserID == 0 || provider == "" || strings.TrimSpace(in.ProviderSubscriptionID) == "" {
		return nil, errors.New("user_id, provider and provider_subscription_id are required")
	}

	status := normalizeStatus(in.Status)
	if status == "" {
		status = models.SubscriptionStatusActive
	}
	plan := string(planOf(in.Plan))

	sub := &models.Subscription{
		UserID:                 in.UserID,
		Provider:               provider,
		ProviderSubscriptionID: strings.TrimSpace(in.ProviderSubscriptionID),
		ProviderCustomerID:     strings.TrimSpace(in.ProviderCustomerID),
		Plan:                   plan,
		Status:                 status,
		CurrentPeriodEnd:       in.CurrentPeriodEnd,
	}
	if err := s.repo.UpsertSubscription(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// UpdateSubscriptionStatus applies a status change to an already-known
// subscription. Unknown subscriptions are ignored, matching how providers
// redeliver events for customers that were never synced here.
func (s *Service) UpdateSubscriptionStatus(ctx context.Context, provider, providerSubscriptionID, status string, periodEnd *time.Time) error {
	_ = ctx
	sub, err := s.repo.GetSubscriptionByProviderID(strings.ToLower(strings.TrimSpace(provider)), strings.TrimSpace(providerSubscriptionID))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	sub.Status = normalizeStatus(status)
	if periodEnd != nil {
		sub.CurrentPeriodEnd = periodEnd
	}
	return s.repo.UpsertSubscription(sub)
}

// ResolvePlan computes the effective tier for a user: pro iff any
// subscription with an entitling status carries the pro plan. Anonymous
// callers (userID zero) are always free.
func (s *Service) ResolvePlan(ctx context.Context, userID uint) (entitlements.Plan, error) {
	_ = ctx
	if userID == 0 {
		return entitlements.PlanFree, nil
	}

	subs, err := s.repo.ListSubscriptionsByUser(userID)
	if err != nil {
		return entitlements.PlanFree, err
	}

	for _, sub := range subs {
		if isEntitlingStatus(sub.Status) && planOf(sub.Plan) == entitlements.PlanPro {
			return entitlements.PlanPro, nil
		}
	}
	return entitlements.PlanFree, nil
}

// RecordWebhookEvent persists webhook payloads idempotently. The boolean
// reports whether this delivery was the first one seen.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.WebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}
