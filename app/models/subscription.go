package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

// Subscription mirrors the billing provider's subscription object for one
// user. The usage core only ever reads the resolved status; all writes come
// from the webhook sync path.
type Subscription struct {
	ID                     uint           `gorm:"primaryKey" json:"id"`
	UserID                 uint           `gorm:"index;not null" json:"user_id"`
	Provider               string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_provider_sub,priority:1" json:"provider"`
	ProviderSubscriptionID string         `gorm:"type:varchar(191);not null;uniqueIndex:idx_provider_sub,priority:2" json:"provider_subscription_id"`
	ProviderCustomerID     string         `gorm:"type:varchar(191)" json:"provider_customer_id"`
	Plan                   string         `gorm:"type:varchar(50);default:'free'" json:"plan"`
	Status                 string         `gorm:"type:varchar(50);default:'active'" json:"status"`
	CurrentPeriodEnd       *time.Time     `json:"current_period_end"`
	CreatedAt              time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"-"`
}
