package models

import (
	"time"
)

// WebhookEvent stores every billing webhook delivery exactly once, keyed by
// the provider event id, so redeliveries never replay subscription changes.
type WebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_provider_event,priority:1" json:"provider"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;uniqueIndex:idx_provider_event,priority:2" json:"provider_event_id"`
	EventType       string     `gorm:"type:varchar(100)" json:"event_type"`
	PayloadJSON     string     `gorm:"type:mediumtext" json:"-"`
	SignatureValid  bool       `gorm:"default:false" json:"signature_valid"`
	ProcessedAt     *time.Time `json:"processed_at"`
	ProcessingError string     `gorm:"type:text" json:"-"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
