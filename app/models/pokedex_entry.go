package models

import (
	"time"

	"gorm.io/gorm"
)

// PokedexEntry is one distinct species captured by an authenticated user.
// TimesScanned counts repeat identifications of the same species, while
// the lifetime counter in UsageRecord counts every scan, so the two
// numbers can differ.
type PokedexEntry struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"not null;uniqueIndex:idx_user_pokemon,priority:1" json:"user_id"`
	PokemonID    int            `gorm:"not null;uniqueIndex:idx_user_pokemon,priority:2" json:"pokemon_id"`
	PokemonName  string         `gorm:"type:varchar(100);not null" json:"pokemon_name"`
	SpriteURL    string         `gorm:"type:varchar(255)" json:"sprite_url"`
	CaptureKey   string         `gorm:"type:varchar(100)" json:"capture_key"`
	Latitude     *float64       `json:"latitude"`
	Longitude    *float64       `json:"longitude"`
	TimesScanned int            `gorm:"not null;default:1" json:"times_scanned"`
	FirstSeenAt  time.Time      `gorm:"autoCreateTime" json:"first_seen_at"`
	LastSeenAt   time.Time      `json:"last_seen_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (PokedexEntry) TableName() string {
	return "pokedex_entries"
}
