package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pokevisor/pokevisor/app/models"
)

// pokedexRepository implements the PokedexRepository interface
type pokedexRepository struct {
	db *gorm.DB
}

// NewPokedexRepository creates a new pokedex repository instance
func NewPokedexRepository(db *gorm.DB) PokedexRepository {
	return &pokedexRepository{db: db}
}

// RecordCapture upserts the (user, pokemon) entry. A repeat capture bumps
// times_scanned and last_seen_at and refreshes the capture metadata; the
// first capture inserts the row as-is.
func (r *pokedexRepository) RecordCapture(ctx context.Context, entry *models.PokedexEntry) (*models.PokedexEntry, error) {
	entry.LastSeenAt = time.Now()
	if entry.TimesScanned == 0 {
		entry.TimesScanned = 1
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "pokemon_id"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"times_scanned": gorm.Expr("times_scanned + 1"),
			"last_seen_at":  entry.LastSeenAt,
			"sprite_url":    entry.SpriteURL,
			"capture_key":   entry.CaptureKey,
			"latitude":      entry.Latitude,
			"longitude":     entry.Longitude,
		}),
	}).Create(entry).Error
	if err != nil {
		return nil, err
	}

	var stored models.PokedexEntry
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND pokemon_id = ?", entry.UserID, entry.PokemonID).
		First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListByUser returns all captures for a user, newest sighting first.
func (r *pokedexRepository) ListByUser(ctx context.Context, userID uint) ([]models.PokedexEntry, error) {
	var entries []models.PokedexEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_seen_at DESC").
		Find(&entries).Error
	return entries, err
}
