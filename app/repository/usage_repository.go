package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pokevisor/pokevisor/app/models"
)

// usageRepository implements UsageRepository on top of GORM/MySQL.
type usageRepository struct {
	db *gorm.DB
}

// NewUsageRepository creates a new usage repository instance
func NewUsageRepository(db *gorm.DB) UsageRepository {
	return &usageRepository{db: db}
}

// Get returns the stored record for identifier, or gorm.ErrRecordNotFound.
// Read-only; no lazy creation and no reset persistence happens here.
func (r *usageRepository) Get(ctx context.Context, identifier string) (*models.UsageRecord, error) {
	var rec models.UsageRecord
	err := r.db.WithContext(ctx).Where("identifier = ?", identifier).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Mutate runs fn against the identifier's row inside one transaction holding
// a SELECT ... FOR UPDATE lock. A missing row is created first with an
// OnConflict DoNothing insert, then re-selected under the lock, so two
// first-time requests for the same identifier cannot both insert. If fn
// returns an error the transaction rolls back and the error is passed
// through unchanged; the caller can use sentinel errors to signal a
// rejected increment without losing the lock semantics.
func (r *usageRepository) Mutate(ctx context.Context, identifier string, now time.Time, fn func(*models.UsageRecord) error) (*models.UsageRecord, error) {
	var out models.UsageRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.UsageRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("identifier = ?", identifier).
			First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fresh := models.NewUsageRecord(identifier, now)
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "identifier"}},
				DoNothing: true,
			}).Create(fresh).Error; err != nil {
				return err
			}
			err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("identifier = ?", identifier).
				First(&rec).Error
		}
		if err != nil {
			return err
		}

		if err := fn(&rec); err != nil {
			return err
		}

		if err := tx.Save(&rec).Error; err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
