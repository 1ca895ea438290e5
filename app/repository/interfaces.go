package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/pokevisor/pokevisor/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByOAuthSubject(provider, subject string) (*models.User, error)
	Update(user *models.User) error
	TouchLastLogin(id uint) error
}

// UsageRepository is the persistence boundary of the usage core. Mutate is
// the single atomic read-modify-write primitive: it loads (or lazily creates)
// the row for identifier under a row lock, invokes fn on it, and persists the
// result in the same transaction. Two concurrent Mutate calls for one
// identifier are serialized by the lock, which is what makes cadence resets
// and limit re-checks race-free.
type UsageRepository interface {
	Get(ctx context.Context, identifier string) (*models.UsageRecord, error)
	Mutate(ctx context.Context, identifier string, now time.Time, fn func(*models.UsageRecord) error) (*models.UsageRecord, error)
}

// PokedexRepository defines the interface for per-user capture records
type PokedexRepository interface {
	RecordCapture(ctx context.Context, entry *models.PokedexEntry) (*models.PokedexEntry, error)
	ListByUser(ctx context.Context, userID uint) ([]models.PokedexEntry, error)
}

// Repositories holds all repository instances
type Repositories struct {
	User    UserRepository
	Usage   UsageRepository
	Pokedex PokedexRepository
}

// NewRepositories creates all repositories with the given database connection
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Usage:   NewUsageRepository(db),
		Pokedex: NewPokedexRepository(db),
	}
}
