package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/pokevisor/pokevisor/app/models"
	"github.com/pokevisor/pokevisor/app/repository"
	"github.com/pokevisor/pokevisor/internal/pkg/cache"
	"github.com/pokevisor/pokevisor/internal/pkg/entitlements"
)

const snapshotTTL = 24 * time.Hour

// QuotaError reports a commit that lost the race against a concurrent
// committer: the pre-check passed but the authoritative re-check inside the
// store transaction did not. The external action's result must be discarded.
type QuotaError struct {
	Decision Decision
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded: %s", e.Decision.Code)
}

// Counters is the post-operation view returned to callers so they can report
// fresh remaining-quota figures without a second read.
type Counters struct {
	DailyScans          int `json:"daily_scans"`
	TotalScanned        int `json:"total_scanned"`
	MonthlyDescriptions int `json:"monthly_descriptions"`
}

// Service orchestrates the identity key, the usage store and the quota
// policy behind two operations: an advisory pre-check and an authoritative
// atomic commit.
type Service struct {
	repo repository.UsageRepository
	now  func() time.Time
}

// NewService creates a usage service from an injected repository.
func NewService(repo repository.UsageRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// NewServiceFromDB creates a usage service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(repository.NewUsageRepository(db))
}

var (
	globalService   *Service
	globalServiceMu sync.RWMutex
)

// SetGlobalService installs the process-wide usage service used by handlers.
func SetGlobalService(s *Service) {
	globalServiceMu.Lock()
	defer globalServiceMu.Unlock()
	globalService = s
}

// GetGlobalService returns the process-wide usage service.
func GetGlobalService() *Service {
	globalServiceMu.RLock()
	defer globalServiceMu.RUnlock()
	return globalService
}

// WithClock overrides the time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ValidateAndCheck evaluates the quota policy against the current stored
// counters without writing anything. A store failure is returned as an error
// so enforcement paths fail closed; callers on display-only paths may choose
// to degrade instead. The check is advisory: a passing result must still be
// confirmed by CommitIncrement after the external action succeeds.
func (s *Service) ValidateAndCheck(ctx context.Context, identifier string, plan entitlements.Plan, action Action) (Decision, error) {
	now := s.now()
	rec, err := s.repo.Get(ctx, identifier)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = models.NewUsageRecord(identifier, now)
	} else if err != nil {
		return Decision{}, fmt.Errorf("usage lookup for %s: %w", identifier, err)
	}
	return Evaluate(rec, plan, now, action), nil
}

// CommitIncrement records one successful metered action. It runs as a single
// atomic read-modify-write: under the row lock it persists any pending
// cadence reset, re-verifies the limit, and only then increments - a scan
// bumps both the daily and lifetime counters, a description bumps the
// monthly one. When a concurrent commit already consumed the last unit the
// re-check fails and a *QuotaError is returned; nothing is written in that
// case.
func (s *Service) CommitIncrement(ctx context.Context, identifier string, plan entitlements.Plan, action Action) (Counters, error) {
	now := s.now()
	rec, err := s.repo.Mutate(ctx, identifier, now, func(rec *models.UsageRecord) error {
		rec.ApplyResets(now)
		if d := Evaluate(rec, plan, now, action); !d.Allowed {
			return &QuotaError{Decision: d}
		}
		if action == ActionDescription {
			rec.MonthlyDescriptions++
		} else {
			rec.DailyScans++
			rec.TotalScanned++
		}
		return nil
	})
	if err != nil {
		var qe *QuotaError
		if errors.As(err, &qe) {
			return Counters{}, qe
		}
		return Counters{}, fmt.Errorf("usage commit for %s: %w", identifier, err)
	}

	s.cacheSnapshot(rec)
	return countersOf(rec, now), nil
}

// Snapshot returns the effective counters for display, trying the Redis
// mirror first and falling back to the store. The mirror is advisory only;
// it is refreshed on every commit and never consulted for enforcement.
func (s *Service) Snapshot(ctx context.Context, identifier string) (Counters, error) {
	now := s.now()

	if raw, err := cache.Get(snapshotKey(identifier)); err == nil {
		var rec models.UsageRecord
		if jsonErr := json.Unmarshal([]byte(raw), &rec); jsonErr == nil {
			return countersOf(&rec, now), nil
		}
	}

	rec, err := s.repo.Get(ctx, identifier)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Counters{}, nil
	}
	if err != nil {
		return Counters{}, fmt.Errorf("usage snapshot for %s: %w", identifier, err)
	}
	s.cacheSnapshot(rec)
	return countersOf(rec, now), nil
}

func (s *Service) cacheSnapshot(rec *models.UsageRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	// Best effort; the store stays the source of truth.
	_ = cache.Set(snapshotKey(rec.Identifier), data, snapshotTTL)
}

func snapshotKey(identifier string) string {
	return "usage:record:" + identifier
}

func countersOf(rec *models.UsageRecord, now time.Time) Counters {
	return Counters{
		DailyScans:          rec.EffectiveDailyScans(now),
		TotalScanned:        rec.TotalScanned,
		MonthlyDescriptions: rec.EffectiveMonthlyDescriptions(now),
	}
}
