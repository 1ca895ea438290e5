package usage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pokevisor/pokevisor/app/models"
	"github.com/pokevisor/pokevisor/internal/pkg/entitlements"
)

// memoryUsageRepository mirrors the store contract in memory: Mutate runs fn
// on a private copy under a lock and publishes it only when fn succeeds.
type memoryUsageRepository struct {
	mu      sync.Mutex
	records map[string]models.UsageRecord

	getErr    error
	mutateErr error
}

func newMemoryUsageRepository() *memoryUsageRepository {
	return &memoryUsageRepository{records: make(map[string]models.UsageRecord)}
}

func (r *memoryUsageRepository) Get(ctx context.Context, identifier string) (*models.UsageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	rec, ok := r.records[identifier]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := rec
	return &copied, nil
}

func (r *memoryUsageRepository) Mutate(ctx context.Context, identifier string, now time.Time, fn func(*models.UsageRecord) error) (*models.UsageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mutateErr != nil {
		return nil, r.mutateErr
	}
	rec, ok := r.records[identifier]
	if !ok {
		rec = *models.NewUsageRecord(identifier, now)
	}
	if err := fn(&rec); err != nil {
		return nil, err
	}
	rec.UpdatedAt = now
	r.records[identifier] = rec
	copied := rec
	return &copied, nil
}

func (r *memoryUsageRepository) seed(rec *models.UsageRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.Identifier] = *rec
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var serviceNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestValidateAndCheckUnknownIdentifier(t *testing.T) {
	svc := NewService(newMemoryUsageRepository()).WithClock(fixedClock(serviceNow))

	d, err := svc.ValidateAndCheck(context.Background(), "user:1", entitlements.PlanFree, ActionScan)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestValidateAndCheckDoesNotWrite(t *testing.T) {
	repo := newMemoryUsageRepository()
	svc := NewService(repo).WithClock(fixedClock(serviceNow))

	_, err := svc.ValidateAndCheck(context.Background(), "user:1", entitlements.PlanFree, ActionScan)
	require.NoError(t, err)

	_, err = repo.Get(context.Background(), "user:1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestValidateAndCheckStoreErrorFailsClosed(t *testing.T) {
	repo := newMemoryUsageRepository()
	repo.getErr = errors.New("connection refused")
	svc := NewService(repo).WithClock(fixedClock(serviceNow))

	_, err := svc.ValidateAndCheck(context.Background(), "user:1", entitlements.PlanFree, ActionScan)
	assert.Error(t, err)
}

func TestCommitIncrementScan(t *testing.T) {
	repo := newMemoryUsageRepository()
	svc := NewService(repo).WithClock(fixedClock(serviceNow))

	counters, err := svc.CommitIncrement(context.Background(), "user:1", entitlements.PlanFree, ActionScan)
	require.NoError(t, err)
	assert.Equal(t, 1, counters.DailyScans)
	assert.Equal(t, 1, counters.TotalScanned)
	assert.Equal(t, 0, counters.MonthlyDescriptions)
}

func TestCommitIncrementDescription(t *testing.T) {
	repo := newMemoryUsageRepository()
	svc := NewService(repo).WithClock(fixedClock(serviceNow))

	counters, err := svc.CommitIncrement(context.Background(), "user:1", entitlements.PlanFree, ActionDescription)
	require.NoError(t, err)
	assert.Equal(t, 0, counters.DailyScans)
	assert.Equal(t, 0, counters.TotalScanned)
	assert.Equal(t, 1, counters.MonthlyDescriptions)
}

func TestCommitIncrementRejectsAtDailyLimit(t *testing.T) {
	repo := newMemoryUsageRepository()
	rec := models.NewUsageRecord("user:1", serviceNow)
	rec.DailyScans = 10
	rec.TotalScanned = 10
	repo.seed(rec)

	svc := NewService(repo).WithClock(fixedClock(serviceNow))
	_, err := svc.CommitIncrement(context.Background(), "user:1", entitlements.PlanFree, ActionScan)

	var qe *QuotaError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, CodeDailyLimit, qe.Decision.Code)

	// The losing commit must not write anything.
	stored, getErr := repo.Get(context.Background(), "user:1")
	require.NoError(t, getErr)
	assert.Equal(t, 10, stored.DailyScans)
	assert.Equal(t, 10, stored.TotalScanned)
}

func TestCommitIncrementExactDailyBoundary(t *testing.T) {
	repo := newMemoryUsageRepository()
	rec := models.NewUsageRecord("user:1", serviceNow)
	rec.DailyScans = 9
	rec.TotalScanned = 9
	repo.seed(rec)

	svc := NewService(repo).WithClock(fixedClock(serviceNow))

	counters, err := svc.CommitIncrement(context.Background(), "user:1", entitlements.PlanFree, ActionScan)
	require.NoError(t, err, "the 10th scan of the day must commit")
	assert.Equal(t, 10, counters.DailyScans)

	_, err = svc.CommitIncrement(context.Background(), "user:1", entitlements.PlanFree, ActionScan)
	var qe *QuotaError
	require.ErrorAs(t, err, &qe, "the 11th scan of the day must be rejected")
	assert.Equal(t, CodeDailyLimit, qe.Decision.Code)
}

func TestCommitIncrementPersistsDailyReset(t *testing.T) {
	repo := newMemoryUsageRepository()
	rec := models.NewUsageRecord("user:1", serviceNow)
	rec.DailyScans = 10
	rec.TotalScanned = 30
	repo.seed(rec)

	nextDay := serviceNow.Add(24 * time.Hour)
	svc := NewService(repo).WithClock(fixedClock(nextDay))

	counters, err := svc.CommitIncrement(context.Background(), "user:1", entitlements.PlanFree, ActionScan)
	require.NoError(t, err)
	assert.Equal(t, 1, counters.DailyScans)
	assert.Equal(t, 31, counters.TotalScanned)

	stored, getErr := repo.Get(context.Background(), "user:1")
	require.NoError(t, getErr)
	assert.Equal(t, models.UsageDay(nextDay), stored.LastResetDate)
	assert.Equal(t, 1, stored.DailyScans)
}

func TestCommitIncrementPersistsMonthlyReset(t *testing.T) {
	repo := newMemoryUsageRepository()
	rec := models.NewUsageRecord("user:1", serviceNow)
	rec.MonthlyDescriptions = 20
	repo.seed(rec)

	nextMonth := time.Date(2025, 7, 1, 0, 0, 1, 0, time.UTC)
	svc := NewService(repo).WithClock(fixedClock(nextMonth))

	counters, err := svc.CommitIncrement(context.Background(), "user:1", entitlements.PlanFree, ActionDescription)
	require.NoError(t, err)
	assert.Equal(t, 1, counters.MonthlyDescriptions)

	stored, getErr := repo.Get(context.Background(), "user:1")
	require.NoError(t, getErr)
	assert.Equal(t, models.UsageMonth(nextMonth), stored.LastResetMonth)
}

func TestCommitIncrementProNeverRejects(t *testing.T) {
	repo := newMemoryUsageRepository()
	rec := models.NewUsageRecord("user:1", serviceNow)
	rec.DailyScans = 500
	rec.TotalScanned = 10000
	repo.seed(rec)

	svc := NewService(repo).WithClock(fixedClock(serviceNow))
	counters, err := svc.CommitIncrement(context.Background(), "user:1", entitlements.PlanPro, ActionScan)
	require.NoError(t, err)
	assert.Equal(t, 501, counters.DailyScans)
}

func TestCommitIncrementStoreError(t *testing.T) {
	repo := newMemoryUsageRepository()
	repo.mutateErr = errors.New("deadlock")
	svc := NewService(repo).WithClock(fixedClock(serviceNow))

	_, err := svc.CommitIncrement(context.Background(), "user:1", entitlements.PlanFree, ActionScan)
	require.Error(t, err)
	var qe *QuotaError
	assert.False(t, errors.As(err, &qe), "store failures must not masquerade as quota rejections")
}

// Concurrent commits over one identifier must admit exactly the daily cap.
func TestCommitIncrementConcurrent(t *testing.T) {
	repo := newMemoryUsageRepository()
	svc := NewService(repo).WithClock(fixedClock(serviceNow))

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CommitIncrement(context.Background(), "user:1", entitlements.PlanFree, ActionScan)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var committed, rejected int
	for err := range results {
		if err == nil {
			committed++
			continue
		}
		var qe *QuotaError
		require.ErrorAs(t, err, &qe)
		rejected++
	}

	assert.Equal(t, 10, committed)
	assert.Equal(t, attempts-10, rejected)

	stored, err := repo.Get(context.Background(), "user:1")
	require.NoError(t, err)
	assert.Equal(t, 10, stored.DailyScans)
	assert.Equal(t, 10, stored.TotalScanned)
}

func TestSnapshotUnknownIdentifierIsZero(t *testing.T) {
	svc := NewService(newMemoryUsageRepository()).WithClock(fixedClock(serviceNow))

	counters, err := svc.Snapshot(context.Background(), "user:unknown-snapshot")
	require.NoError(t, err)
	assert.Equal(t, Counters{}, counters)
}

func TestSnapshotAppliesEffectiveView(t *testing.T) {
	repo := newMemoryUsageRepository()
	rec := models.NewUsageRecord("user:snapshot-view", serviceNow)
	rec.DailyScans = 7
	rec.TotalScanned = 12
	repo.seed(rec)

	nextDay := serviceNow.Add(24 * time.Hour)
	svc := NewService(repo).WithClock(fixedClock(nextDay))

	counters, err := svc.Snapshot(context.Background(), "user:snapshot-view")
	require.NoError(t, err)
	assert.Equal(t, 0, counters.DailyScans, "stale daily counter must read as zero")
	assert.Equal(t, 12, counters.TotalScanned)
}
