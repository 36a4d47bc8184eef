package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profit-sync-service/internal/models"
)

type fakeSyncer struct {
	mu       sync.Mutex
	calls    []uuid.UUID
	triggers []models.TriggerType
	outcome  map[uuid.UUID]error
	failed   map[uuid.UUID]bool
}

func (s *fakeSyncer) SyncWebsite(_ context.Context, websiteID uuid.UUID, trigger models.TriggerType) (*SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, websiteID)
	s.triggers = append(s.triggers, trigger)
	if err := s.outcome[websiteID]; err != nil {
		return nil, err
	}
	if s.failed[websiteID] {
		return &SyncResult{Success: false, Error: "boom"}, nil
	}
	return &SyncResult{Success: true}, nil
}

func TestSyncScheduler_RunOnceSyncsEnabledWebsites(t *testing.T) {
	f := newServiceFixture(t, newFakeStore())
	ctx := context.Background()

	ok := createWebsite(t, f.db)
	busy := createWebsite(t, f.db)
	broken := createWebsite(t, f.db)
	disabled := createWebsite(t, f.db)
	require.NoError(t, f.db.Model(&models.Website{}).Where("id = ?", disabled.ID).Update("sync_enabled", false).Error)

	syncer := &fakeSyncer{
		outcome: map[uuid.UUID]error{busy.ID: ErrSyncInProgress},
		failed:  map[uuid.UUID]bool{broken.ID: true},
	}
	scheduler := NewSyncScheduler(f.websites, syncer, testLogger())

	succeeded := scheduler.RunOnce(ctx)
	assert.Equal(t, 1, succeeded)
	assert.ElementsMatch(t, []uuid.UUID{ok.ID, busy.ID, broken.ID}, syncer.calls)
	for _, trigger := range syncer.triggers {
		assert.Equal(t, models.TriggerScheduled, trigger)
	}
}

func TestSyncScheduler_StopsWhenContextEnds(t *testing.T) {
	f := newServiceFixture(t, newFakeStore())
	createWebsite(t, f.db)
	createWebsite(t, f.db)

	syncer := &fakeSyncer{}
	scheduler := NewSyncScheduler(f.websites, syncer, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Zero(t, scheduler.RunOnce(ctx))
}

func TestSyncScheduler_StartRejectsBadSchedule(t *testing.T) {
	f := newServiceFixture(t, newFakeStore())
	scheduler := NewSyncScheduler(f.websites, &fakeSyncer{}, testLogger())

	assert.Error(t, scheduler.Start("not a schedule"))

	require.NoError(t, scheduler.Start("0 */15 * * * *"))
	scheduler.Stop()
}

// blockingSyncer holds every sync open until its context ends
type blockingSyncer struct {
	started chan struct{}
	once    sync.Once

	mu   sync.Mutex
	errs []error
}

func (s *blockingSyncer) SyncWebsite(ctx context.Context, _ uuid.UUID, _ models.TriggerType) (*SyncResult, error) {
	s.once.Do(func() { close(s.started) })
	<-ctx.Done()

	s.mu.Lock()
	s.errs = append(s.errs, ctx.Err())
	s.mu.Unlock()
	return &SyncResult{Success: false, Error: ctx.Err().Error()}, nil
}

func TestSyncScheduler_StopCancelsRunningSync(t *testing.T) {
	f := newServiceFixture(t, newFakeStore())
	createWebsite(t, f.db)

	syncer := &blockingSyncer{started: make(chan struct{})}
	scheduler := NewSyncScheduler(f.websites, syncer, testLogger())
	require.NoError(t, scheduler.Start("* * * * * *"))

	select {
	case <-syncer.started:
	case <-time.After(5 * time.Second):
		scheduler.Stop()
		t.Fatal("scheduled sync never started")
	}

	stopped := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return while a sync was running")
	}

	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	require.NotEmpty(t, syncer.errs)
	for _, err := range syncer.errs {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
