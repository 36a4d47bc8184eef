package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"profit-sync-service/internal/models"
	"profit-sync-service/internal/repository"
)

// SyncTracker records the lifecycle of sync runs: running, then exactly one
// of completed or failed. It does not gate concurrent runs.
type SyncTracker struct {
	repo *repository.SyncRepository
	now  func() time.Time
}

// NewSyncTracker creates a new sync tracker
func NewSyncTracker(repo *repository.SyncRepository) *SyncTracker {
	return &SyncTracker{repo: repo, now: time.Now}
}

// SetClock replaces the clock used for run timestamps
func (t *SyncTracker) SetClock(now func() time.Time) {
	t.now = now
}

// Begin opens a running sync run
func (t *SyncTracker) Begin(ctx context.Context, websiteID uuid.UUID, syncType models.SyncType, trigger models.TriggerType) (uuid.UUID, error) {
	run := &models.SyncLog{
		ID:        uuid.New(),
		WebsiteID: websiteID,
		SyncType:  syncType,
		Status:    models.SyncStatusRunning,
		Trigger:   trigger,
		StartedAt: t.now().UTC(),
	}
	if err := t.repo.Create(ctx, run); err != nil {
		return uuid.Nil, err
	}
	return run.ID, nil
}

// Checkpoint records the page cursor and processed count of a running run
func (t *SyncTracker) Checkpoint(ctx context.Context, runID uuid.UUID, page, processed int) error {
	return t.repo.Checkpoint(ctx, runID, page, processed)
}

// Complete closes a run as completed
func (t *SyncTracker) Complete(ctx context.Context, runID uuid.UUID, processed int) error {
	return t.repo.Complete(ctx, runID, processed, t.now())
}

// Fail closes a run as failed with the triggering error message
func (t *SyncTracker) Fail(ctx context.Context, runID uuid.UUID, message string, details models.JSONB) error {
	return t.repo.Fail(ctx, runID, message, details, t.now())
}

// Get returns one sync run
func (t *SyncTracker) Get(ctx context.Context, runID uuid.UUID) (*models.SyncLog, error) {
	return t.repo.GetByID(ctx, runID)
}

// List returns sync runs matching opts
func (t *SyncTracker) List(ctx context.Context, opts repository.SyncListOptions) ([]models.SyncLog, int64, error) {
	return t.repo.List(ctx, opts)
}

// Stats returns sync statistics, optionally for one website
func (t *SyncTracker) Stats(ctx context.Context, websiteID *uuid.UUID) (*repository.SyncStats, error) {
	return t.repo.GetSyncStats(ctx, websiteID)
}
