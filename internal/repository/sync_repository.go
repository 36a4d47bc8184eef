package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"profit-sync-service/internal/models"
)

// SyncRepository handles database operations for sync runs
type SyncRepository struct {
	db *gorm.DB
}

// NewSyncRepository creates a new sync repository
func NewSyncRepository(db *gorm.DB) *SyncRepository {
	return &SyncRepository{db: db}
}

// Create creates a new sync run
func (r *SyncRepository) Create(ctx context.Context, run *models.SyncLog) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(run).Error
}

// GetByID retrieves a sync run by ID
func (r *SyncRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SyncLog, error) {
	var run models.SyncLog
	err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// Checkpoint advances the cursor of a running sync run
func (r *SyncRepository) Checkpoint(ctx context.Context, id uuid.UUID, page, processed int) error {
	return r.transition(ctx, id, map[string]interface{}{
		"last_page":         page,
		"records_processed": processed,
		"updated_at":        time.Now().UTC(),
	})
}

// Complete moves a running sync run to completed. A run that is already
// terminal is left untouched and ErrRunFinished is returned.
func (r *SyncRepository) Complete(ctx context.Context, id uuid.UUID, processed int, at time.Time) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status":            models.SyncStatusCompleted,
		"records_processed": processed,
		"completed_at":      at.UTC(),
		"updated_at":        time.Now().UTC(),
	})
}

// Fail moves a running sync run to failed, keeping the processed count
// reached by the last checkpoint
func (r *SyncRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string, details models.JSONB, at time.Time) error {
	updates := map[string]interface{}{
		"status":        models.SyncStatusFailed,
		"error_message": errorMessage,
		"completed_at":  at.UTC(),
		"updated_at":    time.Now().UTC(),
	}
	if details != nil {
		updates["error_details"] = details
	}
	return r.transition(ctx, id, updates)
}

func (r *SyncRepository) transition(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.SyncLog{}).
		Where("id = ? AND status = ?", id, models.SyncStatusRunning).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrRunFinished
	}
	return nil
}

// List retrieves sync runs with pagination and filtering
func (r *SyncRepository) List(ctx context.Context, opts SyncListOptions) ([]models.SyncLog, int64, error) {
	var runs []models.SyncLog
	var total int64

	query := r.db.WithContext(ctx).Model(&models.SyncLog{})

	if opts.WebsiteID != uuid.Nil {
		query = query.Where("website_id = ?", opts.WebsiteID)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}
	if opts.SyncType != "" {
		query = query.Where("sync_type = ?", opts.SyncType)
	}

	// Get total count
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Apply pagination and ordering
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}
	query = query.Order("started_at DESC")

	if err := query.Find(&runs).Error; err != nil {
		return nil, 0, err
	}

	return runs, total, nil
}

// GetSyncStats retrieves sync statistics, optionally for one website
func (r *SyncRepository) GetSyncStats(ctx context.Context, websiteID *uuid.UUID) (*SyncStats, error) {
	stats := &SyncStats{}

	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.SyncLog{})
		if websiteID != nil {
			q = q.Where("website_id = ?", *websiteID)
		}
		return q
	}

	if err := scoped().Count(&stats.TotalRuns).Error; err != nil {
		return nil, err
	}

	var statusCounts []struct {
		Status string
		Count  int64
	}
	if err := scoped().
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch models.SyncStatus(sc.Status) {
		case models.SyncStatusCompleted:
			stats.CompletedRuns = sc.Count
		case models.SyncStatusFailed:
			stats.FailedRuns = sc.Count
		case models.SyncStatusRunning:
			stats.RunningRuns = sc.Count
		}
	}

	var lastRun models.SyncLog
	if err := scoped().
		Where("status = ?", models.SyncStatusCompleted).
		Order("completed_at DESC").
		First(&lastRun).Error; err == nil && lastRun.CompletedAt != nil {
		stats.LastCompletedAt = lastRun.CompletedAt
	}

	return stats, nil
}

// SyncListOptions contains options for listing sync runs
type SyncListOptions struct {
	WebsiteID uuid.UUID
	Status    string
	SyncType  string
	Limit     int
	Offset    int
}

// SyncStats contains sync statistics
type SyncStats struct {
	TotalRuns       int64      `json:"totalRuns"`
	CompletedRuns   int64      `json:"completedRuns"`
	FailedRuns      int64      `json:"failedRuns"`
	RunningRuns     int64      `json:"runningRuns"`
	LastCompletedAt *time.Time `json:"lastCompletedAt,omitempty"`
}
