package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"profit-sync-service/internal/models"
	"profit-sync-service/internal/repository"
)

// WebsiteSyncer runs one website sync
type WebsiteSyncer interface {
	SyncWebsite(ctx context.Context, websiteID uuid.UUID, trigger models.TriggerType) (*SyncResult, error)
}

// SyncScheduler periodically syncs every sync-enabled website, one at a time
type SyncScheduler struct {
	websites *repository.WebsiteRepository
	syncer   WebsiteSyncer
	cron     *cron.Cron
	logger   *logrus.Entry

	// ctx is passed to every scheduled run and cancelled by Stop
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSyncScheduler creates a scheduler. Schedules use the six-field cron
// format with seconds.
func NewSyncScheduler(websites *repository.WebsiteRepository, syncer WebsiteSyncer, logger *logrus.Entry) *SyncScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &SyncScheduler{
		websites: websites,
		syncer:   syncer,
		cron:     cron.New(cron.WithSeconds()),
		logger:   componentLogger(logger, "sync_scheduler"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start registers the schedule and starts the cron runner
func (s *SyncScheduler) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.RunOnce(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	s.logger.WithField("schedule", schedule).Info("Sync scheduler started")
	return nil
}

// Stop cancels in-flight scheduled syncs, stops the runner and waits for
// running ticks to return
func (s *SyncScheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Sync scheduler stopped")
}

// RunOnce syncs every sync-enabled website and returns how many succeeded
func (s *SyncScheduler) RunOnce(ctx context.Context) int {
	websites, err := s.websites.ListSyncEnabled(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list websites for scheduled sync")
		return 0
	}

	succeeded := 0
	for _, website := range websites {
		if ctx.Err() != nil {
			return succeeded
		}

		log := s.logger.WithField("website_id", website.ID)
		result, err := s.syncer.SyncWebsite(ctx, website.ID, models.TriggerScheduled)
		switch {
		case errors.Is(err, ErrSyncInProgress):
			log.Info("Website already syncing, skipped")
		case err != nil:
			log.WithError(err).Error("Scheduled sync could not start")
		case !result.Success:
			log.WithField("error", result.Error).Warn("Scheduled sync failed")
		default:
			succeeded++
		}
	}
	return succeeded
}
