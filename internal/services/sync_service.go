package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"profit-sync-service/internal/clients"
	"profit-sync-service/internal/models"
	"profit-sync-service/internal/repository"
)

// ClientFactory builds a remote client for one website's credentials. A
// fresh client is built per sync so credentials never leak across websites.
type ClientFactory func(creds clients.Credentials) (clients.CatalogClient, error)

// CredentialResolver returns the remote credentials of a website
type CredentialResolver interface {
	Resolve(ctx context.Context, website *models.Website) (clients.Credentials, error)
}

// SyncEventPublisher announces the outcome of a website sync
type SyncEventPublisher interface {
	PublishSyncCompleted(ctx context.Context, websiteID uuid.UUID, products, orders int) error
	PublishSyncFailed(ctx context.Context, websiteID uuid.UUID, phase, message string) error
}

// ReportCache drops cached report aggregates of a website
type ReportCache interface {
	InvalidateSummaries(ctx context.Context, websiteID uuid.UUID) error
}

// SyncConfig holds the tunables of the orchestrator
type SyncConfig struct {
	PageSize          int
	PageDelay         time.Duration
	Timeout           time.Duration
	OrderLookbackDays int
}

// DefaultSyncConfig returns the production defaults
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		PageSize:          clients.DefaultPageSize,
		PageDelay:         time.Second,
		Timeout:           30 * time.Minute,
		OrderLookbackDays: 365,
	}
}

// SyncResult is the outcome of SyncWebsite
type SyncResult struct {
	Success           bool   `json:"success"`
	ProductsProcessed int    `json:"productsProcessed,omitempty"`
	OrdersProcessed   int    `json:"ordersProcessed,omitempty"`
	Error             string `json:"error,omitempty"`
}

// SyncService runs the catalog phase and then the order phase of a website
type SyncService struct {
	websites    *repository.WebsiteRepository
	tracker     *SyncTracker
	catalog     *CatalogReconciler
	orders      *OrderReconciler
	credentials CredentialResolver
	newClient   ClientFactory
	locker      SyncLocker
	events      SyncEventPublisher
	reports     ReportCache
	config      SyncConfig
	now         func() time.Time
	logger      *logrus.Entry
}

// NewSyncService creates a new sync service
func NewSyncService(
	websites *repository.WebsiteRepository,
	tracker *SyncTracker,
	catalog *CatalogReconciler,
	orders *OrderReconciler,
	credentials CredentialResolver,
	newClient ClientFactory,
	cfg SyncConfig,
	logger *logrus.Entry,
) *SyncService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = clients.DefaultPageSize
	}
	if cfg.OrderLookbackDays <= 0 {
		cfg.OrderLookbackDays = DefaultSyncConfig().OrderLookbackDays
	}
	return &SyncService{
		websites:    websites,
		tracker:     tracker,
		catalog:     catalog,
		orders:      orders,
		credentials: credentials,
		newClient:   newClient,
		locker:      NewWebsiteSemaphore(),
		config:      cfg,
		now:         time.Now,
		logger:      componentLogger(logger, "sync_service"),
	}
}

// SetLocker replaces the per-website lock
func (s *SyncService) SetLocker(locker SyncLocker) {
	s.locker = locker
}

// SetEventPublisher sets the publisher notified after each sync
func (s *SyncService) SetEventPublisher(events SyncEventPublisher) {
	s.events = events
}

// SetReportCache sets the cache invalidated after each sync
func (s *SyncService) SetReportCache(reports ReportCache) {
	s.reports = reports
}

// SetClock replaces the clock used for last_sync_at and the order window
func (s *SyncService) SetClock(now func() time.Time) {
	s.now = now
}

// SyncWebsite reconciles every product and then every order of a website.
// ErrWebsiteNotFound and ErrSyncInProgress are returned as errors; a failed
// phase is reported through the result together with the cause.
func (s *SyncService) SyncWebsite(ctx context.Context, websiteID uuid.UUID, trigger models.TriggerType) (*SyncResult, error) {
	website, err := s.websites.GetByID(ctx, websiteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWebsiteNotFound
		}
		return nil, err
	}

	release, acquired, err := s.locker.TryLock(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrSyncInProgress
	}
	defer release()

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	log := s.logger.WithFields(logrus.Fields{
		"website_id": websiteID,
		"trigger":    trigger,
	})
	log.Info("Sync started")

	client, err := s.buildClient(ctx, website)
	if err != nil {
		return s.finishFailed(ctx, log, website.ID, "setup", err, &SyncResult{}), nil
	}

	result := &SyncResult{}

	products, err := s.syncProducts(ctx, client, website, trigger)
	result.ProductsProcessed = products
	if err != nil {
		return s.finishFailed(ctx, log, website.ID, string(models.SyncTypeProducts), err, result), nil
	}

	orders, err := s.syncOrders(ctx, client, website, trigger)
	result.OrdersProcessed = orders
	if err != nil {
		return s.finishFailed(ctx, log, website.ID, string(models.SyncTypeOrders), err, result), nil
	}

	result.Success = true
	s.invalidateReports(log, website.ID)
	if s.events != nil {
		if err := s.events.PublishSyncCompleted(context.Background(), website.ID, products, orders); err != nil {
			log.WithError(err).Warn("Failed to publish sync completed event")
		}
	}

	log.WithFields(logrus.Fields{
		"products_processed": products,
		"orders_processed":   orders,
	}).Info("Sync completed")
	return result, nil
}

func (s *SyncService) buildClient(ctx context.Context, website *models.Website) (clients.CatalogClient, error) {
	creds, err := s.credentials.Resolve(ctx, website)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve credentials: %w", err)
	}
	return s.newClient(creds)
}

// syncProducts runs the catalog phase as one sync run
func (s *SyncService) syncProducts(ctx context.Context, client clients.CatalogClient, website *models.Website, trigger models.TriggerType) (int, error) {
	return s.runPhase(ctx, website, models.SyncTypeProducts, trigger, func(ctx context.Context, run *phaseRun) error {
		return runPages(ctx, s, run, nil, client.FetchProducts, func(ctx context.Context, p clients.RemoteProduct) error {
			return s.catalog.Reconcile(ctx, client, website, p)
		})
	})
}

// syncOrders runs the order phase over the lookback window as one sync run
func (s *SyncService) syncOrders(ctx context.Context, client clients.CatalogClient, website *models.Website, trigger models.TriggerType) (int, error) {
	filters := clients.OrdersAfter(s.now().AddDate(0, 0, -s.config.OrderLookbackDays))

	return s.runPhase(ctx, website, models.SyncTypeOrders, trigger, func(ctx context.Context, run *phaseRun) error {
		return runPages(ctx, s, run, filters, client.FetchOrders, func(ctx context.Context, o clients.RemoteOrder) error {
			return s.orders.Reconcile(ctx, website, o)
		})
	})
}

// runPhase wraps one phase in a sync run. last_sync_at moves only when the
// phase completes.
func (s *SyncService) runPhase(ctx context.Context, website *models.Website, syncType models.SyncType, trigger models.TriggerType, body func(context.Context, *phaseRun) error) (int, error) {
	runID, err := s.tracker.Begin(ctx, website.ID, syncType, trigger)
	if err != nil {
		return 0, fmt.Errorf("failed to start %s sync: %w", syncType, err)
	}
	run := newPhaseRun(runID)

	if err := body(ctx, run); err != nil {
		err = classifyContextError(ctx, err)
		run.fail()
		// The caller's context may be done; the failure must still be recorded.
		if ferr := s.tracker.Fail(context.Background(), runID, err.Error(), failureDetails(run, err)); ferr != nil {
			s.logger.WithError(ferr).WithField("run_id", runID).Error("Failed to record failed sync run")
		}
		return run.processed, err
	}

	if err := run.complete(); err != nil {
		return run.processed, err
	}
	if err := s.tracker.Complete(ctx, runID, run.processed); err != nil {
		return run.processed, fmt.Errorf("failed to complete %s sync: %w", syncType, err)
	}

	at := s.now().UTC()
	if err := s.websites.UpdateLastSyncAt(ctx, website.ID, at); err != nil {
		return run.processed, fmt.Errorf("failed to update last sync time: %w", err)
	}
	website.LastSyncAt = &at
	return run.processed, nil
}

// runPages walks a paginated remote collection one page at a time. A page
// shorter than the page size is the last one.
func runPages[T any](
	ctx context.Context,
	s *SyncService,
	run *phaseRun,
	filters url.Values,
	fetch func(context.Context, clients.PageRequest) ([]T, error),
	handle func(context.Context, T) error,
) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := run.transition(StateFetchingPage); err != nil {
			return err
		}

		req := clients.PageRequest{Page: run.page + 1, PageSize: s.config.PageSize, Filters: filters}
		items, err := fetch(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to fetch page %d: %w", req.Page, err)
		}
		if len(items) == 0 {
			return nil
		}

		if err := run.transition(StateReconciling); err != nil {
			return err
		}
		for _, item := range items {
			if err := handle(ctx, item); err != nil {
				return err
			}
			run.processed++
		}
		run.page = req.Page

		if err := s.tracker.Checkpoint(ctx, run.runID, run.page, run.processed); err != nil {
			return err
		}

		if err := s.pause(ctx); err != nil {
			return err
		}
		if req.IsLastPage(len(items)) {
			return nil
		}
	}
}

// pause waits the inter-page delay unless ctx ends first
func (s *SyncService) pause(ctx context.Context) error {
	if s.config.PageDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.config.PageDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *SyncService) finishFailed(ctx context.Context, log *logrus.Entry, websiteID uuid.UUID, phase string, err error, result *SyncResult) *SyncResult {
	err = classifyContextError(ctx, err)
	result.Success = false
	result.Error = err.Error()

	log.WithError(err).WithField("phase", phase).Error("Sync failed")

	s.invalidateReports(log, websiteID)
	if s.events != nil {
		if perr := s.events.PublishSyncFailed(context.Background(), websiteID, phase, err.Error()); perr != nil {
			log.WithError(perr).Warn("Failed to publish sync failed event")
		}
	}
	return result
}

func (s *SyncService) invalidateReports(log *logrus.Entry, websiteID uuid.UUID) {
	if s.reports == nil {
		return
	}
	if err := s.reports.InvalidateSummaries(context.Background(), websiteID); err != nil {
		log.WithError(err).Warn("Failed to invalidate cached report summaries")
	}
}

// classifyContextError maps an ended context to ErrSyncTimeout or ErrSyncCancelled
func classifyContextError(ctx context.Context, err error) error {
	if errors.Is(err, ErrSyncTimeout) || errors.Is(err, ErrSyncCancelled) {
		return err
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrSyncTimeout, err)
	case errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrSyncCancelled, err)
	}
	return err
}

func failureDetails(run *phaseRun, err error) models.JSONB {
	details := models.JSONB{
		"page":      run.page + 1,
		"processed": run.processed,
		"kind":      "reconciliation",
	}
	if apiErr, ok := clients.AsRemoteAPIError(err); ok {
		details["kind"] = "remote_api"
		details["statusCode"] = apiErr.StatusCode
	}
	switch {
	case errors.Is(err, ErrSyncTimeout):
		details["kind"] = "timeout"
	case errors.Is(err, ErrSyncCancelled):
		details["kind"] = "cancelled"
	}
	return details
}
