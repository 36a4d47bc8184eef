package services

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profit-sync-service/internal/clients"
	"profit-sync-service/internal/models"
	"profit-sync-service/internal/repository"
)

type recordingPublisher struct {
	mu        sync.Mutex
	completed []uuid.UUID
	failed    []string
}

func (p *recordingPublisher) PublishSyncCompleted(_ context.Context, websiteID uuid.UUID, _, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, websiteID)
	return nil
}

func (p *recordingPublisher) PublishSyncFailed(_ context.Context, _ uuid.UUID, phase, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, phase)
	return nil
}

type recordingCache struct {
	invalidated []uuid.UUID
	err         error
}

func (c *recordingCache) InvalidateSummaries(_ context.Context, websiteID uuid.UUID) error {
	c.invalidated = append(c.invalidated, websiteID)
	return c.err
}

func phaseLog(t *testing.T, f *serviceFixture, websiteID uuid.UUID, syncType models.SyncType) models.SyncLog {
	t.Helper()
	runs, total, err := f.tracker.List(context.Background(), repository.SyncListOptions{
		WebsiteID: websiteID,
		SyncType:  string(syncType),
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	return runs[0]
}

func syncFixture(t *testing.T) (*fakeStore, *serviceFixture, *models.Website) {
	t.Helper()
	store := newFakeStore()
	store.products = []clients.RemoteProduct{
		simpleProduct(1, "SKU-1", "10.00"),
		simpleProduct(2, "SKU-2", "12.00"),
		simpleProduct(3, "SKU-3", "14.00"),
	}
	store.orders = []clients.RemoteOrder{
		remoteOrder(100, "2024-03-10T10:00:00", lineItem(1, 1, 1, "10.00")),
		remoteOrder(101, "2024-03-11T10:00:00", lineItem(1, 2, 2, "24.00")),
		remoteOrder(102, "2024-03-12T10:00:00", lineItem(1, 3, 1, "14.00")),
	}
	f := newServiceFixture(t, store)
	return store, f, createWebsite(t, f.db)
}

func TestSyncService_SyncsProductsThenOrders(t *testing.T) {
	store, f, website := syncFixture(t)
	now := mustTime(t, "2024-06-01T12:00:00Z")

	svc := f.syncService(store, SyncConfig{PageSize: 2})
	svc.SetClock(func() time.Time { return now })
	publisher := &recordingPublisher{}
	cache := &recordingCache{}
	svc.SetEventPublisher(publisher)
	svc.SetReportCache(cache)

	result, err := svc.SyncWebsite(context.Background(), website.ID, models.TriggerManual)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.ProductsProcessed)
	assert.Equal(t, 3, result.OrdersProcessed)
	assert.Empty(t, result.Error)

	require.Len(t, store.productCalls, 2)
	require.Len(t, store.orderCalls, 2)
	assert.Equal(t, now.AddDate(0, 0, -365).Format(time.RFC3339), store.orderCalls[0].Filters.Get("after"))

	products := phaseLog(t, f, website.ID, models.SyncTypeProducts)
	assert.Equal(t, models.SyncStatusCompleted, products.Status)
	assert.Equal(t, 2, products.LastPage)
	assert.Equal(t, 3, products.RecordsProcessed)
	assert.Equal(t, models.TriggerManual, products.Trigger)
	assert.NotNil(t, products.CompletedAt)

	orders := phaseLog(t, f, website.ID, models.SyncTypeOrders)
	assert.Equal(t, models.SyncStatusCompleted, orders.Status)
	assert.Equal(t, 3, orders.RecordsProcessed)

	stored, err := f.websites.GetByID(context.Background(), website.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastSyncAt)
	assert.True(t, now.Equal(*stored.LastSyncAt))

	assert.Equal(t, []uuid.UUID{website.ID}, publisher.completed)
	assert.Empty(t, publisher.failed)
	assert.Equal(t, []uuid.UUID{website.ID}, cache.invalidated)
}

func TestSyncService_CacheFailureDoesNotFailSync(t *testing.T) {
	store, f, website := syncFixture(t)

	svc := f.syncService(store, SyncConfig{PageSize: 50})
	cache := &recordingCache{err: assert.AnError}
	svc.SetReportCache(cache)

	result, err := svc.SyncWebsite(context.Background(), website.ID, models.TriggerManual)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []uuid.UUID{website.ID}, cache.invalidated)
}

func TestSyncService_ExactMultipleOfPageSizeStopsOnEmptyPage(t *testing.T) {
	store, f, website := syncFixture(t)
	store.products = store.products[:2]

	svc := f.syncService(store, SyncConfig{PageSize: 2})
	result, err := svc.SyncWebsite(context.Background(), website.ID, models.TriggerManual)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ProductsProcessed)
	assert.Len(t, store.productCalls, 2)
}

func TestSyncService_RepeatedSyncIsIdempotent(t *testing.T) {
	store, f, website := syncFixture(t)
	svc := f.syncService(store, SyncConfig{PageSize: 2})

	for i := 0; i < 2; i++ {
		result, err := svc.SyncWebsite(context.Background(), website.ID, models.TriggerManual)
		require.NoError(t, err)
		require.True(t, result.Success)
	}

	var products, variants, orders, items int64
	require.NoError(t, f.db.Model(&models.Product{}).Count(&products).Error)
	require.NoError(t, f.db.Model(&models.Variant{}).Count(&variants).Error)
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orders).Error)
	require.NoError(t, f.db.Model(&models.OrderItem{}).Count(&items).Error)
	assert.EqualValues(t, 3, products)
	assert.EqualValues(t, 3, variants)
	assert.EqualValues(t, 3, orders)
	assert.EqualValues(t, 3, items)
}

func TestSyncService_CatalogFailureSkipsOrders(t *testing.T) {
	store, f, website := syncFixture(t)
	store.productsErr = &clients.RemoteAPIError{StatusCode: http.StatusUnauthorized, Body: "invalid key"}

	svc := f.syncService(store, SyncConfig{PageSize: 2})
	publisher := &recordingPublisher{}
	cache := &recordingCache{}
	svc.SetEventPublisher(publisher)
	svc.SetReportCache(cache)

	result, err := svc.SyncWebsite(context.Background(), website.ID, models.TriggerManual)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "401")
	assert.Zero(t, result.ProductsProcessed)
	assert.Empty(t, store.orderCalls)

	products := phaseLog(t, f, website.ID, models.SyncTypeProducts)
	assert.Equal(t, models.SyncStatusFailed, products.Status)
	require.NotNil(t, products.ErrorMessage)
	assert.Contains(t, *products.ErrorMessage, "invalid key")
	assert.Equal(t, "remote_api", products.ErrorDetails["kind"])
	assert.EqualValues(t, http.StatusUnauthorized, products.ErrorDetails["statusCode"])

	_, total, err := f.tracker.List(context.Background(), repository.SyncListOptions{SyncType: string(models.SyncTypeOrders)})
	require.NoError(t, err)
	assert.Zero(t, total)

	stored, err := f.websites.GetByID(context.Background(), website.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastSyncAt)

	assert.Equal(t, []string{"products"}, publisher.failed)
	assert.Equal(t, []uuid.UUID{website.ID}, cache.invalidated)
}

func TestSyncService_OrderFailureKeepsCheckpoint(t *testing.T) {
	store, f, website := syncFixture(t)
	store.ordersErr = &clients.RemoteAPIError{StatusCode: http.StatusBadGateway, Body: "upstream"}
	store.ordersErrPage = 2

	productsDone := mustTime(t, "2024-06-01T12:00:00Z")
	svc := f.syncService(store, SyncConfig{PageSize: 2})
	svc.SetClock(func() time.Time { return productsDone })

	result, err := svc.SyncWebsite(context.Background(), website.ID, models.TriggerScheduled)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.ProductsProcessed)
	assert.Equal(t, 2, result.OrdersProcessed)

	orders := phaseLog(t, f, website.ID, models.SyncTypeOrders)
	assert.Equal(t, models.SyncStatusFailed, orders.Status)
	assert.Equal(t, 1, orders.LastPage)
	assert.Equal(t, 2, orders.RecordsProcessed)
	assert.EqualValues(t, 2, orders.ErrorDetails["page"])
	assert.EqualValues(t, http.StatusBadGateway, orders.ErrorDetails["statusCode"])
	assert.NotNil(t, orders.CompletedAt)

	// The first page of orders stays reconciled.
	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	stored, err := f.websites.GetByID(context.Background(), website.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastSyncAt)
	assert.True(t, productsDone.Equal(*stored.LastSyncAt))
}

func TestSyncService_RejectsConcurrentSync(t *testing.T) {
	store, f, website := syncFixture(t)
	svc := f.syncService(store, SyncConfig{PageSize: 2})

	locker := NewWebsiteSemaphore()
	release, ok, err := locker.TryLock(context.Background(), website.ID)
	require.NoError(t, err)
	require.True(t, ok)
	svc.SetLocker(locker)

	result, err := svc.SyncWebsite(context.Background(), website.ID, models.TriggerManual)
	assert.ErrorIs(t, err, ErrSyncInProgress)
	assert.Nil(t, result)
	assert.Empty(t, store.productCalls)

	release()
	result, err = svc.SyncWebsite(context.Background(), website.ID, models.TriggerManual)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, locker.IsLocked(website.ID))
}

func TestSyncService_UnknownWebsite(t *testing.T) {
	store, f, _ := syncFixture(t)
	svc := f.syncService(store, SyncConfig{})

	_, err := svc.SyncWebsite(context.Background(), uuid.New(), models.TriggerManual)
	assert.ErrorIs(t, err, ErrWebsiteNotFound)
}

func TestSyncService_MissingCredentialsFailsBeforeAnyRun(t *testing.T) {
	store, f, website := syncFixture(t)
	require.NoError(t, f.db.Model(&models.Website{}).Where("id = ?", website.ID).Update("consumer_secret", "").Error)

	svc := f.syncService(store, SyncConfig{})
	result, err := svc.SyncWebsite(context.Background(), website.ID, models.TriggerManual)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, clients.ErrMissingCredentials.Error())
	assert.Empty(t, store.productCalls)

	_, total, err := f.tracker.List(context.Background(), repository.SyncListOptions{WebsiteID: website.ID})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSyncService_CancellationFailsRun(t *testing.T) {
	store, f, website := syncFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.onProductsPage = func(int) { cancel() }

	svc := f.syncService(store, SyncConfig{PageSize: 2})
	result, err := svc.SyncWebsite(ctx, website.ID, models.TriggerManual)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, ErrSyncCancelled.Error())
	assert.Empty(t, store.orderCalls)

	products := phaseLog(t, f, website.ID, models.SyncTypeProducts)
	assert.Equal(t, models.SyncStatusFailed, products.Status)
	assert.Equal(t, "cancelled", products.ErrorDetails["kind"])
}

func TestSyncService_TimeoutFailsRun(t *testing.T) {
	store, f, website := syncFixture(t)
	store.onProductsPage = func(int) { time.Sleep(50 * time.Millisecond) }

	svc := f.syncService(store, SyncConfig{PageSize: 2, Timeout: 10 * time.Millisecond})
	result, err := svc.SyncWebsite(context.Background(), website.ID, models.TriggerManual)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, ErrSyncTimeout.Error())

	products := phaseLog(t, f, website.ID, models.SyncTypeProducts)
	assert.Equal(t, models.SyncStatusFailed, products.Status)
	assert.Equal(t, "timeout", products.ErrorDetails["kind"])
}

func TestSyncService_PauseHonoursCancellation(t *testing.T) {
	svc := &SyncService{config: SyncConfig{PageDelay: time.Hour}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	assert.ErrorIs(t, svc.pause(ctx), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSyncState_Transitions(t *testing.T) {
	tests := []struct {
		from, to SyncState
		want     bool
	}{
		{StateIdle, StateFetchingPage, true},
		{StateIdle, StateReconciling, false},
		{StateFetchingPage, StateReconciling, true},
		{StateFetchingPage, StateCompleted, true},
		{StateReconciling, StateFetchingPage, true},
		{StateReconciling, StateFailed, true},
		{StateCompleted, StateFetchingPage, false},
		{StateFailed, StateCompleted, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}

	run := newPhaseRun(uuid.New())
	assert.Error(t, run.complete())
	run.fail()
	assert.Equal(t, StateFailed, run.state)
}

func TestClassifyContextError(t *testing.T) {
	plain := assert.AnError
	assert.Equal(t, plain, classifyContextError(context.Background(), plain))

	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	assert.ErrorIs(t, classifyContextError(expired, expired.Err()), ErrSyncTimeout)

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	err := classifyContextError(cancelled, cancelled.Err())
	assert.ErrorIs(t, err, ErrSyncCancelled)
	assert.Equal(t, err, classifyContextError(cancelled, err))
}
