package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"profit-sync-service/internal/clients"
	"profit-sync-service/internal/database"
	"profit-sync-service/internal/models"
	"profit-sync-service/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func testLogger() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logrus.NewEntry(logger)
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts.UTC()
}

func createWebsite(t *testing.T, db *gorm.DB) *models.Website {
	t.Helper()
	website := &models.Website{
		Name:           "Test Store",
		BaseURL:        "https://shop.test",
		ConsumerKey:    "ck_test",
		ConsumerSecret: "cs_test",
		Currency:       "USD",
		SyncEnabled:    true,
	}
	require.NoError(t, repository.NewWebsiteRepository(db).Create(context.Background(), website))
	return website
}

// fakeStore is an in-memory CatalogClient serving fixed listings page by page
type fakeStore struct {
	mu sync.Mutex

	products   []clients.RemoteProduct
	variations map[int64][]clients.RemoteVariation
	orders     []clients.RemoteOrder

	productsErr    error
	ordersErr      error
	ordersErrPage  int
	connected      bool
	productCalls   []clients.PageRequest
	orderCalls     []clients.PageRequest
	variationCalls int

	// onProductsPage runs before each product page is served
	onProductsPage func(page int)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		variations: make(map[int64][]clients.RemoteVariation),
		connected:  true,
	}
}

func pageOf[T any](items []T, req clients.PageRequest) []T {
	req = req.Normalized()
	start := (req.Page - 1) * req.PageSize
	if start >= len(items) {
		return nil
	}
	end := start + req.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func (f *fakeStore) FetchProducts(_ context.Context, req clients.PageRequest) ([]clients.RemoteProduct, error) {
	f.mu.Lock()
	f.productCalls = append(f.productCalls, req)
	hook := f.onProductsPage
	f.mu.Unlock()

	if hook != nil {
		hook(req.Page)
	}
	if f.productsErr != nil {
		return nil, f.productsErr
	}
	return pageOf(f.products, req), nil
}

func (f *fakeStore) FetchVariations(_ context.Context, productID int64, req clients.PageRequest) ([]clients.RemoteVariation, error) {
	f.mu.Lock()
	f.variationCalls++
	f.mu.Unlock()
	return pageOf(f.variations[productID], req), nil
}

func (f *fakeStore) FetchOrders(_ context.Context, req clients.PageRequest) ([]clients.RemoteOrder, error) {
	f.mu.Lock()
	f.orderCalls = append(f.orderCalls, req)
	f.mu.Unlock()

	if f.ordersErr != nil && (f.ordersErrPage == 0 || f.ordersErrPage == req.Page) {
		return nil, f.ordersErr
	}
	return pageOf(f.orders, req), nil
}

func (f *fakeStore) TestConnection(context.Context) bool {
	return f.connected
}

func (f *fakeStore) factory() ClientFactory {
	return func(creds clients.Credentials) (clients.CatalogClient, error) {
		if err := creds.Validate(); err != nil {
			return nil, err
		}
		return f, nil
	}
}

func simpleProduct(id int64, sku, price string) clients.RemoteProduct {
	return clients.RemoteProduct{
		ID:           id,
		Name:         "Product " + sku,
		SKU:          sku,
		Type:         "simple",
		Status:       "publish",
		RegularPrice: price,
	}
}

func variableProduct(id int64, name string) clients.RemoteProduct {
	return clients.RemoteProduct{
		ID:     id,
		Name:   name,
		Type:   "variable",
		Status: "publish",
	}
}

func variation(id int64, sku, size string) clients.RemoteVariation {
	return clients.RemoteVariation{
		ID:           id,
		SKU:          sku,
		RegularPrice: "20.00",
		Attributes: []clients.RemoteAttribute{
			{Name: "Size", Option: size},
		},
	}
}

func remoteOrder(id int64, created string, lines ...clients.RemoteLineItem) clients.RemoteOrder {
	return clients.RemoteOrder{
		ID:             id,
		Number:         "#" + uuid.NewString()[:6],
		Status:         "completed",
		Currency:       "USD",
		DateCreatedGMT: created,
		Total:          "30.00",
		TotalTax:       "0.00",
		ShippingTotal:  "0.00",
		DiscountTotal:  "0.00",
		Billing:        clients.RemoteAddress{Email: "buyer@example.com"},
		Shipping:       clients.RemoteAddress{Country: "US"},
		LineItems:      lines,
	}
}

// serviceFixture wires every service over one in-memory database
type serviceFixture struct {
	db       *gorm.DB
	websites *repository.WebsiteRepository
	catalog  *repository.CatalogRepository
	costs    *repository.CostRepository
	orders   *repository.OrderRepository
	syncRepo *repository.SyncRepository
	audit    *AuditService
	ledger   *CostLedger
	catRec   *CatalogReconciler
	orderRec *OrderReconciler
	tracker  *SyncTracker
	sites    *WebsiteService
}

func newServiceFixture(t *testing.T, store *fakeStore) *serviceFixture {
	t.Helper()
	db := newTestDB(t)
	f := &serviceFixture{
		db:       db,
		websites: repository.NewWebsiteRepository(db),
		catalog:  repository.NewCatalogRepository(db),
		costs:    repository.NewCostRepository(db),
		orders:   repository.NewOrderRepository(db),
		syncRepo: repository.NewSyncRepository(db),
		audit:    NewAuditService(db),
	}
	f.ledger = NewCostLedger(f.costs, f.catalog, f.audit, testLogger())
	f.catRec = NewCatalogReconciler(f.catalog, clients.DefaultPageSize, testLogger())
	f.orderRec = NewOrderReconciler(f.orders, f.catalog, f.ledger, testLogger())
	f.tracker = NewSyncTracker(f.syncRepo)
	f.sites = NewWebsiteService(f.websites, store.factory(), f.audit, testLogger())
	return f
}

func (f *serviceFixture) syncService(store *fakeStore, cfg SyncConfig) *SyncService {
	cfg.PageDelay = 0
	return NewSyncService(f.websites, f.tracker, f.catRec, f.orderRec, f.sites, store.factory(), cfg, testLogger())
}

// simpleVariant loads the single variant of a synced simple product
func (f *serviceFixture) simpleVariant(t *testing.T, websiteID uuid.UUID, productID int64) *models.Variant {
	t.Helper()
	ctx := context.Background()
	product, err := f.catalog.FindProductByExternalID(ctx, websiteID, productID)
	require.NoError(t, err)
	variant, err := f.catalog.FindSimpleVariant(ctx, product.ID)
	require.NoError(t, err)
	return variant
}
