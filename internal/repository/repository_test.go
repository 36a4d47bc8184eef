package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"profit-sync-service/internal/database"
	"profit-sync-service/internal/models"
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

func seedVariant(t *testing.T, db *gorm.DB) (*models.Website, *models.Variant) {
	t.Helper()
	ctx := context.Background()
	website := &models.Website{Name: "Shop", BaseURL: "https://shop.test", Currency: "USD", SyncEnabled: true}
	require.NoError(t, NewWebsiteRepository(db).Create(ctx, website))

	catalog := NewCatalogRepository(db)
	product := &models.Product{WebsiteID: website.ID, ExternalProductID: 1, Name: "Mug", Type: models.ProductTypeSimple}
	require.NoError(t, catalog.SaveProduct(ctx, product))
	variant := &models.Variant{ProductID: product.ID, WebsiteID: website.ID}
	require.NoError(t, catalog.SaveVariant(ctx, variant))
	return website, variant
}

func TestCostRepository_LatestAt(t *testing.T) {
	db := newTestDB(t)
	_, variant := seedVariant(t, db)
	repo := NewCostRepository(db)
	ctx := context.Background()

	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	apr := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(ctx, &models.Cost{VariantID: variant.ID, CostAmount: decimal.NewFromInt(5), EffectiveFrom: jan}))
	require.NoError(t, repo.Append(ctx, &models.Cost{VariantID: variant.ID, CostAmount: decimal.NewFromInt(7), EffectiveFrom: apr}))

	_, err := repo.LatestAt(ctx, variant.ID, jan.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)

	cost, err := repo.LatestAt(ctx, variant.ID, apr.Add(-time.Second))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5).Equal(cost.CostAmount))

	// A non-UTC instant compares by the same absolute time.
	cost, err = repo.LatestAt(ctx, variant.ID, apr.In(time.FixedZone("UTC+2", 2*3600)))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(7).Equal(cost.CostAmount))

	history, err := repo.History(ctx, variant.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, apr.Equal(history[0].EffectiveFrom))
}

func TestOrderRepository_ReplaceItems(t *testing.T) {
	db := newTestDB(t)
	website, _ := seedVariant(t, db)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	order := &models.Order{WebsiteID: website.ID, ExternalOrderID: 9, OrderNumber: "9", Status: "completed", OrderDate: time.Now().UTC()}
	require.NoError(t, repo.WithTransaction(ctx, func(tx *OrderRepository) error {
		if err := tx.SaveOrder(ctx, order); err != nil {
			return err
		}
		return tx.ReplaceItems(ctx, order.ID, []models.OrderItem{
			{WebsiteID: website.ID, ExternalItemID: 1, ProductName: "A", Quantity: 1},
			{WebsiteID: website.ID, ExternalItemID: 2, ProductName: "B", Quantity: 1},
		})
	}))

	require.NoError(t, repo.ReplaceItems(ctx, order.ID, []models.OrderItem{
		{WebsiteID: website.ID, ExternalItemID: 3, ProductName: "C", Quantity: 2},
	}))

	stored, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.EqualValues(t, 3, stored.Items[0].ExternalItemID)

	found, err := repo.FindByExternalID(ctx, website.ID, 9)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = repo.FindByExternalID(ctx, website.ID, 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderRepository_TransactionRollsBack(t *testing.T) {
	db := newTestDB(t)
	website, _ := seedVariant(t, db)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	err := repo.WithTransaction(ctx, func(tx *OrderRepository) error {
		order := &models.Order{WebsiteID: website.ID, ExternalOrderID: 9, OrderNumber: "9", Status: "completed", OrderDate: time.Now().UTC()}
		if err := tx.SaveOrder(ctx, order); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	_, err = repo.FindByExternalID(ctx, website.ID, 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWebsiteRepository_SyncEnabledAndLastSync(t *testing.T) {
	db := newTestDB(t)
	repo := NewWebsiteRepository(db)
	ctx := context.Background()

	enabled := &models.Website{Name: "A", BaseURL: "https://a.test", Currency: "USD", SyncEnabled: true}
	disabled := &models.Website{Name: "B", BaseURL: "https://b.test", Currency: "USD"}
	require.NoError(t, repo.Create(ctx, enabled))
	require.NoError(t, repo.Create(ctx, disabled))

	websites, err := repo.ListSyncEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, websites, 1)
	assert.Equal(t, enabled.ID, websites[0].ID)

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastSyncAt(ctx, enabled.ID, at))
	stored, err := repo.GetByID(ctx, enabled.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastSyncAt)
	assert.True(t, at.Equal(*stored.LastSyncAt))

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWebsiteRepository_UpdateKeepsLastSyncAt(t *testing.T) {
	db := newTestDB(t)
	repo := NewWebsiteRepository(db)
	ctx := context.Background()

	website := &models.Website{Name: "A", BaseURL: "https://a.test", Currency: "USD", SyncEnabled: true}
	require.NoError(t, repo.Create(ctx, website))

	stale, err := repo.GetByID(ctx, website.ID)
	require.NoError(t, err)
	require.Nil(t, stale.LastSyncAt)

	// a sync completes between the read and the write of an edit
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastSyncAt(ctx, website.ID, at))

	stale.Name = "Renamed"
	stale.Currency = "EUR"
	stale.SyncEnabled = false
	require.NoError(t, repo.Update(ctx, stale))

	stored, err := repo.GetByID(ctx, website.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Name)
	assert.Equal(t, "EUR", stored.Currency)
	assert.False(t, stored.SyncEnabled)
	require.NotNil(t, stored.LastSyncAt)
	assert.True(t, at.Equal(*stored.LastSyncAt))
}

func TestReportRepository_InvalidateSummaries(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	assert.NoError(t, NewReportRepository(db, nil, time.Minute).InvalidateSummaries(ctx, uuid.New()))

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })

	err := NewReportRepository(db, client, time.Minute).InvalidateSummaries(ctx, uuid.New())
	assert.ErrorContains(t, err, "failed to scan cached summaries")
}

func TestReportFilter_CacheKey(t *testing.T) {
	id := uuid.MustParse("6f1c3b4e-1111-2222-3333-444455556666")
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, summaryCachePrefix+"all:-:-:-", ReportFilter{}.cacheKey())
	assert.Equal(t,
		summaryCachePrefix+id.String()+":2024-03-01T00:00:00Z:-:completed,processing",
		ReportFilter{WebsiteID: &id, From: &from, Statuses: []string{"processing", "completed"}}.cacheKey(),
	)
}
