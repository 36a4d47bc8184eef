package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const summaryCachePrefix = "profit:reports:summary:"

// ReportFilter narrows the order-item query surface
type ReportFilter struct {
	WebsiteID *uuid.UUID
	From      *time.Time
	To        *time.Time
	Statuses  []string
}

func (f ReportFilter) cacheKey() string {
	parts := []string{"all", "-", "-", "-"}
	if f.WebsiteID != nil {
		parts[0] = f.WebsiteID.String()
	}
	if f.From != nil {
		parts[1] = f.From.UTC().Format(time.RFC3339)
	}
	if f.To != nil {
		parts[2] = f.To.UTC().Format(time.RFC3339)
	}
	if len(f.Statuses) > 0 {
		statuses := append([]string(nil), f.Statuses...)
		sort.Strings(statuses)
		parts[3] = strings.Join(statuses, ",")
	}
	return summaryCachePrefix + strings.Join(parts, ":")
}

// SummaryTotals are aggregate sums over matching order items
type SummaryTotals struct {
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	TotalCost    decimal.Decimal `json:"totalCost"`
	TotalProfit  decimal.Decimal `json:"totalProfit"`
	TotalOrders  int64           `json:"totalOrders"`
	TotalItems   int64           `json:"totalItems"`
}

// ItemRow is a flat order-item row joined with its order and website
type ItemRow struct {
	ID           uuid.UUID       `json:"id"`
	OrderID      uuid.UUID       `json:"orderId"`
	WebsiteID    uuid.UUID       `json:"websiteId"`
	VariantID    *uuid.UUID      `json:"variantId,omitempty"`
	ProductName  string          `json:"productName"`
	VariantName  *string         `json:"variantName,omitempty"`
	SKU          *string         `json:"sku,omitempty"`
	Quantity     int             `json:"quantity"`
	NetRevenue   decimal.Decimal `json:"netRevenue"`
	CostSnapshot decimal.Decimal `json:"costSnapshot"`
	TotalCost    decimal.Decimal `json:"totalCost"`
	Profit       decimal.Decimal `json:"profit"`
	ProfitMargin decimal.Decimal `json:"profitMargin"`
	OrderNumber  string          `json:"orderNumber"`
	OrderDate    time.Time       `json:"orderDate"`
	OrderStatus  string          `json:"orderStatus"`
	Country      *string         `json:"country,omitempty"`
	Currency     string          `json:"currency"`
	WebsiteName  string          `json:"websiteName"`
}

// ReportRepository is the read-only query surface over persisted order items
type ReportRepository struct {
	db       *gorm.DB
	redis    *redis.Client
	cacheTTL time.Duration
}

// NewReportRepository creates a new report repository. redis may be nil.
func NewReportRepository(db *gorm.DB, redis *redis.Client, cacheTTL time.Duration) *ReportRepository {
	return &ReportRepository{db: db, redis: redis, cacheTTL: cacheTTL}
}

func (r *ReportRepository) baseQuery(ctx context.Context, filter ReportFilter) *gorm.DB {
	query := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Joins("JOIN orders AS o ON o.id = oi.order_id").
		Joins("JOIN websites AS w ON w.id = o.website_id").
		Where("o.deleted_at IS NULL")

	if filter.WebsiteID != nil {
		query = query.Where("o.website_id = ?", *filter.WebsiteID)
	}
	if filter.From != nil {
		query = query.Where("o.order_date >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("o.order_date <= ?", filter.To.UTC())
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("o.status IN ?", filter.Statuses)
	}
	return query
}

// Summary sums revenue, cost and profit over matching items
func (r *ReportRepository) Summary(ctx context.Context, filter ReportFilter) (*SummaryTotals, error) {
	cacheKey := filter.cacheKey()

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var cached SummaryTotals
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	var totals SummaryTotals
	err := r.baseQuery(ctx, filter).
		Select(`COALESCE(SUM(oi.net_revenue), 0) AS total_revenue,
			COALESCE(SUM(oi.total_cost), 0) AS total_cost,
			COALESCE(SUM(oi.profit), 0) AS total_profit,
			COUNT(DISTINCT oi.order_id) AS total_orders,
			COUNT(oi.id) AS total_items`).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(totals); err == nil {
			r.redis.Set(ctx, cacheKey, data, r.cacheTTL)
		}
	}

	return &totals, nil
}

// ListItems returns matching rows ordered by order date, newest first.
// A non-positive limit returns every row.
func (r *ReportRepository) ListItems(ctx context.Context, filter ReportFilter, limit, offset int) ([]ItemRow, int64, error) {
	var total int64
	if err := r.baseQuery(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.baseQuery(ctx, filter).
		Select(`oi.id, oi.order_id, oi.website_id, oi.variant_id, oi.product_name, oi.variant_name, oi.sku,
			oi.quantity, oi.net_revenue, oi.cost_snapshot, oi.total_cost, oi.profit, oi.profit_margin,
			o.order_number, o.order_date, o.status AS order_status, o.country, o.currency,
			w.name AS website_name`).
		Order("o.order_date DESC").
		Order("oi.external_item_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []ItemRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// InvalidateSummaries drops cached summaries for a website and the
// cross-website aggregates
func (r *ReportRepository) InvalidateSummaries(ctx context.Context, websiteID uuid.UUID) error {
	if r.redis == nil {
		return nil
	}
	for _, pattern := range []string{
		fmt.Sprintf("%s%s:*", summaryCachePrefix, websiteID),
		summaryCachePrefix + "all:*",
	} {
		var keys []string
		iter := r.redis.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to scan cached summaries: %w", err)
		}
		if len(keys) > 0 {
			if err := r.redis.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete cached summaries: %w", err)
			}
		}
	}
	return nil
}
