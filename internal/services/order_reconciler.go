package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"profit-sync-service/internal/clients"
	"profit-sync-service/internal/models"
	"profit-sync-service/internal/money"
	"profit-sync-service/internal/repository"
)

// OrderReconciler upserts remote orders and rebuilds their line items with
// costs resolved as of the order date
type OrderReconciler struct {
	orders  *repository.OrderRepository
	catalog *repository.CatalogRepository
	ledger  *CostLedger
	logger  *logrus.Entry
}

// NewOrderReconciler creates a new order reconciler
func NewOrderReconciler(orders *repository.OrderRepository, catalog *repository.CatalogRepository, ledger *CostLedger, logger *logrus.Entry) *OrderReconciler {
	return &OrderReconciler{
		orders:  orders,
		catalog: catalog,
		ledger:  ledger,
		logger:  componentLogger(logger, "order_reconciler"),
	}
}

// Reconcile writes one remote order. Line items are resolved first, then the
// order row and the full replacement of its items are written in one
// transaction.
func (r *OrderReconciler) Reconcile(ctx context.Context, website *models.Website, remote clients.RemoteOrder) error {
	orderDate, err := orderDate(remote)
	if err != nil {
		return fmt.Errorf("order %d: %w", remote.ID, err)
	}

	items := make([]models.OrderItem, 0, len(remote.LineItems))
	for _, line := range remote.LineItems {
		item, err := r.buildItem(ctx, website.ID, line, orderDate)
		if err != nil {
			return fmt.Errorf("order %d line %d: %w", remote.ID, line.ID, err)
		}
		items = append(items, *item)
	}

	return r.orders.WithTransaction(ctx, func(txRepo *repository.OrderRepository) error {
		order, err := txRepo.FindByExternalID(ctx, website.ID, remote.ID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			order = &models.Order{
				WebsiteID:       website.ID,
				ExternalOrderID: remote.ID,
			}
		}

		if err := applyOrderFields(order, remote, orderDate); err != nil {
			return fmt.Errorf("order %d: %w", remote.ID, err)
		}
		if err := txRepo.SaveOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to save order %d: %w", remote.ID, err)
		}
		if err := txRepo.ReplaceItems(ctx, order.ID, items); err != nil {
			return fmt.Errorf("failed to replace items of order %d: %w", remote.ID, err)
		}
		return nil
	})
}

func (r *OrderReconciler) buildItem(ctx context.Context, websiteID uuid.UUID, line clients.RemoteLineItem, orderDate time.Time) (*models.OrderItem, error) {
	variant, err := r.resolveVariant(ctx, websiteID, line)
	if err != nil {
		return nil, err
	}

	unitCost := decimal.Zero
	item := &models.OrderItem{
		WebsiteID:      websiteID,
		ExternalItemID: line.ID,
		ProductName:    line.Name,
		SKU:            stringPtr(line.SKU),
		Quantity:       line.Quantity,
		PricePerItem:   money.Round2(line.Price),
	}

	if variant != nil {
		variantID, productID := variant.ID, variant.ProductID
		item.VariantID = &variantID
		item.ProductID = &productID
		item.VariantName = variantName(variant)

		unitCost, err = r.ledger.ResolveCostAt(ctx, variant.ID, orderDate)
		if err != nil {
			return nil, err
		}
	} else {
		r.logger.WithFields(logrus.Fields{
			"websiteId":   websiteID,
			"productId":   line.ProductID,
			"variationId": line.VariationID,
		}).Debug("No local variant for line item, cost defaults to zero")
	}

	if item.Subtotal, err = money.Parse(line.Subtotal); err != nil {
		return nil, fmt.Errorf("invalid subtotal: %w", err)
	}
	total, err := money.Parse(line.Total)
	if err != nil {
		return nil, fmt.Errorf("invalid total: %w", err)
	}
	item.Subtotal = money.Round2(item.Subtotal)
	item.Total = money.Round2(total)

	figures := money.ComputeLine(total, unitCost, line.Quantity)
	item.NetRevenue = figures.NetRevenue
	item.CostSnapshot = figures.CostSnapshot
	item.TotalCost = figures.TotalCost
	item.Profit = figures.Profit
	item.ProfitMargin = figures.ProfitMargin
	return item, nil
}

// resolveVariant maps a line item to its local variant. A miss is not an
// error and returns nil.
func (r *OrderReconciler) resolveVariant(ctx context.Context, websiteID uuid.UUID, line clients.RemoteLineItem) (*models.Variant, error) {
	if line.VariationID > 0 {
		variant, err := r.catalog.FindVariantByExternalID(ctx, websiteID, line.VariationID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return variant, err
	}

	product, err := r.catalog.FindProductByExternalID(ctx, websiteID, line.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	variant, err := r.catalog.FindSimpleVariant(ctx, product.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return variant, err
}

func applyOrderFields(order *models.Order, remote clients.RemoteOrder, orderDate time.Time) error {
	var err error
	order.OrderNumber = remote.Number
	order.Status = remote.Status
	order.Currency = remote.Currency
	order.Country = stringPtr(remote.Shipping.Country)
	order.CustomerEmail = stringPtr(remote.Billing.Email)
	order.OrderDate = orderDate
	order.DeletedAt.Valid = false

	fields := []struct {
		name  string
		value string
		dest  *decimal.Decimal
	}{
		{"total", remote.Total, &order.TotalAmount},
		{"total_tax", remote.TotalTax, &order.TotalTax},
		{"shipping_total", remote.ShippingTotal, &order.TotalShipping},
		{"discount_total", remote.DiscountTotal, &order.TotalDiscount},
	}
	for _, f := range fields {
		var d decimal.Decimal
		if d, err = money.Parse(f.value); err != nil {
			return fmt.Errorf("invalid %s: %w", f.name, err)
		}
		*f.dest = money.Round2(d)
	}
	return nil
}

func orderDate(remote clients.RemoteOrder) (time.Time, error) {
	value := remote.DateCreatedGMT
	if value == "" {
		value = remote.DateCreated
	}
	if value == "" {
		return time.Time{}, errors.New("missing order date")
	}
	return parseRemoteTime(value)
}

// variantName joins attribute values ordered by attribute name
func variantName(variant *models.Variant) *string {
	if len(variant.Attributes) == 0 {
		return nil
	}
	names := make([]string, 0, len(variant.Attributes))
	for name := range variant.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]string, 0, len(names))
	for _, name := range names {
		if v, ok := variant.Attributes[name].(string); ok && v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil
	}
	joined := strings.Join(values, " / ")
	return &joined
}
