package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"profit-sync-service/internal/models"
)

// OrderRepository handles orders and their line items
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// WithTransaction runs fn with a repository bound to a single transaction
func (r *OrderRepository) WithTransaction(ctx context.Context, fn func(txRepo *OrderRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&OrderRepository{db: tx})
	})
}

// FindByExternalID looks up an order by (website, external id), including
// soft-deleted rows
func (r *OrderRepository) FindByExternalID(ctx context.Context, websiteID uuid.UUID, externalID int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Unscoped().
		Where("website_id = ? AND external_order_id = ?", websiteID, externalID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetByID retrieves an order with its items
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("external_item_id ASC") }).
		First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// SaveOrder inserts a new order or rewrites an existing one
func (r *OrderRepository) SaveOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
		return r.db.WithContext(ctx).Omit("Items").Create(order).Error
	}
	return r.db.WithContext(ctx).Unscoped().Omit("Items").Save(order).Error
}

// ReplaceItems discards every line item of an order and inserts items
func (r *OrderRepository) ReplaceItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	return db.Create(&items).Error
}

// ListItems returns the line items of an order
func (r *OrderRepository) ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("external_item_id ASC").
		Find(&items).Error
	return items, err
}
