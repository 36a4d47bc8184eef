package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order mirrors a remote order, unique per (website, external id)
type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	WebsiteID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_orders_website_external,priority:1" json:"websiteId"`
	ExternalOrderID int64           `gorm:"not null;uniqueIndex:idx_orders_website_external,priority:2" json:"externalOrderId"`
	OrderNumber     string          `gorm:"type:varchar(100);not null" json:"orderNumber"`
	Status          string          `gorm:"type:varchar(50);not null;index" json:"status"`
	Currency        string          `gorm:"type:varchar(3)" json:"currency"`
	Country         *string         `gorm:"type:varchar(2)" json:"country,omitempty"`
	CustomerEmail   *string         `gorm:"type:varchar(255)" json:"customerEmail,omitempty"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalAmount"`
	TotalTax        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalTax"`
	TotalShipping   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalShipping"`
	TotalDiscount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalDiscount"`
	OrderDate       time.Time       `gorm:"not null;index" json:"orderDate"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"deletedAt,omitempty"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// TableName specifies the table name for Order
func (Order) TableName() string {
	return "orders"
}

// OrderItem is one line of an order. CostSnapshot is resolved from the cost
// ledger as of the order date and never recomputed from current costs.
type OrderItem struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"orderId"`
	WebsiteID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"websiteId"`
	VariantID      *uuid.UUID `gorm:"type:uuid;index" json:"variantId,omitempty"`
	ProductID      *uuid.UUID `gorm:"type:uuid" json:"productId,omitempty"`
	ExternalItemID int64      `gorm:"not null" json:"externalItemId"`
	ProductName    string     `gorm:"type:varchar(500);not null" json:"productName"`
	VariantName    *string    `gorm:"type:varchar(255)" json:"variantName,omitempty"`
	SKU            *string    `gorm:"type:varchar(255)" json:"sku,omitempty"`
	Quantity       int        `gorm:"not null" json:"quantity"`

	PricePerItem decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"pricePerItem"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	NetRevenue   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"netRevenue"`
	CostSnapshot decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"costSnapshot"`
	TotalCost    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalCost"`
	Profit       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"profit"`
	ProfitMargin decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"profitMargin"`

	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name for OrderItem
func (OrderItem) TableName() string {
	return "order_items"
}
