package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProductType discriminates WooCommerce product kinds
type ProductType string

const (
	ProductTypeSimple   ProductType = "simple"
	ProductTypeVariable ProductType = "variable"
)

// Product mirrors a remote catalog product, unique per (website, external id)
type Product struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	WebsiteID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_products_website_external,priority:1" json:"websiteId"`
	ExternalProductID int64          `gorm:"not null;uniqueIndex:idx_products_website_external,priority:2" json:"externalProductId"`
	Name              string         `gorm:"type:varchar(500);not null" json:"name"`
	SKU               *string        `gorm:"type:varchar(255)" json:"sku,omitempty"`
	Type              ProductType    `gorm:"type:varchar(50);not null" json:"type"`
	Status            string         `gorm:"type:varchar(50)" json:"status"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deletedAt,omitempty"`

	Variants []Variant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
}

// TableName specifies the table name for Product
func (Product) TableName() string {
	return "products"
}

// Variant is a sellable SKU. Simple products own exactly one variant with a
// nil ExternalVariationID.
type Variant struct {
	ID                  uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID           uuid.UUID           `gorm:"type:uuid;not null;index;uniqueIndex:idx_variants_product_external,priority:1" json:"productId"`
	WebsiteID           uuid.UUID           `gorm:"type:uuid;not null;index:idx_variants_website_external,priority:1" json:"websiteId"`
	ExternalVariationID *int64              `gorm:"uniqueIndex:idx_variants_product_external,priority:2;index:idx_variants_website_external,priority:2" json:"externalVariationId,omitempty"`
	SKU                 *string             `gorm:"type:varchar(255)" json:"sku,omitempty"`
	Attributes          datatypes.JSONMap   `json:"attributes"`
	PriceRegular        decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"priceRegular"`
	PriceSale           decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"priceSale"`
	SaleDateFrom        *time.Time          `json:"saleDateFrom,omitempty"`
	SaleDateTo          *time.Time          `json:"saleDateTo,omitempty"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
	DeletedAt           gorm.DeletedAt      `gorm:"index" json:"deletedAt,omitempty"`
}

// TableName specifies the table name for Variant
func (Variant) TableName() string {
	return "variants"
}

// Cost is an append-only ledger entry. Rows are never updated or deleted.
type Cost struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	VariantID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_costs_variant_effective,priority:1" json:"variantId"`
	CostAmount    decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"costAmount"`
	EffectiveFrom time.Time       `gorm:"not null;index:idx_costs_variant_effective,priority:2" json:"effectiveFrom"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// TableName specifies the table name for Cost
func (Cost) TableName() string {
	return "costs"
}
