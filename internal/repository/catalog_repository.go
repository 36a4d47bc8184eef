package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"profit-sync-service/internal/models"
)

// CatalogRepository handles products and variants. Lookups by external id
// include soft-deleted rows so a re-synced product is restored in place.
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// WithTransaction runs fn with a repository bound to a single transaction
func (r *CatalogRepository) WithTransaction(ctx context.Context, fn func(txRepo *CatalogRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&CatalogRepository{db: tx})
	})
}

// FindProductByExternalID looks up a product by (website, external id)
func (r *CatalogRepository) FindProductByExternalID(ctx context.Context, websiteID uuid.UUID, externalID int64) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Unscoped().
		Where("website_id = ? AND external_product_id = ?", websiteID, externalID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// SaveProduct inserts a new product or rewrites an existing one
func (r *CatalogRepository) SaveProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
		return r.db.WithContext(ctx).Create(product).Error
	}
	return r.db.WithContext(ctx).Unscoped().Omit("Variants").Save(product).Error
}

// FindSimpleVariant returns the single variant of a simple product
func (r *CatalogRepository) FindSimpleVariant(ctx context.Context, productID uuid.UUID) (*models.Variant, error) {
	var variant models.Variant
	err := r.db.WithContext(ctx).Unscoped().
		Where("product_id = ? AND external_variation_id IS NULL", productID).
		Order("created_at ASC").
		First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &variant, nil
}

// FindVariation returns the variant of a product mapped to a remote variation
func (r *CatalogRepository) FindVariation(ctx context.Context, productID uuid.UUID, externalVariationID int64) (*models.Variant, error) {
	var variant models.Variant
	err := r.db.WithContext(ctx).Unscoped().
		Where("product_id = ? AND external_variation_id = ?", productID, externalVariationID).
		First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &variant, nil
}

// FindVariantByExternalID looks up a variant by (website, external variation id)
func (r *CatalogRepository) FindVariantByExternalID(ctx context.Context, websiteID uuid.UUID, externalVariationID int64) (*models.Variant, error) {
	var variant models.Variant
	err := r.db.WithContext(ctx).Unscoped().
		Where("website_id = ? AND external_variation_id = ?", websiteID, externalVariationID).
		First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &variant, nil
}

// SaveVariant inserts a new variant or rewrites an existing one
func (r *CatalogRepository) SaveVariant(ctx context.Context, variant *models.Variant) error {
	if variant.ID == uuid.Nil {
		variant.ID = uuid.New()
		return r.db.WithContext(ctx).Create(variant).Error
	}
	return r.db.WithContext(ctx).Unscoped().Save(variant).Error
}

// GetVariant retrieves a variant by ID
func (r *CatalogRepository) GetVariant(ctx context.Context, id uuid.UUID) (*models.Variant, error) {
	var variant models.Variant
	err := r.db.WithContext(ctx).First(&variant, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &variant, nil
}

// ListVariants returns the variants of a product
func (r *CatalogRepository) ListVariants(ctx context.Context, productID uuid.UUID) ([]models.Variant, error) {
	var variants []models.Variant
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&variants).Error
	return variants, err
}

// CountProducts returns the number of products stored for a website
func (r *CatalogRepository) CountProducts(ctx context.Context, websiteID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("website_id = ?", websiteID).
		Count(&count).Error
	return count, err
}

// ListProducts returns a page of a website's products with their variants
func (r *CatalogRepository) ListProducts(ctx context.Context, websiteID uuid.UUID, limit, offset int) ([]models.Product, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("website_id = ?", websiteID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("website_id = ?", websiteID).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Order("name ASC").
		Limit(limit).
		Offset(offset).
		Find(&products).Error
	return products, total, err
}
