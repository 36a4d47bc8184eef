package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"profit-sync-service/internal/clients"
	"profit-sync-service/internal/models"
	"profit-sync-service/internal/money"
	"profit-sync-service/internal/repository"
)

// CatalogReconciler upserts remote products and variations into local
// products and variants keyed by external id. Local variants missing from
// the remote side are never deleted.
type CatalogReconciler struct {
	repo     *repository.CatalogRepository
	pageSize int
	logger   *logrus.Entry
}

// NewCatalogReconciler creates a new catalog reconciler
func NewCatalogReconciler(repo *repository.CatalogRepository, pageSize int, logger *logrus.Entry) *CatalogReconciler {
	if pageSize <= 0 {
		pageSize = clients.DefaultPageSize
	}
	return &CatalogReconciler{
		repo:     repo,
		pageSize: pageSize,
		logger:   componentLogger(logger, "catalog_reconciler"),
	}
}

// Reconcile writes one remote product and its variants. Variations of a
// variable product are fetched before any row is written, and all rows of
// the product are written in one transaction.
func (r *CatalogReconciler) Reconcile(ctx context.Context, client clients.CatalogClient, website *models.Website, remote clients.RemoteProduct) error {
	var variations []clients.RemoteVariation
	if models.ProductType(remote.Type) == models.ProductTypeVariable {
		fetched, err := r.fetchVariations(ctx, client, remote.ID)
		if err != nil {
			return err
		}
		variations = fetched
	}

	return r.repo.WithTransaction(ctx, func(txRepo *repository.CatalogRepository) error {
		product, err := r.upsertProduct(ctx, txRepo, website, remote)
		if err != nil {
			return err
		}

		switch product.Type {
		case models.ProductTypeSimple:
			return r.upsertSimpleVariant(ctx, txRepo, product, remote)
		case models.ProductTypeVariable:
			for _, variation := range variations {
				if err := r.upsertVariation(ctx, txRepo, product, variation); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (r *CatalogReconciler) fetchVariations(ctx context.Context, client clients.CatalogClient, productID int64) ([]clients.RemoteVariation, error) {
	var all []clients.RemoteVariation
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req := clients.PageRequest{Page: page, PageSize: r.pageSize}
		batch, err := client.FetchVariations(ctx, productID, req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch variations of product %d: %w", productID, err)
		}
		all = append(all, batch...)
		if req.IsLastPage(len(batch)) {
			return all, nil
		}
	}
}

func (r *CatalogReconciler) upsertProduct(ctx context.Context, repo *repository.CatalogRepository, website *models.Website, remote clients.RemoteProduct) (*models.Product, error) {
	product, err := repo.FindProductByExternalID(ctx, website.ID, remote.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		product = &models.Product{
			WebsiteID:         website.ID,
			ExternalProductID: remote.ID,
		}
	}

	product.Name = remote.Name
	product.SKU = stringPtr(remote.SKU)
	product.Type = models.ProductType(remote.Type)
	product.Status = remote.Status
	product.DeletedAt.Valid = false

	if err := repo.SaveProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to save product %d: %w", remote.ID, err)
	}
	return product, nil
}

func (r *CatalogReconciler) upsertSimpleVariant(ctx context.Context, repo *repository.CatalogRepository, product *models.Product, remote clients.RemoteProduct) error {
	variant, err := repo.FindSimpleVariant(ctx, product.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		variant = &models.Variant{ProductID: product.ID}
	}

	variant.WebsiteID = product.WebsiteID
	variant.ExternalVariationID = nil
	variant.SKU = stringPtr(remote.SKU)
	variant.Attributes = datatypes.JSONMap{}
	applyPricing(variant, remote.RegularPrice, remote.SalePrice, remote.DateOnSaleFromGMT, remote.DateOnSaleToGMT)
	variant.DeletedAt.Valid = false

	if err := repo.SaveVariant(ctx, variant); err != nil {
		return fmt.Errorf("failed to save variant of product %d: %w", remote.ID, err)
	}
	return nil
}

func (r *CatalogReconciler) upsertVariation(ctx context.Context, repo *repository.CatalogRepository, product *models.Product, remote clients.RemoteVariation) error {
	variant, err := repo.FindVariation(ctx, product.ID, remote.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		externalID := remote.ID
		variant = &models.Variant{
			ProductID:           product.ID,
			ExternalVariationID: &externalID,
		}
	}

	variant.WebsiteID = product.WebsiteID
	variant.SKU = stringPtr(remote.SKU)
	variant.Attributes = datatypes.JSONMap(remote.AttributeMap())
	applyPricing(variant, remote.RegularPrice, remote.SalePrice, remote.DateOnSaleFromGMT, remote.DateOnSaleToGMT)
	variant.DeletedAt.Valid = false

	if err := repo.SaveVariant(ctx, variant); err != nil {
		return fmt.Errorf("failed to save variation %d: %w", remote.ID, err)
	}
	return nil
}

func applyPricing(variant *models.Variant, regular, sale string, saleFrom, saleTo *string) {
	variant.PriceRegular = money.ParseOrZero(regular)
	variant.PriceSale = money.ParseOptional(sale)
	variant.SaleDateFrom = parseOptionalRemoteTime(saleFrom)
	variant.SaleDateTo = parseOptionalRemoteTime(saleTo)
}
