package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"profit-sync-service/internal/models"
	"profit-sync-service/internal/repository"
)

// CatalogService is the read side of synced products and variants
type CatalogService struct {
	repo     *repository.CatalogRepository
	websites *repository.WebsiteRepository
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo *repository.CatalogRepository, websites *repository.WebsiteRepository) *CatalogService {
	return &CatalogService{repo: repo, websites: websites}
}

// ListProducts returns a page of a website's products with their variants
func (s *CatalogService) ListProducts(ctx context.Context, websiteID uuid.UUID, limit, offset int) ([]models.Product, int64, error) {
	if _, err := s.websites.GetByID(ctx, websiteID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, ErrWebsiteNotFound
		}
		return nil, 0, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListProducts(ctx, websiteID, limit, offset)
}

// GetVariant returns one variant
func (s *CatalogService) GetVariant(ctx context.Context, id uuid.UUID) (*models.Variant, error) {
	variant, err := s.repo.GetVariant(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVariantNotFound
		}
		return nil, err
	}
	return variant, nil
}
