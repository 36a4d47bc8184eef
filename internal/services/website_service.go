package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"profit-sync-service/internal/clients"
	"profit-sync-service/internal/models"
	"profit-sync-service/internal/repository"
	"profit-sync-service/internal/secrets"
)

// SecretStore keeps store credentials outside the database
type SecretStore interface {
	BuildSecretName(websiteID string) string
	GetSecret(ctx context.Context, secretName string) (*secrets.StoreSecret, error)
	CreateOrUpdateSecret(ctx context.Context, secretName string, secret *secrets.StoreSecret) error
}

// CreateWebsiteRequest contains the data for connecting a new store
type CreateWebsiteRequest struct {
	Name           string `json:"name"`
	BaseURL        string `json:"baseUrl"`
	ConsumerKey    string `json:"consumerKey"`
	ConsumerSecret string `json:"consumerSecret"`
	Currency       string `json:"currency"`
	SyncEnabled    *bool  `json:"syncEnabled"`
}

// UpdateWebsiteRequest contains the mutable fields of a website
type UpdateWebsiteRequest struct {
	Name        *string `json:"name"`
	Currency    *string `json:"currency"`
	SyncEnabled *bool   `json:"syncEnabled"`
}

// WebsiteService manages connected stores and their credentials
type WebsiteService struct {
	repo      *repository.WebsiteRepository
	secrets   SecretStore
	newClient ClientFactory
	audit     *AuditService
	logger    *logrus.Entry
}

// NewWebsiteService creates a new website service
func NewWebsiteService(repo *repository.WebsiteRepository, newClient ClientFactory, audit *AuditService, logger *logrus.Entry) *WebsiteService {
	return &WebsiteService{
		repo:      repo,
		newClient: newClient,
		audit:     audit,
		logger:    componentLogger(logger, "website_service"),
	}
}

// SetSecretStore stores credentials in store instead of the websites table
func (s *WebsiteService) SetSecretStore(store SecretStore) {
	s.secrets = store
}

// TestConnection probes the store with the given credentials. Missing fields
// are rejected before any request is made.
func (s *WebsiteService) TestConnection(ctx context.Context, creds clients.Credentials) (bool, error) {
	if err := creds.Validate(); err != nil {
		return false, err
	}
	client, err := s.newClient(creds)
	if err != nil {
		return false, err
	}
	return client.TestConnection(ctx), nil
}

// CreateWebsite validates and probes the credentials, then saves the website
func (s *WebsiteService) CreateWebsite(ctx context.Context, actorID string, req CreateWebsiteRequest) (*models.Website, error) {
	creds := clients.Credentials{
		BaseURL:        strings.TrimSpace(req.BaseURL),
		ConsumerKey:    strings.TrimSpace(req.ConsumerKey),
		ConsumerSecret: strings.TrimSpace(req.ConsumerSecret),
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, clients.ErrMissingCredentials
	}
	currency, err := normalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}

	ok, err := s.TestConnection(ctx, creds)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConnectionFailed
	}

	website := &models.Website{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(req.Name),
		BaseURL:     strings.TrimRight(creds.BaseURL, "/"),
		Currency:    currency,
		SyncEnabled: req.SyncEnabled == nil || *req.SyncEnabled,
	}

	if s.secrets != nil {
		secretName := s.secrets.BuildSecretName(website.ID.String())
		if err := s.secrets.CreateOrUpdateSecret(ctx, secretName, &secrets.StoreSecret{
			BaseURL:        website.BaseURL,
			ConsumerKey:    creds.ConsumerKey,
			ConsumerSecret: creds.ConsumerSecret,
		}); err != nil {
			return nil, fmt.Errorf("failed to store credentials: %w", err)
		}
		website.SecretReference = secretName
	} else {
		website.ConsumerKey = creds.ConsumerKey
		website.ConsumerSecret = creds.ConsumerSecret
	}

	if err := s.repo.Create(ctx, website); err != nil {
		return nil, fmt.Errorf("failed to create website: %w", err)
	}

	if s.audit != nil {
		if err := s.audit.LogWebsiteCreate(ctx, actorID, website); err != nil {
			s.logger.WithError(err).Warn("Failed to audit website creation")
		}
	}

	s.logger.WithField("website_id", website.ID).Info("Website connected")
	return website, nil
}

// ListWebsites returns every website
func (s *WebsiteService) ListWebsites(ctx context.Context) ([]models.Website, error) {
	return s.repo.List(ctx)
}

// GetWebsite returns one website
func (s *WebsiteService) GetWebsite(ctx context.Context, id uuid.UUID) (*models.Website, error) {
	website, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWebsiteNotFound
		}
		return nil, err
	}
	return website, nil
}

// UpdateWebsite applies the non-nil fields of req
func (s *WebsiteService) UpdateWebsite(ctx context.Context, actorID string, id uuid.UUID, req UpdateWebsiteRequest) (*models.Website, error) {
	website, err := s.GetWebsite(ctx, id)
	if err != nil {
		return nil, err
	}

	oldValues := models.JSONB{}
	newValues := models.JSONB{}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidWebsite)
		}
		oldValues["name"], newValues["name"] = website.Name, name
		website.Name = name
	}
	if req.Currency != nil {
		currency, err := normalizeCurrency(*req.Currency)
		if err != nil {
			return nil, err
		}
		oldValues["currency"], newValues["currency"] = website.Currency, currency
		website.Currency = currency
	}
	if req.SyncEnabled != nil {
		oldValues["syncEnabled"], newValues["syncEnabled"] = website.SyncEnabled, *req.SyncEnabled
		website.SyncEnabled = *req.SyncEnabled
	}

	if err := s.repo.Update(ctx, website); err != nil {
		return nil, fmt.Errorf("failed to update website: %w", err)
	}

	if s.audit != nil && len(newValues) > 0 {
		if err := s.audit.LogWebsiteUpdate(ctx, actorID, website.ID, oldValues, newValues); err != nil {
			s.logger.WithError(err).Warn("Failed to audit website update")
		}
	}
	return website, nil
}

// Resolve returns the credentials of a website from the secret store or
// the inline columns
func (s *WebsiteService) Resolve(ctx context.Context, website *models.Website) (clients.Credentials, error) {
	if website.SecretReference != "" {
		if s.secrets == nil {
			return clients.Credentials{}, fmt.Errorf("website %s references a secret but no secret store is configured", website.ID)
		}
		secret, err := s.secrets.GetSecret(ctx, website.SecretReference)
		if err != nil {
			return clients.Credentials{}, err
		}
		baseURL := secret.BaseURL
		if baseURL == "" {
			baseURL = website.BaseURL
		}
		creds := clients.Credentials{
			BaseURL:        baseURL,
			ConsumerKey:    secret.ConsumerKey,
			ConsumerSecret: secret.ConsumerSecret,
		}
		return creds, creds.Validate()
	}

	creds := clients.Credentials{
		BaseURL:        website.BaseURL,
		ConsumerKey:    website.ConsumerKey,
		ConsumerSecret: website.ConsumerSecret,
	}
	return creds, creds.Validate()
}

// normalizeCurrency upper-cases an ISO 4217 code; empty means USD
func normalizeCurrency(currency string) (string, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return "USD", nil
	}
	if len(currency) != 3 {
		return "", fmt.Errorf("%w: currency must be a three-letter code", ErrInvalidWebsite)
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: currency must be a three-letter code", ErrInvalidWebsite)
		}
	}
	return currency, nil
}
