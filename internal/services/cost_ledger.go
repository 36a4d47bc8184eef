package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"profit-sync-service/internal/models"
	"profit-sync-service/internal/repository"
)

// CostLedger is the append-only temporal store of variant costs
type CostLedger struct {
	costs   *repository.CostRepository
	catalog *repository.CatalogRepository
	audit   *AuditService
	now     func() time.Time
	logger  *logrus.Entry
}

// NewCostLedger creates a new cost ledger. audit may be nil.
func NewCostLedger(costs *repository.CostRepository, catalog *repository.CatalogRepository, audit *AuditService, logger *logrus.Entry) *CostLedger {
	return &CostLedger{
		costs:   costs,
		catalog: catalog,
		audit:   audit,
		now:     time.Now,
		logger:  componentLogger(logger, "cost_ledger"),
	}
}

// SetClock replaces the clock used for current-cost lookups
func (l *CostLedger) SetClock(now func() time.Time) {
	l.now = now
}

// RecordCost appends a ledger entry. Entries sharing a timestamp are kept.
func (l *CostLedger) RecordCost(ctx context.Context, variantID uuid.UUID, amount decimal.Decimal, effectiveFrom time.Time) (*models.Cost, error) {
	if amount.IsNegative() {
		return nil, ErrNegativeCost
	}
	cost := &models.Cost{
		VariantID:     variantID,
		CostAmount:    amount,
		EffectiveFrom: effectiveFrom.UTC(),
	}
	if err := l.costs.Append(ctx, cost); err != nil {
		return nil, fmt.Errorf("failed to record cost: %w", err)
	}
	return cost, nil
}

// ResolveCostAt returns the cost in effect at asOf, or zero when none was
// recorded yet
func (l *CostLedger) ResolveCostAt(ctx context.Context, variantID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	cost, err := l.costs.LatestAt(ctx, variantID, asOf)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to resolve cost: %w", err)
	}
	return cost.CostAmount, nil
}

// ResolveCurrentCost is ResolveCostAt evaluated at the ledger clock
func (l *CostLedger) ResolveCurrentCost(ctx context.Context, variantID uuid.UUID) (decimal.Decimal, error) {
	return l.ResolveCostAt(ctx, variantID, l.now())
}

// History returns every ledger entry of a variant, newest first
func (l *CostLedger) History(ctx context.Context, variantID uuid.UUID) ([]models.Cost, error) {
	if _, err := l.variant(ctx, variantID); err != nil {
		return nil, err
	}
	return l.costs.History(ctx, variantID)
}

// RecordVariantCost checks the variant exists, records the cost and writes
// an audit entry. A zero effectiveFrom means now.
func (l *CostLedger) RecordVariantCost(ctx context.Context, actorID string, variantID uuid.UUID, amount decimal.Decimal, effectiveFrom time.Time) (*models.Cost, error) {
	if _, err := l.variant(ctx, variantID); err != nil {
		return nil, err
	}
	if effectiveFrom.IsZero() {
		effectiveFrom = l.now()
	}

	previous, err := l.ResolveCostAt(ctx, variantID, effectiveFrom)
	if err != nil {
		return nil, err
	}

	cost, err := l.RecordCost(ctx, variantID, amount, effectiveFrom)
	if err != nil {
		return nil, err
	}

	if l.audit != nil {
		if err := l.audit.LogCostRecord(ctx, actorID, cost, previous); err != nil {
			l.logger.WithError(err).WithField("variantId", variantID).Warn("Failed to write cost audit entry")
		}
	}
	return cost, nil
}

func (l *CostLedger) variant(ctx context.Context, variantID uuid.UUID) (*models.Variant, error) {
	variant, err := l.catalog.GetVariant(ctx, variantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVariantNotFound
		}
		return nil, err
	}
	return variant, nil
}

// VariantCostAt checks the variant exists and resolves its cost at asOf.
// A zero asOf means now; the instant used is returned.
func (l *CostLedger) VariantCostAt(ctx context.Context, variantID uuid.UUID, asOf time.Time) (decimal.Decimal, time.Time, error) {
	if _, err := l.variant(ctx, variantID); err != nil {
		return decimal.Zero, time.Time{}, err
	}
	if asOf.IsZero() {
		asOf = l.now()
	}
	cost, err := l.ResolveCostAt(ctx, variantID, asOf)
	return cost, asOf.UTC(), err
}
