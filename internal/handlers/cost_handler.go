package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"profit-sync-service/internal/middleware"
	"profit-sync-service/internal/services"
)

// CostHandler handles the per-variant cost ledger
type CostHandler struct {
	ledger *services.CostLedger
}

// NewCostHandler creates a new cost handler
func NewCostHandler(ledger *services.CostLedger) *CostHandler {
	return &CostHandler{ledger: ledger}
}

// RecordCostRequest appends a cost. EffectiveFrom defaults to now.
type RecordCostRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	EffectiveFrom *time.Time      `json:"effectiveFrom"`
}

// Record appends a ledger entry for a variant
func (h *CostHandler) Record(c *gin.Context) {
	variantID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req RecordCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var effectiveFrom time.Time
	if req.EffectiveFrom != nil {
		effectiveFrom = *req.EffectiveFrom
	}

	cost, err := h.ledger.RecordVariantCost(c.Request.Context(), middleware.GetUserID(c), variantID, req.Amount, effectiveFrom)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": cost})
}

// History returns every ledger entry of a variant, newest first
func (h *CostHandler) History(c *gin.Context) {
	variantID, ok := parseID(c, "id")
	if !ok {
		return
	}

	costs, err := h.ledger.History(c.Request.Context(), variantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": costs})
}

// Resolve returns the cost in effect at the "at" query time, or now
func (h *CostHandler) Resolve(c *gin.Context) {
	variantID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var at time.Time
	if atStr := c.Query("at"); atStr != "" {
		parsed, err := time.Parse(time.RFC3339, atStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "at must be an RFC3339 timestamp"})
			return
		}
		at = parsed
	}

	cost, resolvedAt, err := h.ledger.VariantCostAt(c.Request.Context(), variantID, at)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"variantId": variantID,
		"at":        resolvedAt,
		"cost":      cost,
	}})
}
