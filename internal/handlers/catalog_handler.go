package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"profit-sync-service/internal/services"
)

// CatalogHandler exposes synced products and variants
type CatalogHandler struct {
	service *services.CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(service *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// ListProducts returns a website's products with their variants
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	websiteID, ok := parseID(c, "id")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	products, total, err := h.service.ListProducts(c.Request.Context(), websiteID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  products,
		"total": total,
	})
}

// GetVariant returns a single variant
func (h *CatalogHandler) GetVariant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	variant, err := h.service.GetVariant(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": variant})
}
