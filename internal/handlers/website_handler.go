package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"profit-sync-service/internal/clients"
	"profit-sync-service/internal/middleware"
	"profit-sync-service/internal/services"
)

// WebsiteHandler handles website endpoints
type WebsiteHandler struct {
	service *services.WebsiteService
}

// NewWebsiteHandler creates a new website handler
func NewWebsiteHandler(service *services.WebsiteService) *WebsiteHandler {
	return &WebsiteHandler{service: service}
}

// TestConnectionRequest carries credentials to probe
type TestConnectionRequest struct {
	BaseURL        string `json:"baseUrl"`
	ConsumerKey    string `json:"consumerKey"`
	ConsumerSecret string `json:"consumerSecret"`
}

// List returns all websites
func (h *WebsiteHandler) List(c *gin.Context) {
	websites, err := h.service.ListWebsites(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": websites})
}

// Create connects a new website
func (h *WebsiteHandler) Create(c *gin.Context) {
	var req services.CreateWebsiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	website, err := h.service.CreateWebsite(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": website})
}

// Get returns a single website
func (h *WebsiteHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	website, err := h.service.GetWebsite(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": website})
}

// Update changes name, currency or sync flag of a website
func (h *WebsiteHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateWebsiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	website, err := h.service.UpdateWebsite(c.Request.Context(), middleware.GetUserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": website})
}

// TestConnection probes a store without saving anything
func (h *WebsiteHandler) TestConnection(c *gin.Context) {
	var req TestConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, err := h.service.TestConnection(c.Request.Context(), clients.Credentials{
		BaseURL:        req.BaseURL,
		ConsumerKey:    req.ConsumerKey,
		ConsumerSecret: req.ConsumerSecret,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": ok})
}
