package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"profit-sync-service/internal/models"
	"profit-sync-service/internal/services"
)

// AuditHandler handles audit log queries
type AuditHandler struct {
	auditService *services.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// GetAuditLogs returns the audit trail of one resource
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	resourceType := c.Query("resourceType")
	resourceID := c.Query("resourceId")
	if resourceType == "" || resourceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resourceType and resourceId are required"})
		return
	}

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	logs, err := h.auditService.ListForResource(c.Request.Context(), models.ResourceType(resourceType), resourceID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve audit logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  logs,
		"total": len(logs),
	})
}
