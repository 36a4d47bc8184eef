package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"profit-sync-service/internal/models"
	"profit-sync-service/internal/repository"
	"profit-sync-service/internal/services"
)

// SyncHandler handles sync trigger and sync run endpoints
type SyncHandler struct {
	service *services.SyncService
	tracker *services.SyncTracker
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(service *services.SyncService, tracker *services.SyncTracker) *SyncHandler {
	return &SyncHandler{
		service: service,
		tracker: tracker,
	}
}

// Sync runs a full sync of one website and waits for the outcome
func (h *SyncHandler) Sync(c *gin.Context) {
	websiteID, ok := parseID(c, "websiteId")
	if !ok {
		return
	}

	result, err := h.service.SyncWebsite(c.Request.Context(), websiteID, models.TriggerManual)
	if err != nil {
		respondError(c, err)
		return
	}
	if !result.Success {
		c.JSON(http.StatusInternalServerError, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListLogs returns sync runs, newest first
func (h *SyncHandler) ListLogs(c *gin.Context) {
	opts := repository.SyncListOptions{
		Status:   c.Query("status"),
		SyncType: c.Query("syncType"),
		Limit:    50,
	}

	if websiteID := c.Query("websiteId"); websiteID != "" {
		id, err := uuid.Parse(websiteID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid websiteId"})
			return
		}
		opts.WebsiteID = id
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			opts.Limit = limit
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			opts.Offset = offset
		}
	}

	logs, total, err := h.tracker.List(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  logs,
		"total": total,
	})
}

// GetLog returns a single sync run
func (h *SyncHandler) GetLog(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	run, err := h.tracker.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": run})
}

// GetStats returns sync run statistics
func (h *SyncHandler) GetStats(c *gin.Context) {
	var websiteID *uuid.UUID
	if idStr := c.Query("websiteId"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid websiteId"})
			return
		}
		websiteID = &id
	}

	stats, err := h.tracker.Stats(c.Request.Context(), websiteID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}
