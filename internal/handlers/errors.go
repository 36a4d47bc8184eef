package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"profit-sync-service/internal/clients"
	"profit-sync-service/internal/repository"
	"profit-sync-service/internal/services"
)

// errorStatus maps a service error to its HTTP status
func errorStatus(err error) int {
	switch {
	case errors.Is(err, clients.ErrMissingCredentials),
		errors.Is(err, clients.ErrInvalidBaseURL),
		errors.Is(err, services.ErrNegativeCost),
		errors.Is(err, services.ErrConnectionFailed),
		errors.Is(err, services.ErrInvalidWebsite):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrWebsiteNotFound),
		errors.Is(err, services.ErrVariantNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrSyncInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, clients.ErrMissingCredentials) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	c.JSON(errorStatus(err), gin.H{"error": err.Error()})
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}
