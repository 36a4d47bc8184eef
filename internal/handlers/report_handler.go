package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"profit-sync-service/internal/middleware"
	"profit-sync-service/internal/repository"
	"profit-sync-service/internal/services"
)

// ReportHandler serves profit aggregates, listings and exports
type ReportHandler struct {
	service *services.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// parseReportFilter reads websiteId, from, to and status query parameters.
// Dates are RFC3339 or YYYY-MM-DD; a bare "to" date includes the whole day.
func parseReportFilter(c *gin.Context) (repository.ReportFilter, error) {
	var filter repository.ReportFilter

	if idStr := c.Query("websiteId"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return filter, fmt.Errorf("invalid websiteId")
		}
		filter.WebsiteID = &id
	}
	if from := c.Query("from"); from != "" {
		t, _, err := parseReportDate(from)
		if err != nil {
			return filter, fmt.Errorf("invalid from date")
		}
		filter.From = &t
	}
	if to := c.Query("to"); to != "" {
		t, dateOnly, err := parseReportDate(to)
		if err != nil {
			return filter, fmt.Errorf("invalid to date")
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		filter.To = &t
	}
	if status := c.Query("status"); status != "" {
		for _, s := range strings.Split(status, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Statuses = append(filter.Statuses, s)
			}
		}
	}
	return filter, nil
}

func parseReportDate(value string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse("2006-01-02", value)
	return t.UTC(), true, err
}

// Summary returns revenue, cost, profit and margin totals
func (h *ReportHandler) Summary(c *gin.Context) {
	filter, err := parseReportFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// Items returns a page of the flat order-item listing
func (h *ReportHandler) Items(c *gin.Context) {
	filter, err := parseReportFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	rows, total, err := h.service.ListItems(c.Request.Context(), filter, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  rows,
		"total": total,
	})
}

// ExportCSV streams the listing as CSV
func (h *ReportHandler) ExportCSV(c *gin.Context) {
	h.export(c, services.ExportCSV, "text/csv")
}

// ExportXLSX streams the listing as an Excel workbook
func (h *ReportHandler) ExportXLSX(c *gin.Context) {
	h.export(c, services.ExportXLSX, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

func (h *ReportHandler) export(c *gin.Context, format, contentType string) {
	filter, err := parseReportFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Buffered so a failed export still gets a JSON error response
	var buf bytes.Buffer
	if _, err := h.service.Export(c.Request.Context(), middleware.GetUserID(c), format, filter, &buf); err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("profit-report-%s.%s", time.Now().UTC().Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
