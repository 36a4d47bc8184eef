package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"profit-sync-service/internal/middleware"
)

// Handlers groups every HTTP handler of the service
type Handlers struct {
	Health  *HealthHandler
	Website *WebsiteHandler
	Catalog *CatalogHandler
	Sync    *SyncHandler
	Cost    *CostHandler
	Report  *ReportHandler
	Audit   *AuditHandler
}

// NewRouter configures the HTTP router
func NewRouter(logger *logrus.Logger, corsOrigins []string, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(corsOrigins))
	router.Use(middleware.Actor())

	// Health check
	router.GET("/health", h.Health.Health)
	router.GET("/ready", h.Health.Ready)

	v1 := router.Group("/api/v1")
	{
		websites := v1.Group("/websites")
		{
			websites.GET("", h.Website.List)
			websites.POST("", h.Website.Create)
			websites.POST("/test-connection", h.Website.TestConnection)
			websites.GET("/:id", h.Website.Get)
			websites.PATCH("/:id", h.Website.Update)
			websites.GET("/:id/products", h.Catalog.ListProducts)
		}

		variants := v1.Group("/variants")
		{
			variants.GET("/:id", h.Catalog.GetVariant)
			variants.GET("/:id/costs", h.Cost.History)
			variants.POST("/:id/costs", h.Cost.Record)
			variants.GET("/:id/cost", h.Cost.Resolve)
		}

		sync := v1.Group("/sync")
		{
			sync.GET("/logs", h.Sync.ListLogs)
			sync.GET("/logs/:id", h.Sync.GetLog)
			sync.GET("/stats", h.Sync.GetStats)
			sync.POST("/:websiteId", h.Sync.Sync)
		}

		reports := v1.Group("/reports")
		{
			reports.GET("/summary", h.Report.Summary)
			reports.GET("/items", h.Report.Items)
			reports.GET("/export.csv", h.Report.ExportCSV)
			reports.GET("/export.xlsx", h.Report.ExportXLSX)
		}

		v1.GET("/audit-logs", h.Audit.GetAuditLogs)
	}

	return router
}
