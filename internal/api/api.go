package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nandorodriques37/planejamento-compras-app/internal/api/handlers"
	"github.com/nandorodriques37/planejamento-compras-app/internal/api/middleware"
	"github.com/nandorodriques37/planejamento-compras-app/internal/approval"
	"github.com/nandorodriques37/planejamento-compras-app/internal/loader"
	"github.com/nandorodriques37/planejamento-compras-app/internal/planning"
	"github.com/nandorodriques37/planejamento-compras-app/internal/storage"
)

type Services struct {
	Planner   *planning.Planner
	Approvals *approval.Service
	Bundles   *loader.BundleCache

	// Snapshot publishing; nil Storage disables it.
	Storage        storage.ObjectStorage
	SnapshotPrefix string

	Now func() time.Time
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:5173"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services == nil {
		return router
	}

	if services.Planner != nil {
		opts := []handlers.PlanningOption{handlers.WithSnapshotStorage(services.Storage, services.SnapshotPrefix)}
		if services.Bundles != nil {
			opts = append(opts, handlers.WithBundles(services.Bundles))
		}
		if services.Now != nil {
			opts = append(opts, handlers.WithHandlerClock(services.Now))
		}
		planningHandler := handlers.NewPlanningHandler(services.Planner, opts...)

		planningGroup := apiGroup.Group("/planning", planningHandler.RefreshBundle)
		{
			planningGroup.GET("/metadata", planningHandler.GetMetadata)
			planningGroup.POST("/reload", planningHandler.Reload)

			planningGroup.GET("/skus", planningHandler.ListSKUs)
			planningGroup.GET("/skus/:sku", planningHandler.GetSKU)

			planningGroup.GET("/overrides", planningHandler.ListOverrides)
			planningGroup.DELETE("/overrides", planningHandler.ClearAllOverrides)
			planningGroup.PUT("/skus/:sku/overrides/:month", planningHandler.SetOverride)
			planningGroup.DELETE("/skus/:sku/overrides/:month", planningHandler.ClearOverride)
			planningGroup.DELETE("/skus/:sku/overrides", planningHandler.ClearSKUOverrides)

			planningGroup.GET("/skus/:sku/weekly", planningHandler.GetWeeklyPlan)
			planningGroup.PUT("/skus/:sku/weekly/:block", planningHandler.SetWeeklyOverride)
			planningGroup.DELETE("/skus/:sku/weekly/:block", planningHandler.ClearWeeklyOverride)

			planningGroup.POST("/skus/:sku/coverage", planningHandler.ComputeCoverage)
			planningGroup.POST("/skus/:sku/coverage/apply", planningHandler.ApplyCoverage)

			exportGroup := planningGroup.Group("/export")
			{
				exportGroup.GET("/csv", planningHandler.ExportCSV)
				exportGroup.GET("/xlsx", planningHandler.ExportXLSX)
				exportGroup.GET("/snapshot", planningHandler.ExportSnapshot)
				exportGroup.POST("/snapshot/publish", planningHandler.PublishSnapshot)
			}
		}
	}

	if services.Approvals != nil {
		approvalHandler := handlers.NewApprovalHandler(services.Approvals)
		approvalGroup := apiGroup.Group("/approvals")
		{
			approvalGroup.POST("", approvalHandler.CreateApproval)
			approvalGroup.GET("", approvalHandler.ListApprovals)
			approvalGroup.GET("/:id", approvalHandler.GetApproval)
			approvalGroup.POST("/:id/status", approvalHandler.DecideApproval)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			trimmed := strings.TrimRight(strings.TrimSpace(part), "/")
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
