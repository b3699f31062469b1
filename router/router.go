package router

import (
	"time"

	"github.com/AgriPilot/agripilot-backend/config"
	"github.com/AgriPilot/agripilot-backend/handlers"
	"github.com/AgriPilot/agripilot-backend/middleware"
	"github.com/AgriPilot/agripilot-backend/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Dependencies holds everything SetupRouter needs to wire the routes.
type Dependencies struct {
	Config            *config.Config
	JWTValidator      middleware.Validator
	RateLimiter       services.RateLimiterInterface
	FarmHandler       *handlers.FarmHandler
	DocumentHandler   *handlers.DocumentHandler
	ExtractionHandler *handlers.ExtractionHandler
	ReviewHandler     *handlers.ReviewHandler
	SubsidyHandler    *handlers.SubsidyHandler
	PipelineHandler   *handlers.PipelineHandler
	ExportHandler     *handlers.ExportHandler
	ProgressHandler   *handlers.ProgressHandler
	HealthHandler     *handlers.HealthHandler
	Logger            *zap.SugaredLogger
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.Default()

	// Global middleware
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))
	r.Use(middleware.SecurityHeadersMiddleware(deps.Config))

	// Health and metrics (no auth)
	r.GET("/health", deps.HealthHandler.GetHealthHandler)
	r.GET("/health/liveness", deps.HealthHandler.LivenessHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Versioned API group (v1), everything authenticated
	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(deps.JWTValidator))
	{
		// Starting a pipeline or uploading a document is expensive; both
		// get a tighter per-user budget than plain reads.
		uploadLimit := middleware.EndpointRateLimiter(deps.RateLimiter, 30, time.Minute)
		pipelineLimit := middleware.EndpointRateLimiter(deps.RateLimiter, 10, time.Minute)

		// Purging a farm and resyncing the whole catalog are destructive
		// or platform-wide; both need the admin role.
		adminOnly := middleware.RequireRole("admin")

		farmRoutes := v1.Group("/farms")
		{
			farmRoutes.POST("", deps.FarmHandler.CreateFarmHandler)
			farmRoutes.GET("", deps.FarmHandler.ListFarmsHandler)
			farmRoutes.GET("/:id", deps.FarmHandler.GetFarmHandler)
			farmRoutes.PUT("/:id", deps.FarmHandler.UpdateFarmHandler)
			farmRoutes.DELETE("/:id", deps.FarmHandler.DeleteFarmHandler)

			// Document routes
			documentRoutes := farmRoutes.Group("/:id/documents")
			{
				documentRoutes.POST("", uploadLimit, deps.DocumentHandler.UploadDocumentHandler)
				documentRoutes.GET("", deps.DocumentHandler.ListDocumentsHandler)
				documentRoutes.GET("/:documentID", deps.DocumentHandler.GetDocumentHandler)
				documentRoutes.GET("/:documentID/download", deps.DocumentHandler.DownloadDocumentHandler)
				documentRoutes.DELETE("/:documentID", deps.DocumentHandler.DeleteDocumentHandler)
			}

			farmRoutes.GET("/:id/extractions", deps.ExtractionHandler.ListExtractionsHandler)
			farmRoutes.GET("/:id/matches", deps.SubsidyHandler.ListMatchesHandler)
			farmRoutes.GET("/:id/export", deps.ExportHandler.ExportFarmHandler)
			farmRoutes.POST("/:id/purge", adminOnly, pipelineLimit, deps.PipelineHandler.StartPurgeHandler)
			farmRoutes.POST("/:id/pipeline", pipelineLimit, deps.PipelineHandler.StartDualPipelineHandler)
		}

		// Extraction review routes
		extractionRoutes := v1.Group("/extractions")
		{
			extractionRoutes.GET("/:extractionID", deps.ExtractionHandler.GetExtractionHandler)
			extractionRoutes.GET("/:extractionID/audits", deps.ExtractionHandler.ListAuditsHandler)
			extractionRoutes.POST("/:extractionID/save", deps.ExtractionHandler.SaveCorrectionsHandler)

			fieldRoutes := extractionRoutes.Group("/:extractionID/fields/:fieldName")
			{
				fieldRoutes.POST("/accept", deps.ExtractionHandler.AcceptFieldHandler)
				fieldRoutes.POST("/reject", deps.ExtractionHandler.RejectFieldHandler)
				fieldRoutes.PUT("", deps.ExtractionHandler.EditFieldHandler)
				fieldRoutes.POST("/revert", deps.ExtractionHandler.RevertFieldHandler)
			}

			tierRoutes := extractionRoutes.Group("/:extractionID/tiers/:tier")
			{
				tierRoutes.GET("", deps.ExtractionHandler.FilterByTierHandler)
				tierRoutes.POST("/accept", deps.ExtractionHandler.BulkAcceptHandler)
				tierRoutes.POST("/reject", deps.ExtractionHandler.BulkRejectHandler)
			}
		}

		// Review queue routes
		reviewRoutes := v1.Group("/reviews")
		{
			reviewRoutes.POST("", deps.ReviewHandler.AssignReviewHandler)
			reviewRoutes.GET("", deps.ReviewHandler.ListReviewQueueHandler)
			reviewRoutes.GET("/:reviewID", deps.ReviewHandler.GetReviewHandler)
			reviewRoutes.POST("/:reviewID/start", deps.ReviewHandler.StartReviewHandler)
			reviewRoutes.POST("/:reviewID/complete", deps.ReviewHandler.CompleteReviewHandler)
		}

		// Subsidy catalog routes
		subsidyRoutes := v1.Group("/subsidies")
		{
			subsidyRoutes.GET("", deps.SubsidyHandler.ListSubsidiesHandler)
			subsidyRoutes.GET("/:subsidyID", deps.SubsidyHandler.GetSubsidyHandler)
			subsidyRoutes.POST("/sync", adminOnly, pipelineLimit, deps.PipelineHandler.StartSubsidySyncHandler)
		}

		// Pipeline routes
		pipelineRoutes := v1.Group("/pipelines")
		{
			pipelineRoutes.GET("", deps.PipelineHandler.ListRunsHandler)
			pipelineRoutes.GET("/:runID", deps.PipelineHandler.GetRunHandler)
			pipelineRoutes.GET("/:runID/progress", deps.ProgressHandler.StreamProgressHandler)
		}

		v1.POST("/documents/:documentID/extract", pipelineLimit, deps.PipelineHandler.StartExtractionHandler)
	}

	return r
}
