package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/product-studio/internal/http/handlers"
	"github.com/phambaophuc/product-studio/internal/http/middleware"
	"go.uber.org/zap"
)

type Router struct {
	studioHandler *handlers.StudioHandler
	logger        *zap.Logger
}

func NewRouter(
	studioHandler *handlers.StudioHandler,
	logger *zap.Logger,
) *Router {
	return &Router{
		studioHandler: studioHandler,
		logger:        logger,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.ErrorHandler(r.logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS())

	// API version 1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", r.studioHandler.HealthCheck)
		v1.GET("/stats", r.studioHandler.GetStats)
		v1.GET("/presets", r.studioHandler.ListPresets)
		v1.GET("/plan", r.studioHandler.GetPlan)

		v1.POST("/sessions", r.studioHandler.CreateSession)

		sessions := v1.Group("/sessions/:id")
		{
			sessions.GET("", r.studioHandler.GetSession)
			sessions.DELETE("", r.studioHandler.DeleteSession)

			sessions.POST("/images", middleware.RequireMultipart(), r.studioHandler.UploadImages)
			sessions.DELETE("/images", r.studioHandler.ResetImages)

			sessions.POST("/runs", r.studioHandler.StartRun)
			sessions.GET("/events", r.studioHandler.StreamEvents)

			sessions.GET("/results/:filename", r.studioHandler.DownloadResult)
			sessions.GET("/archive", r.studioHandler.DownloadArchive)
		}
	}

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "OK",
			"message": "Product studio is running",
		})
	})

	return router
}
