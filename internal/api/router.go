package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/memegen/internal/api/handler"
	"github.com/timmy/memegen/internal/api/middleware"
	"github.com/timmy/memegen/internal/config"
	"github.com/timmy/memegen/internal/logger"
	"github.com/timmy/memegen/internal/metrics"
	"github.com/timmy/memegen/internal/service"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Uploads *service.UploadService
	Memes   *service.MemeService
	Metrics *metrics.Metrics
	Logger  *logger.Logger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
	// Set Gin mode
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	log := svc.Logger
	if log == nil {
		log = logger.GetDefault()
	}

	r := gin.New()
	r.MaxMultipartMemory = cfg.Upload.MaxBytes

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	if svc.Metrics != nil {
		r.Use(svc.Metrics.Middleware())
	}
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Requests: cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
	}, svc.Metrics))
	r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.CORS.AllowedOrigins}))

	// Create handlers
	healthHandler := handler.NewHealthHandler(svc.Memes, cfg.Upload.PublicPath)
	memeHandler := handler.NewMemeHandler(svc.Uploads, svc.Memes, cfg.App.BaseURL, cfg.Upload.MaxBytes, !cfg.IsProduction())

	r.GET("/", healthHandler.Root)
	if svc.Metrics != nil {
		r.GET("/metrics", gin.WrapH(svc.Metrics.Handler()))
	}

	// Normalized images
	uploads := r.Group(cfg.Upload.PublicPath, middleware.CrossOriginResource())
	uploads.Static("/", cfg.Upload.Dir)

	api := r.Group("/api")
	{
		// Health check
		api.GET("/health", healthHandler.Health)
		api.GET("/health/ready", healthHandler.Ready)

		// Memes
		memes := api.Group("/memes")
		memes.POST("/upload", memeHandler.UploadMeme)
		memes.GET("", memeHandler.ListMemes)
		memes.GET("/:id", memeHandler.GetMeme)
		memes.DELETE("/:id", memeHandler.DeleteMeme)
	}

	return r
}
