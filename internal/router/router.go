package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/auth"
	"github.com/stemsi/exstem-session/internal/config"
	"github.com/stemsi/exstem-session/internal/handler"
	"github.com/stemsi/exstem-session/internal/middleware"
	"github.com/stemsi/exstem-session/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Test    *handler.TestHandler
	Attempt *handler.AttemptHandler
	Monitor *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background helpers such as the per-IP limiter cleanup.
// rdb may be nil, which disables the shared save rate limit.
func SetupRouter(
	ctx context.Context,
	authService *auth.Service,
	handlers *Handlers,
	cfg *config.Config,
	rdb *redis.Client,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log.With().Str("component", "http").Logger()))
	router.Use(middleware.Brotli())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// 300 requests per minute per IP keeps a misbehaving client from
	// starving a lab full of participants behind the same NAT.
	ipLimiter := middleware.NewRateLimiter(ctx, 300, time.Minute)

	// ─── 1. Participant Group (JWT + Single Device) ─────────────────────
	api := router.Group("/api/v1")
	api.Use(
		ipLimiter.Middleware(),
		middleware.RequireParticipant(authService),
		middleware.CheckSingleDeviceSession(authService, log),
		middleware.NoStore(),
	)
	{
		api.GET("/tests", handlers.Test.ListTests)
		api.GET("/tests/:test_id", handlers.Test.GetTest)
		api.GET("/tests/:test_id/result", handlers.Attempt.GetResult)

		attempt := api.Group("/tests/:test_id/attempt")
		{
			attempt.POST("", handlers.Attempt.StartAttempt)
			attempt.GET("", handlers.Attempt.GetStatus)
			attempt.GET("/question", handlers.Attempt.ViewQuestion)
			attempt.PUT("/answers",
				middleware.SaveRateLimit(rdb, cfg.SaveRateLimit, log),
				handlers.Attempt.SaveAnswer,
			)
			attempt.POST("/submit", handlers.Attempt.SubmitAttempt)
		}
	}

	// ─── 2. Proctor WebSocket Group ────────────────────────────────────
	ws := router.Group("/ws/v1/proctor")
	ws.Use(
		middleware.RequireProctor(authService),
		middleware.RequirePermission(auth.PermissionMonitorAttempts),
	)
	{
		ws.GET("/tests/:test_id/monitor", handlers.Monitor.MonitorTest)
	}

	return router
}
