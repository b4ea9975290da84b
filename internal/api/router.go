package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/blog-content-api/internal/auth"
	"github.com/blog-content-api/internal/config"
	"github.com/blog-content-api/internal/monitor"
	"github.com/blog-content-api/internal/service"
	"github.com/blog-content-api/internal/upload"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const userIDKey = "user_id"

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// poolReporter is implemented by checkers that expose connection pool stats
type poolReporter interface {
	Stats() sql.DBStats
}

// NewRouter creates and configures the Gin router. db may be nil, in which
// case /health reports only the process.
func NewRouter(services *service.Services, cfg *config.Config, sink monitor.Sink, db HealthChecker, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())
	router.Use(monitorMiddleware(sink, log))
	router.Use(authMiddleware(services.Tokens))

	// Handlers
	authHandler := NewAuthHandler(services, log)
	userHandler := NewUserHandler(services, cfg, log)
	articleHandler := NewArticleHandler(services, log)
	walletHandler := NewWalletHandler(services, log)
	networkHandler := NewNetworkHandler(services, log)

	// Health check
	router.GET("/health", healthCheck(db))
	router.GET("/metrics", metricsHandler(services, log))
	router.Static(upload.URLPrefix, cfg.Upload.AvatarDir)

	// API v1
	v1 := router.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.PUT("/password", requireUser(), authHandler.ChangePassword)
		}

		users := v1.Group("/users")
		{
			users.GET("/:username", userHandler.Profile)
			users.PUT("/me/avatar", requireUser(), userHandler.SetAvatar)
			users.POST("/me/avatar", requireUser(), userHandler.UploadAvatar)
		}

		articles := v1.Group("/articles")
		{
			articles.GET("", articleHandler.List)
			articles.GET("/popular", articleHandler.Popular)
			articles.POST("", requireUser(), articleHandler.Create)
			articles.GET("/:id", articleHandler.Get)
			articles.GET("/:id/comments", articleHandler.ListComments)
			articles.POST("/:id/comments", requireUser(), articleHandler.AddComment)
			articles.POST("/:id/like", requireUser(), articleHandler.ToggleLike)
		}
		v1.GET("/categories", articleHandler.Categories)

		wallet := v1.Group("/wallet", requireUser())
		{
			wallet.GET("", walletHandler.Get)
			wallet.POST("/topup", walletHandler.TopUp)
			wallet.POST("/vip", walletHandler.PurchaseVIP)
			wallet.GET("/ledger", walletHandler.Ledger)
		}

		network := v1.Group("/network")
		{
			network.GET("/current", networkHandler.Current)
			network.GET("/stats", requireUser(), networkHandler.History)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(db HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		body := gin.H{
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "blog-content-api",
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.HealthCheck(ctx); err != nil {
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
			if pool, ok := db.(poolReporter); ok {
				stats := pool.Stats()
				body["db_open_connections"] = stats.OpenConnections
				body["db_in_use"] = stats.InUse
			}
		}

		body["status"] = status
		c.JSON(code, body)
	}
}

// metricsHandler returns content totals and the live network snapshot
func metricsHandler(services *service.Services, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		counts, err := services.Content.Counts(ctx)
		if err != nil {
			respondError(c, log, err)
			return
		}
		network, err := services.Stats.Current(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to read network snapshot")
		}

		c.JSON(http.StatusOK, gin.H{
			"database":  counts,
			"network":   network,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		statusCode := c.Writer.Status()
		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("user_id", c.GetString(userIDKey)).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// monitorMiddleware feeds every request into the network monitor
func monitorMiddleware(sink monitor.Sink, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if err := sink.RecordRequest(ctx); err != nil {
			log.Debug().Err(err).Msg("Monitor failed to record request")
		}
		defer func() {
			if err := sink.RequestCompleted(ctx); err != nil {
				log.Debug().Err(err).Msg("Monitor failed to record completion")
			}
		}()
		c.Next()
	}
}

// authMiddleware resolves the bearer token, if any. A missing or invalid
// token leaves the request anonymous.
func authMiddleware(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if token != "" {
			if userID, err := tokens.Parse(token); err == nil {
				c.Set(userIDKey, userID)
				c.Request = c.Request.WithContext(auth.WithUserID(c.Request.Context(), userID))
			}
		}
		c.Next()
	}
}

// requireUser rejects anonymous requests with 401
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := auth.UserIDFromContext(c.Request.Context()); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required", "code": "login_required"})
			return
		}
		c.Next()
	}
}

// viewerID returns the authenticated user ID, or "" for anonymous requests
func viewerID(c *gin.Context) string {
	id, _ := auth.UserIDFromContext(c.Request.Context())
	return id
}
