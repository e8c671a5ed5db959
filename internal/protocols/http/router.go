package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wanderhub/internal/core"
	"wanderhub/pkg/config"
)

// Server manages the HTTP REST API
type Server struct {
	router          *gin.Engine
	httpServer      *nethttp.Server
	config          *config.Config
	authSvc         core.AuthService
	gamificationSvc core.GamificationService
	adminSvc        core.AdminService
	eventLimiter    *rateLimiter
}

// NewServer creates a new HTTP server with all handlers
func NewServer(
	cfg *config.Config,
	authSvc core.AuthService,
	gamificationSvc core.GamificationService,
	adminSvc core.AdminService,
) *Server {
	// Set Gin to release mode by default
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware
	router.Use(requestLogger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	s := &Server{
		router:          router,
		config:          cfg,
		authSvc:         authSvc,
		gamificationSvc: gamificationSvc,
		adminSvc:        adminSvc,
		eventLimiter: newRateLimiter(
			cfg.Gamification.EventRatePerMinute,
			cfg.Gamification.EventRateBurst,
		),
	}

	s.setupRoutes()
	return s
}

// setupRoutes registers all HTTP routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.healthCheck)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		// Auth routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", s.register)
			auth.POST("/login", s.login)
		}

		// Event ingestion (authenticated, per-user rate limited)
		protected := v1.Group("", AuthMiddleware(s.authSvc))
		{
			protected.POST("/events", s.eventLimiter.Middleware(), s.submitEvent)

			gamification := protected.Group("/gamification")
			{
				gamification.GET("/profile", s.getProfile)
				gamification.GET("/history", s.getEventHistory)
				gamification.GET("/leaderboard", s.getLeaderboard)
				gamification.POST("/redeem", s.redeemPoints)
			}
		}

		// Admin routes (requires admin role)
		admin := v1.Group("/admin", AuthMiddleware(s.authSvc), AdminMiddleware())
		{
			admin.POST("/rules", s.createRule)
			admin.GET("/rules", s.listRules)
			admin.GET("/rules/:id", s.getRule)
			admin.PUT("/rules/:id", s.updateRule)
			admin.DELETE("/rules/:id", s.deleteRule)

			admin.POST("/badges", s.createBadge)
			admin.GET("/badges", s.listBadges)
			admin.PUT("/badges/:id", s.updateBadge)
			admin.DELETE("/badges/:id", s.deleteBadge)

			admin.POST("/campaigns", s.createCampaign)
			admin.GET("/campaigns", s.listCampaigns)
			admin.PUT("/campaigns/:id", s.updateCampaign)
			admin.DELETE("/campaigns/:id", s.deleteCampaign)

			admin.POST("/users/:id/badges", s.awardBadge)
		}
	}
}

// Start serves HTTP on addr until Shutdown is called or the listener fails
func (s *Server) Start(addr string) error {
	s.httpServer = &nethttp.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router returns the gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// healthCheck returns server health status
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}
