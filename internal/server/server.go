// Package server exposes the monitoring API over HTTP.
package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"pricewatch/internal/auth"
	"pricewatch/internal/config"
	"pricewatch/internal/storage"
)

// Server wires stores and services into a gin router.
type Server struct {
	cfg     *config.Config
	prices  storage.PriceStore
	letters storage.LetterStore
	auth    *auth.Service
	logger  zerolog.Logger
}

// New constructs the API server.
func New(cfg *config.Config, prices storage.PriceStore, letters storage.LetterStore, authSvc *auth.Service, logger zerolog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		prices:  prices,
		letters: letters,
		auth:    authSvc,
		logger:  logger.With().Str("component", "http").Logger(),
	}
}

// Router builds the route table.
func (s *Server) Router() *gin.Engine {
	if s.cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())
	r.Use(s.corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", s.handleSignup)
	authGroup.POST("/login", s.handleLogin)

	prices := api.Group("/prices")
	prices.GET("", s.handleListPrices)
	prices.POST("", s.requireAuth(), s.handleCreatePrice)
	prices.PUT("/:id", s.requireAuth(), s.handleUpdatePrice)
	prices.DELETE("/:id", s.requireAuth(), s.handleDeletePrice)
	prices.DELETE("", s.requireAuth(), s.handleDeleteAllPrices)

	reports := api.Group("/reports")
	reports.GET("/dashboard", s.handleDashboard)
	reports.GET("/prevailing", s.handlePrevailing)
	reports.GET("/trend", s.handleTrend)
	reports.GET("/movers", s.handleMovers)
	reports.GET("/compliance", s.handleCompliance)

	lettersGroup := api.Group("/letters", s.requireAuth())
	lettersGroup.GET("/flagged", s.handleFlagged)
	lettersGroup.POST("/draft", s.handleDraftLetter)

	printed := api.Group("/printed-letters", s.requireAuth())
	printed.GET("", s.handleListLetters)
	printed.POST("", s.handleCreateLetter)
	printed.PUT("/:id", s.handleUpdateLetter)
	printed.DELETE("/:id", s.handleDeleteLetter)

	admin := api.Group("/admin", s.requireAuth())
	admin.POST("/backfill-defaults", s.handleBackfillDefaults)

	return r
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	corsCfg := cors.DefaultConfig()
	if len(s.cfg.Server.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = s.cfg.Server.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	return cors.New(corsCfg)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("request handled")
	}
}
