package server

import (
	"time"

	"rekrut-portal/config"
	"rekrut-portal/internal/database"
	"rekrut-portal/internal/handlers"
	"rekrut-portal/internal/matching"
	"rekrut-portal/internal/middleware"
	"rekrut-portal/internal/models"
	"rekrut-portal/internal/notify"
	"rekrut-portal/internal/pipeline"
	"rekrut-portal/internal/placement"
	"rekrut-portal/pkg/auth"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server represents the HTTP server
type Server struct {
	Router     *gin.Engine
	config     *config.Config
	logger     *zap.Logger
	jwtService *auth.JWTService
	db         *gorm.DB

	// Domain services
	Engine           *matching.Engine
	Search           *matching.Search
	Pipeline         *pipeline.Service
	PlacementManager *placement.Manager
	Queue            *notify.Queue

	// Handlers
	authHandler         *handlers.AuthHandler
	candidateHandler    *handlers.CandidateHandler
	requisitionHandler  *handlers.RequisitionHandler
	applicationHandler  *handlers.ApplicationHandler
	placementHandler    *handlers.PlacementHandler
	notificationHandler *handlers.NotificationHandler
}

// New creates a new server instance
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	jwtService := auth.NewJWTService(cfg)

	db := database.DB

	engine, err := matching.NewEngine(matching.WeightsFromConfig(cfg.Matching))
	if err != nil {
		return nil, err
	}
	search := matching.NewSearch(db, engine, logger)
	queue := notify.NewQueue(cfg.Notify.MaxAttempts, logger)
	pipelineService := pipeline.NewService(db, engine, queue, logger)
	placementManager := placement.NewManager(db, queue, logger)

	server := &Server{
		Router:     router,
		config:     cfg,
		logger:     logger,
		jwtService: jwtService,
		db:         db,

		Engine:           engine,
		Search:           search,
		Pipeline:         pipelineService,
		PlacementManager: placementManager,
		Queue:            queue,

		authHandler:         handlers.NewAuthHandler(db, logger, jwtService, cfg),
		candidateHandler:    handlers.NewCandidateHandler(db, logger, search),
		requisitionHandler:  handlers.NewRequisitionHandler(db, logger, search, engine),
		applicationHandler:  handlers.NewApplicationHandler(db, logger, pipelineService),
		placementHandler:    handlers.NewPlacementHandler(db, logger, placementManager),
		notificationHandler: handlers.NewNotificationHandler(db, logger),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server, nil
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	s.Router.Use(middleware.RequestIDMiddleware())
	s.Router.Use(middleware.RecoveryMiddleware(s.logger))
	s.Router.Use(middleware.SecurityHeadersMiddleware())

	s.Router.Use(middleware.CORSMiddleware(
		s.config.CORS.Origins,
		s.config.CORS.Credentials,
	))

	rateLimiter := middleware.NewRateLimit(
		s.config.RateLimit.Requests,
		time.Duration(s.config.RateLimit.Window)*time.Second,
	)
	s.Router.Use(middleware.RateLimitMiddleware(rateLimiter, s.logger))

	s.Router.Use(middleware.LoggingMiddleware(s.logger))
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	s.Router.GET("/health", s.healthCheck)
	s.Router.HEAD("/health", s.healthCheck)
	s.Router.GET("/ready", s.readinessCheck)
	s.Router.HEAD("/ready", s.readinessCheck)

	if s.config.IsDevelopment() {
		s.Router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := s.Router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		public.Use(middleware.OptionalAuth(s.jwtService))
		{
			authRoutes := public.Group("/auth")
			{
				authRoutes.POST("/register", s.authHandler.Register)
				authRoutes.POST("/login", s.authHandler.Login)
				authRoutes.POST("/refresh", s.authHandler.Refresh)
			}

			// Published requisitions are browsable without an account.
			public.GET("/requisitions", s.requisitionHandler.List)
			public.GET("/requisitions/:id", s.requisitionHandler.Get)
		}

		// Protected routes
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(s.jwtService))
		{
			authRoutes := protected.Group("/auth")
			{
				authRoutes.POST("/logout", s.authHandler.Logout)
				authRoutes.GET("/me", s.authHandler.Me)
				authRoutes.POST("/change-password", s.authHandler.ChangePassword)
			}

			candidates := protected.Group("/candidates")
			{
				candidates.GET("/me", s.candidateHandler.GetProfile)
				candidates.PUT("/me", s.candidateHandler.UpdateProfile)
				candidates.GET("/me/matches", s.candidateHandler.FindRequisitions)
				candidates.GET("/:id", middleware.RequireRecruiterOrAdmin(), s.candidateHandler.Get)
			}

			requisitions := protected.Group("/requisitions")
			requisitions.Use(middleware.RequireRecruiterOrAdmin())
			{
				requisitions.POST("", s.requisitionHandler.Create)
				requisitions.PATCH("/:id/status", s.requisitionHandler.UpdateStatus)
				requisitions.GET("/:id/matches", s.requisitionHandler.FindCandidates)
				requisitions.GET("/:id/score/:candidate_id", s.requisitionHandler.ScoreCandidate)
			}

			applications := protected.Group("/applications")
			{
				applications.POST("", s.applicationHandler.Submit)
				applications.GET("", s.applicationHandler.List)
				applications.GET("/:id", s.applicationHandler.Get)
				applications.POST("/:id/withdraw", s.applicationHandler.Withdraw)

				applications.POST("/:id/advance", middleware.RequireRecruiterOrAdmin(), s.applicationHandler.Advance)
				applications.POST("/:id/schedule", middleware.RequireRecruiterOrAdmin(), s.applicationHandler.Schedule)
				applications.POST("/:id/result", middleware.RequireRecruiterOrAdmin(), s.applicationHandler.RecordResult)
				applications.POST("/:id/reject", middleware.RequireRecruiterOrAdmin(), s.applicationHandler.Reject)
				applications.POST("/:id/accept", middleware.RequireRecruiterOrAdmin(), s.applicationHandler.Accept)
				applications.POST("/:id/place", middleware.RequireRecruiterOrAdmin(), s.applicationHandler.Place)
			}

			placements := protected.Group("/placements")
			{
				placements.GET("", s.placementHandler.List)
				placements.GET("/:id", s.placementHandler.Get)

				placements.POST("/sweep", middleware.RequireAdmin(), s.placementHandler.RunSweeps)
				placements.POST("/:id/activate", middleware.RequireRecruiterOrAdmin(), s.placementHandler.Activate)
				placements.POST("/:id/hold", middleware.RequireRecruiterOrAdmin(), s.placementHandler.Hold)
				placements.POST("/:id/resume", middleware.RequireRecruiterOrAdmin(), s.placementHandler.Resume)
				placements.POST("/:id/terminate", middleware.RequireRecruiterOrAdmin(), s.placementHandler.Terminate)
				placements.POST("/:id/complete", middleware.RequireRecruiterOrAdmin(), s.placementHandler.Complete)
				placements.POST("/:id/commission", middleware.RequireAdmin(), s.placementHandler.PayCommission)
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", s.notificationHandler.List)
			}

			admin := protected.Group("/admin")
			admin.Use(middleware.RequireAdmin())
			{
				admin.GET("/stats", s.adminStats)
			}
		}
	}
}

// healthCheck handles health check requests
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
		"service":   "rekrut-portal-api",
	})
}

// readinessCheck handles readiness check requests
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /ready [get]
func (s *Server) readinessCheck(c *gin.Context) {
	if err := database.IsHealthy(); err != nil {
		s.logger.Error("Database health check failed", zap.Error(err))
		c.JSON(503, gin.H{
			"status":    "not ready",
			"timestamp": time.Now().UTC(),
			"error":     "Database connection failed",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"database":  database.GetStats(),
	})
}

// adminStats returns headline counts for the dashboard
func (s *Server) adminStats(c *gin.Context) {
	stats := gin.H{}

	type count struct {
		name  string
		model interface{}
		where []interface{}
	}

	counts := []count{
		{name: "candidates", model: &models.Candidate{}},
		{name: "requisitions_published", model: &models.Requisition{},
			where: []interface{}{"status = ?", models.RequisitionStatusPublished}},
		{name: "applications_active", model: &models.Application{},
			where: []interface{}{"status = ?", models.ApplicationStatusActive}},
		{name: "placements_active", model: &models.Placement{},
			where: []interface{}{"status = ?", models.PlacementStatusActive}},
		{name: "notifications_failed", model: &models.Notification{},
			where: []interface{}{"status = ?", models.NotificationStatusFailed}},
	}

	for _, item := range counts {
		var n int64
		query := s.db.Model(item.model)
		if len(item.where) == 2 {
			query = query.Where(item.where[0], item.where[1])
		}
		if err := query.Count(&n).Error; err != nil {
			s.logger.Error("Failed to count "+item.name, zap.Error(err))
			continue
		}
		stats[item.name] = n
	}

	c.JSON(200, stats)
}

// DB exposes the server's database handle
func (s *Server) DB() *gorm.DB {
	return s.db
}
