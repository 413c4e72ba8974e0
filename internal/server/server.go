// Package server contains the HTTP and WebSocket handlers for the vexillum API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "vexillum/docs" // swagger docs
	"vexillum/internal/cache"
	"vexillum/internal/config"
	"vexillum/internal/database"
	"vexillum/internal/identity"
	"vexillum/internal/middleware"
	"vexillum/internal/models"
	"vexillum/internal/notifications"
	"vexillum/internal/repository"
	"vexillum/internal/service"
	"vexillum/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	store    storage.Store
	images   *service.ImageService
	identity identity.Provider
	states   *identity.StateStore

	notifier *notifications.Notifier
	hub      *notifications.Hub
	feed     *notifications.Feed

	designService      *service.DesignService
	ratingService      *service.RatingService
	commentService     *service.CommentService
	postService        *service.PostService
	convertService     *service.ConvertService
	userService        *service.UserService
	maintenanceService *service.MaintenanceService
}

// NewServer connects the database, Redis and the storage backend and builds
// a server on top of them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	store, err := OpenStore(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	provider := identity.NewGoogleProvider(identity.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	if !provider.Configured() {
		middleware.Logger.Warn("Google OAuth client is not configured; login is disabled")
	}

	return NewServerWithDeps(cfg, db, redisClient, store, provider)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; rate limits, token revocation and OAuth state are
// then unavailable and the live feed is local to this instance.
func NewServerWithDeps(
	cfg *config.Config,
	db *gorm.DB,
	redisClient *redis.Client,
	store storage.Store,
	provider identity.Provider,
) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage backend is required")
	}

	userRepo := repository.NewUserRepository(db)
	designRepo := repository.NewDesignRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	ratingRepo := repository.NewRatingRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("vexillum-api"),
		store:          store,
		images:         service.NewImageService(store, cfg.MaxUploadMB),
		identity:       provider,
		states:         identity.NewStateStore(redisClient),
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
	}
	s.feed = notifications.NewFeed(s.notifier, s.hub)

	s.ratingService = service.NewRatingService(ratingRepo, designRepo)
	s.designService = service.NewDesignService(designRepo, commentRepo, s.ratingService, s.images, s.feed, cfg.PageSize)
	s.commentService = service.NewCommentService(commentRepo, designRepo, postRepo, s.feed)
	s.postService = service.NewPostService(postRepo, commentRepo, s.images, s.feed, cfg.PageSize)
	s.convertService = service.NewConvertService(db, s.images, s.feed)
	s.userService = service.NewUserService(userRepo)
	s.maintenanceService = service.NewMaintenanceService(db, s.images)

	return s, nil
}

// OpenStore builds the storage backend selected by STORAGE_BACKEND.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch strings.ToLower(cfg.StorageBackend) {
	case "minio":
		store, err := storage.NewMinIOStore(ctx, storage.MinIOConfig{
			Endpoint:         cfg.MinIOEndpoint,
			AccessKeyID:      cfg.MinIOAccessKey,
			SecretAccessKey:  cfg.MinIOSecretKey,
			Bucket:           cfg.MinIOBucket,
			UseSSL:           cfg.MinIOUseSSL,
			Region:           cfg.MinIORegion,
			PublicURL:        cfg.MinIOPublicURL,
			AutoCreateBucket: !cfg.IsProduction(),
		})
		if err != nil {
			return nil, fmt.Errorf("minio storage: %w", err)
		}
		return store, nil
	default:
		store, err := storage.NewLocalStore(cfg.UploadDir, cfg.PublicUploadPrefix)
		if err != nil {
			return nil, fmt.Errorf("local storage: %w", err)
		}
		return store, nil
	}
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Tracing runs before ContextMiddleware so the trace id reaches the logger.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS must run before anything that can short-circuit, so error
	// responses still carry the headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if local, ok := s.store.(*storage.LocalStore); ok {
		app.Static(s.config.PublicUploadPrefix, local.Root(), fiber.Static{
			MaxAge: 3600,
		})
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Vexillum Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth
	auth := api.Group("/auth")
	auth.Get("/google/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.GoogleLogin)
	auth.Get("/google/callback", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login_callback"), s.GoogleCallback)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	// Public browse routes
	api.Get("/designs", s.ListDesigns)
	api.Get("/designs/:publicID", s.GetDesign)
	api.Get("/users/:id/designs", s.GetUserDesigns)

	tags := api.Group("/tags")
	tags.Get("/", s.GetAllTags)
	tags.Get("/top", s.GetTopTags)
	tags.Get("/unique", s.GetUniqueTags)

	api.Get("/posts", s.GetPosts)
	api.Get("/posts/subjects", s.GetPostSubjects)
	api.Get("/posts/:id", s.GetPost)

	// Live feed; anonymous viewers are allowed.
	api.Get("/ws/feed", s.optionalAuth(), s.FeedWebsocket())

	protected := api.Group("", s.AuthRequired())

	protected.Get("/users/me", s.GetMe)

	designs := protected.Group("/designs")
	designs.Post("/", middleware.RateLimit(
		s.redis, 5, 10*time.Minute, "submit_design"), s.SubmitDesign)
	designs.Post("/:publicID/rate", middleware.RateLimit(
		s.redis, 30, time.Minute, "rate_design"), s.RateDesign)
	designs.Post("/:publicID/comments", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.CreateDesignComment)
	designs.Put("/:publicID", s.UpdateDesign)
	designs.Delete("/:publicID", s.DeleteDesign)

	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/comments", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.CreatePostComment)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	comments := protected.Group("/comments")
	comments.Put("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/users", s.GetAllUsers)
	admin.Post("/users/:id/toggle-admin", s.ToggleAdmin)
	admin.Post("/posts/:id/convert", s.ConvertPostToDesign)
	admin.Post("/designs/:publicID/convert", s.ConvertDesignToPost)
	admin.Post("/maintenance/dedupe-designs", s.DedupeDesigns)
	admin.Post("/maintenance/dedupe-posts", s.DedupePosts)
}

// LivenessCheck godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/live [get]
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck godoc
// @Summary Readiness probe
// @Description Pings the database and Redis.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/ready [get]
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// App builds a Fiber app with middleware and routes installed.
func (s *Server) App() *fiber.App {
	maxMB := s.config.MaxUploadMB
	if maxMB <= 0 {
		maxMB = 16
	}
	app := fiber.New(fiber.Config{
		AppName:   "Vexillum API",
		BodyLimit: (maxMB + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, fe)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
				slog.String("path", c.Path()),
				slog.String("error", err.Error()),
			)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start wires the live feed and listens on the configured port.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if s.notifier.Enabled() {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start feed wiring", slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down feed hub", slog.String("error", err.Error()))
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
