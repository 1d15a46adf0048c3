package server

import (
	"fmt"
	"net/http"
	"time"

	"bazaar/internal/config"
	"bazaar/internal/database"
	custommiddleware "bazaar/internal/middleware"
	"bazaar/internal/repository"
	"bazaar/internal/service"
	"bazaar/internal/transport"
	"bazaar/internal/view"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *database.Service
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *database.Service) (*Server, error) {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env == "development"))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithJSON(w, http.StatusOK, db.Health())
	})

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.DB())
	sessionRepo := repository.NewSessionRepository(db.DB())
	categoryRepo := repository.NewCategoryRepository(db.DB())
	productRepo := repository.NewProductRepository(db.DB())

	// Initialize services
	accountService := service.NewAccountService(userRepo, sessionRepo, cfg.Session.Secret, cfg.Session.TTL)
	catalogService := service.NewCatalogService(productRepo, categoryRepo)
	listingService := service.NewListingService(productRepo, categoryRepo)

	// Resolve the session cookie on every request
	router.Use(custommiddleware.CurrentUser(accountService, logger))

	// Rate limiter for credential submissions
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	rateLimit := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: 10,
		Window:            time.Minute,
		KeyPrefix:         "login_rate_limit",
	}, logger)

	// Initialize the template renderer
	renderer, err := view.New(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize renderer: %w", err)
	}

	// Initialize handlers
	catalogHandler := transport.NewCatalogHandler(catalogService, renderer, logger)
	accountHandler := transport.NewAccountHandler(accountService, renderer, logger)
	listingHandler := transport.NewListingHandler(listingService, catalogService, renderer, logger)

	// Register routes
	catalogHandler.RegisterRoutes(router)
	accountHandler.RegisterRoutes(router, rateLimit)
	listingHandler.RegisterRoutes(router, custommiddleware.RequireUser(logger))

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server, nil
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
