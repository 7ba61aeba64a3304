package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"beyond-pages/internal/config"
	"beyond-pages/internal/container"
	"beyond-pages/internal/handler"
	"beyond-pages/internal/middleware"
	"beyond-pages/internal/realtime"
	"beyond-pages/internal/search"
	"beyond-pages/pkg/database"
	"beyond-pages/pkg/logger"
	"beyond-pages/pkg/redis"
)

// Resources holds all resources that need cleanup
type Resources struct {
	db          *database.PostgresDB
	redisClient *redis.Client
	hub         *realtime.Hub
	stopHub     context.CancelFunc
	search      *search.Service
	server      *http.Server
	log         *logger.Logger
	mu          sync.Mutex
	closed      bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errors []error

	r.log.Info("Starting graceful shutdown...")

	// Stop the change feed first so open event streams end and the server
	// can drain
	if r.hub != nil {
		r.log.Info("Stopping realtime hub...")
		if r.stopHub != nil {
			r.stopHub()
		}
		r.hub.Close()
	}

	// Shutdown HTTP server to stop accepting new requests
	if r.server != nil {
		r.log.Info("Shutting down HTTP server...")
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errors = append(errors, fmt.Errorf("HTTP server shutdown: %w", err))
		} else {
			r.log.Info("HTTP server shutdown complete")
		}
	}

	if r.search != nil {
		r.search.Close()
	}

	// Close Redis connection with health check
	if r.redisClient != nil {
		r.log.Info("Closing Redis connection...")

		// Quick health check before closing (with short timeout)
		healthCtx, healthCancel := context.WithTimeout(ctx, 2*time.Second)
		if err := r.redisClient.Health(healthCtx); err != nil {
			r.log.WithError(err).Warn("Redis health check failed before closing")
		}
		healthCancel()

		if err := r.redisClient.Close(); err != nil {
			r.log.WithError(err).Error("Failed to close Redis connection")
			errors = append(errors, fmt.Errorf("Redis close: %w", err))
		} else {
			r.log.Info("Redis connection closed successfully")
		}
	}

	// Close database connection pool with health check
	if r.db != nil {
		r.log.Info("Closing database connection pool...")

		healthCtx, healthCancel := context.WithTimeout(ctx, 2*time.Second)
		if err := r.db.Health(healthCtx); err != nil {
			r.log.WithError(err).Warn("Database health check failed before closing")
		}
		healthCancel()

		r.db.Close()
		r.log.Info("Database connection pool closed successfully")
	}

	if len(errors) > 0 {
		r.log.WithField("error_count", len(errors)).Error("Cleanup completed with errors")
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errors), errors)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Starting beyond-pages server")

	if cfg.IsProduction() {
		for _, origin := range cfg.AllowedOrigins {
			if origin == "*" {
				log.Warn("ALLOWED_ORIGINS contains * in production; any site can call the API with credentials")
			}
		}
	}

	// Initialize database connection
	ctx := context.Background()
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL, cfg.DatabaseReadURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	// Create dependency injection container
	container, err := container.New(cfg, log, db)
	if err != nil {
		log.WithError(err).Fatal("Failed to create container")
	}

	// Start the change feed listener
	hubCtx, stopHub := context.WithCancel(ctx)
	go container.Realtime.Run(hubCtx)

	// Setup router
	router := setupRouter(container)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   90 * time.Second, // cover generation waits on the image API
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Create resources manager for cleanup
	resources := &Resources{
		db:          db,
		redisClient: container.GetRedisClient(),
		hub:         container.Realtime,
		stopHub:     stopHub,
		search:      container.Search,
		server:      server,
		log:         log,
	}

	// Setup graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	// Start server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server error occurred")
			serverErrChan <- err
		}
	}()

	// Wait for interrupt signal or server error
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	log.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(container *container.Container) *chi.Mux {
	cfg := container.GetConfig()
	log := container.GetLogger()
	authService := container.GetAuthService()
	services := container.Services
	guests := container.GetGuestService()

	r := chi.NewRouter()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins

	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.IPRateLimit(guests.Limiter(), container.ClientIP, cfg.Guest.IPRateLimit, log))

	healthHandler := handler.NewHealthHandler(container)
	guestHandler := handler.NewGuestHandler(guests, log)
	preferenceHandler := handler.NewPreferenceHandler(services.Preferences, log)
	profileHandler := handler.NewProfileHandler(services.Profile, log)
	bookHandler := handler.NewBookHandler(services.Book, services.Cover, log)
	highlightHandler := handler.NewHighlightHandler(services.Highlight, log)
	communityHandler := handler.NewCommunityHandler(services.Community, log)
	followHandler := handler.NewFollowHandler(services.Follow, log)
	badgeHandler := handler.NewBadgeHandler(services.Badge, log)
	searchHandler := handler.NewSearchHandler(container.Search, log)
	realtimeHandler := handler.NewRealtimeHandler(container.Realtime, log)
	authHandler := handler.NewAuthHandler(log)
	testingHandler := handler.NewTestingHandler(container.Search, cfg.Environment, log)

	// Health check (no auth required)
	r.Get("/health", healthHandler.Check)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Guest(guests, log))

		// Event streams stay open, so they skip compression and the timeout
		r.With(middleware.Auth(authService, log)).Get("/realtime/{table}", realtimeHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Compress(5))
			r.Use(chiMiddleware.Timeout(60 * time.Second))

			// Public routes; a bearer token is honoured when present
			r.Group(func(r chi.Router) {
				r.Use(middleware.OptionalAuth(authService, log))

				r.Route("/guest", func(r chi.Router) {
					r.Post("/session", guestHandler.Enter)
					r.Get("/session", guestHandler.Validate)
					r.Delete("/session", guestHandler.Clear)
					r.Post("/limits/{action}", guestHandler.CheckLimit)
					r.Get("/posts", guestHandler.ListPosts)
					r.Post("/posts", guestHandler.CreatePost)
					r.Post("/posts/{id}/replies", guestHandler.CreateReply)
				})

				r.Get("/preferences", preferenceHandler.Get)
				r.Put("/preferences", preferenceHandler.Set)

				r.Get("/community/posts", communityHandler.ListPosts)
				r.Get("/community/posts/{id}/replies", communityHandler.ListReplies)
				r.Get("/profiles/{username}", profileHandler.View)
				r.Get("/users/{userId}/followers", followHandler.Followers)
				r.Get("/users/{userId}/following", followHandler.Following)
				r.Get("/users/{userId}/follow-counts", followHandler.Counts)
				r.Get("/search/books", searchHandler.Books)
				r.Post("/highlights/detect", highlightHandler.Detect)

				// Development only
				r.Post("/testing/reindex-search", testingHandler.ReindexSearch)
			})

			// Protected routes (require a Supabase session)
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(authService, log))

				r.Get("/auth/me", authHandler.Me)

				r.Get("/profile", profileHandler.GetMine)
				r.Put("/profile", profileHandler.Update)
				r.Post("/profile/avatar", profileHandler.UploadAvatar)

				r.Route("/books", func(r chi.Router) {
					r.Get("/", bookHandler.List)
					r.Post("/", bookHandler.Create)
					r.Get("/{id}", bookHandler.Get)
					r.Patch("/{id}", bookHandler.Update)
					r.Delete("/{id}", bookHandler.Delete)
					r.Put("/{id}/progress", bookHandler.UpdateProgress)
					r.Post("/{id}/cover", bookHandler.GenerateCover)
					r.Get("/{id}/covers", bookHandler.CoverHistory)
					r.Get("/{id}/highlights", highlightHandler.ListByBook)
					r.Post("/{id}/highlights", highlightHandler.Create)
				})

				r.Get("/highlights", highlightHandler.ListMine)
				r.Delete("/highlights/{id}", highlightHandler.Delete)

				r.Post("/community/posts", communityHandler.CreatePost)
				r.Delete("/community/posts/{id}", communityHandler.DeletePost)
				r.Post("/community/posts/{id}/replies", communityHandler.CreateReply)
				r.Get("/community/feed", communityHandler.Feed)

				r.Get("/follows/{userId}", followHandler.Status)
				r.Post("/follows/{userId}", followHandler.Follow)
				r.Delete("/follows/{userId}", followHandler.Unfollow)

				r.Get("/badges", badgeHandler.List)
				r.Post("/badges/evaluate", badgeHandler.Evaluate)
			})
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":{"type":"not_found","message":"Endpoint not found"}}`))
	})

	log.Info("Router configured successfully")
	return r
}
