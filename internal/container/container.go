package container

import (
	"fmt"

	"beyond-pages/internal/config"
	"beyond-pages/internal/realtime"
	"beyond-pages/internal/repository"
	"beyond-pages/internal/search"
	"beyond-pages/internal/service"
	"beyond-pages/internal/service/auth"
	"beyond-pages/internal/service/guest"
	"beyond-pages/internal/service/imagegen"
	"beyond-pages/pkg/clientip"
	"beyond-pages/pkg/database"
	"beyond-pages/pkg/kvstore"
	"beyond-pages/pkg/logger"
	"beyond-pages/pkg/redis"
	"beyond-pages/pkg/storage"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           *database.PostgresDB
	RedisClient  *redis.Client
	Store        kvstore.Store
	Storage      *storage.Client
	Search       *search.Service
	Realtime     *realtime.Hub
	Guest        *guest.Service
	ClientIP     *clientip.Resolver
	Repositories *repository.Repositories
	Services     *service.Services
}

// New creates a new dependency injection container. Redis, object storage,
// Meilisearch and image generation are optional; the container logs and
// carries on without each one that is not configured or not reachable.
func New(cfg *config.Config, logger *logger.Logger, db *database.PostgresDB) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: logger,
		DB:     db,
	}

	ips, err := clientip.NewResolver(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	c.ClientIP = ips

	// Initialize Redis client if Redis URL is configured
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, logger.Named("redis").Logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize Redis client, falling back to in-memory store")
		} else {
			c.RedisClient = client
			logger.Info("Redis client initialized successfully")
		}
	} else {
		logger.Info("Redis URL not configured, using in-memory store")
	}

	if c.RedisClient != nil {
		c.Store = kvstore.NewRedis(c.RedisClient)
	} else {
		c.Store = kvstore.NewMemory()
	}

	c.Guest = guest.NewService(c.Store, guest.Config{
		SessionTTL: cfg.Guest.SessionTTL,
		Window:     cfg.Guest.Window,
		PostLimit:  cfg.Guest.PostLimit,
		ReplyLimit: cfg.Guest.ReplyLimit,
	}, logger.Named("guest"))

	c.Repositories = repository.NewRepositories(db)

	// The cover and profile services test their collaborators against nil,
	// so unconfigured backends must stay untyped nils.
	var objects service.ObjectStore
	if cfg.Storage.Enabled() {
		client, err := storage.New(storage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
			PublicURL: cfg.Storage.PublicURL,
		}, logger.Named("storage").Logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize object storage, uploads disabled")
		} else {
			c.Storage = client
			objects = client
		}
	}

	var generator service.ImageGenerator
	if cfg.Image.Enabled() {
		generator = imagegen.NewClient(cfg.Image, logger.Named("imagegen"))
	}

	var meili *search.Meili
	if cfg.Search.URL != "" {
		meili = search.NewMeili(cfg.Search.URL, cfg.Search.MasterKey, logger)
	} else {
		logger.Info("MEILI_URL not configured, book search uses Postgres")
	}
	c.Search = search.NewService(meili, c.Repositories.Book, logger)

	c.Realtime = realtime.NewHub(cfg.DatabaseURL, logger)

	repos := c.Repositories
	cache := service.NewCacheService(c.Store, logger.Logger)
	c.Services = &service.Services{
		Auth:        auth.NewService(cfg.SupabaseJWTSecret, logger),
		Profile:     service.NewProfileService(repos.Profile, repos.Badge, objects, logger),
		Book:        service.NewBookService(repos.Book, c.Search, logger),
		Highlight:   service.NewHighlightService(repos.Highlight, repos.Book, logger),
		Community:   service.NewCommunityService(repos.Community, repos.Follow, repos.Book, cache, logger),
		Follow:      service.NewFollowService(repos.Follow, repos.Profile, logger),
		Badge:       service.NewBadgeService(repos.Badge, logger),
		Preferences: service.NewPreferenceService(c.Store),
		Cover:       service.NewCoverService(repos.Book, repos.Image, generator, objects, logger),
	}

	return c, nil
}

// GetAuthService returns the auth service
func (c *Container) GetAuthService() service.AuthService {
	return c.Services.Auth
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}

// GetGuestService returns the guest session service
func (c *Container) GetGuestService() *guest.Service {
	return c.Guest
}
