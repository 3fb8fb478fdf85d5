package container

import (
	"context"
	"fmt"

	"bakingai/internal/api"
	"bakingai/internal/browse"
	"bakingai/internal/cache"
	"bakingai/internal/catalog"
	"bakingai/internal/config"
	"bakingai/internal/database"
	"bakingai/internal/handlers"
	"bakingai/internal/logger"
	"bakingai/internal/repository"
	"bakingai/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Web wires the recipe browsing front.
type Web struct {
	Config   config.Web
	Redis    *redis.Client
	Logger   *logrus.Logger
	Recipes  *services.RecipeClient
	Sessions *handlers.Sessions
	Handler  *handlers.Web
}

func NewWeb(ctx context.Context, cfg config.Web) (*Web, error) {
	log := logger.Get()

	recipes := services.NewRecipeClientWithConfig(&services.ClientConfig{
		BaseURL:       cfg.RecipeAPIURL,
		Timeout:       cfg.RequestTimeout,
		RatePerSecond: cfg.RatePerSecond,
		Attempts:      cfg.Attempts,
		Logger:        log,
	})

	c := &Web{Config: cfg, Logger: log, Recipes: recipes}

	var store cache.SnapshotStore
	switch cfg.SessionStore {
	case "redis":
		client, err := cache.NewRedisClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		c.Redis = client
		store = cache.NewRedisSnapshotStore(client, cfg.SessionTTL, log)
	case "memory", "":
		store = cache.NewMemorySnapshotStore(cfg.SessionTTL)
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}

	c.Sessions = handlers.NewSessions(store, recipes, browse.Options{
		PageSize:            cfg.PageSize,
		MaxSearchCandidates: cfg.MaxSearchCandidates,
		Logger:              log,
	}, cfg.SessionTTL)

	handler, err := handlers.NewWeb(c.Sessions, log, cfg.RequestTimeout)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Handler = handler
	return c, nil
}

func (c *Web) Close() {
	if c.Redis != nil {
		c.Redis.Close()
		c.Logger.Info("Redis connection closed")
	}
}

// API wires the recipe API server.
type API struct {
	Config   config.API
	DB       *pgxpool.Pool
	Logger   *logrus.Logger
	Store    catalog.Store
	Reloader *catalog.Reloader
	Handler  *api.RecipeHandler

	closeStore func() error
}

func NewAPI(ctx context.Context, cfg config.API) (*API, error) {
	log := logger.Get()
	c := &API{Config: cfg, Logger: log}

	switch cfg.CatalogSource {
	case "postgres":
		db, err := database.Connect(ctx, config.DatabaseConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		c.DB = db
		store := repository.NewRecipeStore(db, log)
		if err := store.EnsureSchema(ctx); err != nil {
			c.Close()
			return nil, err
		}
		c.Store = store
	case "sqlite":
		store, err := repository.OpenSQLite(cfg.SQLitePath, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite catalog: %w", err)
		}
		c.closeStore = store.Close
		c.Store = store
	case "csv", "":
		c.Store = catalog.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.CatalogSource)
	}

	c.Reloader = catalog.NewReloader(catalog.CSVLoader(cfg.CSVPath, log), c.Store, cfg.ReloadInterval, log)
	if err := c.Reloader.Reload(ctx); err != nil {
		// the API answers 404 until a reload succeeds
		log.WithError(err).Warn("Initial catalog load failed")
	}

	c.Handler = api.NewRecipeHandler(c.Store, log, cfg.DefaultLimit)
	return c, nil
}

func (c *API) Close() {
	if c.closeStore != nil {
		if err := c.closeStore(); err != nil {
			c.Logger.WithError(err).Warn("Failed to close catalog")
		}
	}
	if c.DB != nil {
		c.DB.Close()
		c.Logger.Info("Database connection closed")
	}
}
