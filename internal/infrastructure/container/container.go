// Package container provides dependency injection using Uber FX
// This implements the Dependency Inversion Principle from SOLID
package container

import (
	"context"
	"fmt"
	"time"

	itinerarySvc "github.com/wayfarer/v2/internal/application/itinerary"
	"github.com/wayfarer/v2/internal/application/view"
	"github.com/wayfarer/v2/internal/infrastructure/ai/openai"
	"github.com/wayfarer/v2/internal/infrastructure/config"
	"github.com/wayfarer/v2/internal/infrastructure/enrichment/overpass"
	"github.com/wayfarer/v2/internal/infrastructure/http/handlers"
	"github.com/wayfarer/v2/internal/infrastructure/http/server"
	"github.com/wayfarer/v2/internal/infrastructure/mapfeed"
	"github.com/wayfarer/v2/internal/infrastructure/monitoring"
	gormRepo "github.com/wayfarer/v2/internal/infrastructure/persistence/gorm"
	"github.com/wayfarer/v2/internal/infrastructure/persistence/memory"
	redisRepo "github.com/wayfarer/v2/internal/infrastructure/persistence/redis"
	"github.com/wayfarer/v2/internal/infrastructure/persistence/sqlite"
	"github.com/wayfarer/v2/internal/ports/inbound"
	"github.com/wayfarer/v2/internal/ports/outbound"
	"github.com/wayfarer/v2/pkg/healthcheck"
	"github.com/wayfarer/v2/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Module provides all dependency injection modules
var Module = fx.Options(
	// Infrastructure modules
	ConfigModule,
	LoggerModule,
	MonitoringModule,
	DatabaseModule,
	CacheModule,

	// Repository modules
	RepositoryModule,

	// Service modules
	ServiceModule,

	// Health checks
	HealthModule,

	// HTTP modules
	HTTPModule,

	// Lifecycle hooks
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func() (*config.Config, error) {
		return config.Load("")
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
		})
	},
)

// MonitoringModule provides the Prometheus metrics collector
var MonitoringModule = fx.Provide(
	monitoring.NewMetricsCollector,
)

// DatabaseModule provides the SQLite history database
var DatabaseModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
		logLevel := gormLogger.Silent
		if cfg.App.Debug {
			logLevel = gormLogger.Info
		}

		db, err := sqlite.SetupDatabase(cfg.Database.Path, logLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to setup SQLite database: %w", err)
		}

		log.Info("Connected to SQLite database",
			zap.String("path", cfg.Database.Path),
			zap.Bool("in_memory", cfg.Database.Path == ":memory:"),
		)

		return db, nil
	},
)

// CacheModule provides caching, Redis when enabled and in-memory otherwise.
// The Redis client is nil when the in-memory cache is active.
var CacheModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) (*redis.Client, error) {
		if !cfg.Redis.Enabled {
			return nil, nil
		}
		client, err := redisRepo.NewClient(context.Background(), cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return client, nil
	},
	func(client *redis.Client, log *zap.Logger) outbound.CacheRepository {
		if client != nil {
			log.Info("Using Redis cache", zap.String("addr", client.Options().Addr))
			return redisRepo.NewCacheRepository(client, log)
		}
		log.Info("Using in-memory cache")
		return memory.NewCacheRepository()
	},
)

// RepositoryModule provides repository implementations
var RepositoryModule = fx.Provide(
	fx.Annotate(
		gormRepo.NewHistoryRepository,
		fx.As(new(outbound.HistoryRepository)),
	),
)

// ServiceModule provides application services and their collaborators
var ServiceModule = fx.Provide(
	// AI planner
	func(cfg *config.Config, log *zap.Logger) outbound.AIPlanner {
		return openai.NewClient(openai.Config{
			APIKey:  cfg.AI.APIKey,
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
			Timeout: cfg.AI.Timeout,
		}, log)
	},

	// Nearby-stop enrichment
	func(cfg *config.Config, log *zap.Logger) outbound.PlaceEnrichment {
		return overpass.NewClient(cfg.Enrichment.OverpassURL, log)
	},

	// Websocket map bridge, serving as both map surface and connectivity signal
	func(cfg *config.Config, metrics *monitoring.MetricsCollector, log *zap.Logger) *mapfeed.Bridge {
		return mapfeed.NewBridge(cfg.Map.WriteTimeout, cfg.Map.PingInterval, metrics, log)
	},

	// Itinerary session
	itinerarySvc.NewSessionService,

	// Itinerary view
	func(
		session inbound.ItinerarySession,
		bridge *mapfeed.Bridge,
		enricher outbound.PlaceEnrichment,
		metrics *monitoring.MetricsCollector,
		log *zap.Logger,
	) inbound.ItineraryView {
		// Narration is spoken client-side; no server narrator is wired.
		return view.NewService(session, bridge, enricher, bridge, nil, metrics, log)
	},
)

// HealthModule provides the dependency health checker
var HealthModule = fx.Provide(
	func(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, log *zap.Logger) *healthcheck.HealthCheck {
		hc := healthcheck.New(cfg.App.Version, log.Named("healthcheck"))
		hc.Register("database", healthcheck.NewGormChecker(db))
		if redisClient != nil {
			hc.Register("redis", healthcheck.NewRedisChecker(redisClient))
		}
		if cfg.Enrichment.OverpassURL != "" {
			hc.Register("overpass", healthcheck.NewHTTPChecker(cfg.Enrichment.OverpassURL, 5*time.Second))
		}
		return hc
	},
)

// HTTPModule provides HTTP server and handlers
var HTTPModule = fx.Provide(
	func(
		session inbound.ItinerarySession,
		itineraryView inbound.ItineraryView,
		cfg *config.Config,
		log *zap.Logger,
	) *handlers.APIHandlers {
		return handlers.NewAPIHandlers(session, itineraryView, log, cfg.App.Version)
	},
	server.NewServer,
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// RegisterLifecycleHooks registers application lifecycle hooks
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	db *gorm.DB,
	server *server.Server,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting Wayfarer application",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
			)

			// Start HTTP server
			go func() {
				if err := server.Start(); err != nil {
					log.Fatal("Failed to start HTTP server", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down Wayfarer application")

			// Shutdown HTTP server
			if err := server.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}

			// Close database connections
			sqlDB, err := db.DB()
			if err == nil {
				if err := sqlDB.Close(); err != nil {
					log.Error("Failed to close database connection", zap.Error(err))
				}
			}

			// Flush logs
			_ = log.Sync()

			return nil
		},
	})
}
