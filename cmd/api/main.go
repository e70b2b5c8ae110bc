package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/medscan/backend/internal/adapters/cache"
	"github.com/zatekoja/medscan/backend/internal/adapters/database"
	"github.com/zatekoja/medscan/backend/internal/adapters/device"
	"github.com/zatekoja/medscan/backend/internal/adapters/events"
	"github.com/zatekoja/medscan/backend/internal/api/handlers"
	"github.com/zatekoja/medscan/backend/internal/api/middleware"
	"github.com/zatekoja/medscan/backend/internal/api/routes"
	"github.com/zatekoja/medscan/backend/internal/application/services"
	"github.com/zatekoja/medscan/backend/internal/catalog"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	"github.com/zatekoja/medscan/backend/internal/domain/repositories"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/clients/openai"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/clients/sqlite"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
	"github.com/zatekoja/medscan/backend/pkg/config"
	"github.com/zatekoja/medscan/backend/pkg/secrets"
)

// maxOCRTextLength bounds device-recognized text forwarded to the pipeline.
const maxOCRTextLength = 4000

func main() {
	// Vault runs first so its credentials reach config.Load.
	vaultResult, vaultErr := secrets.ApplyVaultSecrets(context.Background(), secrets.LoadVaultConfigFromEnv())

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env, cfg.LogLevel)

	if vaultErr != nil {
		log.Warn().Err(vaultErr).Str("path", vaultResult.Path).Msg("failed to load secrets from vault")
	} else if vaultResult.Enabled {
		log.Info().Str("path", vaultResult.Path).Int("loaded", vaultResult.Loaded).Int("skipped", vaultResult.Skipped).Msg("secrets loaded from vault")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	medCatalog, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Catalog.Path).Msg("failed to load medication catalog")
	}
	log.Info().Int("entries", medCatalog.Len()).Strs("regions", medCatalog.Regions()).Msg("medication catalog loaded")

	recorder, closeRecorder, err := openRecorder(ctx, cfg, metrics)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Recorder.Driver).Msg("failed to initialize scan recorder")
	}
	defer closeRecorder()
	log.Info().Str("driver", cfg.Recorder.Driver).Msg("scan recorder initialized")

	// Redis backs the extraction cache and cross-instance scan events. Without
	// it the service runs uncached with in-process events.
	var (
		redisClient   *redis.Client
		cacheProvider providers.CacheProvider
		eventBus      providers.ScanEventBus
	)
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing without extraction cache")
			redisClient = nil
		} else {
			defer redisClient.Close()
			adapter := cache.NewRedisAdapter(redisClient, "extraction")
			adapter.SetMetrics(metrics)
			cacheProvider = adapter
			eventBus = events.NewRedisEventBus(redisClient)
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("redis client initialized")
		}
	}
	if eventBus == nil {
		eventBus = events.NewMemoryEventBus()
		log.Info().Msg("using in-process scan event bus")
	}
	defer func() {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("error closing event bus")
		}
	}()

	var extractionProvider providers.MedicationExtractionProvider
	if cfg.OpenAI.APIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY is not set; AI extraction will degrade")
	} else {
		openaiClient, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize OpenAI client")
		} else {
			extractionProvider = openaiClient
			log.Info().Str("model", openaiClient.Model()).Msg("OpenAI client initialized")
		}
	}

	// Initialize services
	resolver := services.NewResolutionService(medCatalog, cfg.Pipeline)
	extractor := services.NewExtractionService(extractionProvider, cacheProvider, cfg.Pipeline)
	validator := services.NewValidationService(cfg.Pipeline)
	orchestrator := services.NewCaptureOrchestrator(
		resolver,
		extractor,
		validator,
		recorder,
		device.NewClientBarcodeDecoder(),
		device.NewClientTextRecognizer(maxOCRTextLength),
		cfg.Pipeline,
	)
	orchestrator.SetEventPublisher(eventBus)
	orchestrator.SetMetrics(metrics)

	var cacheMiddleware *middleware.CacheMiddleware
	if redisClient != nil {
		// The middleware records its own hit and miss metrics.
		cacheMiddleware = middleware.NewCacheMiddleware(cache.NewRedisAdapter(redisClient, "http"), metrics)
	}

	router := routes.NewRouter(
		handlers.NewScanHandler(orchestrator, recorder),
		handlers.NewExtractionHandler(extractor),
		handlers.NewCatalogHandler(resolver, validator),
		handlers.NewSSEHandler(eventBus),
		cacheMiddleware,
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("server stopped")
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(path)
}

// openRecorder connects the configured recorder and creates its schema.
func openRecorder(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (repositories.ScanRecorder, func(), error) {
	switch cfg.Recorder.Driver {
	case config.RecorderPostgres:
		pgClient, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		recorder := database.NewPostgresScanRecorder(pgClient)
		recorder.SetMetrics(metrics)
		if err := recorder.EnsureSchema(ctx); err != nil {
			pgClient.Close()
			return nil, nil, err
		}
		return recorder, func() { pgClient.Close() }, nil

	case config.RecorderSQLite:
		sqliteClient, err := sqlite.Open(ctx, cfg.Recorder.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		recorder := database.NewSQLiteScanRecorder(sqliteClient)
		recorder.SetMetrics(metrics)
		if err := recorder.EnsureSchema(ctx); err != nil {
			sqliteClient.Close()
			return nil, nil, err
		}
		return recorder, func() { sqliteClient.Close() }, nil

	default:
		return database.NewMemoryScanRecorder(), func() {}, nil
	}
}
