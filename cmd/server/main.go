package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estimator-core/internal/adapter/api"
	"estimator-core/internal/adapter/client"
	"estimator-core/internal/adapter/store"
	"estimator-core/internal/config"
	"estimator-core/internal/domain/repository"
	"estimator-core/internal/logger"
	"estimator-core/internal/usecase"

	"github.com/gofiber/fiber/v2"
	"github.com/qdrant/go-client/qdrant"
	"github.com/redis/go-redis/v9"
	"google.golang.org/genai"
)

const embeddingDimensions = 768

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Global().Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	log := logger.Global()
	ctx := context.Background()

	estimation := usecase.DefaultEstimationConfig()
	estimation.FlatRatePerHour = cfg.FlatRatePerHour
	estimation.HourlyAICost = cfg.HourlyAICost

	// Redis for client quotas and the exact estimate cache
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	limiter := store.NewRedisLimiter(rdb, cfg.ClientRequestLimit, 24*time.Hour)
	cache := store.NewRedisEstimateCache(rdb, cfg.CacheTTL)

	var (
		loader  repository.ClassifierLoader
		similar *usecase.SimilarLookup
	)
	if cfg.ClassifierEnabled() {
		genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
			Project:  cfg.GoogleCloudProject,
			Location: cfg.GoogleCloudLocation,
			Backend:  genai.BackendVertexAI,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init genai client")
		}

		primary := client.NewGeminiClassifierFromClient(genaiClient, cfg.ClassifierModel)
		fallback := client.NewGeminiClassifierFromClient(genaiClient, cfg.FallbackModel)

		// Loaded on the first estimate, not at startup.
		loader = repository.ClassifierLoaderFunc(func(ctx context.Context) (repository.Classifier, error) {
			if err := primary.Ping(ctx); err != nil {
				return nil, err
			}
			return usecase.NewResilientClassifier(primary, fallback), nil
		})

		if cfg.SimilarCacheEnabled {
			similar = setupSimilarLookup(ctx, cfg, genaiClient)
		}
	} else {
		log.Warn().Msg("GOOGLE_CLOUD_PROJECT/LOCATION not set, estimates use the heuristic only")
	}

	opts := []usecase.EngineOption{usecase.WithLoadTimeout(cfg.ClassifierTimeout)}
	if !cfg.DeviceCheckEnabled {
		opts = append(opts, usecase.WithCapability(usecase.AlwaysCapable))
	}
	engine := usecase.NewEngine(estimation, loader, opts...)

	// Inject the adapters into the Orchestration Layer
	orchestrator := usecase.NewOrchestrator(engine, limiter, cache, similar)

	// Initialize API Layer (Delivery Layer)
	app := fiber.New(fiber.Config{
		AppName: "Estimator Core",
	})

	handler := api.NewEstimateHandler(orchestrator, cfg.TrustClientIDHeader)
	api.SetupRouter(app, handler, api.BuildInfo{Version: cfg.AppVersion, Env: cfg.Env})

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("estimator running")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}

	orchestrator.Wait()
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("redis close failed")
	}
}

// setupSimilarLookup wires the Qdrant-backed similar-estimate cache. It returns nil when Qdrant is unreachable.
func setupSimilarLookup(ctx context.Context, cfg *config.Config, genaiClient *genai.Client) *usecase.SimilarLookup {
	log := logger.Global()

	qClient, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.QdrantHost,
		Port: cfg.QdrantPort,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to qdrant, similar lookup disabled")
		return nil
	}

	vectorStore := store.NewQdrantStore(qClient, cfg.QdrantCollection, cfg.CacheTTL)
	if err := vectorStore.InitCollection(ctx, embeddingDimensions); err != nil {
		log.Error().Err(err).Msg("failed to init qdrant collection, similar lookup disabled")
		return nil
	}

	return &usecase.SimilarLookup{
		Store:     vectorStore,
		Embedder:  client.NewEmbedderFromClient(genaiClient, cfg.EmbeddingModel, embeddingDimensions),
		Extractor: client.NewGeminiExtractor(genaiClient, cfg.UtilityModel),
		Evaluator: client.NewGeminiEvaluator(genaiClient, cfg.UtilityModel),
		Threshold: cfg.SimilarityThreshold,
	}
}
