package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"originlytics-backend/internal/acquire"
	"originlytics-backend/internal/analyses"
	"originlytics-backend/internal/documents"
	"originlytics-backend/internal/invoker"
	"originlytics-backend/internal/llm"
	"originlytics-backend/internal/llm/gateway"
	"originlytics-backend/internal/llm/openai"
	"originlytics-backend/internal/shared/config"
	"originlytics-backend/internal/shared/server"
	"originlytics-backend/internal/shared/storage/db"
	"originlytics-backend/internal/shared/storage/object"
	localstore "originlytics-backend/internal/shared/storage/object/local"
	"originlytics-backend/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Redis  *redis.Client
	Store  object.ObjectStore

	Invoker  *invoker.Invoker
	Acquirer *acquire.Acquirer

	DocumentsRepo    documents.DocumentsRepo
	AnalysesRepo     analyses.Repo
	DocumentsService *documents.Service
	AnalysesService  *analyses.Service
	Orchestrator     *analyses.Orchestrator
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Redis:  buildRedis(cfg),
		Store:  localstore.New(cfg.LocalStoreDir),
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		AnalysisHandler: analyses.NewHandler(app.AnalysesService),
		DocumentHandler: documents.NewHandler(app.DocumentsService),
	})

	if cfg.PreloadAnalyzers {
		go func() {
			if err := app.Invoker.Preload(context.Background(), 0); err != nil {
				telemetry.Warn("analyzer preload failed", map[string]any{"error": err.Error()})
			}
		}()
	}

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("DATABASE_URL empty; using in-memory repositories", nil)
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("database connect failed; using in-memory repositories", map[string]any{"error": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildRedis(cfg config.Config) *redis.Client {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		telemetry.Warn("REDIS_URL invalid; result cache disabled", map[string]any{"error": err.Error()})
		return nil
	}
	return redis.NewClient(opts)
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	inner := llm.Client(llm.PlaceholderClient{})
	if cfg.LLMProvider == "openai" && cfg.OpenAIAPIKey != "" {
		client, err := openai.NewClient(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, err
		}
		inner = client
	} else {
		telemetry.Warn("no LLM provider configured; language phases will degrade", map[string]any{
			"provider": cfg.LLMProvider,
		})
	}
	return gateway.New(inner, gateway.Options{
		RequestsPerMin: cfg.LLMRequestsPerMin,
		MaxConcurrent:  cfg.LLMMaxConcurrent,
		MaxAttempts:    cfg.LLMRetryMaxAttempts,
	}), nil
}

func buildServices(app *App) error {
	cfg := app.Config

	if app.DB != nil {
		app.DocumentsRepo = &documents.PGRepo{DB: app.DB}
		app.AnalysesRepo = &analyses.PGRepo{DB: app.DB}
	} else {
		app.DocumentsRepo = documents.NewMemoryRepo()
		app.AnalysesRepo = analyses.NewMemoryRepo()
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return err
	}

	app.Invoker = invoker.New(cfg.PythonBin, cfg.AnalyzerDir)
	app.Acquirer = acquire.New(acquire.Options{
		Timeout:      cfg.FetchTimeout,
		Retries:      cfg.FetchRetries,
		UserAgent:    cfg.FetchUserAgent,
		HostInterval: cfg.HostRateWindow,
	})

	var cache analyses.Cache
	if app.Redis != nil {
		cache = analyses.NewRedisCache(app.Redis, cfg.CacheTTL)
	}

	app.Orchestrator = analyses.NewOrchestrator(llmClient, app.Invoker, app.Acquirer, cache, analyses.Options{
		Model:           cfg.LLMModel,
		PhaseTimeout:    cfg.PhaseTimeout,
		MinWords:        cfg.MinWordCount,
		AnalyzerTimeout: cfg.AnalyzerTimeout,
		AnalyzerRetries: cfg.AnalyzerRetries,
		AllowAdvanced:   cfg.AllowAdvanced,
	})

	app.DocumentsService = &documents.Service{
		Store: app.Store,
		Repo:  app.DocumentsRepo,
	}
	app.AnalysesService = &analyses.Service{
		Repo: app.AnalysesRepo,
		Orch: app.Orchestrator,
		Docs: app.DocumentsService,
	}
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
