package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/sokoflow/soko-engine/pkg/config"
	"github.com/sokoflow/soko-engine/pkg/database"
	"github.com/sokoflow/soko-engine/pkg/handlers"
	"github.com/sokoflow/soko-engine/pkg/llm"
	"github.com/sokoflow/soko-engine/pkg/middleware"
	"github.com/sokoflow/soko-engine/pkg/narrative"
	"github.com/sokoflow/soko-engine/pkg/nlp"
	"github.com/sokoflow/soko-engine/pkg/planner"
	"github.com/sokoflow/soko-engine/pkg/repositories"
	"github.com/sokoflow/soko-engine/pkg/services"
	"github.com/sokoflow/soko-engine/pkg/store"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("port", cfg.Port),
		zap.String("database", cfg.Database.Database),
		zap.Bool("redis_enabled", cfg.Redis.Host != ""),
		zap.Bool("openai_enabled", cfg.OpenAI.APIKey != ""),
	)

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// Wire the pipeline.
	interactionRepo := repositories.NewInteractionRepository(db)
	conversations := services.NewConversationService(interactionRepo, redisClient, logger)

	var suggester llm.Suggester
	if s := llm.NewOpenAISuggester(&cfg.OpenAI); s != nil {
		suggester = s
	}

	queryService := services.NewDynamicQueryService(
		nlp.NewAnalyzer(),
		planner.New(),
		store.NewPostgresExecutor(db),
		narrative.NewSynthesizer(),
		narrative.NewInsightExtractor(),
		suggester,
		conversations,
		logger,
	)

	mux := http.NewServeMux()
	handlers.NewAIHandler(queryService, conversations, logger).RegisterRoutes(mux)
	handlers.NewHealthHandler(db, cfg.Version, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting soko-engine", zap.String("addr", addr), zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()

	return database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger)
}
