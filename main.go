package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/prism-bi/prism-gateway/pkg/adapters/datasource"
	mssqlds "github.com/prism-bi/prism-gateway/pkg/adapters/datasource/mssql"
	pgds "github.com/prism-bi/prism-gateway/pkg/adapters/datasource/postgres"
	"github.com/prism-bi/prism-gateway/pkg/config"
	"github.com/prism-bi/prism-gateway/pkg/database"
	"github.com/prism-bi/prism-gateway/pkg/handlers"
	"github.com/prism-bi/prism-gateway/pkg/llm"
	"github.com/prism-bi/prism-gateway/pkg/metadata"
	"github.com/prism-bi/prism-gateway/pkg/middleware"
	"github.com/prism-bi/prism-gateway/pkg/prompts"
	"github.com/prism-bi/prism-gateway/pkg/repositories"
	"github.com/prism-bi/prism-gateway/pkg/services"
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
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("provider", cfg.AI.Provider),
		zap.String("model", cfg.AI.Model),
		zap.Bool("server_key_configured", cfg.AI.HasServerKey()),
		zap.Int("daily_limit", cfg.AI.DailyLimit))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	settingsRepo := repositories.NewSettingsRepository(db)
	ledger := services.NewQuotaLedger(settingsRepo, cfg.AI.DailyLimit, logger)

	validator := prompts.NewValidator(cfg.AI.MinPromptLength, cfg.AI.MaxPromptLength)
	if cfg.AI.RulesPath != "" {
		if err := validator.LoadRules(cfg.AI.RulesPath); err != nil {
			logger.Fatal("Failed to load prompt rules",
				zap.String("path", cfg.AI.RulesPath), zap.Error(err))
		}
	}

	clients := llm.NewFactory(&cfg.AI, logger)

	var cubes metadata.CubeProvider
	if cfg.Metadata.BaseURL != "" {
		cubes = metadata.NewHTTPProvider(cfg.Metadata.BaseURL)
	} else {
		logger.Warn("No metadata endpoint configured, using fallback schema")
		cubes = &metadata.StaticProvider{}
	}

	indexes, err := newIndexProvider(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to analytics datasource", zap.Error(err))
	}

	generation := services.NewGenerationService(clients, ledger, cubes, validator, logger)
	planAnalysis := services.NewPlanAnalysisService(clients, ledger, cubes, indexes, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAIHandler(cfg, generation, planAnalysis, ledger, logger).RegisterRoutes(mux)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	logger.Info("Starting prism-gateway",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))

	server := &http.Server{
		Addr:              addr,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// runMigrations opens a short-lived database/sql handle for golang-migrate
// and closes it once the schema is current.
func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	db, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()
	return database.RunMigrations(db, cfg.Database.MigrationsPath, logger)
}

// newIndexProvider selects the plan-analysis index adapter for the
// configured analytics datasource. No DSN means plan analysis runs
// without index context.
func newIndexProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (datasource.IndexProvider, error) {
	if cfg.Datasource.DSN == "" {
		logger.Info("No analytics datasource configured, index lookups disabled")
		return datasource.NoopIndexProvider{}, nil
	}

	switch cfg.Datasource.Driver {
	case "mssql":
		return mssqlds.Connect(ctx, cfg.Datasource.DSN, logger)
	default:
		return pgds.Connect(ctx, cfg.Datasource.DSN, logger)
	}
}
