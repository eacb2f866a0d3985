package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gzimm88/StockLensesV2/internal/clients/finnhub"
	"github.com/gzimm88/StockLensesV2/internal/clients/yahoo"
	"github.com/gzimm88/StockLensesV2/internal/config"
	"github.com/gzimm88/StockLensesV2/internal/database"
	"github.com/gzimm88/StockLensesV2/internal/modules/etl"
	"github.com/gzimm88/StockLensesV2/internal/modules/financials"
	"github.com/gzimm88/StockLensesV2/internal/modules/metrics"
	"github.com/gzimm88/StockLensesV2/internal/modules/normalize"
	"github.com/gzimm88/StockLensesV2/internal/modules/prices"
	"github.com/gzimm88/StockLensesV2/internal/modules/scoring"
	"github.com/gzimm88/StockLensesV2/internal/modules/tickers"
	"github.com/gzimm88/StockLensesV2/internal/scheduler"
	"github.com/gzimm88/StockLensesV2/internal/server"
	"github.com/gzimm88/StockLensesV2/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting StockLenses")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(
		tickers.InitSchema,
		financials.InitSchema,
		prices.InitSchema,
		metrics.InitSchema,
		scoring.InitSchema,
	); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Repositories
	tickerRepo := tickers.NewRepository(db.Conn(), log)
	financialsRepo := financials.NewRepository(db.Conn(), log)
	pricesRepo := prices.NewRepository(db.Conn(), log)
	metricsRepo := metrics.NewRepository(db.Conn(), log)
	scoringRepo := scoring.NewRepository(db.Conn(), log)

	if err := scoringRepo.SeedLenses(); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed lens presets")
	}

	// Vendor clients and normalizers
	yahooClient := yahoo.NewClient(log)
	finnhubClient := finnhub.NewClient(cfg.FinnhubAPIKey, log)
	yahooNorm := normalize.NewYahooNormalizer(log)
	finnhubNorm := normalize.NewFinnhubNormalizer(log)

	// Pipeline services
	calculator := metrics.NewCalculator(log)
	scoringService := scoring.NewService(scoringRepo, log)
	etlService := etl.NewService(
		yahooClient, finnhubClient,
		yahooNorm, finnhubNorm,
		calculator,
		tickerRepo, financialsRepo, pricesRepo, metricsRepo,
		scoringService,
		cfg.BenchmarkSymbol,
		log,
	)

	// Scheduler with the nightly refresh
	sched := scheduler.New(log)
	refreshJob := scheduler.NewRefreshJob(etlService, tickerRepo, log)
	if err := sched.AddJob(cfg.RefreshCron, refreshJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register refresh job")
	}
	sched.Start()
	defer sched.Stop()

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:       cfg.Port,
		Log:        log,
		DevMode:    cfg.DevMode,
		Tickers:    tickerRepo,
		Financials: financialsRepo,
		Prices:     pricesRepo,
		Metrics:    metricsRepo,
		Scoring:    scoringRepo,
		ETL:        etlService,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
