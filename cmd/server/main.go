package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hexhavoc/hexhavoc-server/internal/agent"
	"github.com/hexhavoc/hexhavoc-server/internal/config"
	"github.com/hexhavoc/hexhavoc-server/internal/game"
	"github.com/hexhavoc/hexhavoc-server/internal/payout"
	"github.com/hexhavoc/hexhavoc-server/internal/server"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting hexhavoc server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	registry := game.NewRegistry(game.Options{
		GridRadius: cfg.Game.GridRadius,
		Capacity:   cfg.Game.RoomCapacity,
		MaxTurns:   cfg.Game.MaxTurns,
	}, logger)
	logger.Info("room registry initialized",
		zap.Int("grid_radius", cfg.Game.GridRadius),
		zap.Int("room_capacity", cfg.Game.RoomCapacity),
		zap.Int("max_turns", cfg.Game.MaxTurns),
	)

	if cfg.Provider.APIKey == "" {
		logger.Warn("decision provider API key not configured; provider calls will fail and turns will be skipped")
	}
	provider := agent.NewOpenAIClient(agent.Config{
		BaseURL:     cfg.Provider.BaseURL,
		APIKey:      cfg.Provider.APIKey,
		Model:       cfg.Provider.Model,
		Temperature: cfg.Provider.Temperature,
		Timeout:     cfg.Provider.Timeout,
	}, logger)
	logger.Info("decision provider initialized", zap.String("model", cfg.Provider.Model))

	var payer game.Payer
	if cfg.Payout.BaseURL != "" && cfg.Payout.APIKey != "" {
		payer = payout.NewMultiBaasClient(payout.Config{
			BaseURL:       cfg.Payout.BaseURL,
			APIKey:        cfg.Payout.APIKey,
			Chain:         cfg.Payout.Chain,
			TokenAddress:  cfg.Payout.TokenAddress,
			SenderAddress: cfg.Payout.SenderAddress,
		}, logger)
		logger.Info("payout client initialized", zap.String("chain", cfg.Payout.Chain))
	} else {
		logger.Warn("payout not configured; winner rewards will be skipped")
	}

	engine := game.NewEngine(registry, provider, payer, game.NewRealClock(), game.EngineConfig{
		StartDelay:   cfg.Game.StartDelay,
		TurnDelay:    cfg.Game.TurnDelay,
		PayoutAmount: cfg.Payout.Amount,
	}, logger)

	srv := server.New(ctx, registry, engine, logger)
	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("listening", zap.String("address", cfg.Server.Address))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(serveErr))
		}
	}()

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", zap.Error(err))
	}

	logger.Info("hexhavoc server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
