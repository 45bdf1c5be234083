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
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/emberline/duelcore/internal/ai"
	"github.com/emberline/duelcore/internal/config"
	"github.com/emberline/duelcore/internal/game"
	"github.com/emberline/duelcore/internal/game/cards"
	"github.com/emberline/duelcore/internal/storage"
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

	logger.Info("starting duelcore server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	content, err := cards.LoadFile(cfg.Content.Cards)
	if err != nil {
		logger.Fatal("failed to load card content", zap.Error(err))
	}
	deck, err := content.Deck(cfg.Content.Deck)
	if err != nil {
		logger.Fatal("failed to load deck", zap.Error(err))
	}
	logger.Info("card content loaded",
		zap.String("path", cfg.Content.Cards),
		zap.Int("templates", len(content.Templates)),
		zap.String("deck", cfg.Content.Deck),
		zap.Int("deck_size", len(deck)),
	)

	catalog := game.CatalogFor(content.Templates)
	if err := game.CheckTokens(content.Templates, catalog); err != nil {
		logger.Fatal("card content references missing tokens", zap.Error(err))
	}
	engine := game.NewEngine(cfg.Rules.GameRules(), content.Templates, catalog,
		game.WithLogger(logger.Named("engine")),
	)

	store, closeStore, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to open snapshot store", zap.Error(err))
	}
	defer closeStore()
	logger.Info("snapshot store initialized", zap.String("driver", cfg.Storage.Driver))

	opts := []game.ManagerOption{game.WithSnapshotStore(store)}
	if cfg.Replay.Enabled {
		opts = append(opts, game.WithReplayRecorder(game.NewReplayRecorder(logger, cfg.Replay.Dir)))
		logger.Info("replay recording enabled", zap.String("dir", cfg.Replay.Dir))
	}
	manager := game.NewManager(engine, logger, opts...)

	hub := newHub(manager, deck, newDecider(cfg.Server.AIDecider), cfg.Server, logger)
	manager.SetNotificationHandler(hub.notify)
	go hub.run(ctx)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           routes(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("starting websocket server", zap.String("address", cfg.Server.Address))
		if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("websocket server error", zap.Error(serveErr))
			cancel()
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}

	logger.Info("shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()

	for _, id := range manager.Matches() {
		if err := manager.EndMatch(id); err != nil {
			logger.Warn("failed to end match", zap.String("match_id", id), zap.Error(err))
		}
	}
	logger.Info("duelcore server stopped")
}

func routes(hub *Hub) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.serveWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %d matches\n", len(hub.manager.Matches()))
	})
	return mux
}

func newDecider(name string) ai.Decider {
	if name == "random" {
		return ai.NewRandom(time.Now().UnixNano())
	}
	return ai.Greedy{}
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
