// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/absurdly/internal/auth"
	"github.com/jason-s-yu/absurdly/internal/cache"
	"github.com/jason-s-yu/absurdly/internal/config"
	"github.com/jason-s-yu/absurdly/internal/database"
	"github.com/jason-s-yu/absurdly/internal/game"
	"github.com/jason-s-yu/absurdly/internal/handlers"
	"github.com/jason-s-yu/absurdly/internal/hub"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	configureLogger(logger, cfg)

	issuer, err := auth.NewIssuer(cfg.TokenTTL)
	if err != nil {
		logger.Fatalf("failed to create token issuer: %v", err)
	}

	ctx := context.Background()

	var cards *database.CardStore
	var catalog game.CardCatalog
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("failed to connect to database: %v", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Fatalf("failed to migrate database: %v", err)
		}
		cards = database.NewCardStore(pool)
		catalog = cards
		logger.Info("connected to card database")
	} else {
		logger.Warn("no database configured; games will have no cards")
	}

	var recorder *cache.Recorder
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		recorder = cache.NewRecorder(rdb, cfg.HistoryQueue, logger)
		logger.Infof("recording round history to %s", cfg.HistoryQueue)
	}

	store := game.NewSessionStore(game.SessionConfig{
		Catalog:             catalog,
		Logger:              logger,
		Settings:            cfg.Game.Settings,
		PresentationSeconds: cfg.Game.PresentationSeconds,
	})
	h := hub.New(logger)
	store.OnCreate = func(g *game.GameSession) {
		h.Watch(g)
		if recorder != nil {
			recorder.Watch(g)
		}
	}

	gs := handlers.NewGameServer(logger, store, h, issuer)
	gs.OriginPatterns = handlers.OriginPatterns(cfg.AllowedOrigins)

	var repo handlers.CardRepository
	if cards != nil {
		repo = cards
	}
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(logger, gs, repo, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go gracefulShutdown(logger, httpServer, store, done)

	logger.Infof("Running on %s", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}

	<-done
	logger.Info("Graceful shutdown complete.")
}

func configureLogger(logger *logrus.Logger, cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	logger.SetOutput(os.Stdout)
}

// gracefulShutdown waits for SIGINT or SIGTERM, stops accepting requests and
// closes every live session.
func gracefulShutdown(logger *logrus.Logger, httpServer *http.Server, store *game.SessionStore, done chan<- struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info("Shutdown signal received, press Ctrl+C again to force")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown with error: %v", err)
	}
	if ids := store.IDs(); len(ids) > 0 {
		logger.WithField("sessions", ids).Info("closing live game sessions")
	}
	store.CloseAll()

	close(done)
}
