package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mnarita/kioku/internal/api"
	"github.com/mnarita/kioku/internal/config"
	"github.com/mnarita/kioku/internal/db"
	"github.com/mnarita/kioku/internal/jobs"
	"github.com/mnarita/kioku/internal/logger"
	"github.com/mnarita/kioku/internal/repository/sqlite"
	"github.com/mnarita/kioku/internal/services"
	"github.com/mnarita/kioku/internal/worker"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("Kioku Server Starting")
	log.Info("===========================================")
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("rebuild_worker_count=%d", cfg.RebuildWorkerCount)
	log.Debug("rebuild_queue_size=%d", cfg.RebuildQueueSize)
	log.Debug("prefetch=%t", cfg.PrefetchEnabled)
	log.Debug("autosave=%t", cfg.AutosaveEnabled)

	// Open database
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	// Initialize repositories and the scheduling engine
	deckRepo := sqlite.NewDeckRepository(database.DB)
	profileRepo := sqlite.NewProfileRepository(database.DB)
	engine := services.NewEngine(deckRepo, profileRepo, cfg.AutosaveEnabled, cfg.PrefetchEnabled)
	if err := engine.Load(context.Background()); err != nil {
		log.Error("failed to load decks: %v", err)
		os.Exit(1)
	}

	// Initialize worker pool for stat rebuilds
	rebuildPool := worker.NewPool(cfg.RebuildWorkerCount, cfg.RebuildQueueSize)

	// Initialize services
	studyService := services.NewStudyService(engine)
	queue := jobs.NewWorkerQueue(rebuildPool, studyService)
	deckService := services.NewDeckService(engine, queue)

	srv := &api.Server{
		DeckService:  deckService,
		StudyService: studyService,
		RebuildPool:  rebuildPool,
	}

	ctx, cancel := context.WithCancel(context.Background())
	rebuildPool.Start(ctx)

	// Configure HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server
	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("stopping worker pool")
	cancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	rebuildPool.Stop()

	// Flush all scheduling state before exit.
	log.Debug("saving decks")
	if err := engine.SaveAll(shutdownCtx); err != nil {
		log.Error("failed to save decks on shutdown: %v", err)
	}

	log.Info("===========================================")
	log.Info("Kioku Server Stopped")
	log.Info("===========================================")
}
