package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lcavalli/medlog/internal/config"
	"github.com/lcavalli/medlog/internal/httpapi"
	"github.com/lcavalli/medlog/internal/importer"
	"github.com/lcavalli/medlog/internal/medlog"
	"github.com/lcavalli/medlog/internal/observability"
	"github.com/lcavalli/medlog/internal/session"
	"github.com/lcavalli/medlog/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	entryStore, err := store.NewCSV(cfg.CSVPath)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}
	log.Printf("medication log: %s", entryStore.Path())

	importClient := importer.New(importer.Config{
		URL:     cfg.ImportURL,
		APIKey:  cfg.ImportAPIKey,
		UserID:  cfg.ImportUserID,
		Timeout: cfg.ImportTimeout,
	})
	if importClient.Enabled() {
		log.Printf("external import enabled: %s", cfg.ImportURL)
	}

	sessions := session.NewManager(cfg.WaitTimeout)
	sessions.SetExpireHook(func(_ *session.State) {
		metrics.WaitingSessions.Set(float64(sessions.WaitingCount()))
	})

	extractor := medlog.NewExtractor(cfg.DosageUnits)
	tracker := medlog.NewTracker(entryStore, extractor, sessions, importClient, metrics)

	api := httpapi.New(cfg, tracker, sessions, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 5*time.Second)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
