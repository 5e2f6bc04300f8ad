package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinrank/internal/api"
	"coinrank/internal/config"
	"coinrank/internal/ingest"
	"coinrank/internal/stats"
	"coinrank/internal/store"
	"coinrank/internal/util"
)

func main() {
	cfgPath := "config/coinrank.yaml"
	if p := os.Getenv("COINRANK_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	var db store.PriceStore
	switch cfg.Storage.Backend {
	case config.BackendParquet:
		db = store.NewParquetStore(cfg.Storage.DataDir)
	default:
		sq, err := store.NewSQLiteStore(cfg.Storage.SQLitePath, cfg.Storage.SerializeWrites)
		if err != nil {
			logger.Error("opening sqlite store", "path", cfg.Storage.SQLitePath, "error", err)
			os.Exit(1)
		}
		defer sq.Close()
		db = sq
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Batch load at startup: persist every price file, then mine the
	// aggregate stats into memory.
	loader := ingest.NewLoader(db, cfg.Ingest.MaxWorkers, logger)
	loadStart := time.Now()
	ids, err := loader.LoadAll(ctx, cfg.Ingest.PricesDir)
	if err != nil {
		logger.Error("loading price files", "dir", cfg.Ingest.PricesDir, "error", err)
		os.Exit(1)
	}
	logger.Info("price files loaded",
		"assets", len(ids),
		"elapsed", time.Since(loadStart).Round(time.Millisecond),
	)

	mem := stats.NewStore()
	calc := stats.NewCalculator(db, mem, cfg.Ingest.MaxWorkers, logger)
	if err := calc.ComputeAndLoad(ctx, ids); err != nil {
		logger.Error("computing aggregate stats", "error", err)
		os.Exit(1)
	}
	logger.Info("aggregate stats loaded", "assets", len(mem.SupportedAssetIDs()))

	best := stats.NewBestPerformerQuery(db, mem, cfg.Ingest.MaxWorkers, logger)
	srv := api.NewServer(mem, best, logger)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", httpSrv.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", "error", err)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}
}
