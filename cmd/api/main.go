package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"koko-storefront/internal/config"
	"koko-storefront/internal/db"
	"koko-storefront/internal/freshness"
	"koko-storefront/internal/httpserver"
	"koko-storefront/internal/identity"
	"koko-storefront/internal/repository/document"
	catalogsvc "koko-storefront/internal/service/catalog"
	dashboardsvc "koko-storefront/internal/service/dashboard"
)

func main() {
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	productRepo := document.NewPostgres(dbpool, "products", logger)
	orderRepo := document.NewPostgres(dbpool, "orders", logger)
	customerRepo := document.NewPostgres(dbpool, "customers", logger)

	// One coordinator for the process: catalog writes must invalidate the
	// dashboard aggregate too.
	coordinator := freshness.New(cfg.Policy(), freshness.WithLogger(logger))
	catalogService := catalogsvc.New(productRepo, identity.New(), coordinator, logger)
	dashboardService := dashboardsvc.New(productRepo, orderRepo, customerRepo, coordinator, cfg.LowStockThreshold, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Catalog:          catalogService,
		Dashboard:        dashboardService,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		stats := coordinator.Stats()
		logger.Printf("server stopped cache_hits=%d fetches=%d fetch_errors=%d", stats.Hits, stats.Fetches, stats.Errors)
	}
}
