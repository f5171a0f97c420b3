package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"koko-storefront/internal/cartstore"
	"koko-storefront/internal/catalogclient"
	"koko-storefront/internal/cli"
	"koko-storefront/internal/config"
	"koko-storefront/internal/freshness"
	"koko-storefront/internal/localstorage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand(openSession)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}

func openSession(ctx context.Context, verbose bool) (*cli.Session, error) {
	cfg, err := config.ClientFromEnv()
	if err != nil {
		return nil, err
	}

	out := io.Discard
	if verbose {
		out = os.Stderr
	}
	logger := log.New(out, "[koko] ", log.LstdFlags|log.LUTC)

	coord := freshness.New(cfg.Policy(), freshness.WithLogger(logger))
	client, err := catalogclient.New(cfg.APIURL, coord,
		catalogclient.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		catalogclient.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	storage, err := localstorage.OpenSQLite(cfg.CartDB)
	if err != nil {
		return nil, fmt.Errorf("open cart %s: %w", cfg.CartDB, err)
	}
	cart := cartstore.New(storage, logger)
	if _, err := cart.Hydrate(ctx); err != nil {
		// Catalog commands still work; cart commands report the cart as not loaded.
		logger.Printf("cart: %v", err)
	}

	return cli.NewSession(client, cart, storage.Close), nil
}
