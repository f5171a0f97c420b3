package main

import (
	"context"
	"log"
	"os"
	"time"

	"koko-storefront/internal/config"
	"koko-storefront/internal/db"
	"koko-storefront/internal/repository/document"
	"koko-storefront/internal/seed"
)

func main() {
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	data, err := seed.Apply(ctx, seed.Collections{
		Products:  document.NewPostgres(pool, "products", logger),
		Orders:    document.NewPostgres(pool, "orders", logger),
		Customers: document.NewPostgres(pool, "customers", logger),
	}, time.Now())
	if err != nil {
		logger.Fatalf("seed apply: %v", err)
	}

	logger.Printf("seed applied products=%d orders=%d customers=%d", len(data.Products), len(data.Orders), len(data.Customers))
}
