package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"koko-storefront/internal/config"
	"koko-storefront/internal/db"
	"koko-storefront/internal/freshness"
	"koko-storefront/internal/identity"
	"koko-storefront/internal/importer"
	"koko-storefront/internal/repository/document"
	"koko-storefront/internal/service/catalog"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to catalog CSV export")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger := log.New(os.Stdout, "[importer] ", log.LstdFlags|log.LUTC|log.Lshortfile)
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

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatalf("open file: %v", err)
	}
	defer f.Close()

	svc := catalog.New(
		document.NewPostgres(pool, "products", logger),
		identity.New(),
		freshness.New(cfg.Policy()),
		logger,
	)
	imp := importer.NewCSVImporter(f, svc, logger)

	start := time.Now()
	res, err := imp.Run(ctx)
	if err != nil {
		logger.Fatalf("import failed after created=%d updated=%d: %v", res.Created, res.Updated, err)
	}

	fmt.Printf("Imported %d items (%d new, %d updated) in %s\n", res.Total(), res.Created, res.Updated, time.Since(start).Truncate(time.Millisecond))
}
