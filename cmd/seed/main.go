package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sicommerce/storefront/internal/platform/config"
	pfirestore "github.com/sicommerce/storefront/internal/platform/firestore"
	"github.com/sicommerce/storefront/internal/platform/observability"
	firestoreRepo "github.com/sicommerce/storefront/internal/repositories/firestore"
	"github.com/sicommerce/storefront/internal/seed"
)

func main() {
	var catalogPath string
	var dryRun bool
	var timeout time.Duration
	flag.StringVar(&catalogPath, "catalog", "", "seed catalog YAML file (defaults to the embedded catalog)")
	flag.BoolVar(&dryRun, "dry-run", false, "validate the catalog without writing")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "overall seeding timeout")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	baseLogger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("seed")

	catalog, err := loadCatalog(catalogPath)
	if err != nil {
		logger.Fatal("failed to load seed catalog", zap.Error(err), zap.String("path", catalogPath))
	}
	if dryRun {
		logger.Info("seed catalog valid",
			zap.Int("categories", len(catalog.Categories)),
			zap.Int("products", len(catalog.Products)),
			zap.Int("users", len(catalog.Users)),
			zap.Int("reviews", len(catalog.Reviews)),
			zap.Int("orders", len(catalog.Orders)),
		)
		return
	}

	// The in-memory backend lives inside the server process, which seeds itself on start.
	if cfg.Store.Backend != config.StoreBackendFirestore {
		logger.Fatal("seeding requires the firestore backend", zap.String("backend", cfg.Store.Backend))
	}

	provider := pfirestore.NewProvider(cfg.Firestore)
	registry, err := firestoreRepo.NewRegistry(provider)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := registry.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	seeder, err := seed.NewSeeder(registry, catalog, logger)
	if err != nil {
		logger.Fatal("failed to initialise seeder", zap.Error(err))
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := seeder.Run(runCtx); err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}
}

func loadCatalog(path string) (seed.Catalog, error) {
	if path == "" {
		return seed.Load()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return seed.Catalog{}, err
	}
	return seed.Decode(data)
}
