package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/sicommerce/storefront/internal/handlers"
	"github.com/sicommerce/storefront/internal/platform/cache"
	"github.com/sicommerce/storefront/internal/platform/config"
	pfirestore "github.com/sicommerce/storefront/internal/platform/firestore"
	"github.com/sicommerce/storefront/internal/platform/jobs"
	"github.com/sicommerce/storefront/internal/platform/metrics"
	"github.com/sicommerce/storefront/internal/platform/observability"
	"github.com/sicommerce/storefront/internal/platform/session"
	"github.com/sicommerce/storefront/internal/repositories"
	firestoreRepo "github.com/sicommerce/storefront/internal/repositories/firestore"
	"github.com/sicommerce/storefront/internal/repositories/memory"
	"github.com/sicommerce/storefront/internal/seed"
	"github.com/sicommerce/storefront/internal/services"
)

const shutdownDrain = 10 * time.Second

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

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

	logger := baseLogger.Named("storefront")
	ctx = observability.WithLogger(ctx, logger)

	buildInfo := services.BuildInfo{
		Version:     cfg.Build.Version,
		CommitSHA:   cfg.Build.CommitSHA,
		Environment: cfg.Build.Environment,
		StartedAt:   startedAt,
	}

	registry, err := newRegistry(cfg)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err), zap.String("backend", cfg.Store.Backend))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := registry.Close(closeCtx); err != nil {
			logger.Warn("repository close error", zap.Error(err))
		}
	}()

	if cfg.Seed.OnStart {
		if err := runSeed(ctx, registry, logger.Named("seed")); err != nil {
			logger.Fatal("failed to seed catalog", zap.Error(err))
		}
	}

	var listingCache *cache.ListingCache
	if addr := strings.TrimSpace(cfg.Redis.Addr); addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
		listingCache = cache.NewListingCache(redisClient, cfg.Redis.ListingTTL)
	} else {
		logger.Info("redis address not configured; listing cache disabled")
	}

	notifier, closeNotifier, err := newOrderNotifier(ctx, cfg.PubSub, logger.Named("orders"))
	if err != nil {
		logger.Fatal("failed to initialise order notifier", zap.Error(err))
	}
	defer closeNotifier()

	metricsRegistry := metrics.NewRegistry()

	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Categories: registry.Categories(),
		Products:   registry.Products(),
		Reviews:    registry.Reviews(),
		Cache:      listingCacheOrNil(listingCache),
		Metrics:    metricsRegistry,
		Logger:     logger.Named("catalog"),
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}

	cartSessions := services.NewCartSessions(services.CartSessionsDeps{
		TTL:    cfg.Session.TTL,
		Logger: logger.Named("sessions"),
	})
	shipping := services.ShippingPolicy{
		FreeThreshold: cfg.Checkout.FreeShippingThreshold,
		FlatFee:       cfg.Checkout.ShippingFee,
	}
	cartService, err := services.NewCartService(services.CartServiceDeps{
		Sessions: cartSessions,
		Products: registry.Products(),
		Shipping: shipping,
		Metrics:  metricsRegistry,
		Logger:   logger.Named("cart"),
	})
	if err != nil {
		logger.Fatal("failed to initialise cart service", zap.Error(err))
	}

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Shipping: shipping,
		Notifier: notifier,
		Metrics:  metricsRegistry,
		Logger:   logger.Named("orders"),
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	reviewService, err := services.NewReviewService(services.ReviewServiceDeps{
		Reviews:    registry.Reviews(),
		Products:   registry.Products(),
		Categories: registry.Categories(),
		Cache:      listingCacheOrNil(listingCache),
		Logger:     logger.Named("reviews"),
	})
	if err != nil {
		logger.Fatal("failed to initialise review service", zap.Error(err))
	}

	dashboardService, err := services.NewDashboardService(services.DashboardServiceDeps{
		Users:      registry.Users(),
		Products:   registry.Products(),
		Categories: registry.Categories(),
		Orders:     registry.Orders(),
	})
	if err != nil {
		logger.Fatal("failed to initialise dashboard service", zap.Error(err))
	}

	systemService, err := newSystemService(registry, listingCache, buildInfo)
	if err != nil {
		logger.Warn("health: system service init failed", zap.Error(err))
	}

	sessions, err := session.NewManager(cfg.Session, logger.Named("session"))
	if err != nil {
		logger.Fatal("failed to initialise session manager", zap.Error(err))
	}

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	var sweepWG sync.WaitGroup
	sweepWG.Add(1)
	go func() {
		defer sweepWG.Done()
		cartSessions.RunSweeper(sweepCtx, cfg.Session.SweepInterval)
	}()

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}
	if cfg.Server.MaxBodyBytes > 0 {
		middlewares = append(middlewares, middleware.RequestSize(cfg.Server.MaxBodyBytes))
	}

	healthOpts := []handlers.HealthOption{handlers.WithHealthBuildInfo(buildInfo)}
	if systemService != nil {
		healthOpts = append(healthOpts, handlers.WithHealthSystemService(systemService))
	}

	cartHandlers := handlers.NewCartHandlers(cartService, sessions)
	checkoutHandlers := handlers.NewCheckoutHandlers(cartService, orderService)
	catalogHandlers := handlers.NewCatalogHandlers(catalogService, handlers.WithFeaturedLimit(cfg.Server.FeaturedLimit))

	var opts []handlers.Option
	opts = append(opts, handlers.WithMiddlewares(middlewares...))
	if cfg.Metrics.Enabled {
		opts = append(opts, handlers.WithMiddlewares(metricsRegistry.Middleware()))
		opts = append(opts, handlers.WithMetricsHandler(metricsRegistry.Handler()))
	}
	opts = append(opts, handlers.WithHealthHandlers(handlers.NewHealthHandlers(healthOpts...)))
	opts = append(opts, handlers.WithSessionMiddlewares(sessions.Middleware()))
	opts = append(opts, handlers.WithCatalogRoutes(catalogHandlers.Routes))
	opts = append(opts, handlers.WithReviewRoutes(handlers.NewReviewHandlers(reviewService).Routes))
	opts = append(opts, handlers.WithCartRoutes(cartHandlers.Routes))
	opts = append(opts, handlers.WithSessionRoutes(cartHandlers.SessionRoutes))
	opts = append(opts, handlers.WithCheckoutRoutes(checkoutHandlers.Routes))
	opts = append(opts, handlers.WithOrderRoutes(checkoutHandlers.OrderRoutes))
	opts = append(opts, handlers.WithAdminRoutes(handlers.NewAdminHandlers(dashboardService).Routes))

	router := handlers.NewRouter(opts...)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("storefront listening", zap.String("backend", cfg.Store.Backend), zap.String("version", buildInfo.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	sweepCancel()
	sweepWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDrain)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newRegistry(cfg config.Config) (repositories.Registry, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendFirestore:
		return firestoreRepo.NewRegistry(pfirestore.NewProvider(cfg.Firestore))
	case config.StoreBackendMemory, "":
		return memory.NewRegistry(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}

func runSeed(ctx context.Context, registry repositories.Registry, logger *zap.Logger) error {
	catalog, err := seed.Load()
	if err != nil {
		return err
	}
	seeder, err := seed.NewSeeder(registry, catalog, logger)
	if err != nil {
		return err
	}
	_, err = seeder.Run(ctx)
	return err
}

// listingCacheOrNil keeps a nil *ListingCache from becoming a non-nil interface.
func listingCacheOrNil(c *cache.ListingCache) services.ListingCache {
	if c == nil {
		return nil
	}
	return c
}

// newOrderNotifier publishes order events to Pub/Sub when a project is configured and logs them
// otherwise. The returned func releases the client.
func newOrderNotifier(ctx context.Context, cfg config.PubSubConfig, logger *zap.Logger) (services.OrderNotifier, func(), error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		logger.Info("pubsub project not configured; order events are logged only")
		return jobs.LogOrderNotifier{Logger: logger}, func() {}, nil
	}

	var opts []option.ClientOption
	emulator := strings.TrimSpace(cfg.EmulatorHost)
	if emulator != "" {
		opts = append(opts,
			option.WithEndpoint(emulator),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub: create client: %w", err)
	}
	topic := client.Topic(cfg.OrderTopic)
	if emulator != "" {
		exists, err := topic.Exists(ctx)
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("pubsub: check topic: %w", err)
		}
		if !exists {
			if topic, err = client.CreateTopic(ctx, cfg.OrderTopic); err != nil {
				_ = client.Close()
				return nil, nil, fmt.Errorf("pubsub: create topic: %w", err)
			}
		}
	}

	publisher, err := jobs.NewPubSubOrderPublisher(topic)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	closer := func() {
		topic.Stop()
		if err := client.Close(); err != nil {
			logger.Warn("pubsub close error", zap.Error(err))
		}
	}
	return publisher, closer, nil
}

func newSystemService(registry repositories.Registry, listingCache *cache.ListingCache, build services.BuildInfo) (services.SystemService, error) {
	checks := []repositories.DependencyCheck{{
		Name:    "store",
		Timeout: 1500 * time.Millisecond,
		Check:   registry.Ping,
	}}
	if listingCache != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:    "redis",
			Timeout: time.Second,
			Check:   listingCache.Ping,
		})
	}
	repo, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return nil, err
	}
	return services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: repo,
		Build:            build,
	})
}
