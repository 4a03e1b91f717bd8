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

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/swiftmart/api/internal/handlers"
	"github.com/swiftmart/api/internal/payments"
	"github.com/swiftmart/api/internal/platform/auth"
	"github.com/swiftmart/api/internal/platform/cache"
	"github.com/swiftmart/api/internal/platform/config"
	pfirestore "github.com/swiftmart/api/internal/platform/firestore"
	"github.com/swiftmart/api/internal/platform/idempotency"
	"github.com/swiftmart/api/internal/platform/observability"
	"github.com/swiftmart/api/internal/repositories"
	firestoreRepo "github.com/swiftmart/api/internal/repositories/firestore"
	"github.com/swiftmart/api/internal/repositories/memory"
	"github.com/swiftmart/api/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(startedAt)

	// Data layer. A configured Firestore project backs the account-scoped
	// stores; guest stores stay in memory since device carts are ephemeral.
	var firestoreProvider *pfirestore.Provider
	accountStores := memoryShopperStores(cfg.Storefront.ChatHistoryLimit)
	if strings.TrimSpace(cfg.Firestore.ProjectID) != "" {
		firestoreProvider = pfirestore.NewProvider(cfg.Firestore)
		if _, err := firestoreProvider.Client(ctx); err != nil {
			logger.Fatal("failed to initialise firestore client", zap.Error(err))
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := firestoreProvider.Close(closeCtx); err != nil {
				logger.Warn("firestore close error", zap.Error(err))
			}
		}()
		accountStores, err = firestoreShopperStores(firestoreProvider, cfg.Storefront.ChatHistoryLimit)
		if err != nil {
			logger.Fatal("failed to initialise firestore repositories", zap.Error(err))
		}
	} else {
		logger.Info("no firestore project configured; using in-memory stores")
	}
	stores := services.Stores{
		Account: accountStores,
		Guest:   memoryShopperStores(cfg.Storefront.ChatHistoryLimit),
	}

	productRepo := memory.NewProductRepository(memory.SeedProducts())
	dealRepo := memory.NewDealRepository(memory.SeedDeals())

	// Cache layer. Redis when configured, in-process fallbacks otherwise.
	var (
		listCache     cache.Cache
		searchHistory cache.SearchHistory
		idemStore     idempotency.Store
		redisClient   *redis.Client
	)
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
		listCache = cache.NewRedisCache(redisClient)
		searchHistory = cache.NewRedisSearchHistory(redisClient, cfg.Storefront.RecentSearchLimit)
		store, err := idempotency.NewRedisStore(redisClient)
		if err != nil {
			logger.Fatal("failed to initialise redis idempotency store", zap.Error(err))
		}
		idemStore = store
	} else {
		logger.Info("no redis address configured; using in-memory cache")
		listCache = cache.NewMemoryCache()
		searchHistory = cache.NewMemorySearchHistory(cfg.Storefront.RecentSearchLimit)
		idemStore = idempotency.NewMemoryStore()
	}

	idempotencyMiddleware := idempotency.Middleware(
		idemStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	var cleanupTicker *time.Ticker
	if cfg.Idempotency.CleanupInterval > 0 {
		cleanupTicker = time.NewTicker(cfg.Idempotency.CleanupInterval)
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			cleanupLogger := logger.Named("idempotency")
			for {
				select {
				case <-cleanupTicker.C:
					runCtx, cancel := context.WithTimeout(cleanupCtx, time.Minute)
					removed, err := idemStore.CleanupExpired(runCtx, time.Now().UTC(), cfg.Idempotency.CleanupBatchSize)
					cancel()
					if err != nil {
						cleanupLogger.Error("idempotency cleanup error", zap.Error(err))
						continue
					}
					if removed > 0 {
						cleanupLogger.Info("idempotency cleanup removed records", zap.Int("count", removed))
					}
				case <-cleanupCtx.Done():
					return
				}
			}
		}()
	}

	verifier, err := auth.NewJWTVerifier(cfg.Auth.JWTSecret, auth.WithIssuer(cfg.Auth.Issuer))
	if err != nil {
		logger.Fatal("failed to initialise token verifier", zap.Error(err))
	}
	authn := auth.NewMiddleware(verifier)

	gateway, err := buildPaymentManager(cfg.PSP, logger.Named("payments"))
	if err != nil {
		logger.Fatal("failed to initialise payment providers", zap.Error(err))
	}
	if gateway == nil {
		logger.Warn("no payment providers configured; checkout is disabled")
	}
	poller := payments.NewPoller(payments.PollerConfig{
		Interval:    cfg.PSP.PollInterval,
		MaxAttempts: cfg.PSP.PollMaxAttempts,
	})

	catalogService, err := services.NewCatalogService(services.CatalogServiceConfig{
		Products:      productRepo,
		Deals:         dealRepo,
		Cache:         listCache,
		SearchHistory: searchHistory,
		Logger:        observability.EventLogger(logger.Named("catalog")),
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}
	cartService, err := services.NewCartService(services.CartServiceConfig{
		Stores:   stores,
		Products: productRepo,
		Currency: cfg.Storefront.DefaultCurrency,
		Logger:   observability.EventLogger(logger.Named("cart")),
	})
	if err != nil {
		logger.Fatal("failed to initialise cart service", zap.Error(err))
	}
	wishlistService, err := services.NewWishlistService(services.WishlistServiceConfig{
		Stores:   stores,
		Products: productRepo,
		Cart:     cartService,
		Logger:   observability.EventLogger(logger.Named("wishlist")),
	})
	if err != nil {
		logger.Fatal("failed to initialise wishlist service", zap.Error(err))
	}

	locationCfg := services.LocationServiceConfig{
		Stores: stores,
		Logger: observability.EventLogger(logger.Named("location")),
	}
	if strings.TrimSpace(cfg.Geocoder.BaseURL) != "" {
		geocoder, err := services.NewGeocoderClient(services.GeocoderClientConfig{
			BaseURL: cfg.Geocoder.BaseURL,
			Timeout: cfg.Geocoder.Timeout,
			Logger:  observability.EventLogger(logger.Named("geocoder")),
		})
		if err != nil {
			logger.Fatal("failed to initialise geocoder client", zap.Error(err))
		}
		locationCfg.Geocoder = geocoder
	} else {
		logger.Info("no geocoder base url configured; reverse geocoding is disabled")
	}
	locationService, err := services.NewLocationService(locationCfg)
	if err != nil {
		logger.Fatal("failed to initialise location service", zap.Error(err))
	}
	paymentMethodService, err := services.NewPaymentMethodService(services.PaymentMethodServiceConfig{
		Stores:  stores,
		Gateway: gatewayOrNil(gateway),
		Logger:  observability.EventLogger(logger.Named("payment_methods")),
	})
	if err != nil {
		logger.Fatal("failed to initialise payment method service", zap.Error(err))
	}
	chatService, err := services.NewChatService(services.ChatServiceConfig{
		Stores: stores,
		Logger: observability.EventLogger(logger.Named("chat")),
	})
	if err != nil {
		logger.Fatal("failed to initialise chat service", zap.Error(err))
	}
	bulkService, err := services.NewBulkOrderService(services.BulkOrderServiceConfig{
		Products: productRepo,
		Currency: cfg.Storefront.DefaultCurrency,
		Logger:   observability.EventLogger(logger.Named("bulk")),
	})
	if err != nil {
		logger.Fatal("failed to initialise bulk order service", zap.Error(err))
	}
	vendorService, err := services.NewVendorService(services.VendorServiceConfig{
		Orders: stores.Account.Orders,
		Logger: observability.EventLogger(logger.Named("vendor")),
	})
	if err != nil {
		logger.Fatal("failed to initialise vendor service", zap.Error(err))
	}

	var checkoutService *services.CheckoutService
	if gateway != nil {
		checkoutService, err = services.NewCheckoutService(services.CheckoutServiceConfig{
			Stores:  stores,
			Gateway: gateway,
			Poller:  poller,
			Logger:  observability.EventLogger(logger.Named("checkout")),
		})
		if err != nil {
			logger.Fatal("failed to initialise checkout service", zap.Error(err))
		}
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithReadinessCheck("cache", func(ctx context.Context) error {
			if redisClient == nil {
				return nil
			}
			return redisClient.Ping(ctx).Err()
		}),
		handlers.WithReadinessCheck("firestore", func(ctx context.Context) error {
			if firestoreProvider == nil {
				return nil
			}
			_, err := firestoreProvider.Client(ctx)
			return err
		}),
	)

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
		authn.Optional,
	}

	opts := []handlers.Option{
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithCatalogRoutes(handlers.NewCatalogHandlers(catalogService).Routes),
		handlers.WithCartRoutes(handlers.NewCartHandlers(cartService).Routes),
		handlers.WithWishlistRoutes(handlers.NewWishlistHandlers(wishlistService).Routes),
		handlers.WithUserRoutes(handlers.NewUserHandlers(locationService, paymentMethodService).Routes),
		handlers.WithChatRoutes(handlers.NewChatHandlers(chatService).Routes),
		handlers.WithBulkRoutes(handlers.NewBulkHandlers(bulkService).Routes),
		handlers.WithVendorRoutes(handlers.NewVendorHandlers(vendorService).Routes),
		handlers.WithVendorMiddlewares(handlers.RequireVendorRole()),
		handlers.WithCheckoutRoutes(handlers.NewCheckoutHandlers(checkoutService).Routes),
		handlers.WithCheckoutMiddlewares(idempotencyMiddleware),
	}

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
		serverLogger.Info("swiftmart api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	if cleanupTicker != nil {
		cleanupTicker.Stop()
	}
	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func memoryShopperStores(chatLimit int) repositories.ShopperStores {
	return repositories.ShopperStores{
		Carts:          memory.NewCartRepository(),
		Wishlists:      memory.NewWishlistRepository(),
		Addresses:      memory.NewAddressRepository(),
		PaymentMethods: memory.NewPaymentMethodRepository(),
		Chats:          memory.NewChatRepository(chatLimit),
		Orders:         memory.NewOrderRepository(),
	}
}

func firestoreShopperStores(provider *pfirestore.Provider, chatLimit int) (repositories.ShopperStores, error) {
	carts, err := firestoreRepo.NewCartRepository(provider)
	if err != nil {
		return repositories.ShopperStores{}, err
	}
	wishlists, err := firestoreRepo.NewWishlistRepository(provider)
	if err != nil {
		return repositories.ShopperStores{}, err
	}
	addresses, err := firestoreRepo.NewAddressRepository(provider)
	if err != nil {
		return repositories.ShopperStores{}, err
	}
	methods, err := firestoreRepo.NewPaymentMethodRepository(provider)
	if err != nil {
		return repositories.ShopperStores{}, err
	}
	chats, err := firestoreRepo.NewChatRepository(provider, chatLimit)
	if err != nil {
		return repositories.ShopperStores{}, err
	}
	orders, err := firestoreRepo.NewOrderRepository(provider)
	if err != nil {
		return repositories.ShopperStores{}, err
	}
	return repositories.ShopperStores{
		Carts:          carts,
		Wishlists:      wishlists,
		Addresses:      addresses,
		PaymentMethods: methods,
		Chats:          chats,
		Orders:         orders,
	}, nil
}

// buildPaymentManager registers every provider whose credentials are present.
// A nil manager means checkout stays disabled.
func buildPaymentManager(psp config.PSPConfig, logger *zap.Logger) (*payments.Manager, error) {
	providers := make(map[string]payments.Provider)
	eventLogger := observability.EventLogger(logger)

	if strings.TrimSpace(psp.StripeAPIKey) != "" {
		stripe, err := payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey: psp.StripeAPIKey,
			Logger: eventLogger,
		})
		if err != nil {
			return nil, err
		}
		providers["stripe"] = stripe
	}
	if strings.TrimSpace(psp.RazorpayKeyID) != "" && strings.TrimSpace(psp.RazorpayKeySecret) != "" {
		razorpay, err := payments.NewRazorpayProvider(payments.RazorpayProviderConfig{
			KeyID:     psp.RazorpayKeyID,
			KeySecret: psp.RazorpayKeySecret,
			Logger:    eventLogger,
		})
		if err != nil {
			return nil, err
		}
		providers["razorpay"] = razorpay
	}
	if strings.TrimSpace(psp.PayPalClientID) != "" && strings.TrimSpace(psp.PayPalSecret) != "" {
		paypal, err := payments.NewPayPalProvider(payments.PayPalProviderConfig{
			ClientID: psp.PayPalClientID,
			Secret:   psp.PayPalSecret,
			Live:     psp.PayPalLive,
			Logger:   eventLogger,
		})
		if err != nil {
			return nil, err
		}
		providers["paypal"] = paypal
	}
	if strings.TrimSpace(psp.GooglePayMerchantID) != "" {
		googlepay, err := payments.NewGooglePayProvider(payments.GooglePayProviderConfig{
			MerchantID: psp.GooglePayMerchantID,
			Gateway:    psp.GooglePayGateway,
			Logger:     eventLogger,
		})
		if err != nil {
			return nil, err
		}
		providers["googlepay"] = googlepay
	}
	if strings.TrimSpace(psp.PhonePeMerchantID) != "" && strings.TrimSpace(psp.PhonePeSaltKey) != "" {
		phonepe, err := payments.NewPhonePeProvider(payments.PhonePeProviderConfig{
			BaseURL:    psp.PhonePeBaseURL,
			MerchantID: psp.PhonePeMerchantID,
			SaltKey:    psp.PhonePeSaltKey,
			SaltIndex:  psp.PhonePeSaltIndex,
			Logger:     eventLogger,
		})
		if err != nil {
			return nil, err
		}
		providers["phonepe"] = phonepe
	}
	if strings.TrimSpace(psp.UPIPayeeVPA) != "" {
		upi, err := payments.NewUPIProvider(payments.UPIProviderConfig{
			PayeeVPA:  psp.UPIPayeeVPA,
			PayeeName: psp.UPIPayeeName,
			Logger:    eventLogger,
		})
		if err != nil {
			return nil, err
		}
		providers["upi"] = upi
	}

	if len(providers) == 0 {
		return nil, nil
	}
	return payments.NewManager(providers)
}

// gatewayOrNil keeps the services.PaymentGateway interface value nil when no
// manager was built, so the provider check is skipped rather than failing.
func gatewayOrNil(manager *payments.Manager) services.PaymentGateway {
	if manager == nil {
		return nil
	}
	return manager
}

func buildInfoFromEnv(started time.Time) handlers.BuildInfo {
	version := strings.TrimSpace(os.Getenv("API_BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(os.Getenv("API_BUILD_COMMIT_SHA"))
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(os.Getenv("API_ENVIRONMENT"))
	if environment == "" {
		environment = "local"
	}
	return handlers.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}
