package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/sundai-club/shop/internal/payments"
	"github.com/sundai-club/shop/internal/platform/config"
	pfirestore "github.com/sundai-club/shop/internal/platform/firestore"
	"github.com/sundai-club/shop/internal/platform/idempotency"
	"github.com/sundai-club/shop/internal/platform/jobs"
	"github.com/sundai-club/shop/internal/platform/observability"
	"github.com/sundai-club/shop/internal/platform/secrets"
	"github.com/sundai-club/shop/internal/platform/session"
	"github.com/sundai-club/shop/internal/printful"
	"github.com/sundai-club/shop/internal/repositories"
	firestorerepo "github.com/sundai-club/shop/internal/repositories/firestore"
	"github.com/sundai-club/shop/internal/repositories/memory"
	"github.com/sundai-club/shop/internal/repositories/postgres"
	"github.com/sundai-club/shop/internal/repositories/redisstore"
	"github.com/sundai-club/shop/internal/services"
)

const (
	idempotencyCollection = "idempotency_keys"
	secretProbeRef        = "secret://shop-healthcheck"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Catalog     services.CatalogService
	Cart        services.CartService
	Costs       services.CostService
	Checkout    services.CheckoutService
	Fulfillment services.FulfillmentService
	OrderLog    services.OrderLogService
	System      services.SystemService
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
	Idempotency  idempotency.Store
	Sessions     *session.Manager

	logger  *zap.Logger
	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func(context.Context) error
}

// Option customises container construction.
type Option func(*containerOptions)

type containerOptions struct {
	logger   *zap.Logger
	build    services.BuildInfo
	secrets  *secrets.Fetcher
	printful *printful.Client
	payments payments.Provider
}

// WithLogger sets the base logger; service loggers are derived from it by name.
func WithLogger(logger *zap.Logger) Option {
	return func(o *containerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBuildInfo attaches build metadata reported by the health endpoints.
func WithBuildInfo(build services.BuildInfo) Option {
	return func(o *containerOptions) {
		o.build = build
	}
}

// WithSecretFetcher adds a Secret Manager probe to the readiness checks.
func WithSecretFetcher(fetcher *secrets.Fetcher) Option {
	return func(o *containerOptions) {
		o.secrets = fetcher
	}
}

// WithPrintfulClient overrides the client built from configuration.
func WithPrintfulClient(client *printful.Client) Option {
	return func(o *containerOptions) {
		o.printful = client
	}
}

// WithPaymentsProvider overrides the Stripe provider built from configuration.
func WithPaymentsProvider(provider payments.Provider) Option {
	return func(o *containerOptions) {
		o.payments = provider
	}
}

// NewContainer constructs the runtime dependencies from cfg. Optional backends (Postgres order log,
// Pub/Sub events, Stripe) are skipped when unconfigured; the storage backend is mandatory.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (container *Container, err error) {
	options := containerOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.build.StartedAt.IsZero() {
		options.build.StartedAt = time.Now().UTC()
	}
	if options.build.Environment == "" {
		options.build.Environment = cfg.Security.Environment
	}

	c := &Container{Config: cfg, logger: options.logger}
	defer func() {
		if err != nil {
			_ = c.Close(context.Background())
		}
	}()

	client := options.printful
	if client == nil {
		client, err = NewPrintfulClient(cfg.Printful, options.logger)
		if err != nil {
			return nil, err
		}
	}

	var probes []repositories.DependencyProbe

	var redisClient *redis.Client
	if cfg.Storage.Backend == config.StorageBackendRedis || cfg.Idempotency.Store == config.StorageBackendRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if cfg.Storage.Backend != config.StorageBackendRedis {
			c.addCloser("redis", func(context.Context) error { return redisClient.Close() })
		}
		probes = append(probes, repositories.DependencyProbe{
			Name:     "redis",
			Critical: true,
			Ping:     func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	var provider *pfirestore.Provider
	if cfg.Storage.Backend == config.StorageBackendFirestore || cfg.Idempotency.Store == config.StorageBackendFirestore {
		provider = pfirestore.NewProvider(cfg.Firestore)
		if cfg.Storage.Backend != config.StorageBackendFirestore {
			c.addCloser("firestore", provider.Close)
		}
		probes = append(probes, repositories.DependencyProbe{
			Name:     "firestore",
			Critical: true,
			Ping:     provider.Ping,
		})
	}

	switch cfg.Storage.Backend {
	case config.StorageBackendRedis:
		reg, regErr := redisstore.NewRegistry(redisClient, cfg.Session.TTL)
		if regErr != nil {
			return nil, fmt.Errorf("build redis registry: %w", regErr)
		}
		c.Repositories = reg
	case config.StorageBackendFirestore:
		reg, regErr := firestorerepo.NewRegistry(provider)
		if regErr != nil {
			return nil, fmt.Errorf("build firestore registry: %w", regErr)
		}
		c.Repositories = reg
	default:
		c.Repositories = memory.NewRegistry()
	}

	var orderLogRepo repositories.OrderLogRepository
	if strings.TrimSpace(cfg.OrderLog.DatabaseURL) != "" {
		repo, repoErr := c.openOrderLog(ctx, cfg.OrderLog)
		if repoErr != nil {
			options.logger.Warn("order log unavailable; continuing without order history", zap.Error(repoErr))
		} else {
			orderLogRepo = repo
			probes = append(probes, repositories.DependencyProbe{Name: "postgres", Ping: repo.Ping})
		}
	}

	var events services.OrderEventPublisher
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.OrderTopic != "" {
		publisher, pubErr := c.openPublisher(ctx, cfg.PubSub)
		if pubErr != nil {
			options.logger.Warn("order events disabled", zap.Error(pubErr))
		} else {
			events = publisher
		}
	}

	paymentsProvider := options.payments
	if paymentsProvider == nil && strings.TrimSpace(cfg.Stripe.SecretKey) != "" {
		stripeProvider, stripeErr := payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey:  cfg.Stripe.SecretKey,
			Timeout: cfg.Stripe.Timeout,
			Logger:  observability.EventLogger(options.logger.Named("stripe")),
		})
		if stripeErr != nil {
			return nil, fmt.Errorf("build stripe provider: %w", stripeErr)
		}
		paymentsProvider = stripeProvider
	}
	if paymentsProvider == nil {
		options.logger.Warn("stripe secret key not set; checkout sessions are disabled")
	}

	if options.secrets != nil {
		fetcher := options.secrets
		probes = append(probes, repositories.DependencyProbe{
			Name: "secretManager",
			Ping: func(ctx context.Context) error { return fetcher.Ping(ctx, secretProbeRef) },
		})
	}
	probes = append(probes, repositories.DependencyProbe{
		Name: "printful",
		Ping: func(context.Context) error {
			if client.BreakerState() == gobreaker.StateOpen {
				return errors.New("circuit breaker open")
			}
			return nil
		},
	})

	svc, err := buildServices(cfg, serviceInputs{
		logger:      options.logger,
		build:       options.build,
		printful:    client,
		registry:    c.Repositories,
		orderLog:    orderLogRepo,
		events:      events,
		payments:    paymentsProvider,
		healthProbe: probes,
	})
	if err != nil {
		return nil, err
	}
	c.Services = svc

	c.Idempotency, err = buildIdempotencyStore(cfg.Idempotency, redisClient, provider)
	if err != nil {
		return nil, err
	}

	c.Sessions = session.NewManager(session.Config{
		Secret:     cfg.Session.Secret,
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.Secure,
	})
	if strings.TrimSpace(cfg.Session.Secret) == "" {
		options.logger.Warn("session secret not set; sessions will not survive a restart")
	}

	return c, nil
}

// NewPrintfulClient builds the provider client from configuration.
func NewPrintfulClient(cfg config.PrintfulConfig, logger *zap.Logger) (*printful.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := printful.NewClient(printful.Config{
		APIKey:             cfg.APIKey,
		StoreID:            cfg.StoreID,
		BaseURL:            cfg.BaseURL,
		Timeout:            cfg.Timeout,
		BreakerMaxFailures: cfg.BreakerMaxFailures,
		BreakerOpenTimeout: cfg.BreakerOpenTimeout,
		Logger:             observability.EventLogger(logger.Named("printful")),
	})
	if err != nil {
		return nil, fmt.Errorf("build printful client: %w", err)
	}
	return client, nil
}

// Close releases clients in reverse order of construction. Every closer runs even if an earlier
// one fails.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Repositories != nil {
		if err := c.Repositories.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("repositories: %w", err))
		}
		c.Repositories = nil
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		closer := c.closers[i]
		if err := closer.close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", closer.name, err))
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Container) addCloser(name string, fn func(context.Context) error) {
	c.closers = append(c.closers, namedCloser{name: name, close: fn})
}

func (c *Container) openOrderLog(ctx context.Context, cfg config.OrderLogConfig) (*postgres.OrderLogRepository, error) {
	pool, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	c.addCloser("postgres", func(context.Context) error {
		pool.Close()
		return nil
	})
	if cfg.AutoMigrate {
		if err := postgres.Migrate(pool, cfg.MigrationsTable); err != nil {
			return nil, err
		}
		c.logger.Info("order log migrations applied", zap.String("table", cfg.MigrationsTable))
	}
	return postgres.NewOrderLogRepository(pool)
}

func (c *Container) openPublisher(ctx context.Context, cfg config.PubSubConfig) (*jobs.PubSubOrderEventPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	topic := client.Topic(cfg.OrderTopic)
	c.addCloser("pubsub", func(context.Context) error {
		topic.Stop()
		return client.Close()
	})
	return jobs.NewPubSubOrderEventPublisher(topic)
}

type serviceInputs struct {
	logger      *zap.Logger
	build       services.BuildInfo
	printful    *printful.Client
	registry    repositories.Registry
	orderLog    repositories.OrderLogRepository
	events      services.OrderEventPublisher
	payments    payments.Provider
	healthProbe []repositories.DependencyProbe
}

func buildServices(cfg config.Config, in serviceInputs) (Services, error) {
	var svc Services
	named := func(name string) func(context.Context, string, map[string]any) {
		return observability.EventLogger(in.logger.Named(name))
	}

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Provider: in.printful,
		Clock:    time.Now,
		TTL:      cfg.Catalog.TTL,
		Logger:   named("catalog"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Store:   in.registry.Carts(),
		Catalog: catalogSvc,
		Clock:   time.Now,
		Logger:  named("cart"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	costSvc, err := services.NewCostService(services.CostServiceDeps{
		Provider:         in.printful,
		Catalog:          catalogSvc,
		TaxRate:          cfg.Checkout.TaxRate,
		FallbackShipping: cfg.Checkout.FallbackShipping,
		Currency:         cfg.Checkout.Currency,
		Logger:           named("costs"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cost service: %w", err)
	}
	svc.Costs = costSvc

	svc.OrderLog = services.NewOrderLogService(services.OrderLogServiceDeps{
		Repository: in.orderLog,
		Timeout:    cfg.OrderLog.Timeout,
		Logger:     named("orderlog"),
	})

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:         cartSvc,
		Costs:         costSvc,
		Payments:      in.payments,
		Fulfillment:   in.printful,
		PendingOrders: in.registry.PendingOrders(),
		OrderLog:      svc.OrderLog,
		Events:        in.events,
		SuccessURL:    cfg.Stripe.SuccessURL,
		CancelURL:     cfg.Stripe.CancelURL,
		AutoConfirm:   cfg.Checkout.AutoConfirm,
		Clock:         time.Now,
		IDGenerator:   newULID,
		Logger:        named("checkout"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkoutSvc

	fulfillmentSvc, err := services.NewFulfillmentService(services.FulfillmentServiceDeps{
		Carts:       cartSvc,
		Costs:       costSvc,
		Orders:      in.printful,
		Store:       in.printful,
		IDGenerator: newULID,
		Logger:      named("fulfillment"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build fulfillment service: %w", err)
	}
	svc.Fulfillment = fulfillmentSvc

	healthRepo, err := repositories.NewProbeHealthRepository(in.healthProbe)
	if err != nil {
		return Services{}, fmt.Errorf("build health repository: %w", err)
	}
	systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: healthRepo,
		Catalog:          catalogSvc,
		Clock:            time.Now,
		Build:            in.build,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}
	svc.System = systemSvc

	return svc, nil
}

func buildIdempotencyStore(cfg config.IdempotencyConfig, client *redis.Client, provider *pfirestore.Provider) (idempotency.Store, error) {
	switch cfg.Store {
	case config.StorageBackendRedis:
		store, err := idempotency.NewRedisStore(client)
		if err != nil {
			return nil, fmt.Errorf("build idempotency store: %w", err)
		}
		return store, nil
	case config.StorageBackendFirestore:
		store, err := idempotency.NewFirestoreStore(provider, idempotencyCollection)
		if err != nil {
			return nil, fmt.Errorf("build idempotency store: %w", err)
		}
		return store, nil
	default:
		return idempotency.NewMemoryStore(), nil
	}
}

func newULID() string {
	return ulid.Make().String()
}
