package config

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile              = ".env"
	defaultPort                 = "8000"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultShutdownTimeout      = 10 * time.Second
	defaultPrintfulBaseURL      = "https://api.printful.com"
	defaultPrintfulTimeout      = 20 * time.Second
	defaultBreakerFailures      = 5
	defaultBreakerOpenTimeout   = 30 * time.Second
	defaultStripeTimeout        = 20 * time.Second
	defaultCurrency             = "USD"
	defaultSuccessURL           = "http://localhost:8000/success?session_id={CHECKOUT_SESSION_ID}"
	defaultCancelURL            = "http://localhost:8000/cart"
	defaultTaxRate              = 0.085
	defaultFallbackShipping     = 9.99
	defaultCheckoutRatePerMin   = 30
	defaultSessionCookie        = "shop_session"
	defaultSessionTTL           = 24 * time.Hour
	defaultStorageBackend       = StorageBackendMemory
	defaultOrderLogTimeout      = 5 * time.Second
	defaultMigrationsTable      = "shop_schema_migrations"
	defaultOrderTopic           = "shop-order-events"
	defaultSecurityEnvironment  = "local"
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200
)

// Storage backends accepted for carts and pending checkout orders.
const (
	StorageBackendMemory    = "memory"
	StorageBackendRedis     = "redis"
	StorageBackendFirestore = "firestore"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Printful    PrintfulConfig
	Stripe      StripeConfig
	Checkout    CheckoutConfig
	Catalog     CatalogConfig
	Session     SessionConfig
	Storage     StorageConfig
	Redis       RedisConfig
	Firestore   FirestoreConfig
	OrderLog    OrderLogConfig
	PubSub      PubSubConfig
	Security    SecurityConfig
	Idempotency IdempotencyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// PrintfulConfig holds the fulfillment provider credentials and client tuning.
type PrintfulConfig struct {
	APIKey             string
	StoreID            string
	BaseURL            string
	Timeout            time.Duration
	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration
}

// StripeConfig holds the payment processor settings.
type StripeConfig struct {
	SecretKey  string
	SuccessURL string
	CancelURL  string
	Timeout    time.Duration
}

// CheckoutConfig tunes cost estimation and the checkout endpoints.
type CheckoutConfig struct {
	Currency           string
	TaxRate            float64
	FallbackShipping   float64
	AutoConfirm        bool
	RateLimitPerMinute int
}

// CatalogConfig controls the in-memory catalog snapshot. A zero TTL keeps the snapshot until refreshed.
type CatalogConfig struct {
	TTL time.Duration
}

// SessionConfig configures the shopper session cookie.
type SessionConfig struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// StorageConfig selects where carts and pending checkout orders live.
type StorageConfig struct {
	Backend string
}

// RedisConfig stores connection parameters for the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// OrderLogConfig configures the Postgres order log. An empty DatabaseURL disables it.
type OrderLogConfig struct {
	DatabaseURL     string
	MigrationsTable string
	Timeout         time.Duration
	AutoMigrate     bool
}

// PubSubConfig configures order event publishing. An empty ProjectID disables it.
type PubSubConfig struct {
	ProjectID  string
	OrderTopic string
}

// SecurityConfig groups deployment environment settings.
type SecurityConfig struct {
	Environment string
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	Store            string
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError indicates that one or more required secrets failed to resolve.
type MissingSecretsError struct {
	secrets []missingSecret
}

type missingSecret struct {
	name     string
	redacted string
}

// Error implements the error interface.
func (e *MissingSecretsError) Error() string {
	if e == nil || len(e.secrets) == 0 {
		return "missing required secrets"
	}
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(e.RedactedNames(), ", "))
}

// RedactedNames returns a copy of the redacted secret identifiers.
func (e *MissingSecretsError) RedactedNames() []string {
	if e == nil || len(e.secrets) == 0 {
		return nil
	}
	out := make([]string, 0, len(e.secrets))
	for _, secret := range e.secrets {
		out = append(out, secret.redacted)
	}
	sort.Strings(out)
	return out
}

// Names returns the underlying secret identifiers.
func (e *MissingSecretsError) Names() []string {
	if e == nil || len(e.secrets) == 0 {
		return nil
	}
	out := make([]string, 0, len(e.secrets))
	for _, secret := range e.secrets {
		out = append(out, secret.name)
	}
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile               string
	envMap                map[string]string
	useSystemEnv          bool
	secret                SecretResolver
	requiredSecrets       []string
	panicOnMissingSecrets bool
}

// EnvironmentValues returns the effective key/value environment map after applying the same precedence
// rules as Load (dotenv < OS env < explicit env map). Callers can use the result to initialise
// dependencies before invoking Load.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string)
	merge := func(source map[string]string) {
		for key, value := range source {
			values[key] = value
		}
	}

	merge(dotEnvValues)

	if options.useSystemEnv {
		system := make(map[string]string)
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if !ok {
				continue
			}
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			system[key] = value
		}
		merge(system)
	}

	merge(options.envMap)

	return values, nil
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets a custom secret resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// WithRequiredSecrets marks the provided secret identifiers as mandatory.
// Identifiers match the config field names recorded by the loader (e.g. "Printful.APIKey").
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) {
		o.requiredSecrets = append(o.requiredSecrets, names...)
	}
}

// WithPanicOnMissingSecrets causes Load to panic when required secrets are missing.
func WithPanicOnMissingSecrets() Option {
	return func(o *loaderOptions) {
		o.panicOnMissingSecrets = true
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// environment variables, and optional secret manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
		}),
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			// PORT is what most container platforms inject.
			Port:            stringWithDefault(lookup, "SHOP_SERVER_PORT", stringWithDefault(lookup, "PORT", defaultPort)),
			ReadTimeout:     durationWithDefault(lookup, "SHOP_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "SHOP_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "SHOP_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "SHOP_SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Printful: PrintfulConfig{
			APIKey:             stringWithDefault(lookup, "SHOP_PRINTFUL_API_KEY", stringWithDefault(lookup, "PRINTFUL_API_KEY", "")),
			StoreID:            stringWithDefault(lookup, "SHOP_PRINTFUL_STORE_ID", stringWithDefault(lookup, "PRINTFUL_STORE_ID", "")),
			BaseURL:            strings.TrimRight(stringWithDefault(lookup, "SHOP_PRINTFUL_BASE_URL", defaultPrintfulBaseURL), "/"),
			Timeout:            durationWithDefault(lookup, "SHOP_PRINTFUL_TIMEOUT", defaultPrintfulTimeout),
			BreakerMaxFailures: intWithDefault(lookup, "SHOP_PRINTFUL_BREAKER_MAX_FAILURES", defaultBreakerFailures),
			BreakerOpenTimeout: durationWithDefault(lookup, "SHOP_PRINTFUL_BREAKER_OPEN_TIMEOUT", defaultBreakerOpenTimeout),
		},
		Stripe: StripeConfig{
			SecretKey:  stringWithDefault(lookup, "SHOP_STRIPE_SECRET_KEY", ""),
			SuccessURL: stringWithDefault(lookup, "SHOP_STRIPE_SUCCESS_URL", defaultSuccessURL),
			CancelURL:  stringWithDefault(lookup, "SHOP_STRIPE_CANCEL_URL", defaultCancelURL),
			Timeout:    durationWithDefault(lookup, "SHOP_STRIPE_TIMEOUT", defaultStripeTimeout),
		},
		Checkout: CheckoutConfig{
			Currency:           strings.ToUpper(stringWithDefault(lookup, "SHOP_CHECKOUT_CURRENCY", defaultCurrency)),
			TaxRate:            floatWithDefault(lookup, "SHOP_CHECKOUT_TAX_RATE", defaultTaxRate),
			FallbackShipping:   floatWithDefault(lookup, "SHOP_CHECKOUT_FALLBACK_SHIPPING", defaultFallbackShipping),
			AutoConfirm:        boolWithDefault(lookup, "SHOP_CHECKOUT_AUTO_CONFIRM", false),
			RateLimitPerMinute: intWithDefault(lookup, "SHOP_CHECKOUT_RATE_LIMIT_PER_MIN", defaultCheckoutRatePerMin),
		},
		Catalog: CatalogConfig{
			TTL: durationWithDefault(lookup, "SHOP_CATALOG_TTL", 0),
		},
		Session: SessionConfig{
			Secret:     stringWithDefault(lookup, "SHOP_SESSION_SECRET", ""),
			CookieName: stringWithDefault(lookup, "SHOP_SESSION_COOKIE_NAME", defaultSessionCookie),
			TTL:        durationWithDefault(lookup, "SHOP_SESSION_TTL", defaultSessionTTL),
			Secure:     boolWithDefault(lookup, "SHOP_SESSION_SECURE", false),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(stringWithDefault(lookup, "SHOP_STORAGE_BACKEND", defaultStorageBackend)),
		},
		Redis: RedisConfig{
			Addr:     stringWithDefault(lookup, "SHOP_REDIS_ADDR", ""),
			Password: stringWithDefault(lookup, "SHOP_REDIS_PASSWORD", ""),
			DB:       intWithDefault(lookup, "SHOP_REDIS_DB", 0),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "SHOP_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "SHOP_FIRESTORE_EMULATOR_HOST", ""),
		},
		OrderLog: OrderLogConfig{
			DatabaseURL:     stringWithDefault(lookup, "SHOP_ORDERLOG_DATABASE_URL", ""),
			MigrationsTable: stringWithDefault(lookup, "SHOP_ORDERLOG_MIGRATIONS_TABLE", defaultMigrationsTable),
			Timeout:         durationWithDefault(lookup, "SHOP_ORDERLOG_TIMEOUT", defaultOrderLogTimeout),
			AutoMigrate:     boolWithDefault(lookup, "SHOP_ORDERLOG_AUTO_MIGRATE", false),
		},
		PubSub: PubSubConfig{
			ProjectID:  stringWithDefault(lookup, "SHOP_PUBSUB_PROJECT_ID", ""),
			OrderTopic: stringWithDefault(lookup, "SHOP_PUBSUB_ORDER_TOPIC", defaultOrderTopic),
		},
		Security: SecurityConfig{
			Environment: strings.ToLower(stringWithDefault(lookup, "SHOP_SECURITY_ENVIRONMENT", defaultSecurityEnvironment)),
		},
		Idempotency: IdempotencyConfig{
			Header:           stringWithDefault(lookup, "SHOP_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "SHOP_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			Store:            strings.ToLower(stringWithDefault(lookup, "SHOP_IDEMPOTENCY_STORE", StorageBackendMemory)),
			CleanupInterval:  durationWithDefault(lookup, "SHOP_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: intWithDefault(lookup, "SHOP_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatchSize),
		},
	}

	// Pub/Sub shares the Firestore project unless configured separately.
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firestore.ProjectID
	}

	resolvedSecrets := make(map[string]string)
	secretFields := []struct {
		name  string
		field *string
	}{
		{"Printful.APIKey", &cfg.Printful.APIKey},
		{"Stripe.SecretKey", &cfg.Stripe.SecretKey},
		{"Session.Secret", &cfg.Session.Secret},
		{"Redis.Password", &cfg.Redis.Password},
		{"OrderLog.DatabaseURL", &cfg.OrderLog.DatabaseURL},
	}
	for _, target := range secretFields {
		resolved, err := resolveSecret(ctx, *target.field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*target.field = resolved
		resolvedSecrets[target.name] = strings.TrimSpace(resolved)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	if missing := findMissingSecrets(options.requiredSecrets, resolvedSecrets); missing != nil {
		if options.panicOnMissingSecrets {
			fmt.Fprintf(os.Stderr, "config: %s\n", missing.Error())
			panic(missing)
		}
		return Config{}, missing
	}

	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" || !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var invalid []string

	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port <= 0 || port > 65535 {
		invalid = append(invalid, "Server.Port")
	}
	if cfg.Printful.BaseURL == "" {
		invalid = append(invalid, "Printful.BaseURL")
	}
	if cfg.Printful.Timeout <= 0 {
		invalid = append(invalid, "Printful.Timeout")
	}
	if len(cfg.Checkout.Currency) != 3 {
		invalid = append(invalid, "Checkout.Currency")
	}
	if cfg.Checkout.TaxRate < 0 || cfg.Checkout.TaxRate >= 1 {
		invalid = append(invalid, "Checkout.TaxRate")
	}
	if cfg.Checkout.FallbackShipping < 0 {
		invalid = append(invalid, "Checkout.FallbackShipping")
	}
	if cfg.Catalog.TTL < 0 {
		invalid = append(invalid, "Catalog.TTL")
	}
	if strings.TrimSpace(cfg.Session.CookieName) == "" {
		invalid = append(invalid, "Session.CookieName")
	}
	if cfg.Session.TTL <= 0 {
		invalid = append(invalid, "Session.TTL")
	}
	switch cfg.Storage.Backend {
	case StorageBackendMemory:
	case StorageBackendRedis:
		if cfg.Redis.Addr == "" {
			invalid = append(invalid, "Redis.Addr")
		}
	case StorageBackendFirestore:
		if cfg.Firestore.ProjectID == "" {
			invalid = append(invalid, "Firestore.ProjectID")
		}
	default:
		invalid = append(invalid, "Storage.Backend")
	}
	switch cfg.Idempotency.Store {
	case StorageBackendMemory:
	case StorageBackendRedis:
		if cfg.Redis.Addr == "" {
			invalid = append(invalid, "Redis.Addr")
		}
	case StorageBackendFirestore:
		if cfg.Firestore.ProjectID == "" {
			invalid = append(invalid, "Firestore.ProjectID")
		}
	default:
		invalid = append(invalid, "Idempotency.Store")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		invalid = append(invalid, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		invalid = append(invalid, "Idempotency.TTL")
	}
	if cfg.Idempotency.CleanupInterval <= 0 {
		invalid = append(invalid, "Idempotency.CleanupInterval")
	}
	if cfg.Idempotency.CleanupBatchSize <= 0 {
		invalid = append(invalid, "Idempotency.CleanupBatchSize")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: uniqueFields(invalid)}
	}
	return nil
}

func uniqueFields(fields []string) []string {
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		out = append(out, field)
	}
	return out
}

func findMissingSecrets(required []string, resolved map[string]string) *MissingSecretsError {
	if len(required) == 0 {
		return nil
	}
	missing := make([]missingSecret, 0, len(required))
	seen := make(map[string]struct{})
	for _, name := range required {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		if value := strings.TrimSpace(resolved[trimmed]); value != "" {
			continue
		}
		missing = append(missing, missingSecret{
			name:     trimmed,
			redacted: redactSecretName(trimmed),
		})
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingSecretsError{secrets: missing}
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func redactSecretName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func floatWithDefault(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
