package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Printful.BaseURL != defaultPrintfulBaseURL {
		t.Errorf("expected default printful base url, got %s", cfg.Printful.BaseURL)
	}
	if cfg.Checkout.TaxRate != 0.085 {
		t.Errorf("expected default tax rate 0.085, got %v", cfg.Checkout.TaxRate)
	}
	if cfg.Checkout.FallbackShipping != 9.99 {
		t.Errorf("expected default fallback shipping 9.99, got %v", cfg.Checkout.FallbackShipping)
	}
	if cfg.Checkout.Currency != "USD" {
		t.Errorf("expected default currency USD, got %s", cfg.Checkout.Currency)
	}
	if cfg.Catalog.TTL != 0 {
		t.Errorf("expected catalog snapshot without expiry, got %s", cfg.Catalog.TTL)
	}
	if cfg.Session.CookieName != "shop_session" {
		t.Errorf("unexpected session cookie %s", cfg.Session.CookieName)
	}
	if cfg.Session.TTL != 24*time.Hour {
		t.Errorf("unexpected session ttl %s", cfg.Session.TTL)
	}
	if cfg.Storage.Backend != StorageBackendMemory {
		t.Errorf("expected memory storage backend, got %s", cfg.Storage.Backend)
	}
	if cfg.Security.Environment != "local" {
		t.Errorf("expected default security environment local, got %s", cfg.Security.Environment)
	}
	if cfg.Idempotency.Header != defaultIdempotencyHeader {
		t.Errorf("expected default idempotency header, got %s", cfg.Idempotency.Header)
	}
	if cfg.Idempotency.TTL != defaultIdempotencyTTL {
		t.Errorf("unexpected default idempotency ttl: %s", cfg.Idempotency.TTL)
	}
	if cfg.Idempotency.Store != StorageBackendMemory {
		t.Errorf("expected memory idempotency store, got %s", cfg.Idempotency.Store)
	}
}

func TestLoadHonoursPlatformPort(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{"PORT": "3000"}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "3000" {
		t.Errorf("expected PORT to be used, got %s", cfg.Server.Port)
	}

	cfg, err = Load(context.Background(), WithEnvMap(map[string]string{
		"PORT":             "3000",
		"SHOP_SERVER_PORT": "4000",
	}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "4000" {
		t.Errorf("expected SHOP_SERVER_PORT to win, got %s", cfg.Server.Port)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"SHOP_SERVER_PORT":                "9090",
		"SHOP_SERVER_IDLE_TIMEOUT":        "2m",
		"SHOP_PRINTFUL_API_KEY":           "secret://printful/api",
		"SHOP_PRINTFUL_STORE_ID":          "12345",
		"SHOP_PRINTFUL_BASE_URL":          "https://printful.test/",
		"SHOP_PRINTFUL_TIMEOUT":           "5s",
		"SHOP_STRIPE_SECRET_KEY":          "sm://stripe/secret",
		"SHOP_STRIPE_SUCCESS_URL":         "https://shop.example.com/success",
		"SHOP_CHECKOUT_TAX_RATE":          "0.1",
		"SHOP_CHECKOUT_FALLBACK_SHIPPING": "7.5",
		"SHOP_CHECKOUT_CURRENCY":          "eur",
		"SHOP_CHECKOUT_AUTO_CONFIRM":      "yes",
		"SHOP_CATALOG_TTL":                "10m",
		"SHOP_SESSION_SECRET":             "secret://session/key",
		"SHOP_STORAGE_BACKEND":            "Redis",
		"SHOP_REDIS_ADDR":                 "localhost:6379",
		"SHOP_REDIS_DB":                   "2",
		"SHOP_FIRESTORE_PROJECT_ID":       "shop-prod",
		"SHOP_ORDERLOG_DATABASE_URL":      "secret://orderlog/dsn",
		"SHOP_SECURITY_ENVIRONMENT":       "PROD",
		"SHOP_IDEMPOTENCY_HEADER":         "X-Idem-Key",
		"SHOP_IDEMPOTENCY_TTL":            "48h",
		"SHOP_IDEMPOTENCY_STORE":          "redis",
	}

	secrets := map[string]string{
		"secret://printful/api":  "pf-key",
		"secret://stripe/secret": "sk_test_123",
		"secret://session/key":   "session-key",
		"secret://orderlog/dsn":  "postgres://shop@localhost/shop",
	}

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if v, ok := secrets[ref]; ok {
			return v, nil
		}
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("unexpected idle timeout: %s", cfg.Server.IdleTimeout)
	}
	if cfg.Printful.APIKey != "pf-key" {
		t.Errorf("expected resolved printful key, got %s", cfg.Printful.APIKey)
	}
	if cfg.Printful.BaseURL != "https://printful.test" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Printful.BaseURL)
	}
	if cfg.Printful.Timeout != 5*time.Second {
		t.Errorf("unexpected printful timeout %s", cfg.Printful.Timeout)
	}
	if cfg.Stripe.SecretKey != "sk_test_123" {
		t.Errorf("expected legacy sm:// reference resolved, got %s", cfg.Stripe.SecretKey)
	}
	if cfg.Checkout.TaxRate != 0.1 {
		t.Errorf("unexpected tax rate %v", cfg.Checkout.TaxRate)
	}
	if cfg.Checkout.FallbackShipping != 7.5 {
		t.Errorf("unexpected fallback shipping %v", cfg.Checkout.FallbackShipping)
	}
	if cfg.Checkout.Currency != "EUR" {
		t.Errorf("expected currency upper-cased, got %s", cfg.Checkout.Currency)
	}
	if !cfg.Checkout.AutoConfirm {
		t.Errorf("expected auto confirm enabled")
	}
	if cfg.Catalog.TTL != 10*time.Minute {
		t.Errorf("unexpected catalog ttl %s", cfg.Catalog.TTL)
	}
	if cfg.Session.Secret != "session-key" {
		t.Errorf("unexpected session secret %s", cfg.Session.Secret)
	}
	if cfg.Storage.Backend != StorageBackendRedis {
		t.Errorf("expected redis backend, got %s", cfg.Storage.Backend)
	}
	if cfg.Redis.DB != 2 {
		t.Errorf("unexpected redis db %d", cfg.Redis.DB)
	}
	if cfg.PubSub.ProjectID != "shop-prod" {
		t.Errorf("expected pubsub project to default to firestore project, got %s", cfg.PubSub.ProjectID)
	}
	if cfg.OrderLog.DatabaseURL != "postgres://shop@localhost/shop" {
		t.Errorf("unexpected order log dsn %s", cfg.OrderLog.DatabaseURL)
	}
	if cfg.Security.Environment != "prod" {
		t.Errorf("expected security environment prod, got %s", cfg.Security.Environment)
	}
	if cfg.Idempotency.Header != "X-Idem-Key" {
		t.Errorf("unexpected idempotency header %s", cfg.Idempotency.Header)
	}
	if cfg.Idempotency.TTL != 48*time.Hour {
		t.Errorf("unexpected idempotency ttl %s", cfg.Idempotency.TTL)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "# local overrides\nSHOP_SERVER_PORT=7070\nexport SHOP_PRINTFUL_STORE_ID=\"991\"\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write dotenv file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(envPath), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from dotenv 7070, got %s", cfg.Server.Port)
	}
	if cfg.Printful.StoreID != "991" {
		t.Errorf("expected store id from dotenv, got %s", cfg.Printful.StoreID)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	env := map[string]string{
		"SHOP_SERVER_PORT":       "http",
		"SHOP_CHECKOUT_TAX_RATE": "1.5",
		"SHOP_STORAGE_BACKEND":   "redis",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	want := map[string]bool{"Server.Port": false, "Checkout.TaxRate": false, "Redis.Addr": false}
	for _, field := range validation.Fields() {
		if _, ok := want[field]; ok {
			want[field] = true
		}
	}
	for field, seen := range want {
		if !seen {
			t.Errorf("expected %s in validation fields %v", field, validation.Fields())
		}
	}
}

func TestLoadUnknownStorageBackend(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{"SHOP_STORAGE_BACKEND": "cassandra"}), WithoutSystemEnv(), WithEnvFile(""))
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if fields := validation.Fields(); len(fields) != 1 || fields[0] != "Storage.Backend" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestLoadSecretResolverError(t *testing.T) {
	env := map[string]string{
		"SHOP_STRIPE_SECRET_KEY": "secret://missing",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected secret resolution error, got nil")
	}
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %T", err)
	}
	if secretErr.Ref != "secret://missing" {
		t.Errorf("unexpected secret ref %s", secretErr.Ref)
	}
}

func TestEnvironmentValuesMergesSources(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "SHOP_FIRESTORE_PROJECT_ID=dot-project\nSHOP_SECRET_FALLBACK_FILE=.dot.local\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	t.Setenv("SHOP_FIRESTORE_PROJECT_ID", "os-project")
	t.Setenv("SHOP_SECRET_DEFAULT_PROJECT_ID", "secrets-project")

	overrides := map[string]string{
		"SHOP_FIRESTORE_PROJECT_ID": "override-project",
	}

	values, err := EnvironmentValues(WithEnvFile(envPath), WithEnvMap(overrides))
	if err != nil {
		t.Fatalf("EnvironmentValues returned error: %v", err)
	}

	if got := values["SHOP_FIRESTORE_PROJECT_ID"]; got != "override-project" {
		t.Fatalf("expected override project, got %s", got)
	}
	if got := values["SHOP_SECRET_FALLBACK_FILE"]; got != ".dot.local" {
		t.Fatalf("expected dotenv fallback file, got %s", got)
	}
	if got := values["SHOP_SECRET_DEFAULT_PROJECT_ID"]; got != "secrets-project" {
		t.Fatalf("expected system env project, got %s", got)
	}
}

func TestLoadMissingRequiredSecrets(t *testing.T) {
	_, err := Load(context.Background(),
		WithEnvMap(map[string]string{}),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithRequiredSecrets("Printful.APIKey"),
	)
	if err == nil {
		t.Fatal("expected missing secrets error, got nil")
	}
	var missing *MissingSecretsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSecretsError, got %T", err)
	}
	expectedRedacted := redactSecretName("Printful.APIKey")
	if got := missing.RedactedNames(); len(got) != 1 || got[0] != expectedRedacted {
		t.Fatalf("unexpected redacted names %v", got)
	}
}

func TestLoadMissingRequiredSecretsPanic(t *testing.T) {
	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected panic when required secrets missing")
		}
		missing, ok := rec.(*MissingSecretsError)
		if !ok {
			t.Fatalf("expected MissingSecretsError panic, got %T", rec)
		}
		if len(missing.Names()) != 1 || missing.Names()[0] != "Stripe.SecretKey" {
			t.Fatalf("unexpected missing secrets %v", missing.Names())
		}
	}()

	Load(context.Background(),
		WithEnvMap(map[string]string{}),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithRequiredSecrets("Stripe.SecretKey", "Stripe.SecretKey"),
		WithPanicOnMissingSecrets(),
	)
}
