package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/sundai-club/shop/internal/platform/config"
	"github.com/sundai-club/shop/internal/platform/observability"
	"github.com/sundai-club/shop/internal/platform/secrets"
	"github.com/sundai-club/shop/internal/services"
)

// runtime carries what every sub-command needs before it builds its own dependencies.
type runtime struct {
	logger  *zap.Logger
	env     map[string]string
	cfg     config.Config
	fetcher *secrets.Fetcher
	build   services.BuildInfo
}

func (rt *runtime) Close() {
	if rt.fetcher != nil {
		if err := rt.fetcher.Close(); err != nil {
			rt.logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}
	_ = rt.logger.Sync()
}

// bootstrap initialises logging, secrets, and configuration. required lists the secret-backed
// config fields the caller cannot run without; nil means the server's set.
func bootstrap(ctx context.Context, name, envFile string, required ...string) (*runtime, error) {
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		return nil, err
	}
	logger := baseLogger.Named(name)

	envValues, err := config.EnvironmentValues(config.WithEnvFile(envFile))
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("read environment values: %w", err)
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("initialise secret fetcher: %w", err)
	}
	rt := &runtime{logger: logger, env: envValues, fetcher: fetcher}

	if required == nil {
		required = serveSecretNames(envValues)
	}
	cfg, err := config.Load(ctx,
		config.WithEnvFile(envFile),
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretNames(envValues, required...)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Error("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		rt.Close()
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	rt.cfg = cfg
	rt.build = buildInfoFromEnv(envValues, cfg, startedAt)
	return rt, nil
}

func buildInfoFromEnv(env map[string]string, cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(env["SHOP_BUILD_VERSION"])
	if version == "" {
		version = Version
	}
	commit := strings.TrimSpace(env["SHOP_BUILD_COMMIT_SHA"])
	if commit == "" {
		commit = Commit
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.PubSub.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		if env == nil {
			return ""
		}
		return strings.TrimSpace(env[key])
	}

	defaultProject := lookup("SHOP_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("SHOP_FIRESTORE_PROJECT_ID")
	}
	fallbackPath := lookup("SHOP_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}
	credentialsFile := lookup("SHOP_GOOGLE_CREDENTIALS_FILE")

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	} else {
		// Without a project there is nothing to ask Secret Manager; local fallback only.
		opts = append(opts, secrets.WithFallbackOnly())
	}
	if credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}

	return secrets.NewFetcher(ctx, opts...)
}

// requiredSecretNames merges the caller's required fields with any listed in SHOP_REQUIRED_SECRETS.
func requiredSecretNames(env map[string]string, base ...string) []string {
	required := append([]string(nil), base...)
	required = append(required, parseList(env["SHOP_REQUIRED_SECRETS"])...)
	return uniqueStrings(required)
}

// serveSecretNames lists what the HTTP server needs. Production also needs Stripe and a stable
// session secret.
func serveSecretNames(env map[string]string) []string {
	required := []string{"Printful.APIKey"}
	switch strings.ToLower(strings.TrimSpace(env["SHOP_SECURITY_ENVIRONMENT"])) {
	case "prod", "production":
		required = append(required, "Stripe.SecretKey", "Session.Secret")
	}
	return required
}

func parseList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, entry := range strings.Split(raw, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	sort.Strings(out)
	return out
}
