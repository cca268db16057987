package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sundai-club/shop/internal/platform/config"
	"github.com/sundai-club/shop/internal/services"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"serve", "sync", "migrate"} {
		require.True(t, names[want], "missing sub-command %s", want)
	}
	require.NotNil(t, root.RunE, "serve should run when no sub-command is given")
	require.NotNil(t, root.PersistentFlags().Lookup("env-file"))
}

func TestRequiredSecretNames(t *testing.T) {
	require.Equal(t, []string{"Printful.APIKey"}, requiredSecretNames(nil, serveSecretNames(nil)...))

	prod := map[string]string{"SHOP_SECURITY_ENVIRONMENT": " Production "}
	require.Equal(t,
		[]string{"Printful.APIKey", "Session.Secret", "Stripe.SecretKey"},
		requiredSecretNames(prod, serveSecretNames(prod)...),
	)

	extra := map[string]string{"SHOP_REQUIRED_SECRETS": "Redis.Password, ,OrderLog.DatabaseURL"}
	require.Equal(t,
		[]string{"OrderLog.DatabaseURL", "Redis.Password"},
		requiredSecretNames(extra, "OrderLog.DatabaseURL"),
	)
}

func TestBuildInfoFromEnv(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	info := buildInfoFromEnv(map[string]string{
		"SHOP_BUILD_VERSION":    "1.4.0",
		"SHOP_BUILD_COMMIT_SHA": "abc123",
	}, config.Config{Security: config.SecurityConfig{Environment: "prod"}}, started)
	require.Equal(t, "1.4.0", info.Version)
	require.Equal(t, "abc123", info.CommitSHA)
	require.Equal(t, "prod", info.Environment)
	require.True(t, info.StartedAt.Equal(started))

	fallback := buildInfoFromEnv(nil, config.Config{}, started)
	require.Equal(t, Version, fallback.Version)
	require.Equal(t, Commit, fallback.CommitSHA)
	require.Equal(t, "local", fallback.Environment)
}

func TestTraceProjectIDPrefersPubSub(t *testing.T) {
	cfg := config.Config{
		Firestore: config.FirestoreConfig{ProjectID: "fs-project"},
		PubSub:    config.PubSubConfig{ProjectID: "ps-project"},
	}
	require.Equal(t, "ps-project", traceProjectID(cfg))
	cfg.PubSub.ProjectID = ""
	require.Equal(t, "fs-project", traceProjectID(cfg))
}

func TestPrintSyncSummary(t *testing.T) {
	var out bytes.Buffer
	printSyncSummary(&out, services.CatalogSnapshot{
		Products: []services.Product{{ID: 7, Name: "SundAI Tee", Category: "apparel", Variants: make([]services.Variant, 2)}},
		Skipped:  []services.SkippedProduct{{ID: 9, Name: "Poster", Reason: "no priced variants"}},
		Source:   "store",
	})

	text := out.String()
	require.Contains(t, text, "Synced 1 products from store")
	require.Contains(t, text, "SundAI Tee")
	require.Contains(t, text, "2 variants")
	require.Contains(t, text, "Skipped 1 products")
	require.True(t, strings.HasSuffix(strings.TrimSpace(text), "no priced variants"))
}
