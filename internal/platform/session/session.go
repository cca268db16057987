// Package session issues the opaque shopper session id that scopes carts and checkouts.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/sundai-club/shop/internal/platform/observability"
	"github.com/sundai-club/shop/internal/platform/requestctx"
)

const (
	// DefaultCookieName names the session cookie when none is configured.
	DefaultCookieName = "shop_session"
	// DefaultTTL bounds the cookie lifetime when none is configured.
	DefaultTTL = 24 * time.Hour

	sessionIDKey = "sid"
)

// Config controls cookie signing and attributes.
type Config struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Manager loads or creates the session id for each request.
type Manager struct {
	store *sessions.CookieStore
	name  string
	newID func() string
}

// NewManager builds a cookie store. An empty secret generates an ephemeral signing key, so
// sessions do not survive a restart.
func NewManager(cfg Config) *Manager {
	key := []byte(strings.TrimSpace(cfg.Secret))
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
	}
	name := strings.TrimSpace(cfg.CookieName)
	if name == "" {
		name = DefaultCookieName
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: store, name: name, newID: uuid.NewString}
}

// Middleware attaches the session id to the request context, issuing a cookie for new shoppers.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.ensure(w, r)
		if err != nil {
			requestctx.Logger(r.Context()).Sugar().Warnw("session cookie could not be saved", "error", err)
		}
		ctx := requestctx.WithSessionID(r.Context(), id)
		ctx = requestctx.WithLogger(ctx, requestctx.Logger(ctx).With(zap.String("session_id", observability.SanitizeSessionID(id))))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Manager) ensure(w http.ResponseWriter, r *http.Request) (string, error) {
	// A tampered or stale cookie yields a fresh session alongside the decode error.
	sess, _ := m.store.Get(r, m.name)
	if id, ok := sess.Values[sessionIDKey].(string); ok && id != "" {
		return id, nil
	}
	id := m.newID()
	sess.Values[sessionIDKey] = id
	return id, sess.Save(r, w)
}
