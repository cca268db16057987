package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sundai-club/shop/internal/platform/requestctx"
)

func TestSimpleRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newSimpleRateLimiter(2, time.Minute, func() time.Time { return now })

	if !limiter.Allow("a") || !limiter.Allow("a") {
		t.Fatal("expected first two requests to pass")
	}
	if limiter.Allow("a") {
		t.Fatal("expected third request to be limited")
	}
	if !limiter.Allow("b") {
		t.Fatal("expected separate key to pass")
	}
	now = now.Add(time.Minute + time.Second)
	if !limiter.Allow("a") {
		t.Fatal("expected window reset")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	handler := RateLimitMiddleware(1, 30*time.Second, func() time.Time { return now })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(session string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/checkout/session", nil)
		req = req.WithContext(requestctx.WithSessionID(req.Context(), session))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	expectStatus(t, send("sess-1"), http.StatusNoContent)
	rr := send("sess-1")
	expectStatus(t, rr, http.StatusTooManyRequests)
	if rr.Header().Get("Retry-After") != "30" {
		t.Fatalf("expected Retry-After 30, got %q", rr.Header().Get("Retry-After"))
	}
	expectStatus(t, send("sess-2"), http.StatusNoContent)
}

func TestRateLimitMiddlewareDisabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if got := RateLimitMiddleware(0, time.Minute, nil)(next); got == nil {
		t.Fatal("expected passthrough handler")
	}
}
