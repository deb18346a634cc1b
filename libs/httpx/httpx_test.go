package httpx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") }), mark("a"), mark("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "handler" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestWithRequestIDKeepsInboundID(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if seen != "req-1" || rw.Header().Get(RequestIDHeader) != "req-1" {
		t.Fatalf("expected req-1, got ctx=%q header=%q", seen, rw.Header().Get(RequestIDHeader))
	}

	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || seen == "req-1" {
		t.Fatalf("expected a generated id, got %q", seen)
	}
}

func TestMemoryLimiterRefills(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow(context.Background(), "1.2.3.4"); !ok {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if ok, _ := l.Allow(context.Background(), "1.2.3.4"); ok {
		t.Fatal("third request should be limited")
	}
	if ok, _ := l.Allow(context.Background(), "5.6.7.8"); !ok {
		t.Fatal("other clients have their own bucket")
	}

	// Two per minute refills one token every 30s.
	now = now.Add(30 * time.Second)
	if ok, _ := l.Allow(context.Background(), "1.2.3.4"); !ok {
		t.Fatal("one token should have refilled")
	}
	if ok, _ := l.Allow(context.Background(), "1.2.3.4"); ok {
		t.Fatal("only one token should have refilled")
	}
}

func TestMemoryLimiterDropsIdleBuckets(t *testing.T) {
	l := NewMemoryLimiter(5, time.Minute)
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	_, _ = l.Allow(context.Background(), "1.2.3.4")
	now = now.Add(2 * time.Minute)
	_, _ = l.Allow(context.Background(), "5.6.7.8")
	if _, ok := l.buckets["1.2.3.4"]; ok {
		t.Fatal("idle bucket should have been dropped")
	}
	if len(l.buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(l.buckets))
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := RateLimit(failingLimiter{}, logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if rw.Code != http.StatusNoContent {
		t.Fatalf("expected request to pass through, got %d", rw.Code)
	}
}

func TestClientKeyPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := clientKey(req); got != "10.0.0.1" {
		t.Fatalf("expected remote host, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientKey(req); got != "203.0.113.9" {
		t.Fatalf("expected forwarded client, got %q", got)
	}
}

func TestWithRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		nil,
		WithRecover(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if rw.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rw.Code)
	}
}

func TestWithCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := Chain(next, WithCORS(CORSPolicy{
		AllowedOrigins: []string{"https://barber.example"},
		PathPrefixes:   []string{"/api/v1/public/"},
		MaxAge:         10 * time.Minute,
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots/b1", nil)
	req.Header.Set("Origin", "https://barber.example")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if got := rw.Header().Get("Access-Control-Allow-Origin"); got != "https://barber.example" {
		t.Fatalf("expected origin echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/public/slots/b1", nil)
	req.Header.Set("Origin", "https://barber.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusNoContent || rw.Header().Get("Access-Control-Max-Age") != "600" {
		t.Fatalf("unexpected preflight response %d %v", rw.Code, rw.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	req.Header.Set("Origin", "https://barber.example")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if got := rw.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("private routes must not be opened, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/public/slots/b1", nil)
	req.Header.Set("Origin", "https://evil.example")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if got := rw.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unknown origin must not be allowed, got %q", got)
	}
}

func TestWithCORSDisabledWithoutOrigins(t *testing.T) {
	if WithCORS(CORSPolicy{AllowedOrigins: []string{" "}}) != nil {
		t.Fatal("expected nil middleware when no origins are configured")
	}
}
