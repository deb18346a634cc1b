package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMiddlewareLabelsByPattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTP(reg, "booking-service")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	h := m.Middleware(mux)

	for _, path := range []string{"/items/1", "/items/2", "/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "GET /items/{id}", "202")); got != 2 {
		t.Fatalf("expected 2 routed requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "unmatched", "404")); got != 1 {
		t.Fatalf("expected 1 unmatched request, got %v", got)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := NewRegistry()
	m := NewHTTP(reg, "booking-service")
	m.requests.WithLabelValues(http.MethodGet, "GET /healthz", "200").Inc()

	rw := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	body := rw.Body.String()
	for _, want := range []string{"http_requests_total", "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in output", want)
		}
	}
}
