package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy opens the routes under PathPrefixes to browser callers from AllowedOrigins.
// Requests outside those prefixes never receive CORS headers. No credentials are allowed.
type CORSPolicy struct {
	AllowedOrigins []string
	PathPrefixes   []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration
}

// WithCORS is a no-op when AllowedOrigins is empty.
func WithCORS(p CORSPolicy) Middleware {
	origins := trimAll(p.AllowedOrigins)
	if len(origins) == 0 {
		return nil
	}
	prefixes := trimAll(p.PathPrefixes)
	if len(prefixes) == 0 {
		prefixes = []string{"/"}
	}
	methods := strings.Join(trimAll(p.AllowedMethods), ", ")
	if methods == "" {
		methods = "GET, OPTIONS"
	}
	allowHeaders := strings.Join(trimAll(p.AllowedHeaders), ", ")
	maxAge := ""
	if secs := int(p.MaxAge.Seconds()); secs > 0 {
		maxAge = strconv.Itoa(secs)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || !hasAnyPrefix(r.URL.Path, prefixes) {
				next.ServeHTTP(w, r)
				return
			}
			h := w.Header()
			h.Add("Vary", "Origin")
			allowed, ok := allowedOrigin(origin, origins)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Allow-Origin", allowed)

			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				next.ServeHTTP(w, r)
				return
			}
			// Preflight.
			h.Set("Access-Control-Allow-Methods", methods)
			if allowHeaders != "" {
				h.Set("Access-Control-Allow-Headers", allowHeaders)
			}
			if maxAge != "" {
				h.Set("Access-Control-Max-Age", maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func allowedOrigin(origin string, allowed []string) (string, bool) {
	for _, o := range allowed {
		if o == "*" {
			return "*", true
		}
		if strings.EqualFold(o, origin) {
			return origin, true
		}
	}
	return "", false
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
