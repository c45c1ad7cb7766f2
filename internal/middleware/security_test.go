package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func runSecurityHeaders(cfg SecurityHeadersConfig, path string) *httptest.ResponseRecorder {
	handler := SecurityHeaders(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}

func TestSecurityHeaders_Production(t *testing.T) {
	w := runSecurityHeaders(DefaultSecurityHeadersConfig(false), "/")

	if got := w.Header().Get("Strict-Transport-Security"); !strings.Contains(got, "max-age=31536000") {
		t.Errorf("HSTS = %q, want max-age=31536000", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "SAMEORIGIN" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("Content-Security-Policy"); !strings.Contains(got, "default-src 'self'") {
		t.Errorf("CSP = %q, want default-src 'self'", got)
	}
	if got := w.Header().Get("Referrer-Policy"); got != "strict-origin-when-cross-origin" {
		t.Errorf("Referrer-Policy = %q", got)
	}
}

func TestSecurityHeaders_DevelopmentNoHSTS(t *testing.T) {
	w := runSecurityHeaders(DefaultSecurityHeadersConfig(true), "/")

	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS in development = %q, want empty", got)
	}
}

func TestSecurityHeaders_ExcludePaths(t *testing.T) {
	cfg := DefaultSecurityHeadersConfig(false)
	cfg.ExcludePaths = []string{"/api/"}

	w := runSecurityHeaders(cfg, "/api/v1/events")

	if got := w.Header().Get("Content-Security-Policy"); got != "" {
		t.Errorf("CSP on excluded path = %q, want empty", got)
	}
}

func TestBuildCSP_Order(t *testing.T) {
	csp := buildCSP(map[string]string{
		"script-src":  "'self'",
		"default-src": "'self'",
	})

	if csp != "default-src 'self'; script-src 'self'" {
		t.Errorf("buildCSP = %q", csp)
	}
}
