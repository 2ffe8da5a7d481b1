package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func serveWithSecurity(opt SecurityOptions, mutate func(*http.Request)) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders(opt))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if mutate != nil {
		mutate(req)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	w := serveWithSecurity(SecurityOptions{}, nil)

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	}
	for k, v := range want {
		if got := w.Header().Get(k); got != v {
			t.Fatalf("%s = %q, want %q", k, got, v)
		}
	}
	// Optional headers stay off by default.
	if w.Header().Get("Permissions-Policy") != "" {
		t.Fatalf("Permissions-Policy emitted without EnablePolicy")
	}
	if w.Header().Get("Cache-Control") != "" {
		t.Fatalf("Cache-Control emitted without NoStore")
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS emitted without EnableHSTS")
	}
}

func TestSecurityHeaders_PolicyAndNoStore(t *testing.T) {
	w := serveWithSecurity(SecurityOptions{EnablePolicy: true, NoStore: true}, nil)

	if !strings.Contains(w.Header().Get("Permissions-Policy"), "geolocation=()") {
		t.Fatalf("Permissions-Policy missing: %q", w.Header().Get("Permissions-Policy"))
	}
	if w.Header().Get("X-Permitted-Cross-Domain-Policies") != "none" {
		t.Fatalf("cross-domain policy not set")
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("Cache-Control = %q", w.Header().Get("Cache-Control"))
	}
}

func TestSecurityHeaders_HSTSOnlyOverHTTPS(t *testing.T) {
	opt := SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour}

	// Plain HTTP request: no HSTS even when enabled.
	w := serveWithSecurity(opt, nil)
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS must not be sent over plain HTTP")
	}

	// Proxied HTTPS request: HSTS with the configured lifetime.
	w = serveWithSecurity(opt, func(req *http.Request) {
		req.Header.Set("X-Forwarded-Proto", "https")
	})
	got := w.Header().Get("Strict-Transport-Security")
	if !strings.HasPrefix(got, "max-age=3600") {
		t.Fatalf("HSTS = %q, want max-age=3600 prefix", got)
	}
}

func TestSecurityHeaders_HSTSDefaultLifetime(t *testing.T) {
	w := serveWithSecurity(SecurityOptions{EnableHSTS: true}, func(req *http.Request) {
		req.Header.Set("X-Forwarded-Proto", "HTTPS") // case-insensitive
	})
	got := w.Header().Get("Strict-Transport-Security")
	if !strings.Contains(got, "max-age=15552000") {
		t.Fatalf("HSTS = %q, want 180-day default", got)
	}
}

func TestSecurityHeaders_ExposesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(SecurityHeaders(SecurityOptions{}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), requestIDHeader) {
		t.Fatalf("expected %s in Access-Control-Expose-Headers, got %q",
			requestIDHeader, w.Header().Get("Access-Control-Expose-Headers"))
	}
}
