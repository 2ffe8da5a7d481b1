package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")

	keyFn := KeyByUserOrIP()

	// Anonymous requests key by client IP.
	if key := keyFn(c); !strings.HasPrefix(key, "ip:203.0.113.9") {
		t.Fatalf("anonymous key = %q, want ip prefix", key)
	}

	// Authenticated requests key by user id.
	c.Set(CtxKeyUserID, "u123")
	if key := keyFn(c); key != "user:u123" {
		t.Fatalf("authenticated key = %q, want user:u123", key)
	}
}

func TestNewRateLimiter_CoercesBurstAndReusesBuckets(t *testing.T) {
	rl := NewRateLimiter(2.0, 0, KeyByUserOrIP())
	if rl.burst != 1 {
		t.Fatalf("burst = %d, want coercion to 1", rl.burst)
	}

	first := rl.getVisitor("k1")
	if rl.getVisitor("k1") != first {
		t.Fatalf("repeated lookups must return the same bucket")
	}
	if rl.getVisitor("k2") == first {
		t.Fatalf("distinct keys must get distinct buckets")
	}
}

func TestRateLimiter_EvictsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1.0, 1, KeyByUserOrIP())

	// Seed a bucket idle past the TTL and put the lookup counter one short
	// of the sweep threshold, so the next lookup triggers GC.
	rl.mu.Lock()
	rl.visitors["stale"] = &visitor{
		limiter:  rate.NewLimiter(1, 1),
		lastSeen: time.Now().Add(-time.Hour),
	}
	rl.lookups = cleanupEvery - 1
	rl.mu.Unlock()

	_ = rl.getVisitor("fresh")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["stale"]; ok {
		t.Fatalf("idle bucket survived the sweep")
	}
	if _, ok := rl.visitors["fresh"]; !ok {
		t.Fatalf("fresh bucket missing after the sweep")
	}
}

func TestRateLimiter_Handler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// burst 1: the first request drains the bucket, the second is denied.
	rl := NewRateLimiter(1.0, 1, KeyByUserOrIP())
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Header("X-Request-ID", "rid-1"); c.Next() })
	r.Use(rl.Handler())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("first request = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Fatalf("missing Retry-After hint")
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body["code"] != "rate_limited" || body["request_id"] != "rid-1" {
		t.Fatalf("unexpected envelope: %v", body)
	}
}
