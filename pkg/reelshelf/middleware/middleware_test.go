package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestRequestIDGenerated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = c.GetString(ContextKeyRequestID)
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest("GET", "/", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if _, err := uuid.Parse(seen); err != nil {
		t.Errorf("Expected a UUID request id, got %q", seen)
	}
	if resp.Header().Get(RequestIDHeader) != seen {
		t.Errorf("Expected header %s to echo %s", RequestIDHeader, seen)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	inbound := uuid.NewString()
	req, _ := http.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, inbound)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if got := resp.Header().Get(RequestIDHeader); got != inbound {
		t.Errorf("Expected inbound id %s to be kept, got %s", inbound, got)
	}

	req, _ = http.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if got := resp.Header().Get(RequestIDHeader); got == "not-a-uuid" {
		t.Error("Expected malformed inbound id to be replaced")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 1, Burst: 2})
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 3)
	for i := range codes {
		req, _ := http.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		codes[i] = resp.Code
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("Expected burst of 2 to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("Expected third request to be limited, got %d", codes[2])
	}

	req, _ := http.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected other client to be unaffected, got %d", resp.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 1, Burst: 1, TTL: time.Minute})
	now := time.Now()
	rl.now = func() time.Time { return now }

	rl.Allow("10.0.0.1")
	now = now.Add(2 * time.Minute)
	rl.Allow("10.0.0.2")
	rl.Cleanup()

	if _, ok := rl.visitors["10.0.0.1"]; ok {
		t.Error("Expected idle visitor to be removed")
	}
	if _, ok := rl.visitors["10.0.0.2"]; !ok {
		t.Error("Expected recent visitor to be kept")
	}
}

func TestRecoveryReturns500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), AccessLog(zap.NewNop()), Recovery(zap.NewNop()))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	req, _ := http.NewRequest("GET", "/panic", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", resp.Code)
	}
}
