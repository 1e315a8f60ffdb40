package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/ctxkeys"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDMiddlewareGeneratesValidUUID(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), "GET", "/ping", nil)
	r.ServeHTTP(w, req)

	requestID := w.Header().Get("X-Request-ID")
	if requestID == "" {
		t.Fatal("expected X-Request-ID header to be set")
	}
	if _, err := uuid.Parse(requestID); err != nil {
		t.Fatalf("expected valid UUID request ID, got %q", requestID)
	}
}

func TestRequestIDMiddlewarePropagatesToRequestContext(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		if got := ctxkeys.GetRequestID(c.Request.Context()); got != "req-123" {
			t.Errorf("expected request context ID req-123, got %q", got)
		}
		c.String(http.StatusOK, "pong")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), "GET", "/ping", nil)
	req.Header.Set("X-Request-ID", "req-123")
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("expected X-Request-ID header to be preserved, got %q", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryMiddleware(logging.NewDiscardLogger()))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), "GET", "/panic", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestRequestIDMiddlewareReplacesUnsafeIDs(t *testing.T) {
	for _, inbound := range []string{"bad id\nwith newline", strings.Repeat("a", 65), "<script>"} {
		r := gin.New()
		r.Use(RequestIDMiddleware())
		r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

		w := httptest.NewRecorder()
		req, _ := http.NewRequestWithContext(context.Background(), "GET", "/ping", nil)
		req.Header.Set("X-Request-ID", inbound)
		r.ServeHTTP(w, req)

		got := w.Header().Get("X-Request-ID")
		if got == inbound {
			t.Errorf("inbound %q should have been replaced", inbound)
		}
		if _, err := uuid.Parse(got); err != nil {
			t.Errorf("replacement %q is not a UUID", got)
		}
	}
}

func TestCORSMiddlewareShortCircuitsPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware(CORSConfig{}))
	r.OPTIONS("/x", func(c *gin.Context) { t.Fatal("handler should not run for preflight") })

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodOptions, "/x", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected wildcard origin without an allowlist")
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatal("wildcard origin must not allow credentials")
	}
}

func TestCORSMiddlewareAllowlist(t *testing.T) {
	tests := []struct {
		origin     string
		wantOrigin string
		wantCreds  string
	}{
		{origin: "https://directory.example", wantOrigin: "https://directory.example", wantCreds: "true"},
		{origin: "https://evil.example", wantOrigin: "", wantCreds: ""},
		{origin: "", wantOrigin: "", wantCreds: ""},
	}

	for _, tt := range tests {
		r := gin.New()
		r.Use(CORSMiddleware(CORSConfig{AllowedOrigins: []string{"https://directory.example"}}))
		r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/x", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		r.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
			t.Errorf("origin %q: Allow-Origin = %q, want %q", tt.origin, got, tt.wantOrigin)
		}
		if got := w.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCreds {
			t.Errorf("origin %q: Allow-Credentials = %q, want %q", tt.origin, got, tt.wantCreds)
		}
	}
}
