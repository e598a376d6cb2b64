package service

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestAPIKeyMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(APIKeyMiddleware("secret-key", zap.NewNop(), "/public"))
	router.GET("/public/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/publicity", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/private", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	tests := []struct {
		name       string
		target     string
		header     string
		wantStatus int
	}{
		{"Excluded path", "/public/ping", "", http.StatusOK},
		{"Prefix lookalike is not excluded", "/publicity", "", http.StatusUnauthorized},
		{"Missing key", "/private", "", http.StatusUnauthorized},
		{"Wrong key", "/private", "nope", http.StatusUnauthorized},
		{"Header key", "/private", "secret-key", http.StatusOK},
		{"Query key", "/private?api_key=secret-key", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestAPIKeyMiddleware_DisabledWithoutKey(t *testing.T) {
	router := gin.New()
	router.Use(APIKeyMiddleware("", zap.NewNop()))
	router.GET("/private", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestRouter_APIKeyProtectsOnlyAPI(t *testing.T) {
	router := newTestRouter(&fakeTracks{}, &fakeRecommender{}, RouterConfig{APIKey: "k"})

	if w := doRequest(router, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Fatalf("/health status = %d", w.Code)
	}
	if w := doRequest(router, http.MethodGet, "/api/songs/search?q=a", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("/api without key status = %d", w.Code)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, requestID(c)) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(requestIDHeader)
	if len(generated) != 36 || w.Body.String() != generated {
		t.Fatalf("generated id = %q, body = %q", generated, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("propagated id = %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(&fakeTracks{}, &fakeRecommender{}, RouterConfig{CORSOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/songs/recommendations", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow origin = %q", got)
	}
}
