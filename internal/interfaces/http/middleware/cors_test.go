package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func corsRequest(method, origin string) *http.Request {
	r := httptest.NewRequest(method, "/api/v1/mechanisms/score", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

func TestCORS_Preflight(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"https://lab.example.edu"}
	handler := CORS(config)(okHandler())

	r := corsRequest(http.MethodOptions, "https://lab.example.edu")
	r.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://lab.example.edu", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), RequestIDHeader)
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
	assert.Empty(t, w.Body.String())
}

func TestCORS_Origins(t *testing.T) {
	tests := []struct {
		name      string
		allowed   []string
		origin    string
		wantAllow string
	}{
		{"exact match", []string{"https://lab.example.edu"}, "https://lab.example.edu", "https://lab.example.edu"},
		{"case insensitive", []string{"https://Lab.Example.edu"}, "https://lab.example.edu", "https://lab.example.edu"},
		{"not allowed", []string{"https://lab.example.edu"}, "https://evil.example.com", ""},
		{"wildcard", []string{"*"}, "https://anywhere.example.org", "*"},
		{"no origin header", []string{"*"}, "", ""},
		{"nothing configured", nil, "https://lab.example.edu", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultCORSConfig()
			config.AllowedOrigins = tt.allowed
			w := httptest.NewRecorder()
			CORS(config)(okHandler()).ServeHTTP(w, corsRequest(http.MethodPost, tt.origin))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "ok", w.Body.String())
			assert.Equal(t, tt.wantAllow, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORS_SimpleRequestHeaders(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"https://lab.example.edu"}
	w := httptest.NewRecorder()
	CORS(config)(okHandler()).ServeHTTP(w, corsRequest(http.MethodGet, "https://lab.example.edu"))

	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), RequestIDHeader)
	assert.Equal(t, []string{"Origin"}, w.Header().Values("Vary"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORS_PlainOptionsPassesThrough(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowedOrigins = []string{"*"}
	w := httptest.NewRecorder()
	CORS(config)(okHandler()).ServeHTTP(w, corsRequest(http.MethodOptions, "https://lab.example.edu"))
	assert.Equal(t, http.StatusOK, w.Code)
}
