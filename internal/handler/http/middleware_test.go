package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentTypeJSON(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		wantStatus  int
	}{
		{
			name:        "post with json content type",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `{"key":"value"}`,
			wantStatus:  http.StatusOK,
		},
		{
			name:        "post with json charset variant",
			method:      http.MethodPost,
			contentType: "application/json; charset=utf-8",
			body:        `{"key":"value"}`,
			wantStatus:  http.StatusOK,
		},
		{
			name:       "post without content type left to the decoder",
			method:     http.MethodPost,
			body:       `{"key":"value"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:        "post with form content type rejected",
			method:      http.MethodPost,
			contentType: "application/x-www-form-urlencoded",
			body:        `key=value`,
			wantStatus:  http.StatusUnsupportedMediaType,
		},
		{
			name:        "patch with plain text rejected",
			method:      http.MethodPatch,
			contentType: "text/plain",
			body:        `data`,
			wantStatus:  http.StatusUnsupportedMediaType,
		},
		{
			name:       "get passes through",
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
		},
		{
			name:       "delete passes through",
			method:     http.MethodDelete,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tt.method, "/api/test", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, called)
			if tt.wantStatus == http.StatusUnsupportedMediaType {
				assert.Contains(t, rr.Body.String(), "UNSUPPORTED_MEDIA_TYPE")
				assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			}
		})
	}
}

func TestCORS_WildcardInDevelopment(t *testing.T) {
	handler := CORS(CORSConfig{Environment: "development"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.Header.Set("Origin", "http://anywhere.example")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_AllowlistInProduction(t *testing.T) {
	cfg := CORSConfig{
		AllowedOrigins: []string{"https://giftflow.example"},
		Environment:    "production",
	}
	handler := CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.Header.Set("Origin", "https://giftflow.example")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, "https://giftflow.example", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	handler := CORS(CORSConfig{Environment: "development"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
}
