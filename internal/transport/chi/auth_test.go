package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveAuth(t *testing.T, api, admin []string, method, path, header string) *httptest.ResponseRecorder {
	t.Helper()
	handler := BearerAuthMiddleware(api, admin)(okHandler())
	req := httptest.NewRequest(method, path, http.NoBody)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestAuthMiddleware_EmptyKeys_PassThrough(t *testing.T) {
	for _, path := range []string{"/v1/search", "/v1/admin/rebuild"} {
		if rr := serveAuth(t, nil, nil, "POST", path, ""); rr.Code != http.StatusOK {
			t.Errorf("%s: got %d, want %d", path, rr.Code, http.StatusOK)
		}
	}
}

func TestAuthMiddleware_EmptyStringKeys_PassThrough(t *testing.T) {
	if rr := serveAuth(t, []string{"", ""}, []string{""}, "POST", "/v1/search", ""); rr.Code != http.StatusOK {
		t.Errorf("empty string keys: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_MissingHeader_401(t *testing.T) {
	rr := serveAuth(t, []string{"secret"}, nil, "POST", "/v1/search", "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("missing header: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != codeUnauthorized {
		t.Errorf("error code: got %s, want %s", errResp.Code, codeUnauthorized)
	}
}

func TestAuthMiddleware_BasicScheme_401(t *testing.T) {
	rr := serveAuth(t, []string{"secret"}, nil, "POST", "/v1/search", "Basic dXNlcjpwYXNz")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("basic scheme: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_InvalidToken_401(t *testing.T) {
	rr := serveAuth(t, []string{"secret"}, nil, "POST", "/v1/search", "Bearer wrong-key")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("invalid token: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_MultipleKeys(t *testing.T) {
	for _, key := range []string{"key1", "key2"} {
		rr := serveAuth(t, []string{"key1", "key2"}, nil, "POST", "/v1/search", "Bearer "+key)
		if rr.Code != http.StatusOK {
			t.Errorf("key %s: got %d, want %d", key, rr.Code, http.StatusOK)
		}
	}
}

func TestAuthMiddleware_AdminKeys(t *testing.T) {
	api, admin := []string{"reader"}, []string{"root"}

	tests := []struct {
		path   string
		header string
		want   int
	}{
		{"/v1/search", "Bearer reader", http.StatusOK},
		{"/v1/search", "Bearer root", http.StatusUnauthorized},
		{"/v1/admin/rebuild", "Bearer reader", http.StatusUnauthorized},
		{"/v1/admin/rebuild", "Bearer root", http.StatusOK},
	}
	for _, tc := range tests {
		if rr := serveAuth(t, api, admin, "POST", tc.path, tc.header); rr.Code != tc.want {
			t.Errorf("%s with %q: got %d, want %d", tc.path, tc.header, rr.Code, tc.want)
		}
	}
}

func TestAuthMiddleware_AdminFallsBackToAPIKeys(t *testing.T) {
	if rr := serveAuth(t, []string{"secret"}, nil, "POST", "/v1/admin/rebuild", "Bearer secret"); rr.Code != http.StatusOK {
		t.Errorf("admin fallback: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_ExemptPaths(t *testing.T) {
	for _, path := range []string{"/health", "/metrics"} {
		if rr := serveAuth(t, []string{"secret"}, nil, "GET", path, ""); rr.Code != http.StatusOK {
			t.Errorf("exempt path %s: got %d, want %d", path, rr.Code, http.StatusOK)
		}
	}
}
