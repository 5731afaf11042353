package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodlinkbd/bloodlink-api/internal/adapters/middleware"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/metrics"
	"github.com/bloodlinkbd/bloodlink-api/internal/mocks"
)

// stubIdentity verifies exactly one token.
type stubIdentity struct {
	token     string
	session   *domain.Session
	verifyErr error
}

func (s *stubIdentity) SignUp(ctx context.Context, clientID, name, email, password string) (*domain.Session, error) {
	return nil, errors.New("not implemented")
}

func (s *stubIdentity) SignIn(ctx context.Context, clientID, email, password string) (*domain.Session, error) {
	return nil, errors.New("not implemented")
}

func (s *stubIdentity) SignOut(ctx context.Context, sessionID string) error {
	return nil
}

func (s *stubIdentity) Verify(ctx context.Context, token string) (*domain.Session, error) {
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	if token != s.token {
		return nil, domain.ErrUnauthenticated
	}
	return s.session, nil
}

func (s *stubIdentity) Current(ctx context.Context, clientID string) (*domain.Session, error) {
	return s.session, nil
}

func TestRequireSession(t *testing.T) {
	session := mocks.TestSession("s-1", "client-1", "uid-1", "Jane", "jane@example.com")

	tests := []struct {
		name       string
		header     string
		verifyErr  error
		wantStatus int
	}{
		{name: "no auth header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "invalid header format", header: "InvalidFormat", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good-token", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer forged", wantStatus: http.StatusUnauthorized},
		{name: "session store down", header: "Bearer good-token", verifyErr: domain.ErrUnavailable, wantStatus: http.StatusServiceUnavailable},
		{name: "valid token", header: "Bearer good-token", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := middleware.NewAuthMiddleware(&stubIdentity{token: "good-token", session: session, verifyErr: tt.verifyErr}, nil)

			var got domain.Session
			var called bool
			h := mw.RequireSession(func(w http.ResponseWriter, r *http.Request) {
				got, called = middleware.SessionFrom(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				require.True(t, called)
				assert.Equal(t, "uid-1", got.User.UID)
				assert.Equal(t, "client-1", got.ClientID)
			} else {
				assert.False(t, called)
			}
		})
	}
}

func TestSessionFrom_Missing(t *testing.T) {
	_, ok := middleware.SessionFrom(context.Background())
	assert.False(t, ok)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		{name: "allowed origin", allowed: []string{"https://bloodlink.example"}, origin: "https://bloodlink.example", method: http.MethodGet, wantOrigin: "https://bloodlink.example", wantStatus: http.StatusOK},
		{name: "foreign origin", allowed: []string{"https://bloodlink.example"}, origin: "https://evil.example", method: http.MethodGet, wantOrigin: "", wantStatus: http.StatusOK},
		{name: "wildcard echoes origin", allowed: []string{"*"}, origin: "https://any.example", method: http.MethodGet, wantOrigin: "https://any.example", wantStatus: http.StatusOK},
		{name: "wildcard without origin", allowed: []string{"*"}, origin: "", method: http.MethodGet, wantOrigin: "*", wantStatus: http.StatusOK},
		{name: "preflight", allowed: []string{"https://bloodlink.example"}, origin: "https://bloodlink.example", method: http.MethodOptions, wantOrigin: "https://bloodlink.example", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := middleware.CORSMiddleware(tt.allowed)(okHandler())

			req := httptest.NewRequest(tt.method, "/requests", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantOrigin != "" {
				assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Client-ID")
				assert.Equal(t, "X-Client-ID", rec.Header().Get("Access-Control-Expose-Headers"))
			}
		})
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	h := middleware.APIKeyMiddleware("browser-key", "/health", "/metrics")(okHandler())

	tests := []struct {
		name       string
		method     string
		target     string
		header     string
		wantStatus int
	}{
		{name: "header key", method: http.MethodGet, target: "/donors", header: "browser-key", wantStatus: http.StatusOK},
		{name: "query key", method: http.MethodGet, target: "/donors?key=browser-key", wantStatus: http.StatusOK},
		{name: "missing key", method: http.MethodGet, target: "/donors", wantStatus: http.StatusForbidden},
		{name: "wrong key", method: http.MethodGet, target: "/donors", header: "other", wantStatus: http.StatusForbidden},
		{name: "exempt path", method: http.MethodGet, target: "/health", wantStatus: http.StatusOK},
		{name: "preflight", method: http.MethodOptions, target: "/donors", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestObserve(t *testing.T) {
	m := metrics.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /requests/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	h := middleware.Observe(m, nil)(mux)

	for _, target := range []string{"/requests/a", "/requests/b", "/boom", "/nowhere"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET /requests/{id}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET /boom", "500")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("unmatched", "404")))
}

func TestObserve_NilMetrics(t *testing.T) {
	h := middleware.Observe(nil, nil)(okHandler())
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
