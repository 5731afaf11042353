package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
)

type AuthMiddleware struct {
	identity ports.IdentityProvider
	logger   *zap.Logger
}

func NewAuthMiddleware(identity ports.IdentityProvider, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{
		identity: identity,
		logger:   logger,
	}
}

type contextKey string

const sessionKey contextKey = "session"

// SessionFrom returns the session RequireSession stored on the request.
func SessionFrom(ctx context.Context) (domain.Session, bool) {
	s, ok := ctx.Value(sessionKey).(domain.Session)
	return s, ok
}

// WithSession is used by tests and RequireSession to attach a verified session.
func WithSession(ctx context.Context, s domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// RequireSession admits requests carrying a live bearer session token.
func (m *AuthMiddleware) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.logger.Debug("missing authorization header", zap.String("path", r.URL.Path))
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.logger.Debug("invalid authorization header format")
			http.Error(w, "invalid authorization header", http.StatusUnauthorized)
			return
		}

		session, err := m.identity.Verify(r.Context(), parts[1])
		if err != nil {
			if errors.Is(err, domain.ErrUnauthenticated) {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			m.logger.Error("session verification failed", zap.Error(err))
			http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
			return
		}

		m.logger.Debug("session verified",
			zap.String("uid", session.User.UID),
			zap.String("client_id", session.ClientID))

		next(w, r.WithContext(WithSession(r.Context(), *session)))
	}
}
