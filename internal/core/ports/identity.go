package ports

import (
	"context"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
)

type IdentityProvider interface {
	SignUp(ctx context.Context, clientID, name, email, password string) (*domain.Session, error)
	SignIn(ctx context.Context, clientID, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context, sessionID string) error
	Verify(ctx context.Context, token string) (*domain.Session, error)
	// Current returns the client's live session, or nil when signed out.
	Current(ctx context.Context, clientID string) (*domain.Session, error)
}

// SessionStore keeps live sessions and announces every change to the owning
// client's subscribers.
type SessionStore interface {
	// SaveSession replaces whatever session the client held before.
	SaveSession(ctx context.Context, session domain.Session) error
	// FindSession returns domain.ErrNotFound for unknown or revoked sessions.
	FindSession(ctx context.Context, sessionID string) (*domain.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	CurrentSession(ctx context.Context, clientID string) (*domain.Session, error)
}

// SessionSubscription is a live feed of one client's session changes.
type SessionSubscription interface {
	Changes() <-chan domain.SessionChange
	Close() error
}

type SessionSource interface {
	// Subscribe replays the client's current session as the first change.
	Subscribe(ctx context.Context, clientID string) (SessionSubscription, error)
}

// InFlightGuard marks a submission as in progress so duplicates are refused.
type InFlightGuard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}
