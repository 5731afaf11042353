package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/forms"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
)

// AuthResult is the session a client now holds plus the profile state it
// resolved to.
type AuthResult struct {
	Session *domain.Session
	State   SyncState
}

// AuthService signs clients in and out. Profiles are never touched here; the
// client's ProfileSync reacts to the session change.
type AuthService struct {
	identity  ports.IdentityProvider
	registry  *SyncRegistry
	submitter *Submitter
	logger    *zap.Logger
}

func NewAuthService(identity ports.IdentityProvider, registry *SyncRegistry, submitter *Submitter, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		identity:  identity,
		registry:  registry,
		submitter: submitter,
		logger:    logger,
	}
}

func (s *AuthService) Register(ctx context.Context, clientID string, form forms.Register) (*AuthResult, error) {
	return s.authenticate(ctx, clientID, "register", form, form.Email, func(ctx context.Context) (*domain.Session, error) {
		return s.identity.SignUp(ctx, clientID, form.Name, form.Email, form.Password)
	})
}

func (s *AuthService) Login(ctx context.Context, clientID string, form forms.Login) (*AuthResult, error) {
	return s.authenticate(ctx, clientID, "login", form, form.Email, func(ctx context.Context) (*domain.Session, error) {
		return s.identity.SignIn(ctx, clientID, form.Email, form.Password)
	})
}

func (s *AuthService) authenticate(
	ctx context.Context,
	clientID, name string,
	form any,
	email string,
	signIn func(ctx context.Context) (*domain.Session, error),
) (*AuthResult, error) {
	var session *domain.Session
	err := s.submitter.Submit(ctx, name, form, strings.ToLower(email), func(ctx context.Context) error {
		var err error
		session, err = signIn(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	ps, err := s.registry.Attach(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("attach client %s: %w", clientID, err)
	}

	state, err := ps.Await(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("await profile for session %s: %w", session.ID, err)
	}

	s.logger.Info("client authenticated",
		zap.String("client_id", clientID),
		zap.String("uid", session.User.UID),
		zap.String("phase", string(state.Phase)))

	return &AuthResult{Session: session, State: state}, nil
}

// Logout revokes the session and releases the client's ProfileSync along
// with its subscription.
func (s *AuthService) Logout(ctx context.Context, session domain.Session) error {
	if err := s.identity.SignOut(ctx, session.ID); err != nil {
		return fmt.Errorf("sign out session %s: %w", session.ID, err)
	}
	if err := s.registry.Detach(session.ClientID); err != nil {
		s.logger.Warn("detaching signed-out client failed",
			zap.String("client_id", session.ClientID), zap.Error(err))
	}
	s.logger.Info("client signed out",
		zap.String("client_id", session.ClientID),
		zap.String("uid", session.User.UID))
	return nil
}
