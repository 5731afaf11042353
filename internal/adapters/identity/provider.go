// Package identity is the credential and session authority: bcrypt password
// accounts and RS256 session tokens backed by a revocable session store.
package identity

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
)

const minPasswordLength = 6

type Options struct {
	Issuer     string
	Audience   string
	TTL        time.Duration
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

type Provider struct {
	accounts ports.AccountRepository
	sessions ports.SessionStore
	opts     Options
	now      func() time.Time
	logger   *zap.Logger
}

var _ ports.IdentityProvider = (*Provider)(nil)

func NewProvider(accounts ports.AccountRepository, sessions ports.SessionStore, opts Options, logger *zap.Logger) *Provider {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		accounts: accounts,
		sessions: sessions,
		opts:     opts,
		now:      time.Now,
		logger:   logger,
	}
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	ClientID  string `json:"cid"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// SignUp creates the account and signs the client in as it.
func (p *Provider) SignUp(ctx context.Context, clientID, name, email, password string) (*domain.Session, error) {
	if len(password) < minPasswordLength {
		return nil, domain.ErrWeakPassword
	}
	email = strings.TrimSpace(email)

	if _, err := p.accounts.FindAccountByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailInUse
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("look up account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := domain.Account{
		UID:          uuid.NewString(),
		Email:        email,
		DisplayName:  strings.TrimSpace(name),
		PasswordHash: string(hash),
		CreatedAt:    p.now().UTC(),
	}
	if err := p.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, domain.ErrEmailInUse) {
			return nil, err
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	p.logger.Info("account created", zap.String("uid", account.UID))

	return p.issue(ctx, clientID, account)
}

func (p *Provider) SignIn(ctx context.Context, clientID, email, password string) (*domain.Session, error) {
	account, err := p.accounts.FindAccountByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("look up account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return p.issue(ctx, clientID, *account)
}

func (p *Provider) issue(ctx context.Context, clientID string, account domain.Account) (*domain.Session, error) {
	now := p.now()
	session := domain.Session{
		ID:       uuid.NewString(),
		ClientID: clientID,
		User: domain.SessionUser{
			UID:         account.UID,
			Email:       account.Email,
			DisplayName: account.DisplayName,
		},
		IssuedAt:  now,
		ExpiresAt: now.Add(p.opts.TTL),
	}

	claims := sessionClaims{
		SessionID: session.ID,
		ClientID:  clientID,
		Name:      account.DisplayName,
		Email:     account.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.UID,
			Issuer:    p.opts.Issuer,
			Audience:  jwt.ClaimStrings{p.opts.Audience},
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			ID:        session.ID,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(p.opts.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	if err := p.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	session.Token = token
	return &session, nil
}

func (p *Provider) SignOut(ctx context.Context, sessionID string) error {
	if err := p.sessions.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Verify checks the token signature and claims, then that the session has not
// been revoked or replaced.
func (p *Provider) Verify(ctx context.Context, token string) (*domain.Session, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return p.opts.PublicKey, nil
	},
		jwt.WithIssuer(p.opts.Issuer),
		jwt.WithAudience(p.opts.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		p.logger.Debug("rejected session token", zap.Error(err))
		return nil, domain.ErrUnauthenticated
	}

	session, err := p.sessions.FindSession(ctx, claims.SessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session.User.UID != claims.Subject || session.ClientID != claims.ClientID {
		return nil, domain.ErrUnauthenticated
	}
	session.Token = token
	return session, nil
}

func (p *Provider) Current(ctx context.Context, clientID string) (*domain.Session, error) {
	return p.sessions.CurrentSession(ctx, clientID)
}
