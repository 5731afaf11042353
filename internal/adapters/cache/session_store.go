// Package cache holds the Redis adapters: live sessions, their change feed
// and the submission in-flight guard.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/config"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
)

// RedisClient is the subset of *redis.Client the adapters use.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

var _ RedisClient = (*redis.Client)(nil)

// SessionStore keeps sessions under <prefix>:session:<id>, points each client
// at its live session with <prefix>:client:<id>, and publishes every change on
// SessionChannel(prefix, clientID).
type SessionStore struct {
	rdb    RedisClient
	prefix string
	ttl    time.Duration
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

var _ ports.SessionStore = (*SessionStore)(nil)

func NewSessionStore(rdb RedisClient, prefix string, ttl time.Duration, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		cb:     config.NewCircuitBreaker(config.BreakerRedis, logger),
		logger: logger,
	}
}

func SessionChannel(prefix, clientID string) string {
	return prefix + ":sessions:" + clientID
}

func (s *SessionStore) sessionKey(id string) string {
	return s.prefix + ":session:" + id
}

func (s *SessionStore) clientKey(id string) string {
	return s.prefix + ":client:" + id
}

// do runs fn behind the breaker; redis.Nil is an answer, not a failure.
func (s *SessionStore) do(fn func() error) error {
	var miss bool
	_, err := s.cb.Execute(func() (interface{}, error) {
		err := fn()
		if errors.Is(err, redis.Nil) {
			miss = true
			return nil, nil
		}
		return nil, err
	})
	switch {
	case err != nil:
		return fmt.Errorf("%w: redis: %v", domain.ErrUnavailable, err)
	case miss:
		return domain.ErrNotFound
	}
	return nil
}

func (s *SessionStore) SaveSession(ctx context.Context, session domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	previous, err := s.currentID(ctx, session.ClientID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 || ttl > s.ttl {
		ttl = s.ttl
	}
	err = s.do(func() error {
		if err := s.rdb.Set(ctx, s.sessionKey(session.ID), data, ttl).Err(); err != nil {
			return err
		}
		return s.rdb.Set(ctx, s.clientKey(session.ClientID), session.ID, ttl).Err()
	})
	if err != nil {
		return err
	}

	if previous != "" && previous != session.ID {
		if err := s.do(func() error { return s.rdb.Del(ctx, s.sessionKey(previous)).Err() }); err != nil {
			s.logger.Warn("failed to revoke replaced session", zap.String("session_id", previous), zap.Error(err))
		}
	}

	return s.publish(ctx, domain.SessionChange{ClientID: session.ClientID, Session: &session})
}

func (s *SessionStore) FindSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var raw string
	err := s.do(func() error {
		var err error
		raw, err = s.rdb.Get(ctx, s.sessionKey(sessionID)).Result()
		return err
	})
	if err != nil {
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &session, nil
}

// DeleteSession revokes a session. If it was the client's live session the
// client is announced as signed out.
func (s *SessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	session, err := s.FindSession(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	current, err := s.currentID(ctx, session.ClientID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	keys := []string{s.sessionKey(sessionID)}
	live := current == sessionID
	if live {
		keys = append(keys, s.clientKey(session.ClientID))
	}
	if err := s.do(func() error { return s.rdb.Del(ctx, keys...).Err() }); err != nil {
		return err
	}

	if !live {
		return nil
	}
	return s.publish(ctx, domain.SessionChange{ClientID: session.ClientID})
}

// CurrentSession returns nil without error when the client is signed out.
func (s *SessionStore) CurrentSession(ctx context.Context, clientID string) (*domain.Session, error) {
	id, err := s.currentID(ctx, clientID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	session, err := s.FindSession(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return session, err
}

func (s *SessionStore) currentID(ctx context.Context, clientID string) (string, error) {
	var id string
	err := s.do(func() error {
		var err error
		id, err = s.rdb.Get(ctx, s.clientKey(clientID)).Result()
		return err
	})
	return id, err
}

func (s *SessionStore) publish(ctx context.Context, change domain.SessionChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode session change: %w", err)
	}
	return s.do(func() error {
		return s.rdb.Publish(ctx, SessionChannel(s.prefix, change.ClientID), data).Err()
	})
}

func (s *SessionStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
