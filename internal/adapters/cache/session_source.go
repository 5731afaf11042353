package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
)

// SessionSource streams a client's session changes from Redis pub/sub.
type SessionSource struct {
	client *redis.Client
	store  *SessionStore
	logger *zap.Logger
}

var _ ports.SessionSource = (*SessionSource)(nil)

func NewSessionSource(client *redis.Client, store *SessionStore, logger *zap.Logger) *SessionSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionSource{client: client, store: store, logger: logger}
}

// Subscribe confirms the channel subscription before reading the current
// session, so a change published in between is delivered rather than lost.
func (s *SessionSource) Subscribe(ctx context.Context, clientID string) (ports.SessionSubscription, error) {
	channel := SessionChannel(s.store.prefix, clientID)
	pubsub := s.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("%w: subscribe %s: %v", domain.ErrUnavailable, channel, err)
	}

	current, err := s.store.CurrentSession(ctx, clientID)
	if err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("replay current session: %w", err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		out:    make(chan domain.SessionChange),
		done:   make(chan struct{}),
		logger: s.logger.With(zap.String("channel", channel)),
	}
	sub.wg.Add(1)
	go sub.forward(domain.SessionChange{ClientID: clientID, Session: current})
	return sub, nil
}

type redisSubscription struct {
	pubsub    *redis.PubSub
	out       chan domain.SessionChange
	done      chan struct{}
	logger    *zap.Logger
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func (s *redisSubscription) Changes() <-chan domain.SessionChange {
	return s.out
}

func (s *redisSubscription) forward(first domain.SessionChange) {
	defer s.wg.Done()
	defer close(s.out)

	if !s.send(first) {
		return
	}
	for msg := range s.pubsub.Channel() {
		var change domain.SessionChange
		if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
			s.logger.Warn("dropping malformed session change", zap.Error(err))
			continue
		}
		if !s.send(change) {
			return
		}
	}
}

func (s *redisSubscription) send(change domain.SessionChange) bool {
	select {
	case s.out <- change:
		return true
	case <-s.done:
		return false
	}
}

func (s *redisSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
		s.wg.Wait()
	})
	return err
}
