package mocks

import (
	"context"
	"sync"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
)

// SessionHub is an in-memory ports.SessionStore and ports.SessionSource.
// Saving or deleting a session fans the change out to the client's
// subscribers, the same contract the Redis adapter provides.
type SessionHub struct {
	mu sync.Mutex

	sessions map[string]domain.Session
	clients  map[string]string
	subs     map[string][]*memorySubscription

	SubscribeCalls []string

	SaveError      error
	SubscribeError error
}

var (
	_ ports.SessionStore  = (*SessionHub)(nil)
	_ ports.SessionSource = (*SessionHub)(nil)
)

func NewSessionHub() *SessionHub {
	return &SessionHub{
		sessions: make(map[string]domain.Session),
		clients:  make(map[string]string),
		subs:     make(map[string][]*memorySubscription),
	}
}

func (h *SessionHub) SaveSession(ctx context.Context, session domain.Session) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.SaveError != nil {
		return h.SaveError
	}
	if old, ok := h.clients[session.ClientID]; ok && old != session.ID {
		delete(h.sessions, old)
	}
	h.sessions[session.ID] = session
	h.clients[session.ClientID] = session.ID

	s := session
	h.notifyLocked(domain.SessionChange{ClientID: session.ClientID, Session: &s})
	return nil
}

func (h *SessionHub) FindSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (h *SessionHub) DeleteSession(ctx context.Context, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(h.sessions, sessionID)
	if h.clients[s.ClientID] == sessionID {
		delete(h.clients, s.ClientID)
		h.notifyLocked(domain.SessionChange{ClientID: s.ClientID})
	}
	return nil
}

func (h *SessionHub) CurrentSession(ctx context.Context, clientID string) (*domain.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentLocked(clientID), nil
}

func (h *SessionHub) currentLocked(clientID string) *domain.Session {
	sid, ok := h.clients[clientID]
	if !ok {
		return nil
	}
	s := h.sessions[sid]
	return &s
}

// Push delivers an arbitrary change without touching stored sessions.
func (h *SessionHub) Push(change domain.SessionChange) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notifyLocked(change)
}

// Subscribers reports how many live subscriptions the client has.
func (h *SessionHub) Subscribers(clientID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[clientID])
}

func (h *SessionHub) Subscribe(ctx context.Context, clientID string) (ports.SessionSubscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.SubscribeCalls = append(h.SubscribeCalls, clientID)
	if h.SubscribeError != nil {
		return nil, h.SubscribeError
	}

	sub := &memorySubscription{
		hub:      h,
		clientID: clientID,
		ch:       make(chan domain.SessionChange, 64),
		done:     make(chan struct{}),
	}
	sub.ch <- domain.SessionChange{ClientID: clientID, Session: h.currentLocked(clientID)}
	h.subs[clientID] = append(h.subs[clientID], sub)
	return sub, nil
}

func (h *SessionHub) notifyLocked(change domain.SessionChange) {
	for _, sub := range h.subs[change.ClientID] {
		select {
		case sub.ch <- change:
		case <-sub.done:
		}
	}
}

func (h *SessionHub) remove(sub *memorySubscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[sub.clientID]
	for i, s := range subs {
		if s == sub {
			h.subs[sub.clientID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(h.subs[sub.clientID]) == 0 {
		delete(h.subs, sub.clientID)
	}
}

type memorySubscription struct {
	hub       *SessionHub
	clientID  string
	ch        chan domain.SessionChange
	done      chan struct{}
	closeOnce sync.Once
}

func (s *memorySubscription) Changes() <-chan domain.SessionChange {
	return s.ch
}

// Close stops delivery. The channel is left open; consumers stop on their own
// context.
func (s *memorySubscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.hub.remove(s)
	})
	return nil
}
