package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
)

const (
	AssistantGreeting = "Hi there! I'm BloodLink BD's support assistant. How can I help you today?"
	AssistantFallback = "Sorry, I encountered an error. Please try again later."
)

type Conversation struct {
	ID       string               `json:"id"`
	Messages []domain.ChatMessage `json:"messages"`
}

// Assistant keeps support chat transcripts in memory only; closing a
// conversation, letting it idle past the TTL or restarting the process
// discards it.
type Assistant struct {
	support ports.SupportAssistant
	logger  *zap.Logger
	now     func() time.Time
	idleTTL time.Duration
	maxLive int

	mu            sync.Mutex
	conversations map[string]*transcript
}

type transcript struct {
	messages   []domain.ChatMessage
	lastActive time.Time
}

func NewAssistant(support ports.SupportAssistant, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{
		support:       support,
		logger:        logger,
		now:           time.Now,
		conversations: make(map[string]*transcript),
	}
}

// WithLimits bounds live transcripts: those idle for idleTTL are dropped, and
// once maxLive are open the least recently active one makes room for a new
// conversation. Zero disables either limit.
func (a *Assistant) WithLimits(idleTTL time.Duration, maxLive int) *Assistant {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.idleTTL = idleTTL
	a.maxLive = maxLive
	return a
}

// lookupLocked returns a live transcript, dropping it if it has idled out.
func (a *Assistant) lookupLocked(id string, now time.Time) (*transcript, bool) {
	t, ok := a.conversations[id]
	if !ok {
		return nil, false
	}
	if a.idleTTL > 0 && now.Sub(t.lastActive) >= a.idleTTL {
		delete(a.conversations, id)
		return nil, false
	}
	return t, true
}

func (a *Assistant) evictLocked(now time.Time) {
	if a.idleTTL > 0 {
		for id, t := range a.conversations {
			if now.Sub(t.lastActive) >= a.idleTTL {
				delete(a.conversations, id)
			}
		}
	}
	for a.maxLive > 0 && len(a.conversations) >= a.maxLive {
		var oldest string
		for id, t := range a.conversations {
			if oldest == "" || t.lastActive.Before(a.conversations[oldest].lastActive) {
				oldest = id
			}
		}
		a.logger.Debug("evicting least recently active conversation", zap.String("conversation_id", oldest))
		delete(a.conversations, oldest)
	}
}

func (a *Assistant) message(role domain.ChatRole, content string) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: a.now(),
	}
}

// Open starts a conversation with the greeting.
func (a *Assistant) Open() Conversation {
	id := uuid.NewString()
	greeting := a.message(domain.RoleAssistant, AssistantGreeting)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.evictLocked(greeting.Timestamp)
	a.conversations[id] = &transcript{messages: []domain.ChatMessage{greeting}, lastActive: greeting.Timestamp}
	return Conversation{ID: id, Messages: []domain.ChatMessage{greeting}}
}

// Send appends the question, asks the support flow and appends its answer.
// A failed call appends the fallback apology instead of returning an error.
func (a *Assistant) Send(ctx context.Context, id, content string) (Conversation, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Conversation{}, &domain.ValidationError{Field: "content", Message: "Message cannot be empty."}
	}

	question := a.message(domain.RoleUser, content)
	a.mu.Lock()
	t, ok := a.lookupLocked(id, question.Timestamp)
	if !ok {
		a.mu.Unlock()
		return Conversation{}, domain.ErrNotFound
	}
	t.messages = append(t.messages, question)
	t.lastActive = question.Timestamp
	a.mu.Unlock()

	answer, err := a.support.Answer(ctx, content)
	if err != nil {
		a.logger.Error("support assistant call failed", zap.String("conversation_id", id), zap.Error(err))
		answer = AssistantFallback
	}
	reply := a.message(domain.RoleAssistant, answer)

	a.mu.Lock()
	defer a.mu.Unlock()
	// Closed or evicted while the flow was running.
	if a.conversations[id] != t {
		return Conversation{}, domain.ErrNotFound
	}
	t.messages = append(t.messages, reply)
	t.lastActive = reply.Timestamp
	return Conversation{ID: id, Messages: append([]domain.ChatMessage(nil), t.messages...)}, nil
}

func (a *Assistant) Transcript(id string) (Conversation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.lookupLocked(id, a.now())
	if !ok {
		return Conversation{}, domain.ErrNotFound
	}
	return Conversation{ID: id, Messages: append([]domain.ChatMessage(nil), t.messages...)}, nil
}

func (a *Assistant) Close(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.lookupLocked(id, a.now()); !ok {
		return domain.ErrNotFound
	}
	delete(a.conversations, id)
	return nil
}

// Live reports how many transcripts are held.
func (a *Assistant) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.conversations)
}
