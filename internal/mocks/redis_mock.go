package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockRedisClient covers the key/value and publish commands the session store
// and in-flight guard issue.
type MockRedisClient struct {
	mu        sync.RWMutex
	data      map[string]mockRedisValue
	published []PublishedMessage

	// Error injection
	SetError     error
	GetError     error
	DelError     error
	PublishError error
	PingError    error
}

type mockRedisValue struct {
	value     string
	expiresAt time.Time
}

type PublishedMessage struct {
	Channel string
	Payload string
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		data: make(map[string]mockRedisValue),
	}
}

func toString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func expiry(expiration time.Duration) time.Time {
	if expiration > 0 {
		return time.Now().Add(expiration)
	}
	return time.Time{}
}

func (v mockRedisValue) live() bool {
	return v.expiresAt.IsZero() || time.Now().Before(v.expiresAt)
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := redis.NewStatusCmd(ctx)
	if m.SetError != nil {
		cmd.SetErr(m.SetError)
		return cmd
	}

	m.data[key] = mockRedisValue{value: toString(value), expiresAt: expiry(expiration)}
	cmd.SetVal("OK")
	return cmd
}

func (m *MockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := redis.NewBoolCmd(ctx)
	if m.SetError != nil {
		cmd.SetErr(m.SetError)
		return cmd
	}

	if v, ok := m.data[key]; ok && v.live() {
		cmd.SetVal(false)
		return cmd
	}
	m.data[key] = mockRedisValue{value: toString(value), expiresAt: expiry(expiration)}
	cmd.SetVal(true)
	return cmd
}

func (m *MockRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cmd := redis.NewStringCmd(ctx)
	if m.GetError != nil {
		cmd.SetErr(m.GetError)
		return cmd
	}

	val, ok := m.data[key]
	if !ok || !val.live() {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val.value)
	return cmd
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := redis.NewIntCmd(ctx)
	if m.DelError != nil {
		cmd.SetErr(m.DelError)
		return cmd
	}

	var deleted int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			delete(m.data, key)
			deleted++
		}
	}
	cmd.SetVal(deleted)
	return cmd
}

func (m *MockRedisClient) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := redis.NewIntCmd(ctx)
	if m.PublishError != nil {
		cmd.SetErr(m.PublishError)
		return cmd
	}
	m.published = append(m.published, PublishedMessage{Channel: channel, Payload: toString(message)})
	cmd.SetVal(0)
	return cmd
}

func (m *MockRedisClient) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if m.PingError != nil {
		cmd.SetErr(m.PingError)
		return cmd
	}
	cmd.SetVal("PONG")
	return cmd
}

// HasKey checks if a live key exists (for test assertions).
func (m *MockRedisClient) HasKey(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.data[key]
	return ok && val.live()
}

func (m *MockRedisClient) Published() []PublishedMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]PublishedMessage, len(m.published))
	copy(out, m.published)
	return out
}
