package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
	"github.com/bloodlinkbd/bloodlink-api/internal/metrics"
)

// SyncRegistry owns one ProfileSync per client until the client signs out,
// unmounts, or stays idle longer than the idle TTL.
type SyncRegistry struct {
	source   ports.SessionSource
	profiles ports.ProfileRepository
	logger   *zap.Logger
	metrics  *metrics.Metrics
	idleTTL  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	syncs    map[string]*ProfileSync
	lastSeen map[string]time.Time
	closed   bool
}

func NewSyncRegistry(source ports.SessionSource, profiles ports.ProfileRepository, logger *zap.Logger, m *metrics.Metrics) *SyncRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncRegistry{
		source:   source,
		profiles: profiles,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		syncs:    make(map[string]*ProfileSync),
		lastSeen: make(map[string]time.Time),
	}
}

// WithIdleTTL makes Attach evict clients that have not been seen for ttl.
// Zero keeps clients until they are detached.
func (r *SyncRegistry) WithIdleTTL(ttl time.Duration) *SyncRegistry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.idleTTL = ttl
	return r
}

// Attach returns the client's sync, subscribing on first use. Idle clients
// are evicted on the way.
func (r *SyncRegistry) Attach(ctx context.Context, clientID string) (*ProfileSync, error) {
	s, idle, err := r.attach(ctx, clientID)
	if cerr := r.closeAll(idle); cerr != nil {
		r.logger.Warn("closing idle clients failed", zap.Error(cerr))
	}
	return s, err
}

func (r *SyncRegistry) attach(ctx context.Context, clientID string) (*ProfileSync, []*ProfileSync, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, nil, ErrSyncClosed
	}
	now := r.now()
	idle := r.evictIdleLocked(now, clientID)

	if s, ok := r.syncs[clientID]; ok {
		r.lastSeen[clientID] = now
		return s, idle, nil
	}

	s, err := NewProfileSync(ctx, clientID, r.source, r.profiles, r.logger, r.metrics)
	if err != nil {
		return nil, idle, err
	}
	r.syncs[clientID] = s
	r.lastSeen[clientID] = now
	return s, idle, nil
}

func (r *SyncRegistry) evictIdleLocked(now time.Time, keep string) []*ProfileSync {
	if r.idleTTL <= 0 {
		return nil
	}
	var idle []*ProfileSync
	for id, seen := range r.lastSeen {
		if id == keep || now.Sub(seen) < r.idleTTL {
			continue
		}
		idle = append(idle, r.syncs[id])
		delete(r.syncs, id)
		delete(r.lastSeen, id)
		r.logger.Debug("evicting idle client", zap.String("client_id", id))
	}
	return idle
}

func (r *SyncRegistry) closeAll(syncs []*ProfileSync) error {
	var errs []error
	for _, s := range syncs {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *SyncRegistry) Get(clientID string) (*ProfileSync, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.syncs[clientID]
	return s, ok
}

// Detach unmounts a client and drops its state.
func (r *SyncRegistry) Detach(clientID string) error {
	r.mu.Lock()
	s, ok := r.syncs[clientID]
	delete(r.syncs, clientID)
	delete(r.lastSeen, clientID)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return s.Close()
}

func (r *SyncRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.syncs)
}

// Close tears down every subscription; further Attach calls fail.
func (r *SyncRegistry) Close() error {
	r.mu.Lock()
	r.closed = true
	syncs := make([]*ProfileSync, 0, len(r.syncs))
	for _, s := range r.syncs {
		syncs = append(syncs, s)
	}
	r.syncs = make(map[string]*ProfileSync)
	r.lastSeen = make(map[string]time.Time)
	r.mu.Unlock()

	return r.closeAll(syncs)
}
