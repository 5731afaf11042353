package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
	"github.com/bloodlinkbd/bloodlink-api/internal/metrics"
)

type SyncPhase string

const (
	PhaseUnresolved    SyncPhase = "unresolved"
	PhaseAuthenticated SyncPhase = "authenticated"
	PhaseAnonymous     SyncPhase = "anonymous"
	PhaseFailed        SyncPhase = "failed"
)

var ErrSyncClosed = errors.New("profile sync closed")

// SyncState is what a client observes. Loading is true only until the first
// session change has been resolved.
type SyncState struct {
	Phase     SyncPhase
	SessionID string
	User      *domain.SessionUser
	Profile   *domain.UserProfile
	Loading   bool
	Err       error
}

func (s SyncState) Resolved() bool {
	return s.Phase != PhaseUnresolved
}

// ProfileSync bridges one client's session feed to its profile state.
// Each session change bumps a generation; a resolution only lands if its
// generation is still current, so the state always follows the latest session.
type ProfileSync struct {
	clientID string
	profiles ports.ProfileRepository
	sub      ports.SessionSubscription
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu         sync.Mutex
	state      SyncState
	generation uint64
	settled    uint64 // generation whose profile an update already published
	cancel     context.CancelFunc
	changed    chan struct{}
	closed     bool

	ctx       context.Context
	stop      context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewProfileSync subscribes to the client's sessions and starts resolving them.
// ctx only bounds the subscription setup; Close ends the sync.
func NewProfileSync(
	ctx context.Context,
	clientID string,
	source ports.SessionSource,
	profiles ports.ProfileRepository,
	logger *zap.Logger,
	m *metrics.Metrics,
) (*ProfileSync, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	sub, err := source.Subscribe(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("subscribe to sessions for client %s: %w", clientID, err)
	}

	s := &ProfileSync{
		clientID: clientID,
		profiles: profiles,
		sub:      sub,
		logger:   logger.With(zap.String("client_id", clientID)),
		metrics:  m,
		state:    SyncState{Phase: PhaseUnresolved, Loading: true},
		changed:  make(chan struct{}),
	}
	s.ctx, s.stop = context.WithCancel(context.Background())

	s.wg.Add(1)
	go s.run()

	return s, nil
}

func (s *ProfileSync) ClientID() string {
	return s.clientID
}

func (s *ProfileSync) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case change, ok := <-s.sub.Changes():
			if !ok {
				return
			}
			s.handle(change)
		}
	}
}

func (s *ProfileSync) handle(change domain.SessionChange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	gen := s.generation
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	if change.Session == nil {
		s.logger.Debug("session ended")
		s.state = SyncState{Phase: PhaseAnonymous}
		s.publishLocked()
		s.metrics.ProfileResolved("anonymous")
		return
	}

	session := *change.Session
	user := session.User
	s.logger.Debug("session started", zap.String("uid", user.UID), zap.String("session_id", session.ID))

	// The previous profile never survives into a new session.
	s.state = SyncState{
		Phase:     PhaseUnresolved,
		SessionID: session.ID,
		User:      &user,
		Loading:   s.state.Loading,
	}
	s.publishLocked()

	rctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.resolve(rctx, gen, session)
}

func (s *ProfileSync) resolve(ctx context.Context, gen uint64, session domain.Session) {
	defer s.wg.Done()

	profile, err := s.fetchOrCreate(ctx, session.User)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || gen == s.settled {
		s.logger.Debug("dropping stale resolution", zap.String("session_id", session.ID))
		return
	}

	user := session.User
	if err != nil {
		s.logger.Error("profile resolution failed", zap.String("uid", user.UID), zap.Error(err))
		s.state = SyncState{Phase: PhaseFailed, SessionID: session.ID, User: &user, Err: err}
		s.metrics.ProfileResolved("failed")
	} else {
		s.state = SyncState{Phase: PhaseAuthenticated, SessionID: session.ID, User: &user, Profile: profile}
		s.metrics.ProfileResolved("authenticated")
	}
	s.publishLocked()
}

func (s *ProfileSync) fetchOrCreate(ctx context.Context, user domain.SessionUser) (*domain.UserProfile, error) {
	profile, err := s.profiles.FindProfile(ctx, user.UID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	created := domain.NewDefaultProfile(user)
	if err := s.profiles.CreateProfile(ctx, created); err != nil {
		return nil, fmt.Errorf("create default profile: %w", err)
	}
	s.logger.Info("created default profile", zap.String("uid", user.UID))
	return &created, nil
}

// UpdateUserProfile merge-writes patch into the signed-in user's profile.
// sessionID names the session the caller acted under; the write is refused
// with ErrUnauthenticated once the client has moved on to another session.
// An empty sessionID writes for whichever user is current.
func (s *ProfileSync) UpdateUserProfile(ctx context.Context, sessionID string, patch domain.ProfilePatch) (*domain.UserProfile, error) {
	s.mu.Lock()
	current := s.state
	gen := s.generation
	s.mu.Unlock()

	if current.User == nil {
		s.recordError(gen, domain.ErrUnauthenticated)
		return nil, domain.ErrUnauthenticated
	}
	if sessionID != "" && sessionID != current.SessionID {
		s.logger.Warn("refusing profile write for a replaced session",
			zap.String("session_id", sessionID),
			zap.String("current_session_id", current.SessionID))
		return nil, fmt.Errorf("session %s is no longer current: %w", sessionID, domain.ErrUnauthenticated)
	}

	stamp := patch.BecomesDonor() &&
		(current.Profile == nil || current.Profile.DonorRegistrationTime == nil)

	updated, err := s.profiles.MergeProfile(ctx, current.User.UID, patch, stamp)
	if err != nil {
		err = fmt.Errorf("update profile: %w", err)
		s.recordError(gen, err)
		return nil, err
	}

	s.mu.Lock()
	if gen == s.generation {
		// The write is newer than anything a pending resolution fetched.
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.settled = gen
		s.state.Phase = PhaseAuthenticated
		s.state.Profile = updated
		s.state.Loading = false
		s.state.Err = nil
		s.publishLocked()
	}
	s.mu.Unlock()

	return updated, nil
}

func (s *ProfileSync) recordError(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.state.Err = err
	s.publishLocked()
}

// State returns the latest published snapshot.
func (s *ProfileSync) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Changes returns a channel closed at the next state publication.
func (s *ProfileSync) Changes() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// Await blocks until the state is resolved for sessionID. An empty sessionID
// accepts any resolved state.
func (s *ProfileSync) Await(ctx context.Context, sessionID string) (SyncState, error) {
	for {
		s.mu.Lock()
		st, ch, closed := s.state, s.changed, s.closed
		s.mu.Unlock()

		if st.Resolved() && (sessionID == "" || st.SessionID == sessionID) {
			return st, nil
		}
		if closed {
			return st, ErrSyncClosed
		}

		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ch:
		}
	}
}

// Close tears down the subscription and waits for in-flight resolutions.
func (s *ProfileSync) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.stop()
		err = s.sub.Close()
		s.wg.Wait()

		s.mu.Lock()
		s.closed = true
		s.publishLocked()
		s.mu.Unlock()
	})
	return err
}

func (s *ProfileSync) publishLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}
