// Package mocks provides in-memory implementations of the port interfaces so
// services and handlers can be tested without Postgres, Redis or RabbitMQ.
package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
)

// MockProfileRepository implements ports.ProfileRepository over a map.
// ListDonors returns donors in insertion order, like an unordered store scan.
type MockProfileRepository struct {
	mu sync.RWMutex

	profiles map[string]domain.UserProfile
	order    []string

	// Now stamps donorRegistrationTime; defaults to time.Now.
	Now func() time.Time

	// BeforeFind runs before every FindProfile, outside the lock. Tests use it
	// to hold a resolution open.
	BeforeFind func(ctx context.Context, uid string)

	// Call tracking for verification
	FindProfileCalls   []string
	CreateProfileCalls []domain.UserProfile
	MergeProfileCalls  []domain.ProfilePatch
	ListDonorsCalls    int

	// Error injection for testing error scenarios
	FindProfileError   error
	CreateProfileError error
	MergeProfileError  error
	ListDonorsError    error
}

var _ ports.ProfileRepository = (*MockProfileRepository)(nil)

func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{
		profiles: make(map[string]domain.UserProfile),
		Now:      time.Now,
	}
}

// SeedProfile stores a profile as-is, including malformed ones.
func (m *MockProfileRepository) SeedProfile(profile domain.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(profile)
}

func (m *MockProfileRepository) putLocked(profile domain.UserProfile) {
	if _, ok := m.profiles[profile.UID]; !ok {
		m.order = append(m.order, profile.UID)
	}
	m.profiles[profile.UID] = profile
}

// Profile returns the stored profile for assertions.
func (m *MockProfileRepository) Profile(uid string) (domain.UserProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[uid]
	return p, ok
}

func (m *MockProfileRepository) WriteCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.CreateProfileCalls) + len(m.MergeProfileCalls)
}

func (m *MockProfileRepository) FindProfile(ctx context.Context, uid string) (*domain.UserProfile, error) {
	m.mu.Lock()
	m.FindProfileCalls = append(m.FindProfileCalls, uid)
	hook := m.BeforeFind
	m.mu.Unlock()

	if hook != nil {
		hook(ctx, uid)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FindProfileError != nil {
		return nil, m.FindProfileError
	}
	p, ok := m.profiles[uid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *MockProfileRepository) CreateProfile(ctx context.Context, profile domain.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateProfileCalls = append(m.CreateProfileCalls, profile)
	if m.CreateProfileError != nil {
		return m.CreateProfileError
	}
	m.putLocked(profile)
	return nil
}

func (m *MockProfileRepository) MergeProfile(ctx context.Context, uid string, patch domain.ProfilePatch, stampDonorTime bool) (*domain.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.MergeProfileCalls = append(m.MergeProfileCalls, patch)
	if m.MergeProfileError != nil {
		return nil, m.MergeProfileError
	}

	current, ok := m.profiles[uid]
	if !ok {
		current = domain.UserProfile{UID: uid}
	}
	merged := patch.Apply(current)
	if stampDonorTime && merged.DonorRegistrationTime == nil {
		now := m.Now()
		merged.DonorRegistrationTime = &now
	}
	m.putLocked(merged)
	return &merged, nil
}

func (m *MockProfileRepository) ListDonors(ctx context.Context) ([]domain.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListDonorsCalls++
	if m.ListDonorsError != nil {
		return nil, m.ListDonorsError
	}

	var donors []domain.UserProfile
	for _, uid := range m.order {
		if p := m.profiles[uid]; p.IsDonor {
			donors = append(donors, p)
		}
	}
	return donors, nil
}

// MockBloodRequestRepository implements ports.BloodRequestRepository.
type MockBloodRequestRepository struct {
	mu sync.RWMutex

	docs []domain.BloodRequestDoc

	Now func() time.Time

	CreateRequestCalls []domain.NewBloodRequest
	ListCalls          int

	CreateRequestError error
	ListError          error
}

var _ ports.BloodRequestRepository = (*MockBloodRequestRepository)(nil)

func NewMockBloodRequestRepository() *MockBloodRequestRepository {
	return &MockBloodRequestRepository{Now: time.Now}
}

// SeedDoc stores a document as-is, including malformed ones.
func (m *MockBloodRequestRepository) SeedDoc(doc domain.BloodRequestDoc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	m.docs = append(m.docs, doc)
}

func (m *MockBloodRequestRepository) CreateRequest(ctx context.Context, req domain.NewBloodRequest) (*domain.BloodRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateRequestCalls = append(m.CreateRequestCalls, req)
	if m.CreateRequestError != nil {
		return nil, m.CreateRequestError
	}

	created := domain.BloodRequest{
		ID:            uuid.NewString(),
		RequesterUID:  req.RequesterUID,
		PatientName:   req.PatientName,
		RequesterName: req.RequesterName,
		BloodGroup:    req.BloodGroup,
		Location:      req.Location,
		HospitalName:  req.HospitalName,
		ContactInfo:   req.ContactInfo,
		Urgency:       req.Urgency,
		Notes:         req.Notes,
		CreatedAt:     m.Now(),
		Status:        domain.RequestOpen,
	}
	m.docs = append(m.docs, created.Doc())
	return &created, nil
}

func (m *MockBloodRequestRepository) FindRequest(ctx context.Context, id string) (*domain.BloodRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.docs {
		if d.ID == id {
			req := d.Request()
			return &req, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListOpenRequests filters on status and sorts newest first. Documents without
// createdAt sort last.
func (m *MockBloodRequestRepository) ListOpenRequests(ctx context.Context) ([]domain.BloodRequestDoc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListCalls++
	if m.ListError != nil {
		return nil, m.ListError
	}

	var open []domain.BloodRequestDoc
	for _, d := range m.docs {
		if d.Status != nil && *d.Status == string(domain.RequestOpen) {
			open = append(open, d)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		a, b := open[i].CreatedAt, open[j].CreatedAt
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.After(*b)
	})
	return open, nil
}

// MockAccountRepository implements ports.AccountRepository keyed by
// case-folded email.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account

	FindByEmailCalls   []string
	CreateAccountCalls []domain.Account

	FindByEmailError   error
	CreateAccountError error
}

var _ ports.AccountRepository = (*MockAccountRepository)(nil)

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{accounts: make(map[string]domain.Account)}
}

func (m *MockAccountRepository) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FindByEmailCalls = append(m.FindByEmailCalls, email)
	if m.FindByEmailError != nil {
		return nil, m.FindByEmailError
	}
	a, ok := m.accounts[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (m *MockAccountRepository) CreateAccount(ctx context.Context, account domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateAccountCalls = append(m.CreateAccountCalls, account)
	if m.CreateAccountError != nil {
		return m.CreateAccountError
	}
	key := strings.ToLower(account.Email)
	if _, ok := m.accounts[key]; ok {
		return domain.ErrEmailInUse
	}
	m.accounts[key] = account
	return nil
}
