package ports

import (
	"context"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
)

type ProfileRepository interface {
	// FindProfile returns domain.ErrNotFound when no profile exists for uid.
	FindProfile(ctx context.Context, uid string) (*domain.UserProfile, error)
	CreateProfile(ctx context.Context, profile domain.UserProfile) error
	// MergeProfile applies patch to the stored profile (creating it if absent).
	// When stampDonorTime is set and the stored time is unset, the store's clock
	// fills donorRegistrationTime.
	MergeProfile(ctx context.Context, uid string, patch domain.ProfilePatch, stampDonorTime bool) (*domain.UserProfile, error)
	ListDonors(ctx context.Context) ([]domain.UserProfile, error)
}

type BloodRequestRepository interface {
	CreateRequest(ctx context.Context, req domain.NewBloodRequest) (*domain.BloodRequest, error)
	FindRequest(ctx context.Context, id string) (*domain.BloodRequest, error)
	ListOpenRequests(ctx context.Context) ([]domain.BloodRequestDoc, error)
}

type AccountRepository interface {
	FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	CreateAccount(ctx context.Context, account domain.Account) error
}
