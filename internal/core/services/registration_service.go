package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/forms"
)

// RegistrationService handles the donor form and the profile editor. Both
// write through the client's ProfileSync, never to the store directly.
type RegistrationService struct {
	registry  *SyncRegistry
	submitter *Submitter
	logger    *zap.Logger
}

func NewRegistrationService(registry *SyncRegistry, submitter *Submitter, logger *zap.Logger) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		registry:  registry,
		submitter: submitter,
		logger:    logger,
	}
}

// State resolves the profile state for the session's client.
func (s *RegistrationService) State(ctx context.Context, session domain.Session) (SyncState, error) {
	ps, err := s.registry.Attach(ctx, session.ClientID)
	if err != nil {
		return SyncState{}, fmt.Errorf("attach client %s: %w", session.ClientID, err)
	}
	return ps.Await(ctx, session.ID)
}

// RegisterDonor flags the signed-in user as a donor with the submitted details.
func (s *RegistrationService) RegisterDonor(ctx context.Context, session domain.Session, form forms.Donate) (*domain.UserProfile, error) {
	profile, err := s.update(ctx, session, "donate", form, func(SyncState) domain.ProfilePatch {
		return form.Patch()
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("donor registered",
		zap.String("uid", profile.UID),
		zap.Timep("donor_registration_time", profile.DonorRegistrationTime))
	return profile, nil
}

// UpdateProfile saves the profile editor. Blood group is only written for donors.
func (s *RegistrationService) UpdateProfile(ctx context.Context, session domain.Session, form forms.Profile) (*domain.UserProfile, error) {
	return s.update(ctx, session, "profile", form, func(st SyncState) domain.ProfilePatch {
		return form.Patch(st.Profile != nil && st.Profile.IsDonor)
	})
}

// Unmount drops the client's ProfileSync and its subscription.
func (s *RegistrationService) Unmount(clientID string) error {
	return s.registry.Detach(clientID)
}

func (s *RegistrationService) update(
	ctx context.Context,
	session domain.Session,
	name string,
	form any,
	patch func(SyncState) domain.ProfilePatch,
) (*domain.UserProfile, error) {
	var updated *domain.UserProfile
	err := s.submitter.Submit(ctx, name, form, session.User.UID, func(ctx context.Context) error {
		ps, err := s.registry.Attach(ctx, session.ClientID)
		if err != nil {
			return fmt.Errorf("attach client %s: %w", session.ClientID, err)
		}
		state, err := ps.Await(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("await profile for session %s: %w", session.ID, err)
		}
		updated, err = ps.UpdateUserProfile(ctx, session.ID, patch(state))
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
