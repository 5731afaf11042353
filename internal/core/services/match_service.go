package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
)

// SuggestInput names a stored request by id or carries one inline. Donors
// default to the donor directory when omitted.
type SuggestInput struct {
	RequestID    string                  `json:"requestId,omitempty"`
	BloodRequest *domain.MatchRequest    `json:"bloodRequest,omitempty"`
	Donors       []domain.MatchCandidate `json:"donors,omitempty"`
}

type MatchService struct {
	matcher  ports.DonorMatcher
	requests ports.BloodRequestRepository
	donors   *DonorDirectory
}

func NewMatchService(matcher ports.DonorMatcher, requests ports.BloodRequestRepository, donors *DonorDirectory) *MatchService {
	return &MatchService{matcher: matcher, requests: requests, donors: donors}
}

func (s *MatchService) Suggest(ctx context.Context, in SuggestInput) ([]domain.DonorMatch, error) {
	req, err := s.request(ctx, in)
	if err != nil {
		return nil, err
	}

	donors := in.Donors
	if donors == nil {
		donors, err = s.donors.Candidates(ctx)
		if err != nil {
			return nil, err
		}
	}

	return s.matcher.Match(ctx, req, donors)
}

func (s *MatchService) request(ctx context.Context, in SuggestInput) (domain.MatchRequest, error) {
	if in.RequestID == "" {
		if in.BloodRequest == nil {
			return domain.MatchRequest{}, &domain.ValidationError{
				Field:   "bloodRequest",
				Message: "A blood request or requestId is required.",
			}
		}
		return *in.BloodRequest, nil
	}

	stored, err := s.requests.FindRequest(ctx, in.RequestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.MatchRequest{}, err
		}
		return domain.MatchRequest{}, fmt.Errorf("load blood request %s: %w", in.RequestID, err)
	}

	req := domain.MatchRequest{
		PatientName:   stored.PatientName,
		RequesterName: stored.RequesterName,
		BloodGroup:    string(stored.BloodGroup),
		Location:      stored.Location,
		ContactInfo:   stored.ContactInfo,
		Urgency:       string(stored.Urgency),
	}
	if stored.Notes != nil {
		req.Notes = *stored.Notes
	}
	return req, nil
}
