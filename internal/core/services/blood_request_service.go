package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/forms"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
)

type BloodRequestService struct {
	requests  ports.BloodRequestRepository
	publisher ports.RequestEventPublisher
	submitter *Submitter
	logger    *zap.Logger
}

// NewBloodRequestService accepts a nil publisher when no broker is configured.
func NewBloodRequestService(
	requests ports.BloodRequestRepository,
	publisher ports.RequestEventPublisher,
	submitter *Submitter,
	logger *zap.Logger,
) *BloodRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BloodRequestService{
		requests:  requests,
		publisher: publisher,
		submitter: submitter,
		logger:    logger,
	}
}

// Create stores an open request owned by the signed-in user and announces it.
// The store assigns id and createdAt.
func (s *BloodRequestService) Create(ctx context.Context, user domain.SessionUser, form forms.RequestBlood) (*domain.BloodRequest, error) {
	var created *domain.BloodRequest
	err := s.submitter.Submit(ctx, "request-blood", form, user.UID, func(ctx context.Context) error {
		req, err := s.requests.CreateRequest(ctx, form.NewRequest(user.UID))
		if err != nil {
			return fmt.Errorf("create blood request: %w", err)
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("blood request created",
		zap.String("request_id", created.ID),
		zap.String("blood_group", string(created.BloodGroup)),
		zap.String("urgency", string(created.Urgency)))

	s.announce(ctx, created)
	return created, nil
}

// announce is best-effort: the request is already stored.
func (s *BloodRequestService) announce(ctx context.Context, req *domain.BloodRequest) {
	if s.publisher == nil {
		return
	}
	evt := ports.BloodRequestCreatedEvent{
		RequestID:  req.ID,
		BloodGroup: string(req.BloodGroup),
		Location:   req.Location,
		Urgency:    string(req.Urgency),
		CreatedAt:  req.CreatedAt,
	}
	if err := s.publisher.PublishRequestCreated(ctx, evt); err != nil {
		s.logger.Warn("failed to publish blood request event",
			zap.String("request_id", req.ID), zap.Error(err))
	}
}

func (s *BloodRequestService) Find(ctx context.Context, id string) (*domain.BloodRequest, error) {
	req, err := s.requests.FindRequest(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find blood request %s: %w", id, err)
	}
	return req, nil
}
