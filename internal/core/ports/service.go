package ports

import (
	"context"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
)

type SupportAssistant interface {
	Answer(ctx context.Context, question string) (string, error)
}

type DonorMatcher interface {
	Match(ctx context.Context, req domain.MatchRequest, donors []domain.MatchCandidate) ([]domain.DonorMatch, error)
}
