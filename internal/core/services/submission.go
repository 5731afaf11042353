package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/forms"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
	"github.com/bloodlinkbd/bloodlink-api/internal/metrics"
)

// Submitter runs the shared submit sequence: validate, claim the in-flight
// slot, write once, release.
type Submitter struct {
	guard   ports.InFlightGuard
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewSubmitter accepts a nil guard, in which case duplicate submissions are
// not detected.
func NewSubmitter(guard ports.InFlightGuard, logger *zap.Logger, m *metrics.Metrics) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{guard: guard, logger: logger, metrics: m}
}

// Submit validates form and, if it passes, calls write exactly once while key
// is held. A rejected form never reaches write.
func (s *Submitter) Submit(ctx context.Context, name string, form any, key string, write func(ctx context.Context) error) error {
	if err := forms.Validate(form); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			s.metrics.FormRejected(name, verr.Field)
		}
		return err
	}

	if s.guard != nil {
		key = name + ":" + key
		ok, err := s.guard.Acquire(ctx, key)
		if err != nil {
			return fmt.Errorf("claim submission slot: %w", err)
		}
		if !ok {
			return domain.ErrSubmissionInFlight
		}
		defer func() {
			if err := s.guard.Release(context.WithoutCancel(ctx), key); err != nil {
				s.logger.Warn("failed to release submission slot", zap.String("key", key), zap.Error(err))
			}
		}()
	}

	return write(ctx)
}
