package services

import (
	"context"
	"time"

	"ridelink/internal/models"
	"ridelink/internal/observability"
	"ridelink/internal/repositories/interfaces"
	"ridelink/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SweeperService retires stale pending rides. Expiry is cooperative: the
// sweep polls expires_at rather than preempting anything, and a driver
// mid-offer on an about-to-expire ride may simply lose the race.
type SweeperService interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
	Run(ctx context.Context, interval time.Duration)
}

type sweeperService struct {
	rideRepo interfaces.RideRepository
	notifier *Notifier
	logger   *logger.Logger
}

func NewSweeperService(rideRepo interfaces.RideRepository, notifier *Notifier, log *logger.Logger) SweeperService {
	return &sweeperService{
		rideRepo: rideRepo,
		notifier: notifier,
		logger:   log,
	}
}

func (s *sweeperService) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	start := time.Now()
	expired, err := s.rideRepo.ExpirePending(ctx, now)
	observability.SweepDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return int64(len(expired)), err
	}

	for _, id := range expired {
		// System actor: expiry has no human initiator.
		s.notifier.RideTransitioned(&models.Ride{
			ID:        id,
			Status:    models.RideStatusExpired,
			ExpiresAt: now,
		}, models.RideStatusPending, primitive.NilObjectID)
	}

	if len(expired) > 0 {
		observability.RidesExpired.Add(float64(len(expired)))
		s.logger.WithField("count", len(expired)).Info("Expired stale pending rides")
	}
	return int64(len(expired)), nil
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *sweeperService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.WithField("interval", interval.String()).Info("Expiry sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Expiry sweeper stopped")
			return
		case now := <-ticker.C:
			if _, err := s.SweepExpired(ctx, now); err != nil {
				s.logger.WithError(err).Warn("Expiry sweep failed")
			}
		}
	}
}
