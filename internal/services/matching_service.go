package services

import (
	"context"
	"time"

	"ridelink/internal/models"
	"ridelink/internal/observability"
	"ridelink/internal/repositories/interfaces"
	"ridelink/internal/utils"
	"ridelink/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// acceptRetries bounds the read-decide-write loop in AcceptOffer. A
// retry only happens when the ride is still accept-eligible after a lost
// race (pending slid to offered under us); anything else fails fast.
const acceptRetries = 3

// MatchingService computes per-driver ride visibility and mediates the
// offer ledger. It is the sole writer of Offer records; ride status moves
// stay behind the same optimistic check the lifecycle service uses.
type MatchingService interface {
	ListAvailableRides(ctx context.Context, driver models.Actor) ([]*models.Ride, error)
	SubmitOffer(ctx context.Context, driver models.Actor, rideID primitive.ObjectID, amount float64) (*models.Offer, error)
	WithdrawOffer(ctx context.Context, driver models.Actor, rideID primitive.ObjectID) (*models.Ride, error)

	ListOffers(ctx context.Context, passenger models.Actor, rideID primitive.ObjectID) ([]*models.Offer, error)
	AcceptOffer(ctx context.Context, passenger models.Actor, rideID, offerID primitive.ObjectID) (*models.Ride, error)
	DeclineOffers(ctx context.Context, passenger models.Actor, rideID primitive.ObjectID) (*models.Ride, error)
}

type matchingService struct {
	rideRepo  interfaces.RideRepository
	offerRepo interfaces.OfferRepository
	notifier  *Notifier
	logger    *logger.Logger
	now       func() time.Time
}

func NewMatchingService(
	rideRepo interfaces.RideRepository,
	offerRepo interfaces.OfferRepository,
	notifier *Notifier,
	log *logger.Logger,
) MatchingService {
	return &matchingService{
		rideRepo:  rideRepo,
		offerRepo: offerRepo,
		notifier:  notifier,
		logger:    log,
		now:       time.Now,
	}
}

func (s *matchingService) ListAvailableRides(ctx context.Context, driver models.Actor) ([]*models.Ride, error) {
	if !driver.IsDriver() {
		return nil, utils.NewUnauthorized("only drivers list available rides")
	}
	if driver.VehicleType == "" {
		return nil, utils.NewConfigurationError("driver has no registered vehicle type")
	}
	if !driver.VehicleType.Valid() {
		return nil, utils.NewConfigurationError("unknown vehicle type %q", string(driver.VehicleType))
	}

	forGroup := driver.VehicleType == models.VehicleTypeTourbus
	return s.rideRepo.ListAvailable(ctx, driver.VehicleType, forGroup)
}

func (s *matchingService) SubmitOffer(ctx context.Context, driver models.Actor, rideID primitive.ObjectID, amount float64) (*models.Offer, error) {
	if !driver.IsDriver() {
		return nil, utils.NewUnauthorized("only drivers submit offers")
	}
	if driver.VehicleType == "" {
		return nil, utils.NewConfigurationError("driver has no registered vehicle type")
	}
	if amount < 0 {
		return nil, utils.NewInvalidInput("offer amount must not be negative")
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !ride.Biddable() {
		return nil, utils.NewInvalidState("ride %s is %s and no longer accepts offers", rideID.Hex(), ride.Status)
	}
	// Only unanswered requests age out; a ride that already collected
	// an offer stays biddable until the passenger decides.
	if ride.Status == models.RideStatusPending && ride.Expired(s.now()) {
		return nil, utils.NewInvalidState("ride %s has expired", rideID.Hex())
	}
	if err := s.checkVehicleMatch(driver, ride); err != nil {
		return nil, err
	}

	offer := &models.Offer{
		RideID:    rideID,
		DriverID:  driver.ID,
		Amount:    amount,
		RideTerms: models.SnapshotTerms(ride),
	}
	if err := s.offerRepo.Create(ctx, offer); err != nil {
		return nil, err
	}

	if ride.Status == models.RideStatusPending {
		if err := s.markOffered(ctx, ride, driver.ID); err != nil {
			// The ride left its biddable window while we were
			// inserting; take the offer back out.
			if delErr := s.offerRepo.DeleteByRideAndDriver(ctx, rideID, driver.ID); delErr != nil {
				s.logger.WithError(delErr).WithRideID(rideID).Warn("Failed to roll back offer")
			}
			return nil, err
		}
	}

	observability.OffersSubmitted.Inc()
	s.logger.WithRideID(rideID).WithActorID(driver.ID).WithField("amount", amount).Info("Offer submitted")
	return offer, nil
}

// markOffered performs the pending -> offered transition for the first
// offer. Losing the race to another driver's first offer is fine; losing
// it to the sweeper or an accept is not.
func (s *matchingService) markOffered(ctx context.Context, ride *models.Ride, driverID primitive.ObjectID) error {
	updated, err := s.rideRepo.UpdateStatusFrom(ctx, ride.ID, models.RideStatusPending, map[string]interface{}{
		"status": models.RideStatusOffered,
	})
	if err == nil {
		s.commitTransition(updated, models.RideStatusPending, driverID)
		return nil
	}
	if !utils.IsCode(err, utils.CodeConflict) {
		return err
	}

	observability.TransitionConflicts.Inc()
	current, readErr := s.rideRepo.GetByID(ctx, ride.ID)
	if readErr != nil {
		return readErr
	}
	if current.Biddable() {
		return nil
	}
	return utils.NewInvalidState("ride %s is %s and no longer accepts offers", ride.ID.Hex(), current.Status)
}

func (s *matchingService) checkVehicleMatch(driver models.Actor, ride *models.Ride) error {
	if driver.VehicleType == models.VehicleTypeTourbus {
		if !ride.IsGroupRide || ride.GroupAdminID == nil {
			return utils.NewInvalidInput("tourbus drivers can only serve group rides")
		}
		return nil
	}
	if ride.IsGroupRide {
		return utils.NewInvalidInput("group rides require a tourbus driver")
	}
	if ride.VehicleType != driver.VehicleType {
		return utils.NewInvalidInput("ride requests %q, driver has %q", string(ride.VehicleType), string(driver.VehicleType))
	}
	return nil
}

// WithdrawOffer removes the driver's own offer. When it was the last
// live offer the ride moves offered -> rejected; with competitors still
// bidding the ride stays offered.
func (s *matchingService) WithdrawOffer(ctx context.Context, driver models.Actor, rideID primitive.ObjectID) (*models.Ride, error) {
	if !driver.IsDriver() {
		return nil, utils.NewUnauthorized("only drivers withdraw offers")
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !ride.Biddable() {
		return nil, utils.NewInvalidState("cannot withdraw: ride %s is %s", rideID.Hex(), ride.Status)
	}

	if err := s.offerRepo.DeleteByRideAndDriver(ctx, rideID, driver.ID); err != nil {
		return nil, err
	}
	observability.OffersVoided.Inc()

	remaining, err := s.offerRepo.CountByRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if remaining == 0 && ride.Status == models.RideStatusOffered {
		updated, err := s.rideRepo.UpdateStatusFrom(ctx, rideID, models.RideStatusOffered, map[string]interface{}{
			"status": models.RideStatusRejected,
		})
		if err == nil {
			s.commitTransition(updated, models.RideStatusOffered, driver.ID)
			return updated, nil
		}
		if !utils.IsCode(err, utils.CodeConflict) {
			return nil, err
		}
		// A competing offer or accept landed between the count and the
		// write; the withdrawal itself still stands.
		observability.TransitionConflicts.Inc()
	}

	s.logger.WithRideID(rideID).WithActorID(driver.ID).Info("Offer withdrawn")
	return s.rideRepo.GetByID(ctx, rideID)
}

func (s *matchingService) ListOffers(ctx context.Context, passenger models.Actor, rideID primitive.ObjectID) ([]*models.Offer, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !ride.IsPassenger(passenger.ID) {
		return nil, utils.NewUnauthorized("ride %s does not belong to caller", rideID.Hex())
	}
	return s.offerRepo.ListByRide(ctx, rideID)
}

// AcceptOffer confirms the match. The ride's status write is the
// linearization point: of N concurrent accepts exactly one commits, and
// every loser observes InvalidState after re-reading. Competing offers
// are voided only after the commit, which is safe because their drivers
// can no longer act on a ride that is already accepted.
func (s *matchingService) AcceptOffer(ctx context.Context, passenger models.Actor, rideID, offerID primitive.ObjectID) (*models.Ride, error) {
	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.RideID != rideID {
		return nil, utils.NewInvalidInput("offer %s does not belong to ride %s", offerID.Hex(), rideID.Hex())
	}

	for attempt := 0; attempt < acceptRetries; attempt++ {
		ride, err := s.rideRepo.GetByID(ctx, rideID)
		if err != nil {
			return nil, err
		}
		if !ride.IsPassenger(passenger.ID) {
			return nil, utils.NewUnauthorized("ride %s does not belong to caller", rideID.Hex())
		}
		if !ride.Biddable() {
			return nil, utils.NewInvalidState("ride %s is %s and can no longer be matched", rideID.Hex(), ride.Status)
		}

		updated, err := s.rideRepo.UpdateStatusFrom(ctx, rideID, ride.Status, map[string]interface{}{
			"status":             models.RideStatusAccepted,
			"driver_id":          offer.DriverID,
			"fare_amount_driver": offer.Amount,
		})
		if err == nil {
			voided, delErr := s.offerRepo.DeleteByRideExcept(ctx, rideID, offerID)
			if delErr != nil {
				s.logger.WithError(delErr).WithRideID(rideID).Warn("Failed to void competing offers")
			} else if voided > 0 {
				observability.OffersVoided.Add(float64(voided))
			}
			s.commitTransition(updated, ride.Status, passenger.ID)
			return updated, nil
		}
		if !utils.IsCode(err, utils.CodeConflict) {
			return nil, err
		}
		// Lost the race; loop re-reads and re-decides. If the ride is
		// no longer biddable the next iteration reports InvalidState.
		observability.TransitionConflicts.Inc()
	}

	return nil, utils.NewConflict("ride %s is under heavy contention, retry", rideID.Hex())
}

// DeclineOffers is the passenger rejecting the marketplace outcome: the
// ride moves to rejected and every offer on it is voided.
func (s *matchingService) DeclineOffers(ctx context.Context, passenger models.Actor, rideID primitive.ObjectID) (*models.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !ride.IsPassenger(passenger.ID) {
		return nil, utils.NewUnauthorized("ride %s does not belong to caller", rideID.Hex())
	}
	if !ride.Biddable() {
		return nil, utils.NewInvalidState("cannot decline: ride %s is %s", rideID.Hex(), ride.Status)
	}

	updated, err := s.rideRepo.UpdateStatusFrom(ctx, rideID, ride.Status, map[string]interface{}{
		"status": models.RideStatusRejected,
	})
	if err != nil {
		if utils.IsCode(err, utils.CodeConflict) {
			observability.TransitionConflicts.Inc()
		}
		return nil, err
	}

	voided, delErr := s.offerRepo.DeleteByRide(ctx, rideID)
	if delErr != nil {
		s.logger.WithError(delErr).WithRideID(rideID).Warn("Failed to void offers on declined ride")
	} else if voided > 0 {
		observability.OffersVoided.Add(float64(voided))
	}

	s.commitTransition(updated, ride.Status, passenger.ID)
	return updated, nil
}

func (s *matchingService) commitTransition(ride *models.Ride, previous models.RideStatus, actorID primitive.ObjectID) {
	observability.TransitionsTotal.WithLabelValues(string(previous), string(ride.Status)).Inc()
	s.logger.LogTransition(ride.ID, actorID, string(previous), string(ride.Status))
	s.notifier.RideTransitioned(ride, previous, actorID)
}
