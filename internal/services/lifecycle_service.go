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

// LifecycleService enforces the ride state machine. It is the only
// writer of Ride.status: every transition validates the requested move
// against the current status and the caller's identity, then applies it
// through the store's optimistic status check. A transition that lost a
// race returns Conflict so the caller re-reads instead of retrying the
// stale decision.
type LifecycleService interface {
	CreateRide(ctx context.Context, passenger models.Actor, req *models.RideRequest) (*models.Ride, error)
	GetRide(ctx context.Context, passenger models.Actor, rideID primitive.ObjectID) (*models.Ride, error)
	ListActiveRides(ctx context.Context, passenger models.Actor) ([]*models.Ride, error)
	PassengerHistory(ctx context.Context, passenger models.Actor, params *utils.PaginationParams) ([]*models.Ride, int64, error)
	DriverHistory(ctx context.Context, driver models.Actor, params *utils.PaginationParams) ([]*models.Ride, int64, error)

	ReportArrival(ctx context.Context, driver models.Actor, rideID primitive.ObjectID) (*models.Ride, error)
	ConfirmComing(ctx context.Context, passenger models.Actor, rideID primitive.ObjectID) (*models.Ride, error)
	StartRide(ctx context.Context, driver models.Actor, rideID primitive.ObjectID) (*models.Ride, error)
	CompleteRide(ctx context.Context, driver models.Actor, rideID primitive.ObjectID) (*models.Ride, error)
	CancelRide(ctx context.Context, actor models.Actor, rideID primitive.ObjectID) (*models.Ride, error)
	AttachReview(ctx context.Context, passenger models.Actor, rideID primitive.ObjectID, rating int, comment string) (*models.Ride, error)
}

type lifecycleService struct {
	rideRepo  interfaces.RideRepository
	offerRepo interfaces.OfferRepository
	notifier  *Notifier
	logger    *logger.Logger
}

func NewLifecycleService(
	rideRepo interfaces.RideRepository,
	offerRepo interfaces.OfferRepository,
	notifier *Notifier,
	log *logger.Logger,
) LifecycleService {
	return &lifecycleService{
		rideRepo:  rideRepo,
		offerRepo: offerRepo,
		notifier:  notifier,
		logger:    log,
	}
}

func (s *lifecycleService) CreateRide(ctx context.Context, passenger models.Actor, req *models.RideRequest) (*models.Ride, error) {
	if !passenger.IsPassenger() {
		return nil, utils.NewUnauthorized("only passengers create rides")
	}
	if err := validateRideRequest(req); err != nil {
		return nil, err
	}
	if !req.PassengerID.IsZero() && req.PassengerID != passenger.ID {
		return nil, utils.NewUnauthorized("ride request belongs to a different passenger")
	}

	now := time.Now()
	ride := &models.Ride{
		PassengerID:      passenger.ID,
		PickUpLocation:   req.PickUpLocation,
		DropOffLocations: req.DropOffLocations,
		VehicleType:      req.VehicleType,
		FareAmount:       req.FareAmount,
		IsGroupRide:      req.IsGroupRide,
		GroupID:          req.GroupID,
		GroupAdminID:     req.GroupAdminID,
		ExpiresAt:        now.Add(utils.RideRequestTTL),
	}
	if req.FareAmount == 0 && req.SuggestedFare != nil {
		ride.FareAmount = *req.SuggestedFare
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	s.logger.WithRideID(ride.ID).WithActorID(passenger.ID).Info("Ride created")
	s.notifier.RideTransitioned(ride, "", passenger.ID)
	return ride, nil
}

// validateRideRequest is the single boundary check for creation input.
func validateRideRequest(req *models.RideRequest) error {
	if req == nil {
		return utils.NewInvalidInput("missing ride request")
	}
	if !req.VehicleType.Valid() {
		return utils.NewInvalidInput("invalid vehicle type %q", string(req.VehicleType))
	}
	if !req.PickUpLocation.ValidPoint() {
		return utils.NewInvalidInput("pickup location must be a valid GeoJSON point")
	}
	if len(req.DropOffLocations) < 1 || len(req.DropOffLocations) > utils.MaxDropOffPoints {
		return utils.NewInvalidInput("between 1 and %d drop-off locations required", utils.MaxDropOffPoints)
	}
	for i, loc := range req.DropOffLocations {
		if !loc.ValidPoint() {
			return utils.NewInvalidInput("drop-off location %d must be a valid GeoJSON point", i)
		}
	}
	if req.FareAmount < 0 {
		return utils.NewInvalidInput("fare amount must not be negative")
	}
	if req.VehicleType == models.VehicleTypeTourbus && !req.IsGroupRide {
		return utils.NewInvalidInput("tourbus rides must be group rides")
	}
	if req.IsGroupRide && req.GroupAdminID == nil {
		return utils.NewInvalidInput("group rides require a group admin")
	}
	return nil
}

func (s *lifecycleService) GetRide(ctx context.Context, passenger models.Actor, rideID primitive.ObjectID) (*models.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !ride.IsPassenger(passenger.ID) {
		return nil, utils.NewUnauthorized("ride %s does not belong to caller", rideID.Hex())
	}
	return ride, nil
}

func (s *lifecycleService) ListActiveRides(ctx context.Context, passenger models.Actor) ([]*models.Ride, error) {
	return s.rideRepo.ListActiveByPassenger(ctx, passenger.ID)
}

func (s *lifecycleService) PassengerHistory(ctx context.Context, passenger models.Actor, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	statuses := []models.RideStatus{models.RideStatusCompleted, models.RideStatusCancelled}
	return s.rideRepo.ListByPassengerAndStatus(ctx, passenger.ID, statuses, params)
}

func (s *lifecycleService) DriverHistory(ctx context.Context, driver models.Actor, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	statuses := []models.RideStatus{
		models.RideStatusAccepted,
		models.RideStatusArrived,
		models.RideStatusStarted,
		models.RideStatusCompleted,
		models.RideStatusCancelled,
	}
	return s.rideRepo.ListByDriverAndStatus(ctx, driver.ID, statuses, params)
}

func (s *lifecycleService) ReportArrival(ctx context.Context, driver models.Actor, rideID primitive.ObjectID) (*models.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !ride.IsAssignedDriver(driver.ID) {
		return nil, utils.NewUnauthorized("ride %s is not assigned to caller", rideID.Hex())
	}
	if ride.Status != models.RideStatusAccepted {
		return nil, utils.NewInvalidState("cannot report arrival: ride is %s, not %s", ride.Status, models.RideStatusAccepted)
	}

	updated, err := s.rideRepo.UpdateStatusFrom(ctx, rideID, models.RideStatusAccepted, map[string]interface{}{
		"status": models.RideStatusArrived,
	})
	if err != nil {
		return nil, s.conflictToTyped(err)
	}

	s.commit(updated, models.RideStatusAccepted, driver.ID)
	return updated, nil
}

func (s *lifecycleService) ConfirmComing(ctx context.Context, passenger models.Actor, rideID primitive.ObjectID) (*models.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !ride.IsPassenger(passenger.ID) {
		return nil, utils.NewUnauthorized("ride %s does not belong to caller", rideID.Hex())
	}
	if ride.Status != models.RideStatusArrived {
		return nil, utils.NewInvalidState("cannot confirm: driver has not arrived, ride is %s", ride.Status)
	}

	// Not a status change, but guarded on arrived so the signal cannot
	// land on a ride that moved on.
	updated, err := s.rideRepo.UpdateStatusFrom(ctx, rideID, models.RideStatusArrived, map[string]interface{}{
		"status":                 models.RideStatusArrived,
		"passenger_confirmation": models.PassengerComing,
	})
	if err != nil {
		return nil, s.conflictToTyped(err)
	}

	s.logger.WithRideID(rideID).WithActorID(passenger.ID).Info("Passenger confirmed coming")
	return updated, nil
}

func (s *lifecycleService) StartRide(ctx context.Context, driver models.Actor, rideID primitive.ObjectID) (*models.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !ride.IsAssignedDriver(driver.ID) {
		return nil, utils.NewUnauthorized("ride %s is not assigned to caller", rideID.Hex())
	}
	if ride.Status != models.RideStatusArrived {
		return nil, utils.NewInvalidState("cannot start: ride is %s, not %s", ride.Status, models.RideStatusArrived)
	}
	if ride.PassengerConfirmation != models.PassengerComing {
		return nil, utils.NewInvalidState("cannot start: passenger has not confirmed coming")
	}

	updated, err := s.rideRepo.UpdateStatusFrom(ctx, rideID, models.RideStatusArrived, map[string]interface{}{
		"status": models.RideStatusStarted,
	})
	if err != nil {
		return nil, s.conflictToTyped(err)
	}

	s.commit(updated, models.RideStatusArrived, driver.ID)
	return updated, nil
}

func (s *lifecycleService) CompleteRide(ctx context.Context, driver models.Actor, rideID primitive.ObjectID) (*models.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !ride.IsAssignedDriver(driver.ID) {
		return nil, utils.NewUnauthorized("ride %s is not assigned to caller", rideID.Hex())
	}
	if ride.Status != models.RideStatusStarted {
		return nil, utils.NewInvalidState("cannot complete: ride is %s, not %s", ride.Status, models.RideStatusStarted)
	}

	updated, err := s.rideRepo.UpdateStatusFrom(ctx, rideID, models.RideStatusStarted, map[string]interface{}{
		"status": models.RideStatusCompleted,
	})
	if err != nil {
		return nil, s.conflictToTyped(err)
	}

	s.commit(updated, models.RideStatusStarted, driver.ID)
	return updated, nil
}

// CancelRide breaks a confirmed match. Drivers may cancel from accepted
// or arrived and the cancel unassigns them; passengers may cancel up to
// and including started and the record keeps the driver for audit.
// Pending and offered rides are withdrawn through the reject path
// instead, so "no match made" stays distinguishable from "match broken".
func (s *lifecycleService) CancelRide(ctx context.Context, actor models.Actor, rideID primitive.ObjectID) (*models.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"status": models.RideStatusCancelled}

	switch actor.Role {
	case models.RoleDriver:
		if !ride.IsAssignedDriver(actor.ID) {
			return nil, utils.NewUnauthorized("ride %s is not assigned to caller", rideID.Hex())
		}
		if ride.Status != models.RideStatusAccepted && ride.Status != models.RideStatusArrived {
			return nil, utils.NewInvalidState("driver cannot cancel a ride that is %s", ride.Status)
		}
		updates["cancelled_by"] = models.CancelledByDriver
		updates["driver_id"] = nil
		updates["fare_amount_driver"] = nil
	case models.RolePassenger:
		if !ride.IsPassenger(actor.ID) {
			return nil, utils.NewUnauthorized("ride %s does not belong to caller", rideID.Hex())
		}
		switch ride.Status {
		case models.RideStatusAccepted, models.RideStatusArrived, models.RideStatusStarted:
		default:
			return nil, utils.NewInvalidState("passenger cannot cancel a ride that is %s", ride.Status)
		}
		updates["cancelled_by"] = models.CancelledByPassenger
	default:
		return nil, utils.NewUnauthorized("unknown role %q", string(actor.Role))
	}

	updated, err := s.rideRepo.UpdateStatusFrom(ctx, rideID, ride.Status, updates)
	if err != nil {
		return nil, s.conflictToTyped(err)
	}

	s.commit(updated, ride.Status, actor.ID)
	return updated, nil
}

func (s *lifecycleService) AttachReview(ctx context.Context, passenger models.Actor, rideID primitive.ObjectID, rating int, comment string) (*models.Ride, error) {
	if rating < utils.MinReviewRating || rating > utils.MaxReviewRating {
		return nil, utils.NewInvalidInput("rating must be between %d and %d", utils.MinReviewRating, utils.MaxReviewRating)
	}
	if len(comment) > utils.MaxReviewComment {
		return nil, utils.NewInvalidInput("comment must not exceed %d characters", utils.MaxReviewComment)
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !ride.IsPassenger(passenger.ID) {
		return nil, utils.NewUnauthorized("ride %s does not belong to caller", rideID.Hex())
	}

	review := &models.Review{
		Rating:     rating,
		Comment:    comment,
		ReviewedAt: time.Now(),
	}
	updated, err := s.rideRepo.AttachReview(ctx, rideID, review)
	if err != nil {
		return nil, err
	}

	s.logger.WithRideID(rideID).WithActorID(passenger.ID).WithField("rating", rating).Info("Review attached")
	return updated, nil
}

// commit handles the bookkeeping every successful transition shares.
func (s *lifecycleService) commit(ride *models.Ride, previous models.RideStatus, actorID primitive.ObjectID) {
	observability.TransitionsTotal.WithLabelValues(string(previous), string(ride.Status)).Inc()
	s.logger.LogTransition(ride.ID, actorID, string(previous), string(ride.Status))
	s.notifier.RideTransitioned(ride, previous, actorID)
}

// conflictToTyped counts lost races; the typed error passes through
// unchanged so the caller sees Conflict and knows to re-read.
func (s *lifecycleService) conflictToTyped(err error) error {
	if utils.IsCode(err, utils.CodeConflict) {
		observability.TransitionConflicts.Inc()
	}
	return err
}
