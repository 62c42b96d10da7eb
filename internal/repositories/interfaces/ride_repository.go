package interfaces

import (
	"context"
	"time"

	"ridelink/internal/models"
	"ridelink/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RideRepository owns Ride records. Status-changing writes go through
// UpdateStatusFrom so every transition is guarded by an optimistic check
// on the status the caller read; a write that lost the race fails with a
// Conflict AppError instead of overwriting a newer status.
type RideRepository interface {
	Create(ctx context.Context, ride *models.Ride) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error)

	// UpdateStatusFrom applies updates (which must contain the new
	// status) only while the stored status still equals from. Returns
	// NotFound if the ride no longer exists and Conflict if the status
	// moved on since it was read.
	UpdateStatusFrom(ctx context.Context, id primitive.ObjectID, from models.RideStatus, updates map[string]interface{}) (*models.Ride, error)

	// AttachReview sets the review on a completed ride.
	AttachReview(ctx context.Context, id primitive.ObjectID, review *models.Review) (*models.Ride, error)

	// ListAvailable returns unassigned rides still collecting offers for
	// the given vehicle type; forGroup selects group rides with a group
	// admin instead of matching on vehicle type.
	ListAvailable(ctx context.Context, vehicleType models.VehicleType, forGroup bool) ([]*models.Ride, error)

	ListActiveByPassenger(ctx context.Context, passengerID primitive.ObjectID) ([]*models.Ride, error)
	ListByPassengerAndStatus(ctx context.Context, passengerID primitive.ObjectID, statuses []models.RideStatus, params *utils.PaginationParams) ([]*models.Ride, int64, error)
	ListByDriverAndStatus(ctx context.Context, driverID primitive.ObjectID, statuses []models.RideStatus, params *utils.PaginationParams) ([]*models.Ride, int64, error)

	// ExpirePending transitions every pending ride whose deadline has
	// passed to expired, returning the ids that moved. Idempotent; a
	// ride claimed mid-sweep simply stops matching and is skipped.
	ExpirePending(ctx context.Context, now time.Time) ([]primitive.ObjectID, error)
}
