package interfaces

import (
	"context"

	"ridelink/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OfferRepository owns the offer ledger: at most one live offer per
// (ride, driver) pair, enforced by a unique compound index so duplicate
// submissions fail deterministically with Conflict.
type OfferRepository interface {
	Create(ctx context.Context, offer *models.Offer) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Offer, error)
	GetByRideAndDriver(ctx context.Context, rideID, driverID primitive.ObjectID) (*models.Offer, error)
	ListByRide(ctx context.Context, rideID primitive.ObjectID) ([]*models.Offer, error)
	CountByRide(ctx context.Context, rideID primitive.ObjectID) (int64, error)

	DeleteByRideAndDriver(ctx context.Context, rideID, driverID primitive.ObjectID) error

	// DeleteByRide voids every offer on a ride (decline, expiry, cancel).
	DeleteByRide(ctx context.Context, rideID primitive.ObjectID) (int64, error)

	// DeleteByRideExcept voids every competing offer once one is accepted.
	DeleteByRideExcept(ctx context.Context, rideID, offerID primitive.ObjectID) (int64, error)
}
