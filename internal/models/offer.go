package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Offer is a driver's bid against a pending or offered ride. At most one
// live offer exists per (ride, driver) pair; the storage layer enforces
// that with a unique compound index.
type Offer struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RideID   primitive.ObjectID `json:"ride_id" bson:"ride_id" validate:"required"`
	DriverID primitive.ObjectID `json:"driver_id" bson:"driver_id" validate:"required"`
	Amount   float64            `json:"amount" bson:"amount" validate:"min=0"`

	// Snapshot of the ride's terms when the offer was made, kept for
	// audit and dispute resolution. Never updated after insert.
	RideTerms OfferRideTerms `json:"ride_terms" bson:"ride_terms"`

	OfferedAt time.Time `json:"offered_at" bson:"offered_at"`
}

type OfferRideTerms struct {
	VehicleType VehicleType `json:"vehicle_type" bson:"vehicle_type"`
	FareAmount  float64     `json:"fare_amount" bson:"fare_amount"`
	IsGroupRide bool        `json:"is_group_ride" bson:"is_group_ride"`
}

// SnapshotTerms captures the ride fields an offer must preserve.
func SnapshotTerms(r *Ride) OfferRideTerms {
	return OfferRideTerms{
		VehicleType: r.VehicleType,
		FareAmount:  r.FareAmount,
		IsGroupRide: r.IsGroupRide,
	}
}
