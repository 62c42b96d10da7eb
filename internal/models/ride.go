package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideStatus string
type VehicleType string

const (
	RideStatusPending   RideStatus = "pending"
	RideStatusOffered   RideStatus = "offered"
	RideStatusAccepted  RideStatus = "accepted"
	RideStatusRejected  RideStatus = "rejected"
	RideStatusArrived   RideStatus = "arrived"
	RideStatusStarted   RideStatus = "started"
	RideStatusCompleted RideStatus = "completed"
	RideStatusCancelled RideStatus = "cancelled"
	RideStatusExpired   RideStatus = "expired"

	VehicleTypeMiniCar VehicleType = "mini car"
	VehicleTypeACCar   VehicleType = "ac car"
	VehicleTypeBike    VehicleType = "bike"
	VehicleTypeAuto    VehicleType = "auto"
	VehicleTypeTourbus VehicleType = "tourbus"

	// PassengerComing is the only recognized value of
	// Ride.PassengerConfirmation; the driver may not start the ride
	// until the passenger has signalled it.
	PassengerComing = "coming"
)

// CancelledBy records which side broke a confirmed match.
const (
	CancelledByDriver    = "driver"
	CancelledByPassenger = "passenger"
)

type Review struct {
	Rating     int       `json:"rating" bson:"rating"`
	Comment    string    `json:"comment" bson:"comment"`
	ReviewedAt time.Time `json:"reviewed_at" bson:"reviewed_at"`
}

// Ride is the unit of work being matched and fulfilled. Status is owned
// exclusively by the lifecycle service; every status write goes through a
// compare-and-swap on the previously read status.
type Ride struct {
	ID                    primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	PassengerID           primitive.ObjectID  `json:"passenger_id" bson:"passenger_id" validate:"required"`
	DriverID              *primitive.ObjectID `json:"driver_id" bson:"driver_id"`
	PickUpLocation        Location            `json:"pickup_location" bson:"pickup_location" validate:"required"`
	DropOffLocations      []Location          `json:"dropoff_locations" bson:"dropoff_locations" validate:"required,min=1,max=3"`
	VehicleType           VehicleType         `json:"vehicle_type" bson:"vehicle_type" validate:"required"`
	FareAmount            float64             `json:"fare_amount" bson:"fare_amount" validate:"min=0"`
	FareAmountDriver      *float64            `json:"fare_amount_driver" bson:"fare_amount_driver"`
	Status                RideStatus          `json:"status" bson:"status"`
	PassengerConfirmation string              `json:"passenger_confirmation,omitempty" bson:"passenger_confirmation,omitempty"`
	IsGroupRide           bool                `json:"is_group_ride" bson:"is_group_ride"`
	GroupID               *primitive.ObjectID `json:"group_id" bson:"group_id"`
	GroupAdminID          *primitive.ObjectID `json:"group_admin_id" bson:"group_admin_id"`
	Review                *Review             `json:"review,omitempty" bson:"review,omitempty"`
	CancelledBy           string              `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty"`
	CreatedAt             time.Time           `json:"created_at" bson:"created_at"`
	ExpiresAt             time.Time           `json:"expires_at" bson:"expires_at"`
	UpdatedAt             time.Time           `json:"updated_at" bson:"updated_at"`
}

func (s RideStatus) Valid() bool {
	switch s {
	case RideStatusPending, RideStatusOffered, RideStatusAccepted, RideStatusRejected,
		RideStatusArrived, RideStatusStarted, RideStatusCompleted, RideStatusCancelled,
		RideStatusExpired:
		return true
	}
	return false
}

// Terminal reports whether no further transition may leave s.
func (s RideStatus) Terminal() bool {
	switch s {
	case RideStatusCompleted, RideStatusCancelled, RideStatusExpired, RideStatusRejected:
		return true
	}
	return false
}

func (v VehicleType) Valid() bool {
	switch v {
	case VehicleTypeMiniCar, VehicleTypeACCar, VehicleTypeBike, VehicleTypeAuto, VehicleTypeTourbus:
		return true
	}
	return false
}

// Biddable reports whether the ride can still collect driver offers.
func (r *Ride) Biddable() bool {
	return r.Status == RideStatusPending || r.Status == RideStatusOffered
}

func (r *Ride) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

func (r *Ride) IsPassenger(id primitive.ObjectID) bool {
	return r.PassengerID == id
}

func (r *Ride) IsAssignedDriver(id primitive.ObjectID) bool {
	return r.DriverID != nil && *r.DriverID == id
}
