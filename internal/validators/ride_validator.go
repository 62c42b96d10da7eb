package validators

import (
	"ridelink/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PointRequest is the wire form of a GeoJSON position.
type PointRequest struct {
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
}

func (p PointRequest) ToPoint() models.Location {
	return models.NewPoint(p.Longitude, p.Latitude)
}

type CreateRideRequest struct {
	PickUpLocation   PointRequest   `json:"pick_up_location" validate:"required"`
	DropOffLocations []PointRequest `json:"drop_off_locations" validate:"required,min=1,max=3,dive"`
	VehicleType      string         `json:"vehicle_type" validate:"required,oneof='mini car' 'ac car' bike auto tourbus"`
	FareAmount       float64        `json:"fare_amount" validate:"min=0"`
	IsGroupRide      bool           `json:"is_group_ride"`
	GroupID          string         `json:"group_id,omitempty" validate:"omitempty,object_id"`
	GroupAdminID     string         `json:"group_admin_id,omitempty" validate:"omitempty,object_id"`
}

// ToRideRequest converts the validated payload into the service-level
// request. Group ids were already checked by the object_id tag.
func (r CreateRideRequest) ToRideRequest(passengerID primitive.ObjectID) models.RideRequest {
	req := models.RideRequest{
		PassengerID:    passengerID,
		PickUpLocation: r.PickUpLocation.ToPoint(),
		VehicleType:    models.VehicleType(r.VehicleType),
		FareAmount:     r.FareAmount,
		IsGroupRide:    r.IsGroupRide,
	}
	for _, d := range r.DropOffLocations {
		req.DropOffLocations = append(req.DropOffLocations, d.ToPoint())
	}
	if r.GroupID != "" {
		id, _ := primitive.ObjectIDFromHex(r.GroupID)
		req.GroupID = &id
	}
	if r.GroupAdminID != "" {
		id, _ := primitive.ObjectIDFromHex(r.GroupAdminID)
		req.GroupAdminID = &id
	}
	return req
}

type SubmitOfferRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type AcceptOfferRequest struct {
	OfferID string `json:"offer_id" validate:"required,object_id"`
}

type ConfirmComingRequest struct {
	Confirmation string `json:"confirmation" validate:"required,eq=coming"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=500"`
}

func (r ReviewRequest) ToReview() models.Review {
	return models.Review{Rating: r.Rating, Comment: r.Comment}
}
