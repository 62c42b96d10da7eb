package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// RideRequest is the validated, strongly typed creation payload handed to
// the lifecycle service. The HTTP layer builds it after boundary
// validation; nothing downstream revalidates shapes.
type RideRequest struct {
	PassengerID      primitive.ObjectID
	PickUpLocation   Location
	DropOffLocations []Location
	VehicleType      VehicleType
	FareAmount       float64

	// SuggestedFare comes from the optional fare-suggestion
	// collaborator; nil never blocks creation.
	SuggestedFare *float64

	IsGroupRide  bool
	GroupID      *primitive.ObjectID
	GroupAdminID *primitive.ObjectID
}
