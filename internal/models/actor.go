package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type ActorRole string

const (
	RoleDriver    ActorRole = "driver"
	RolePassenger ActorRole = "passenger"
)

// Actor is the authenticated caller identity supplied by the
// account/identity collaborator. The core trusts it as-is and never
// re-authenticates. VehicleType is only populated for drivers.
type Actor struct {
	ID          primitive.ObjectID `json:"id"`
	Role        ActorRole          `json:"role"`
	VehicleType VehicleType        `json:"vehicle_type,omitempty"`
}

func (a Actor) IsDriver() bool    { return a.Role == RoleDriver }
func (a Actor) IsPassenger() bool { return a.Role == RolePassenger }
