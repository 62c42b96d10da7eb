package models

// Location is a GeoJSON point, stored longitude-first the way MongoDB's
// 2dsphere index expects it.
type Location struct {
	Type        string    `json:"type" bson:"type" validate:"required,eq=Point"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates" validate:"required,len=2"`
	Address     string    `json:"address,omitempty" bson:"address,omitempty"`
}

func NewPoint(longitude, latitude float64) Location {
	return Location{Type: "Point", Coordinates: []float64{longitude, latitude}}
}

func (l Location) Longitude() float64 {
	if len(l.Coordinates) >= 1 {
		return l.Coordinates[0]
	}
	return 0
}

func (l Location) Latitude() float64 {
	if len(l.Coordinates) >= 2 {
		return l.Coordinates[1]
	}
	return 0
}

// ValidPoint checks the GeoJSON shape and coordinate bounds.
func (l Location) ValidPoint() bool {
	if l.Type != "Point" || len(l.Coordinates) != 2 {
		return false
	}
	lng, lat := l.Coordinates[0], l.Coordinates[1]
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}
