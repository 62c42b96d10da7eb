package maps

import (
	"context"
	"math"

	"ridelink/internal/models"
)

// Per-km rates by vehicle class, on top of a base flag fall. Values are
// tuned operationally; these are the launch defaults.
var perKmRates = map[models.VehicleType]float64{
	models.VehicleTypeBike:    8,
	models.VehicleTypeAuto:    12,
	models.VehicleTypeMiniCar: 18,
	models.VehicleTypeACCar:   25,
	models.VehicleTypeTourbus: 60,
}

const (
	baseFare     = 30.0
	perMinute    = 1.5
	minimumFare  = 50.0
	fareRounding = 5.0
)

// FareSuggester prices a requested route when the passenger leaves the
// fare blank. The suggestion seeds the bidding, it never binds drivers.
type FareSuggester struct {
	routes RouteEstimator
}

func NewFareSuggester(routes RouteEstimator) *FareSuggester {
	return &FareSuggester{routes: routes}
}

func (f *FareSuggester) SuggestFare(ctx context.Context, vehicleType models.VehicleType, pickup models.Location, dropOffs []models.Location) (float64, error) {
	estimate, err := f.routes.EstimateRoute(ctx, pickup, dropOffs)
	if err != nil {
		return 0, err
	}

	rate, ok := perKmRates[vehicleType]
	if !ok {
		rate = perKmRates[models.VehicleTypeMiniCar]
	}

	fare := baseFare + estimate.DistanceMeters/1000*rate + estimate.Duration.Minutes()*perMinute
	if fare < minimumFare {
		fare = minimumFare
	}
	return math.Round(fare/fareRounding) * fareRounding, nil
}
