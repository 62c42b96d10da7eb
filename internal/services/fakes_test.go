package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"ridelink/internal/models"
	"ridelink/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeRideRepo mirrors the Mongo repository's concurrency contract: all
// status writes are compare-and-swap on the previously read status, so
// the race-arbitration tests exercise the same semantics the real store
// provides.
type fakeRideRepo struct {
	mu    sync.Mutex
	rides map[primitive.ObjectID]*models.Ride
}

func newFakeRideRepo() *fakeRideRepo {
	return &fakeRideRepo{rides: make(map[primitive.ObjectID]*models.Ride)}
}

func copyRide(r *models.Ride) *models.Ride {
	dup := *r
	return &dup
}

func (f *fakeRideRepo) Create(ctx context.Context, ride *models.Ride) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	ride.ID = primitive.NewObjectID()
	ride.Status = models.RideStatusPending
	ride.CreatedAt = now
	ride.UpdatedAt = now
	if ride.ExpiresAt.IsZero() {
		ride.ExpiresAt = now.Add(utils.RideRequestTTL)
	}
	f.rides[ride.ID] = copyRide(ride)
	return nil
}

func (f *fakeRideRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ride, ok := f.rides[id]
	if !ok {
		return nil, utils.NewNotFound("ride %s not found", id.Hex())
	}
	return copyRide(ride), nil
}

func (f *fakeRideRepo) UpdateStatusFrom(ctx context.Context, id primitive.ObjectID, from models.RideStatus, updates map[string]interface{}) (*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ride, ok := f.rides[id]
	if !ok {
		return nil, utils.NewNotFound("ride %s not found", id.Hex())
	}
	if ride.Status != from {
		return nil, utils.NewConflict("ride %s is %s, not %s", id.Hex(), ride.Status, from)
	}

	for key, value := range updates {
		switch key {
		case "status":
			ride.Status = value.(models.RideStatus)
		case "driver_id":
			if value == nil {
				ride.DriverID = nil
			} else {
				driverID := value.(primitive.ObjectID)
				ride.DriverID = &driverID
			}
		case "fare_amount_driver":
			if value == nil {
				ride.FareAmountDriver = nil
			} else {
				amount := value.(float64)
				ride.FareAmountDriver = &amount
			}
		case "passenger_confirmation":
			ride.PassengerConfirmation = value.(string)
		case "cancelled_by":
			ride.CancelledBy = value.(string)
		}
	}
	ride.UpdatedAt = time.Now()
	return copyRide(ride), nil
}

func (f *fakeRideRepo) AttachReview(ctx context.Context, id primitive.ObjectID, review *models.Review) (*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ride, ok := f.rides[id]
	if !ok {
		return nil, utils.NewNotFound("ride %s not found", id.Hex())
	}
	if ride.Status != models.RideStatusCompleted {
		return nil, utils.NewInvalidState("cannot review ride in status %s", ride.Status)
	}
	ride.Review = review
	return copyRide(ride), nil
}

func (f *fakeRideRepo) ListAvailable(ctx context.Context, vehicleType models.VehicleType, forGroup bool) ([]*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var rides []*models.Ride
	for _, ride := range f.rides {
		if !ride.Biddable() || ride.DriverID != nil {
			continue
		}
		if forGroup {
			if ride.IsGroupRide && ride.GroupAdminID != nil {
				rides = append(rides, copyRide(ride))
			}
		} else if !ride.IsGroupRide && ride.VehicleType == vehicleType {
			rides = append(rides, copyRide(ride))
		}
	}
	sort.Slice(rides, func(i, j int) bool { return rides[i].CreatedAt.After(rides[j].CreatedAt) })
	return rides, nil
}

func (f *fakeRideRepo) ListActiveByPassenger(ctx context.Context, passengerID primitive.ObjectID) ([]*models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var rides []*models.Ride
	for _, ride := range f.rides {
		if ride.PassengerID == passengerID && !ride.Status.Terminal() {
			rides = append(rides, copyRide(ride))
		}
	}
	return rides, nil
}

func (f *fakeRideRepo) ListByPassengerAndStatus(ctx context.Context, passengerID primitive.ObjectID, statuses []models.RideStatus, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var rides []*models.Ride
	for _, ride := range f.rides {
		if ride.PassengerID == passengerID && statusIn(ride.Status, statuses) {
			rides = append(rides, copyRide(ride))
		}
	}
	return rides, int64(len(rides)), nil
}

func (f *fakeRideRepo) ListByDriverAndStatus(ctx context.Context, driverID primitive.ObjectID, statuses []models.RideStatus, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var rides []*models.Ride
	for _, ride := range f.rides {
		if ride.DriverID != nil && *ride.DriverID == driverID && statusIn(ride.Status, statuses) {
			rides = append(rides, copyRide(ride))
		}
	}
	return rides, int64(len(rides)), nil
}

func (f *fakeRideRepo) ExpirePending(ctx context.Context, now time.Time) ([]primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var expired []primitive.ObjectID
	for id, ride := range f.rides {
		if ride.Status == models.RideStatusPending && !now.Before(ride.ExpiresAt) {
			ride.Status = models.RideStatusExpired
			ride.UpdatedAt = now
			expired = append(expired, id)
		}
	}
	return expired, nil
}

func statusIn(status models.RideStatus, statuses []models.RideStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type offerKey struct {
	ride   primitive.ObjectID
	driver primitive.ObjectID
}

// fakeOfferRepo enforces the (ride, driver) uniqueness constraint the
// real store gets from its compound index.
type fakeOfferRepo struct {
	mu     sync.Mutex
	offers map[primitive.ObjectID]*models.Offer
	byPair map[offerKey]primitive.ObjectID
}

func newFakeOfferRepo() *fakeOfferRepo {
	return &fakeOfferRepo{
		offers: make(map[primitive.ObjectID]*models.Offer),
		byPair: make(map[offerKey]primitive.ObjectID),
	}
}

func (f *fakeOfferRepo) Create(ctx context.Context, offer *models.Offer) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := offerKey{ride: offer.RideID, driver: offer.DriverID}
	if _, exists := f.byPair[key]; exists {
		return utils.NewConflict("driver %s already has an offer on ride %s", offer.DriverID.Hex(), offer.RideID.Hex())
	}

	offer.ID = primitive.NewObjectID()
	offer.OfferedAt = time.Now()
	dup := *offer
	f.offers[offer.ID] = &dup
	f.byPair[key] = offer.ID
	return nil
}

func (f *fakeOfferRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	offer, ok := f.offers[id]
	if !ok {
		return nil, utils.NewNotFound("offer %s not found", id.Hex())
	}
	dup := *offer
	return &dup, nil
}

func (f *fakeOfferRepo) GetByRideAndDriver(ctx context.Context, rideID, driverID primitive.ObjectID) (*models.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.byPair[offerKey{ride: rideID, driver: driverID}]
	if !ok {
		return nil, utils.NewNotFound("no offer from driver %s on ride %s", driverID.Hex(), rideID.Hex())
	}
	dup := *f.offers[id]
	return &dup, nil
}

func (f *fakeOfferRepo) ListByRide(ctx context.Context, rideID primitive.ObjectID) ([]*models.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var offers []*models.Offer
	for _, offer := range f.offers {
		if offer.RideID == rideID {
			dup := *offer
			offers = append(offers, &dup)
		}
	}
	sort.Slice(offers, func(i, j int) bool { return offers[i].OfferedAt.Before(offers[j].OfferedAt) })
	return offers, nil
}

func (f *fakeOfferRepo) CountByRide(ctx context.Context, rideID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for _, offer := range f.offers {
		if offer.RideID == rideID {
			count++
		}
	}
	return count, nil
}

func (f *fakeOfferRepo) DeleteByRideAndDriver(ctx context.Context, rideID, driverID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := offerKey{ride: rideID, driver: driverID}
	id, ok := f.byPair[key]
	if !ok {
		return utils.NewNotFound("no offer from driver %s on ride %s", driverID.Hex(), rideID.Hex())
	}
	delete(f.offers, id)
	delete(f.byPair, key)
	return nil
}

func (f *fakeOfferRepo) DeleteByRide(ctx context.Context, rideID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var deleted int64
	for id, offer := range f.offers {
		if offer.RideID == rideID {
			delete(f.offers, id)
			delete(f.byPair, offerKey{ride: offer.RideID, driver: offer.DriverID})
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeOfferRepo) DeleteByRideExcept(ctx context.Context, rideID, offerID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var deleted int64
	for id, offer := range f.offers {
		if offer.RideID == rideID && id != offerID {
			delete(f.offers, id)
			delete(f.byPair, offerKey{ride: offer.RideID, driver: offer.DriverID})
			deleted++
		}
	}
	return deleted, nil
}

// chanSink feeds published events to a channel so tests can wait on the
// fire-and-forget delivery.
type chanSink struct {
	events chan models.RideEvent
}

func newChanSink() *chanSink {
	return &chanSink{events: make(chan models.RideEvent, 64)}
}

func (c *chanSink) Name() string { return "test" }

func (c *chanSink) Publish(ctx context.Context, event models.RideEvent) error {
	c.events <- event
	return nil
}

func (c *chanSink) wait(timeout time.Duration) (models.RideEvent, bool) {
	select {
	case event := <-c.events:
		return event, true
	case <-time.After(timeout):
		return models.RideEvent{}, false
	}
}
