package mongodb

import (
	"context"
	"errors"
	"time"

	"ridelink/internal/models"
	"ridelink/internal/repositories/interfaces"
	"ridelink/internal/utils"
	"ridelink/pkg/cache"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const rideCacheTTL = 10 * time.Minute

type rideRepository struct {
	collection *mongo.Collection
	cache      *cache.RedisCache
}

// NewRideRepository builds the Mongo-backed ride store. cache may be nil;
// it only short-circuits reads of in-flight rides.
func NewRideRepository(db *mongo.Database, cache *cache.RedisCache) interfaces.RideRepository {
	return &rideRepository{
		collection: db.Collection("rides"),
		cache:      cache,
	}
}

func (r *rideRepository) Create(ctx context.Context, ride *models.Ride) error {
	now := time.Now()
	ride.ID = primitive.NewObjectID()
	ride.Status = models.RideStatusPending
	ride.CreatedAt = now
	ride.UpdatedAt = now
	if ride.ExpiresAt.IsZero() {
		ride.ExpiresAt = now.Add(utils.RideRequestTTL)
	}

	if _, err := r.collection.InsertOne(ctx, ride); err != nil {
		return utils.NewUnavailable(err, "failed to create ride")
	}

	r.cacheRide(ctx, ride)
	return nil
}

func (r *rideRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error) {
	if ride := r.getRideFromCache(ctx, id); ride != nil {
		return ride, nil
	}

	var ride models.Ride
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ride)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewNotFound("ride %s not found", id.Hex())
		}
		return nil, utils.NewUnavailable(err, "failed to get ride")
	}

	if !ride.Status.Terminal() {
		r.cacheRide(ctx, &ride)
	}
	return &ride, nil
}

// UpdateStatusFrom is the single linearization point for ride state. The
// filter matches both the id and the status the caller read, so a write
// that raced with another transition matches nothing and is rejected
// instead of clobbering the newer status.
func (r *rideRepository) UpdateStatusFrom(ctx context.Context, id primitive.ObjectID, from models.RideStatus, updates map[string]interface{}) (*models.Ride, error) {
	set := bson.M{"updated_at": time.Now()}
	for k, v := range updates {
		set[k] = v
	}

	update := bson.M{"$set": set}
	if unset := popUnsets(set); len(unset) > 0 {
		update["$unset"] = unset
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var ride models.Ride
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": from}, update, opts).Decode(&ride)
	if err == nil {
		r.invalidateRideCache(ctx, id)
		return &ride, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewUnavailable(err, "failed to update ride status")
	}

	// Nothing matched: distinguish a vanished ride from a lost race.
	var current models.Ride
	err = r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&current)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFound("ride %s not found", id.Hex())
	}
	if err != nil {
		return nil, utils.NewUnavailable(err, "failed to read ride after rejected update")
	}
	return nil, utils.NewConflict("ride %s is %s, not %s", id.Hex(), current.Status, from)
}

// popUnsets moves nil-valued updates into a $unset document so callers
// can clear fields (driver_id on withdrawal) through the same map.
func popUnsets(set bson.M) bson.M {
	unset := bson.M{}
	for k, v := range set {
		if v == nil {
			delete(set, k)
			unset[k] = ""
		}
	}
	return unset
}

func (r *rideRepository) AttachReview(ctx context.Context, id primitive.ObjectID, review *models.Review) (*models.Ride, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"review": review, "updated_at": time.Now()}}

	var ride models.Ride
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": models.RideStatusCompleted}, update, opts).Decode(&ride)
	if err == nil {
		return &ride, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewUnavailable(err, "failed to attach review")
	}

	var current models.Ride
	err = r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&current)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFound("ride %s not found", id.Hex())
	}
	if err != nil {
		return nil, utils.NewUnavailable(err, "failed to read ride for review")
	}
	return nil, utils.NewInvalidState("cannot review ride in status %s", current.Status)
}

func (r *rideRepository) ListAvailable(ctx context.Context, vehicleType models.VehicleType, forGroup bool) ([]*models.Ride, error) {
	filter := bson.M{
		"status":    bson.M{"$in": []models.RideStatus{models.RideStatusPending, models.RideStatusOffered}},
		"driver_id": nil,
	}
	if forGroup {
		filter["is_group_ride"] = true
		filter["group_admin_id"] = bson.M{"$ne": nil}
	} else {
		filter["vehicle_type"] = vehicleType
		filter["is_group_ride"] = false
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, utils.NewUnavailable(err, "failed to list available rides")
	}
	defer cursor.Close(ctx)

	var rides []*models.Ride
	if err := cursor.All(ctx, &rides); err != nil {
		return nil, utils.NewUnavailable(err, "failed to decode available rides")
	}
	return rides, nil
}

func (r *rideRepository) ListActiveByPassenger(ctx context.Context, passengerID primitive.ObjectID) ([]*models.Ride, error) {
	filter := bson.M{
		"passenger_id": passengerID,
		"status": bson.M{"$in": []models.RideStatus{
			models.RideStatusPending,
			models.RideStatusOffered,
			models.RideStatusAccepted,
			models.RideStatusArrived,
			models.RideStatusStarted,
		}},
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, utils.NewUnavailable(err, "failed to list active rides")
	}
	defer cursor.Close(ctx)

	var rides []*models.Ride
	if err := cursor.All(ctx, &rides); err != nil {
		return nil, utils.NewUnavailable(err, "failed to decode active rides")
	}
	return rides, nil
}

func (r *rideRepository) ListByPassengerAndStatus(ctx context.Context, passengerID primitive.ObjectID, statuses []models.RideStatus, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	filter := bson.M{"passenger_id": passengerID, "status": bson.M{"$in": statuses}}
	return r.listPage(ctx, filter, params)
}

func (r *rideRepository) ListByDriverAndStatus(ctx context.Context, driverID primitive.ObjectID, statuses []models.RideStatus, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	filter := bson.M{"driver_id": driverID, "status": bson.M{"$in": statuses}}
	return r.listPage(ctx, filter, params)
}

func (r *rideRepository) listPage(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, utils.NewUnavailable(err, "failed to count rides")
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, utils.NewUnavailable(err, "failed to list rides")
	}
	defer cursor.Close(ctx)

	var rides []*models.Ride
	if err := cursor.All(ctx, &rides); err != nil {
		return nil, 0, utils.NewUnavailable(err, "failed to decode rides")
	}
	return rides, total, nil
}

// ExpirePending finds stale pending rides, then retires each one with a
// write conditioned on the status still being pending. A ride claimed
// between the find and its write no longer matches and is skipped; the
// sweep is idempotent by the same argument.
func (r *rideRepository) ExpirePending(ctx context.Context, now time.Time) ([]primitive.ObjectID, error) {
	filter := bson.M{
		"status":     models.RideStatusPending,
		"expires_at": bson.M{"$lte": now},
	}

	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, utils.NewUnavailable(err, "failed to find stale rides")
	}

	var stale []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &stale); err != nil {
		return nil, utils.NewUnavailable(err, "failed to decode stale rides")
	}

	update := bson.M{"$set": bson.M{"status": models.RideStatusExpired, "updated_at": now}}
	var expired []primitive.ObjectID
	for _, doc := range stale {
		result, err := r.collection.UpdateOne(ctx, bson.M{"_id": doc.ID, "status": models.RideStatusPending}, update)
		if err != nil {
			return expired, utils.NewUnavailable(err, "failed to expire ride %s", doc.ID.Hex())
		}
		if result.ModifiedCount == 1 {
			r.invalidateRideCache(ctx, doc.ID)
			expired = append(expired, doc.ID)
		}
	}
	return expired, nil
}

func (r *rideRepository) cacheRide(ctx context.Context, ride *models.Ride) {
	if r.cache == nil {
		return
	}
	// Best effort; a cold cache only costs a Mongo read.
	_ = r.cache.Set(ctx, rideCacheKey(ride.ID), ride, rideCacheTTL)
}

func (r *rideRepository) getRideFromCache(ctx context.Context, id primitive.ObjectID) *models.Ride {
	if r.cache == nil {
		return nil
	}
	var ride models.Ride
	if err := r.cache.Get(ctx, rideCacheKey(id), &ride); err != nil {
		return nil
	}
	return &ride
}

func (r *rideRepository) invalidateRideCache(ctx context.Context, id primitive.ObjectID) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Delete(ctx, rideCacheKey(id))
}

func rideCacheKey(id primitive.ObjectID) string {
	return "ride:" + id.Hex()
}
