package mongodb

import (
	"context"
	"errors"
	"time"

	"ridelink/internal/models"
	"ridelink/internal/repositories/interfaces"
	"ridelink/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type offerRepository struct {
	collection *mongo.Collection
}

func NewOfferRepository(db *mongo.Database) interfaces.OfferRepository {
	return &offerRepository{
		collection: db.Collection("offers"),
	}
}

func (r *offerRepository) Create(ctx context.Context, offer *models.Offer) error {
	offer.ID = primitive.NewObjectID()
	offer.OfferedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, offer)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewConflict("driver %s already has an offer on ride %s", offer.DriverID.Hex(), offer.RideID.Hex())
		}
		return utils.NewUnavailable(err, "failed to create offer")
	}
	return nil
}

func (r *offerRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Offer, error) {
	var offer models.Offer
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&offer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewNotFound("offer %s not found", id.Hex())
		}
		return nil, utils.NewUnavailable(err, "failed to get offer")
	}
	return &offer, nil
}

func (r *offerRepository) GetByRideAndDriver(ctx context.Context, rideID, driverID primitive.ObjectID) (*models.Offer, error) {
	var offer models.Offer
	err := r.collection.FindOne(ctx, bson.M{"ride_id": rideID, "driver_id": driverID}).Decode(&offer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NewNotFound("no offer from driver %s on ride %s", driverID.Hex(), rideID.Hex())
		}
		return nil, utils.NewUnavailable(err, "failed to get offer")
	}
	return &offer, nil
}

func (r *offerRepository) ListByRide(ctx context.Context, rideID primitive.ObjectID) ([]*models.Offer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "offered_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"ride_id": rideID}, opts)
	if err != nil {
		return nil, utils.NewUnavailable(err, "failed to list offers")
	}
	defer cursor.Close(ctx)

	var offers []*models.Offer
	if err := cursor.All(ctx, &offers); err != nil {
		return nil, utils.NewUnavailable(err, "failed to decode offers")
	}
	return offers, nil
}

func (r *offerRepository) CountByRide(ctx context.Context, rideID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"ride_id": rideID})
	if err != nil {
		return 0, utils.NewUnavailable(err, "failed to count offers")
	}
	return count, nil
}

func (r *offerRepository) DeleteByRideAndDriver(ctx context.Context, rideID, driverID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"ride_id": rideID, "driver_id": driverID})
	if err != nil {
		return utils.NewUnavailable(err, "failed to delete offer")
	}
	if result.DeletedCount == 0 {
		return utils.NewNotFound("no offer from driver %s on ride %s", driverID.Hex(), rideID.Hex())
	}
	return nil
}

func (r *offerRepository) DeleteByRide(ctx context.Context, rideID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"ride_id": rideID})
	if err != nil {
		return 0, utils.NewUnavailable(err, "failed to void offers")
	}
	return result.DeletedCount, nil
}

func (r *offerRepository) DeleteByRideExcept(ctx context.Context, rideID, offerID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"ride_id": rideID, "_id": bson.M{"$ne": offerID}})
	if err != nil {
		return 0, utils.NewUnavailable(err, "failed to void competing offers")
	}
	return result.DeletedCount, nil
}
