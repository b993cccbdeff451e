package registry

import (
	"context"
	"errors"
	"fmt"
	"parkade/pkg/config"
	"parkade/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const VehiclesCollection = "Vehicles"

type mongoVehicleRegistry struct {
	collection *mongo.Collection
}

// NewMongoVehicleRegistry reads vehicles from the shared database. Used when
// the registry service is co-deployed with the reservation core.
func NewMongoVehicleRegistry(cfg *config.Config) VehicleRegistry {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoVehicleRegistry{
		collection: db.Collection(VehiclesCollection),
	}
}

func (r *mongoVehicleRegistry) Resolve(ctx context.Context, vehicleID string) (*model.Vehicle, error) {
	objectID, err := primitive.ObjectIDFromHex(vehicleID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidID, vehicleID)
	}

	var vehicle model.Vehicle
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&vehicle)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrVehicleNotFound
		}
		return nil, fmt.Errorf("failed to resolve vehicle: %w", err)
	}
	if vehicle.ID == "" {
		vehicle.ID = vehicleID
	}

	return &vehicle, nil
}
