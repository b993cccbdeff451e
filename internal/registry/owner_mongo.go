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

const OwnersCollection = "Owners"

type mongoOwnerDirectory struct {
	collection *mongo.Collection
}

func NewMongoOwnerDirectory(cfg *config.Config) OwnerDirectory {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoOwnerDirectory{
		collection: db.Collection(OwnersCollection),
	}
}

func (r *mongoOwnerDirectory) Resolve(ctx context.Context, ownerID string) (*model.Owner, error) {
	objectID, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidID, ownerID)
	}

	var owner model.Owner
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&owner)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("failed to resolve owner: %w", err)
	}
	if owner.ID == "" {
		owner.ID = ownerID
	}

	return &owner, nil
}
