package repository

import (
	"context"
	"fmt"
	reservationserrors "parkade/internal/reservations/errors"
	"parkade/pkg/config"
	"parkade/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LockCollectionName = "Space_locks"

// SpaceLockRepository provides per-space advisory locks. Acquire inserts a
// lock document keyed by the space; the unique _id makes the insert the
// serialization point for all mutations touching that space.
type SpaceLockRepository interface {
	Acquire(ctx context.Context, spaceID string) (string, error)
	Release(ctx context.Context, lockID string) error
}

type mongoSpaceLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewSpaceLockRepository(cfg *config.Config) SpaceLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSpaceLockRepository{
		cfg:        cfg,
		collection: db.Collection(LockCollectionName),
	}
}

func (r *mongoSpaceLockRepository) Acquire(ctx context.Context, spaceID string) (string, error) {
	lock := &model.SpaceLock{
		ID:        fmt.Sprintf("space_lock_%s", spaceID),
		ExpiresAt: time.Now().Add(r.cfg.SpaceLockTTL),
		CreatedAt: time.Now(),
	}

	_, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", reservationserrors.ErrLockHeld
		}
		return "", fmt.Errorf("failed to acquire space lock: %w", err)
	}

	return lock.ID, nil
}

func (r *mongoSpaceLockRepository) Release(ctx context.Context, lockID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID})
	return err
}
