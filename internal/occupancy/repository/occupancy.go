package repository

import (
	"context"
	"fmt"
	reservationsrepo "parkade/internal/reservations/repository"
	spacesrepo "parkade/internal/spaces/repository"
	"parkade/pkg/config"
	"parkade/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DailyBucket is one day of reservation demand, keyed YYYY-MM-DD.
type DailyBucket struct {
	Day   string `bson:"_id" json:"day"`
	Count int64  `bson:"count" json:"count"`
}

// HourlyBucket is aggregate demand for one hour of the day across the range.
type HourlyBucket struct {
	Hour  int   `bson:"_id" json:"hour"`
	Count int64 `bson:"count" json:"count"`
}

// OccupancyRepository answers read-only aggregate questions over the space
// catalog and the reservation ledger. It never writes.
type OccupancyRepository interface {
	CountSpacesByStatus(ctx context.Context) (map[model.SpaceStatus]int64, error)
	CountSpacesByCategory(ctx context.Context) (map[model.SpaceCategory]map[model.SpaceStatus]int64, error)
	CountActiveReservations(ctx context.Context) (int64, error)
	FindEndingWithin(ctx context.Context, from, to time.Time, limit int) ([]*model.Reservation, error)
	DailyUsage(ctx context.Context, from, to time.Time) ([]DailyBucket, error)
	HourlyProfile(ctx context.Context, from, to time.Time) ([]HourlyBucket, error)
}

type mongoOccupancyRepository struct {
	cfg          *config.Config
	spaces       *mongo.Collection
	reservations *mongo.Collection
}

func NewMongoOccupancyRepository(cfg *config.Config) OccupancyRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoOccupancyRepository{
		cfg:          cfg,
		spaces:       db.Collection(spacesrepo.CollectionName),
		reservations: db.Collection(reservationsrepo.CollectionName),
	}
}

func (r *mongoOccupancyRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.cfg.ReadTimeout)
}

func (r *mongoOccupancyRepository) CountSpacesByStatus(ctx context.Context) (map[model.SpaceStatus]int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.spaces.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate spaces by status: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status model.SpaceStatus `bson:"_id"`
		Count  int64             `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode status counts: %w", err)
	}

	counts := make(map[model.SpaceStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CountSpacesByCategory breaks the catalog down by category and, within each
// category, by status.
func (r *mongoOccupancyRepository) CountSpacesByCategory(ctx context.Context) (map[model.SpaceCategory]map[model.SpaceStatus]int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"category": "$category",
				"status":   "$status",
			},
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.spaces.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate spaces by category: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Key struct {
			Category model.SpaceCategory `bson:"category"`
			Status   model.SpaceStatus   `bson:"status"`
		} `bson:"_id"`
		Count int64 `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode category counts: %w", err)
	}

	counts := make(map[model.SpaceCategory]map[model.SpaceStatus]int64)
	for _, row := range rows {
		if counts[row.Key.Category] == nil {
			counts[row.Key.Category] = make(map[model.SpaceStatus]int64)
		}
		counts[row.Key.Category][row.Key.Status] = row.Count
	}
	return counts, nil
}

func (r *mongoOccupancyRepository) CountActiveReservations(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	count, err := r.reservations.CountDocuments(ctx, bson.M{"status": model.ReservationActive})
	if err != nil {
		return 0, fmt.Errorf("failed to count active reservations: %w", err)
	}
	return count, nil
}

// FindEndingWithin returns active reservations whose window closes inside
// (from, to], soonest first. These are the spaces about to come free.
func (r *mongoOccupancyRepository) FindEndingWithin(ctx context.Context, from, to time.Time, limit int) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"status":   model.ReservationActive,
		"end_time": bson.M{"$gt": from, "$lte": to},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "end_time", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.reservations.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find ending reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode ending reservations: %w", err)
	}

	return reservations, nil
}

func (r *mongoOccupancyRepository) DailyUsage(ctx context.Context, from, to time.Time) ([]DailyBucket, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"start_time": bson.M{"$gte": from, "$lt": to},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$dateToString": bson.M{
				"format": "%Y-%m-%d",
				"date":   "$start_time",
			}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cursor, err := r.reservations.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily usage: %w", err)
	}
	defer cursor.Close(ctx)

	var buckets []DailyBucket
	if err = cursor.All(ctx, &buckets); err != nil {
		return nil, fmt.Errorf("failed to decode daily usage: %w", err)
	}

	return buckets, nil
}

func (r *mongoOccupancyRepository) HourlyProfile(ctx context.Context, from, to time.Time) ([]HourlyBucket, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"start_time": bson.M{"$gte": from, "$lt": to},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$hour": "$start_time"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cursor, err := r.reservations.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate hourly profile: %w", err)
	}
	defer cursor.Close(ctx)

	var buckets []HourlyBucket
	if err = cursor.All(ctx, &buckets); err != nil {
		return nil, fmt.Errorf("failed to decode hourly profile: %w", err)
	}

	return buckets, nil
}
