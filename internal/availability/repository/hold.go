package repository

import (
	"context"
	"fmt"
	"lodgr/pkg/config"
	"lodgr/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Unit_holds"
)

// HoldRepository is the durable journal of unit holds. Coordinators write
// every state change through it and read a unit's holds back when they start.
type HoldRepository interface {
	Save(ctx context.Context, hold *model.Hold) error
	FindByUnit(ctx context.Context, unitID string, now time.Time) ([]model.Hold, error)
	CountActive(ctx context.Context, now time.Time) (int64, error)
}

type mongoHoldRepository struct {
	readTimeout  time.Duration
	writeTimeout time.Duration
	collection   *mongo.Collection
}

func NewMongoHoldRepository(cfg *config.Config) HoldRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoHoldRepository{
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		collection:   db.Collection(CollectionName),
	}
}

// withTimeout keeps the caller's deadline when it is tighter than timeout.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// Save upserts the hold by token. Range and creation stamps are only written
// on insert.
func (r *mongoHoldRepository) Save(ctx context.Context, hold *model.Hold) error {
	ctx, cancel := withTimeout(ctx, r.writeTimeout)
	defer cancel()

	set := bson.M{
		"status":     hold.Status,
		"expires_at": hold.ExpiresAt,
		"purge_at":   hold.PurgeAt,
	}
	if hold.BookingID != "" {
		set["booking_id"] = hold.BookingID
	}
	if !hold.ClosedAt.IsZero() {
		set["closed_at"] = hold.ClosedAt
	}

	filter := bson.M{"_id": hold.Token}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"unit_id":    hold.UnitID,
			"range":      hold.Range,
			"created_at": hold.CreatedAt,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save hold: %w", err)
	}
	return nil
}

// FindByUnit loads every hold of unitID a coordinator still needs: holds that
// are active and terminal holds inside their retention window.
func (r *mongoHoldRepository) FindByUnit(ctx context.Context, unitID string, now time.Time) ([]model.Hold, error) {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	filter := bson.M{
		"unit_id": unitID,
		"$or": bson.A{
			bson.M{"status": model.HoldStatusActive},
			bson.M{"purge_at": bson.M{"$gt": now}},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "range.start_date", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find holds: %w", err)
	}
	defer cursor.Close(ctx)

	var holds []model.Hold
	if err = cursor.All(ctx, &holds); err != nil {
		return nil, fmt.Errorf("failed to decode holds: %w", err)
	}
	return holds, nil
}

func (r *mongoHoldRepository) CountActive(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	filter := bson.M{
		"status":     model.HoldStatusActive,
		"expires_at": bson.M{"$gt": now},
	}
	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count holds: %w", err)
	}
	return count, nil
}
