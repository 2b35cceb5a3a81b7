package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sirsanndy/room-booking-sub001/pkg/config"
	"github.com/sirsanndy/room-booking-sub001/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Holidays"
)

type mongoHolidayRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

// HolidayRepository reads the holiday calendar. Dates are zero-padded
// YYYY-MM-DD strings, so lexicographic range filters select a year exactly.
type HolidayRepository interface {
	FindByYear(ctx context.Context, year int) ([]*model.Holiday, error)
	Exists(ctx context.Context, date string) (bool, error)
}

func NewMongoHolidayRepository(cfg *config.Config) HolidayRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoHolidayRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoHolidayRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoHolidayRepository) FindByYear(ctx context.Context, year int) ([]*model.Holiday, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"date": bson.M{
			"$gte": fmt.Sprintf("%04d-01-01", year),
			"$lte": fmt.Sprintf("%04d-12-31", year),
		},
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find holidays: %w", err)
	}
	defer cursor.Close(ctx)

	var holidays []*model.Holiday
	if err = cursor.All(ctx, &holidays); err != nil {
		return nil, fmt.Errorf("failed to decode holidays: %w", err)
	}

	return holidays, nil
}

func (r *mongoHolidayRepository) Exists(ctx context.Context, date string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"date": date}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check holiday: %w", err)
	}

	return count > 0, nil
}
