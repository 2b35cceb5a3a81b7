package repository

import (
	"context"
	"fmt"
	"time"

	bookingerrors "github.com/sirsanndy/room-booking-sub001/internal/booking/errors"
	"github.com/sirsanndy/room-booking-sub001/pkg/config"
	"github.com/sirsanndy/room-booking-sub001/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	LockCollectionName = "Slot_locks"
)

// SlotLockRepository holds advisory locks keyed by room-day. Acquisition is
// a unique _id insert; the TTL index on expires_at reaps locks a crashed
// holder never released.
type SlotLockRepository interface {
	Acquire(ctx context.Context, lock *model.SlotLock) error
	TakeOver(ctx context.Context, lock *model.SlotLock, now time.Time) error
	Release(ctx context.Context, lockID string) error
}

type mongoSlotLockRepository struct {
	collection *mongo.Collection
}

func NewSlotLockRepository(cfg *config.Config) SlotLockRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoSlotLockRepository{
		collection: db.Collection(LockCollectionName),
	}
}

// Acquire inserts the lock document. ErrLockHeld means another request holds
// the room-day; whether their lease has lapsed is TakeOver's business.
func (r *mongoSlotLockRepository) Acquire(ctx context.Context, lock *model.SlotLock) error {
	lock.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bookingerrors.ErrLockHeld
		}
		return fmt.Errorf("failed to acquire slot lock: %w", err)
	}

	return nil
}

// TakeOver claims a lock whose lease expired before now. The filter carries
// the expiry condition, so two takers race on one atomic replace and only
// one wins.
func (r *mongoSlotLockRepository) TakeOver(ctx context.Context, lock *model.SlotLock, now time.Time) error {
	lock.CreatedAt = now.UTC().Truncate(time.Millisecond)

	filter := bson.M{
		"_id":        lock.ID,
		"expires_at": bson.M{"$lt": now},
	}
	result, err := r.collection.ReplaceOne(ctx, filter, lock)
	if err != nil {
		return fmt.Errorf("failed to take over slot lock: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingerrors.ErrLockHeld
	}

	return nil
}

func (r *mongoSlotLockRepository) Release(ctx context.Context, lockID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID})
	return err
}
