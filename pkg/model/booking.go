package model

import (
	"time"
)

const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

type Booking struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	RoomID      string    `json:"room_id" bson:"room_id" validate:"required,mongodb"`
	OwnerID     string    `json:"owner_id" bson:"owner_id" validate:"required,min=1,max=64"`
	Title       string    `json:"title" bson:"title" validate:"required,min=2,max=140"`
	Description string    `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=2000"`
	StartTime   time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" bson:"end_time" validate:"required"`
	Status      string    `json:"status" bson:"status" validate:"required,oneof=confirmed cancelled"`
	Version     int64     `json:"version" bson:"version"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

func (b *Booking) Duration() time.Duration {
	return b.EndTime.Sub(b.StartTime)
}

func (b *Booking) IsCancelled() bool {
	return b.Status == StatusCancelled
}

// BookingUpdate carries a partial update. Version names the version the
// client read; the write is applied compare-and-swap against it. A client
// that omits the version swaps against whatever version the service reads,
// which still loses deterministically to a concurrent writer.
type BookingUpdate struct {
	Title       string     `json:"title,omitempty" validate:"omitempty,min=2,max=140"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	StartTime   *time.Time `json:"start_time,omitempty" validate:"omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty" validate:"omitempty"`
	Version     *int64     `json:"version,omitempty" validate:"omitempty,min=0"`
}

// HasTimeChange reports whether the update moves either endpoint. A moved
// interval has to clear the full rule and conflict pipeline again.
func (u *BookingUpdate) HasTimeChange() bool {
	return u.StartTime != nil || u.EndTime != nil
}
