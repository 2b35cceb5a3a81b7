package model

import "time"

type Room struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name      string    `json:"name" bson:"name" validate:"required,min=2,max=80"`
	Location  string    `json:"location,omitempty" bson:"location,omitempty" validate:"omitempty,max=140"`
	Capacity  int       `json:"capacity" bson:"capacity" validate:"required,min=1,max=500"`
	Equipment []string  `json:"equipment,omitempty" bson:"equipment,omitempty" validate:"omitempty,dive,min=1,max=60"`
	Available bool      `json:"available" bson:"available"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// RoomSchedule is the read model for one room's day: the confirmed
// bookings that occupy it, ordered by start time.
type RoomSchedule struct {
	RoomID   string    `json:"room_id"`
	Date     string    `json:"date"`
	Bookings []Booking `json:"bookings"`
}
