package model

import "time"

// SlotLock is an advisory lock document covering one room-day. Its _id is
// the lock key; a unique insert is the acquisition. ExpiresAt bounds how
// long a crashed holder can block the slot.
type SlotLock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
