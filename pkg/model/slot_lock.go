package model

import "time"

// SlotLock is an advisory lock taken around a teacher-slot check-then-write.
// The _id encodes teacher and start time; a duplicate-key insert means another
// request holds the slot. Expired locks are reaped by a TTL index.
type SlotLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
