package model

import "time"

// SpaceLock is an advisory lock document serializing reservation mutations
// per space. Insert succeeds only if no lock with the same ID exists, so a
// duplicate-key error means another request holds the space. ExpiresAt
// backs a TTL index that reaps locks orphaned by crashed workers.
type SpaceLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
