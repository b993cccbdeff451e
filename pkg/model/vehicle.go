package model

import "time"

// Vehicle is registry data owned by the vehicle registry collaborator. The
// reservation core only reads it to confirm ownership.
type Vehicle struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	OwnerID   string    `json:"owner_id" bson:"owner_id" validate:"required,mongodb"`
	Plate     string    `json:"plate" bson:"plate" validate:"required,min=2,max=16"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}
