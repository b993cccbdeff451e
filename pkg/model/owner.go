package model

import "time"

// Owner is the directory record behind a principal identity.
type Owner struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	DisplayName string    `json:"display_name" bson:"display_name" validate:"required,min=2,max=100"`
	Phone       string    `json:"phone" bson:"phone" validate:"omitempty,e164"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}
