package model

import "time"

type SpaceStatus string

const (
	SpaceFree        SpaceStatus = "free"
	SpaceOccupied    SpaceStatus = "occupied"
	SpaceMaintenance SpaceStatus = "maintenance"
)

type SpaceCategory string

const (
	CategoryNormal     SpaceCategory = "normal"
	CategoryAccessible SpaceCategory = "accessible"
	CategoryElectric   SpaceCategory = "electric"
)

// Space is a unit of allocatable parking capacity. Status is an eager mirror
// of the reservation ledger: it flips to occupied the moment an active
// reservation is created for the space, even when that reservation starts in
// the future, and back to free on cancel/finish. Only the reservation
// coordinator and the maintenance operations mutate it.
type Space struct {
	ID        string        `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Label     string        `json:"label" bson:"label" validate:"omitempty,max=120"`
	Category  SpaceCategory `json:"category" bson:"category" validate:"required,oneof=normal accessible electric"`
	Status    SpaceStatus   `json:"status" bson:"status" validate:"required,oneof=free occupied maintenance"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt time.Time     `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

var spaceTransitions = map[SpaceStatus][]SpaceStatus{
	SpaceFree:        {SpaceOccupied, SpaceMaintenance},
	SpaceOccupied:    {SpaceFree},
	SpaceMaintenance: {SpaceFree},
}

// CanTransitionSpace reports whether a space status change is allowed.
func CanTransitionSpace(from, to SpaceStatus) bool {
	if from == to {
		return true
	}
	for _, allowed := range spaceTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func ValidSpaceCategory(c SpaceCategory) bool {
	switch c {
	case CategoryNormal, CategoryAccessible, CategoryElectric:
		return true
	}
	return false
}
