package model

import "time"

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationFinalized ReservationStatus = "finalized"
)

// Reservation is a time-bounded claim on exactly one space by one owner for
// one vehicle. The window is half-open: a reservation ending at T and one
// starting at T on the same space are compatible.
type Reservation struct {
	ID        string            `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	SpaceID   string            `json:"space_id" bson:"space_id" validate:"required,mongodb"`
	OwnerID   string            `json:"owner_id" bson:"owner_id" validate:"required,mongodb"`
	VehicleID string            `json:"vehicle_id" bson:"vehicle_id" validate:"required,mongodb"`
	StartTime time.Time         `json:"start_time" bson:"start_time" validate:"required"`
	EndTime   time.Time         `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Status    ReservationStatus `json:"status" bson:"status" validate:"required,oneof=active cancelled finalized"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt time.Time         `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// ReservationDetails is a fully hydrated view returned by the coordinator,
// with the foreign references resolved.
type ReservationDetails struct {
	Reservation *Reservation `json:"reservation"`
	Space       *Space       `json:"space,omitempty"`
	Owner       *Owner       `json:"owner,omitempty"`
	Vehicle     *Vehicle     `json:"vehicle,omitempty"`
}

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationActive: {ReservationCancelled, ReservationFinalized},
	// cancelled and finalized are terminal
	ReservationCancelled: {},
	ReservationFinalized: {},
}

// CanTransitionReservation reports whether a reservation lifecycle change is
// allowed. Terminal states permit nothing, not even self-transitions.
func CanTransitionReservation(from, to ReservationStatus) bool {
	for _, allowed := range reservationTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s ReservationStatus) Terminal() bool {
	return s == ReservationCancelled || s == ReservationFinalized
}

// Overlaps reports whether the reservation window intersects [start, end)
// under half-open semantics: touching endpoints do not overlap.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartTime.Before(end) && r.EndTime.After(start)
}
