package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationPending    ReservationStatus = "pending"
	ReservationConfirmed  ReservationStatus = "confirmed"
	ReservationCheckedIn  ReservationStatus = "checked_in"
	ReservationCheckedOut ReservationStatus = "checked_out"
	ReservationCanceled   ReservationStatus = "canceled"
)

func ParseReservationStatus(s string) (ReservationStatus, bool) {
	switch ReservationStatus(s) {
	case ReservationPending, ReservationConfirmed, ReservationCheckedIn, ReservationCheckedOut, ReservationCanceled:
		return ReservationStatus(s), true
	default:
		return "", false
	}
}

type Reservation struct {
	ID         uuid.UUID         `json:"id"`
	UserID     *int64            `json:"user_id,omitempty"`
	LotID      int64             `json:"lot_id"`
	RatePlanID *int64            `json:"rate_plan_id,omitempty"`
	Plate      string            `json:"plate"`
	StartsAt   time.Time         `json:"starts_at"`
	EndsAt     time.Time         `json:"ends_at"`
	Status     ReservationStatus `json:"status"`
	GateToken  string            `json:"gate_token"`
	Fee        Money             `json:"fee"`
	CreatedAt  time.Time         `json:"created_at"`
}

// CanCancel reports whether a reservation in the given status may still be
// canceled. Checked-in and later states are past the point of no return.
func CanCancel(status ReservationStatus) bool {
	return status == ReservationPending || status == ReservationConfirmed
}

// NextStatusForCheck returns the status a reservation moves to when the given
// check event is applied. A pending reservation is implicitly confirmed on
// check-in. Illegal moves return an InvalidTransitionError carrying the
// current status.
func NextStatusForCheck(current ReservationStatus, kind CheckKind) (ReservationStatus, error) {
	switch kind {
	case CheckIn:
		if current == ReservationPending || current == ReservationConfirmed {
			return ReservationCheckedIn, nil
		}
	case CheckOut:
		if current == ReservationCheckedIn {
			return ReservationCheckedOut, nil
		}
	}
	return "", &InvalidTransitionError{From: current, Event: string(kind)}
}

// IsOwner reports whether the given user owns this reservation.
func (r *Reservation) IsOwner(userID int64) bool {
	return r.UserID != nil && *r.UserID == userID
}
