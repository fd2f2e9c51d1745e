package domain

import (
	"time"

	"github.com/google/uuid"
)

type CheckKind string

const (
	CheckIn  CheckKind = "check_in"
	CheckOut CheckKind = "check_out"
)

func ParseCheckKind(s string) (CheckKind, bool) {
	switch CheckKind(s) {
	case CheckIn, CheckOut:
		return CheckKind(s), true
	default:
		return "", false
	}
}

// CheckEvent is the immutable audit record of a gate action. Rows are only
// ever inserted; StaffID is nullable so the record survives staff account
// removal.
type CheckEvent struct {
	ID            int64     `json:"id"`
	ReservationID uuid.UUID `json:"reservation_id"`
	Kind          CheckKind `json:"kind"`
	StaffID       *int64    `json:"staff_id,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}
