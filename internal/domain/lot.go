package domain

import "time"

type LotCategory string

const (
	LotOpen   LotCategory = "open"
	LotClosed LotCategory = "closed"
	LotVIP    LotCategory = "vip"
)

func ParseLotCategory(s string) (LotCategory, bool) {
	switch LotCategory(s) {
	case LotOpen, LotClosed, LotVIP:
		return LotCategory(s), true
	default:
		return "", false
	}
}

type ParkingLot struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	Category LotCategory `json:"category"`
	Location string      `json:"location"`
	Capacity int         `json:"capacity"`
	Active   bool        `json:"active"`
}

// RatePlan is a named pricing rule attached to a lot. DailyCap is optional;
// when set, every full 24h block is charged at the cap and the last partial
// day is capped individually.
type RatePlan struct {
	ID         int64     `json:"id"`
	LotID      int64     `json:"lot_id"`
	Name       string    `json:"name"`
	HourlyRate Money     `json:"hourly_rate"`
	DailyCap   *Money    `json:"daily_cap,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
