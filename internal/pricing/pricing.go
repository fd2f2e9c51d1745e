// Package pricing holds the pure pieces of fee computation: rate plan
// resolution and the tiered hourly/daily fee calculation. Nothing here
// touches storage.
package pricing

import (
	"math"
	"time"

	"github.com/parkpass/parkpass-reservations/internal/domain"
)

// ResolvePlan picks the rate plan a reservation is billed against. An
// explicitly chosen plan wins unchanged; otherwise the lot's plan with the
// smallest identifier applies. Returns nil when the lot has no plans.
func ResolvePlan(explicit *domain.RatePlan, lotPlans []domain.RatePlan) *domain.RatePlan {
	if explicit != nil {
		return explicit
	}
	var best *domain.RatePlan
	for i := range lotPlans {
		if best == nil || lotPlans[i].ID < best.ID {
			best = &lotPlans[i]
		}
	}
	return best
}

// ComputeFee prices an interval against a rate plan.
//
// Hours are billed whole and round up, with a one hour minimum. Without a
// daily cap the fee is rate x billed hours. With a cap, each full 24h block
// costs the cap and the trailing partial day is billed hourly but capped
// individually against the same cap.
func ComputeFee(start, end time.Time, plan *domain.RatePlan) (domain.Money, error) {
	if !end.After(start) {
		return 0, domain.Validation("end time must be after start time")
	}
	if plan == nil {
		return 0, nil
	}

	totalHours := end.Sub(start).Hours()
	fee := plan.HourlyRate.Mul(billedHours(totalHours))

	if plan.DailyCap != nil {
		cap := *plan.DailyCap
		fullDays := int64(math.Floor(totalHours / 24))
		rem := totalHours - float64(fullDays)*24

		var remCharge domain.Money
		if rem > 0 {
			remCharge = domain.MinMoney(plan.HourlyRate.Mul(billedHours(rem)), cap)
		}
		fee = cap.Mul(fullDays) + remCharge
	}

	return fee, nil
}

func billedHours(hours float64) int64 {
	billed := int64(math.Ceil(hours))
	if billed < 1 {
		billed = 1
	}
	return billed
}
