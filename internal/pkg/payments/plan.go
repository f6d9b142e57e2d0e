package payments

import (
	"fmt"
	"strings"
	"time"

	"github.com/HappyLearnKE/HappyLearn/app/models"
)

// Fixed price tables. Initiation amounts must match exactly; a mismatch is
// rejected, never clamped.
var planPricesKES = map[string]float64{
	models.PlanMonthly:   500,
	models.PlanQuarterly: 1350,
	models.PlanYearly:    4800,
}

var planPricesUSD = map[string]float64{
	models.PlanMonthly:   3.99,
	models.PlanQuarterly: 9.99,
	models.PlanYearly:    34.99,
}

// NormalizePlan maps user input onto a known plan type.
func NormalizePlan(plan string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(plan))
	switch p {
	case models.PlanMonthly, models.PlanQuarterly, models.PlanYearly:
		return p, nil
	default:
		return "", fmt.Errorf("unknown plan type: %q", plan)
	}
}

// PriceKES returns the M-Pesa price for a plan.
func PriceKES(plan string) (float64, error) {
	p, err := NormalizePlan(plan)
	if err != nil {
		return 0, err
	}
	return planPricesKES[p], nil
}

// PriceUSD returns the PayPal price for a plan.
func PriceUSD(plan string) (float64, error) {
	p, err := NormalizePlan(plan)
	if err != nil {
		return 0, err
	}
	return planPricesUSD[p], nil
}

// ExpiryFrom computes the subscription end by adding the plan's calendar
// interval to start. Month arithmetic clamps to the last day of the target
// month (Jan 31 + 1 month = Feb 28/29), it never rolls over into March.
func ExpiryFrom(start time.Time, plan string) (time.Time, error) {
	p, err := NormalizePlan(plan)
	if err != nil {
		return time.Time{}, err
	}
	switch p {
	case models.PlanMonthly:
		return addMonthsClamped(start, 1), nil
	case models.PlanQuarterly:
		return addMonthsClamped(start, 3), nil
	default:
		return addMonthsClamped(start, 12), nil
	}
}

// addMonthsClamped adds months to the year/month fields and clamps the day
// to the target month's length. time.AddDate would normalize an overflow
// (Jan 31 + 1 month = Mar 2), which is not what a subscription buyer expects.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	m := int(month) + months
	year += (m - 1) / 12
	month = time.Month((m-1)%12 + 1)

	if last := daysIn(year, month); day > last {
		day = last
	}
	h, min, sec := t.Clock()
	return time.Date(year, month, day, h, min, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
