package valueobjects

import (
	"fmt"
	"time"
)

type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

func ParseBillingCycle(s string) (BillingCycle, error) {
	c := BillingCycle(s)
	switch c {
	case CycleMonthly, CycleYearly:
		return c, nil
	default:
		return "", fmt.Errorf("invalid billing cycle: %s", s)
	}
}

func (c BillingCycle) String() string {
	return string(c)
}

// PeriodDays maps the cycle to the provider-facing period length.
func (c BillingCycle) PeriodDays() int {
	if c == CycleYearly {
		return 365
	}
	return 30
}

// NextPeriodEnd computes the end of a period starting at start.
func (c BillingCycle) NextPeriodEnd(start time.Time) time.Time {
	return start.AddDate(0, 0, c.PeriodDays())
}
