package subscription

import (
	"fmt"
	"time"

	vo "github.com/postline-io/postline/internal/domain/subscription/valueobjects"
)

// Plan is a purchasable tier. Plans are admin-managed and read-mostly from
// this engine's point of view.
type Plan struct {
	id               uint
	name             string
	maxChannels      int
	maxPostsPerMonth int
	priceMonthly     int64
	priceYearly      int64
	currency         string
	isActive         bool
	createdAt        time.Time
	updatedAt        time.Time
}

// PriceFor returns the price in cents for the given billing cycle.
func (p *Plan) PriceFor(cycle vo.BillingCycle) int64 {
	if cycle == vo.CycleYearly {
		return p.priceYearly
	}
	return p.priceMonthly
}

// YearlySavings is the amount saved per year when paying yearly
// versus twelve monthly charges.
func (p *Plan) YearlySavings() int64 {
	savings := p.priceMonthly*12 - p.priceYearly
	if savings < 0 {
		return 0
	}
	return savings
}

func (p *Plan) ID() uint              { return p.id }
func (p *Plan) Name() string          { return p.name }
func (p *Plan) MaxChannels() int      { return p.maxChannels }
func (p *Plan) MaxPostsPerMonth() int { return p.maxPostsPerMonth }
func (p *Plan) PriceMonthly() int64   { return p.priceMonthly }
func (p *Plan) PriceYearly() int64    { return p.priceYearly }
func (p *Plan) Currency() string      { return p.currency }
func (p *Plan) IsActive() bool        { return p.isActive }
func (p *Plan) CreatedAt() time.Time  { return p.createdAt }
func (p *Plan) UpdatedAt() time.Time  { return p.updatedAt }

func ReconstructPlan(
	id uint,
	name string,
	maxChannels, maxPostsPerMonth int,
	priceMonthly, priceYearly int64,
	currency string,
	isActive bool,
	createdAt, updatedAt time.Time,
) (*Plan, error) {
	if id == 0 {
		return nil, fmt.Errorf("plan ID cannot be zero")
	}
	if name == "" {
		return nil, fmt.Errorf("plan name is required")
	}
	if currency == "" {
		currency = "USD"
	}

	return &Plan{
		id:               id,
		name:             name,
		maxChannels:      maxChannels,
		maxPostsPerMonth: maxPostsPerMonth,
		priceMonthly:     priceMonthly,
		priceYearly:      priceYearly,
		currency:         currency,
		isActive:         isActive,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}, nil
}
