package domain

import (
	"github.com/shopspring/decimal"
)

type PromotionKind int

const (
	PromotionKindPercent PromotionKind = iota + 1
	PromotionKindBuyNGetOne
)

func (k PromotionKind) String() string {
	switch k {
	case PromotionKindPercent:
		return "percent"
	case PromotionKindBuyNGetOne:
		return "buy_n_get_one"
	default:
		return "unknown"
	}
}

// Promotion is a discount rule keyed by Code. Percent and MinPrice are set for
// PromotionKindPercent, Threshold for PromotionKindBuyNGetOne.
type Promotion struct {
	Code      string
	Reference string
	Kind      PromotionKind

	Percent  int
	MinPrice *float64

	// every Threshold+1 units bought, one is free
	Threshold int

	Active bool
}

type PromotionOption func(*Promotion)

func WithMinPrice(price float64) PromotionOption {
	return func(p *Promotion) {
		p.MinPrice = &price
	}
}

// appliesTo reports whether a percent rule discounts the given unit price.
func (p *Promotion) appliesTo(price float64) bool {
	return p.MinPrice == nil || *p.MinPrice <= price
}

// discounted returns price reduced by the rule's percent.
func (p *Promotion) discounted(price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(100 - p.Percent))).Div(decimal.NewFromInt(100))
}

// freebies returns how many units out of total are free.
func (p *Promotion) freebies(total int) int {
	return total / (p.Threshold + 1)
}

func (p *Promotion) clone() Promotion {
	c := *p
	if p.MinPrice != nil {
		minPrice := *p.MinPrice
		c.MinPrice = &minPrice
	}
	return c
}
