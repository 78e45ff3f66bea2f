package domain

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// priceBucket maps a unit price to the quantity held at that price.
// Stored buckets are never empty.
type priceBucket map[float64]int

func (b priceBucket) total() int {
	var total int
	for _, quantity := range b {
		total += quantity
	}
	return total
}

func (b priceBucket) prices() []float64 {
	prices := make([]float64, 0, len(b))
	for price := range b {
		prices = append(prices, price)
	}
	slices.Sort(prices)
	return prices
}

// drain consumes quantity units, most expensive first. The caller checks
// that the bucket holds enough units.
func (b priceBucket) drain(quantity int) {
	prices := b.prices()
	slices.Reverse(prices)

	for _, price := range prices {
		if quantity == 0 {
			return
		}
		taken := min(quantity, b[price])
		b[price] -= taken
		quantity -= taken
		if b[price] == 0 {
			delete(b, price)
		}
	}
}

// allocateFree spreads free units over the cheapest prices first.
func (b priceBucket) allocateFree(free int) map[float64]int {
	allocation := make(map[float64]int)
	for _, price := range b.prices() {
		if free == 0 {
			break
		}
		taken := min(free, b[price])
		allocation[price] = taken
		free -= taken
	}
	return allocation
}

func normalizeReference(reference string) (string, error) {
	normalized := strings.TrimSpace(reference)
	if normalized == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, reference)
	}
	return normalized, nil
}

func validatePrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}
	return nil
}

func validateQuantity(quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	return nil
}
