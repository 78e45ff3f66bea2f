package domain

import (
	"fmt"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
	"maps"
	"math"
	"slices"
	"strings"
	"sync"
)

// Cart is an in-memory ledger of product references held at unit prices,
// together with the promotions registered against them.
// A Cart is safe for concurrent use.
type Cart struct {
	mu sync.Mutex

	id       uuid.UUID
	currency currency.Unit
	logger   *zap.Logger

	items      map[string]priceBucket
	promotions map[string]*Promotion
}

// Line is the priced view of one (reference, unit price) entry.
type Line struct {
	Reference    string
	UnitPrice    float64
	Quantity     int
	FreeQuantity int

	EffectivePrice decimal.Decimal
	Amount         decimal.Decimal
}

type CartOption func(*Cart)

func WithID(id uuid.UUID) CartOption {
	return func(c *Cart) {
		c.id = id
	}
}

func WithCurrency(unit currency.Unit) CartOption {
	return func(c *Cart) {
		c.currency = unit
	}
}

func WithLogger(logger *zap.Logger) CartOption {
	return func(c *Cart) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewCart(opts ...CartOption) *Cart {
	c := &Cart{
		id:         uuid.New(),
		currency:   currency.EUR,
		logger:     zap.NewNop(),
		items:      make(map[string]priceBucket),
		promotions: make(map[string]*Promotion),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = c.logger.With(zap.Stringer("cart_id", c.id))

	return c
}

func (c *Cart) ID() uuid.UUID {
	return c.id
}

func (c *Cart) Currency() currency.Unit {
	return c.currency
}

func (c *Cart) Add(reference string, price float64, quantity int) error {
	key, err := normalizeReference(reference)
	if err != nil {
		return err
	}
	if err := validatePrice(price); err != nil {
		return err
	}
	if err := validateQuantity(quantity); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, b, err := c.bucket(key, true)
	if err != nil {
		return err
	}
	// total bounds every price entry, so neither can overflow
	if total := b.total(); total > math.MaxInt-quantity {
		return fmt.Errorf("%w: %q holds %d, adding %d overflows", ErrInvalidQuantity, key, total, quantity)
	}
	b[price] += quantity

	c.logger.Debug("item added",
		zap.String("reference", key), zap.Float64("price", price), zap.Int("quantity", quantity))

	return nil
}

// Remove takes quantity units of reference out of the cart, most expensive
// units first. Nothing is removed when the cart holds fewer units.
func (c *Cart) Remove(reference string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, b, err := c.bucket(reference, false)
	if err != nil {
		return err
	}
	if err := validateQuantity(quantity); err != nil {
		return err
	}

	if total := b.total(); quantity > total {
		return fmt.Errorf("%w: %q holds %d, requested %d", ErrInsufficientQuantity, key, total, quantity)
	}

	b.drain(quantity)
	if len(b) == 0 {
		delete(c.items, key)
	}

	c.logger.Debug("item removed", zap.String("reference", key), zap.Int("quantity", quantity))

	return nil
}

func (c *Cart) TotalAmount() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := decimal.Zero
	for key, b := range c.items {
		for _, line := range c.priceLines(key, b) {
			total = total.Add(line.Amount)
		}
	}
	return total
}

func (c *Cart) Total() Money {
	return Money{Amount: c.TotalAmount(), Currency: c.currency}
}

// References returns the references in the cart in alphabetical order.
func (c *Cart) References() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Sorted(maps.Keys(c.items))
}

func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items) == 0
}

// UnitPrices returns the prices held for reference in ascending order.
func (c *Cart) UnitPrices(reference string) ([]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, b, err := c.bucket(reference, false)
	if err != nil {
		return nil, err
	}
	return b.prices(), nil
}

// Quantity returns the number of units of reference across all prices.
func (c *Cart) Quantity(reference string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, b, err := c.bucket(reference, false)
	if err != nil {
		return 0, err
	}
	return b.total(), nil
}

// QuantityAt returns the number of units of reference held at exactly price.
func (c *Cart) QuantityAt(reference string, price float64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, b, err := c.bucket(reference, false)
	if err != nil {
		return 0, err
	}
	if err := lookupPrice(key, b, price); err != nil {
		return 0, err
	}
	return b[price], nil
}

// Amount returns what is payable for the units of reference held at price,
// after promotions.
func (c *Cart) Amount(reference string, price float64) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, b, err := c.bucket(reference, false)
	if err != nil {
		return decimal.Zero, err
	}
	if err := lookupPrice(key, b, price); err != nil {
		return decimal.Zero, err
	}

	return c.priceLine(key, b, price, c.freeUnits(key, b)).Amount, nil
}

// Lines returns every entry of the cart, ordered by reference then price.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lines []Line
	for _, key := range slices.Sorted(maps.Keys(c.items)) {
		lines = append(lines, c.priceLines(key, c.items[key])...)
	}
	return lines
}

// RegisterPromotion registers an inactive percent-off rule for a reference
// that is not in the cart yet.
func (c *Cart) RegisterPromotion(code, reference string, percent int, opts ...PromotionOption) error {
	p := &Promotion{
		Kind:    PromotionKindPercent,
		Percent: percent,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return c.register(code, reference, p, func() error {
		if percent <= 0 || percent >= 100 {
			return fmt.Errorf("%w: %d", ErrInvalidPercent, percent)
		}
		if p.MinPrice != nil {
			if err := validatePrice(*p.MinPrice); err != nil {
				return fmt.Errorf("minPrice: %w", err)
			}
		}
		return nil
	})
}

// RegisterBuyNGetOnePromotion registers an inactive rule giving one free
// unit for every threshold+1 units of reference.
func (c *Cart) RegisterBuyNGetOnePromotion(code, reference string, threshold int) error {
	p := &Promotion{
		Kind:      PromotionKindBuyNGetOne,
		Threshold: threshold,
	}

	return c.register(code, reference, p, func() error {
		if threshold < 2 {
			return fmt.Errorf("%w: %d", ErrInvalidThreshold, threshold)
		}
		return nil
	})
}

// ActivatePromotion turns on a registered promotion. It reports false when the
// code is unknown or when another promotion of the same kind is already
// active for the reference.
func (c *Cart) ActivatePromotion(code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	code = strings.TrimSpace(code)
	p, ok := c.promotions[code]
	if !ok {
		c.logger.Debug("unknown promotion", zap.String("code", code))
		return false
	}
	if p.Active {
		return true
	}

	if active := c.activePromotion(p.Reference, p.Kind); active != nil {
		c.logger.Debug("promotion not cumulable",
			zap.String("code", code), zap.String("active_code", active.Code), zap.String("reference", p.Reference))
		return false
	}

	p.Active = true
	c.logger.Debug("promotion activated",
		zap.String("code", code), zap.Stringer("kind", p.Kind), zap.String("reference", p.Reference))

	return true
}

// Promotions returns copies of the registered promotions ordered by code.
func (c *Cart) Promotions() []Promotion {
	c.mu.Lock()
	defer c.mu.Unlock()

	promotions := make([]Promotion, 0, len(c.promotions))
	for _, code := range slices.Sorted(maps.Keys(c.promotions)) {
		promotions = append(promotions, c.promotions[code].clone())
	}
	return promotions
}

func (c *Cart) register(code, reference string, p *Promotion, validate func() error) error {
	normalizedCode := strings.TrimSpace(code)
	if normalizedCode == "" {
		return fmt.Errorf("%w: %q", ErrInvalidPromotionCode, code)
	}
	key, err := normalizeReference(reference)
	if err != nil {
		return err
	}
	if err := validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[key]; ok {
		return fmt.Errorf("%w: %q", ErrPromotionReferenceConflict, key)
	}
	if _, ok := c.promotions[normalizedCode]; ok {
		return fmt.Errorf("%w: %q", ErrPromotionCodeConflict, normalizedCode)
	}

	p.Code = normalizedCode
	p.Reference = key
	p.Active = false
	c.promotions[normalizedCode] = p

	c.logger.Debug("promotion registered",
		zap.String("code", normalizedCode), zap.Stringer("kind", p.Kind), zap.String("reference", key))

	return nil
}

// bucket is the only access path to c.items. With create set it returns the
// bucket for reference, adding an empty one if needed; otherwise a missing
// reference is an error. Callers hold c.mu.
func (c *Cart) bucket(reference string, create bool) (string, priceBucket, error) {
	key := strings.TrimSpace(reference)

	b, ok := c.items[key]
	switch {
	case ok:
		return key, b, nil
	case create && key != "":
		b = make(priceBucket)
		c.items[key] = b
		return key, b, nil
	default:
		return "", nil, fmt.Errorf("%w: %q", ErrReferenceNotFound, reference)
	}
}

func lookupPrice(key string, b priceBucket, price float64) error {
	if err := validatePrice(price); err != nil {
		return err
	}
	if _, ok := b[price]; !ok {
		return fmt.Errorf("%w: %q at %v", ErrPriceNotFound, key, price)
	}
	return nil
}

// activePromotion returns the active promotion of kind for reference, if any.
// At most one exists. Callers hold c.mu.
func (c *Cart) activePromotion(reference string, kind PromotionKind) *Promotion {
	for _, p := range c.promotions {
		if p.Active && p.Kind == kind && p.Reference == reference {
			return p
		}
	}
	return nil
}

// freeUnits returns the units of b made free by the active buy-N-get-one
// rule for reference, keyed by price. Callers hold c.mu.
func (c *Cart) freeUnits(reference string, b priceBucket) map[float64]int {
	bogo := c.activePromotion(reference, PromotionKindBuyNGetOne)
	if bogo == nil {
		return nil
	}
	return b.allocateFree(bogo.freebies(b.total()))
}

// priceLine prices the entry of b at price. The percent rule lowers the unit
// price, free units are not charged; both apply together. Callers hold c.mu.
func (c *Cart) priceLine(reference string, b priceBucket, price float64, free map[float64]int) Line {
	unitPrice := decimal.NewFromFloat(price)
	if percent := c.activePromotion(reference, PromotionKindPercent); percent != nil && percent.appliesTo(price) {
		unitPrice = percent.discounted(unitPrice)
	}

	payable := max(0, b[price]-free[price])

	return Line{
		Reference:      reference,
		UnitPrice:      price,
		Quantity:       b[price],
		FreeQuantity:   free[price],
		EffectivePrice: unitPrice,
		Amount:         unitPrice.Mul(decimal.NewFromInt(int64(payable))),
	}
}

// priceLines prices every entry of b in ascending price order. Callers hold c.mu.
func (c *Cart) priceLines(reference string, b priceBucket) []Line {
	free := c.freeUnits(reference, b)

	lines := make([]Line, 0, len(b))
	for _, price := range b.prices() {
		lines = append(lines, c.priceLine(reference, b, price, free))
	}
	return lines
}
