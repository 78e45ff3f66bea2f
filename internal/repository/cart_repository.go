package repository

import (
	"context"
	"fmt"
	"github.com/nikolayk812/cartledger/internal/config"
	"github.com/nikolayk812/cartledger/internal/domain"
	"github.com/nikolayk812/cartledger/internal/port"
	"go.uber.org/zap"
	"maps"
	"slices"
	"sync"
)

// cartRepository keeps one cart per owner in memory.
type cartRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart

	catalog *config.Catalog
	logger  *zap.Logger
}

type Option func(*cartRepository)

// WithCatalog sets the promotions applied to every new cart, and its currency.
func WithCatalog(catalog *config.Catalog) Option {
	return func(r *cartRepository) {
		r.catalog = catalog
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *cartRepository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewCart(opts ...Option) port.CartRepository {
	r := &cartRepository{
		carts:   make(map[string]*domain.Cart),
		catalog: config.DefaultCatalog(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetCart returns the owner's cart, creating it on first use.
func (r *cartRepository) GetCart(ctx context.Context, ownerID string) (*domain.Cart, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("ownerID is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	cart, ok := r.carts[ownerID]
	r.mu.RUnlock()
	if ok {
		return cart, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cart, ok := r.carts[ownerID]; ok {
		return cart, nil
	}

	cart, err := r.newCart(ownerID)
	if err != nil {
		return nil, fmt.Errorf("r.newCart: %w", err)
	}
	r.carts[ownerID] = cart

	return cart, nil
}

func (r *cartRepository) DeleteCart(ctx context.Context, ownerID string) (bool, error) {
	if ownerID == "" {
		return false, fmt.Errorf("ownerID is empty")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.carts[ownerID]; !ok {
		return false, nil
	}
	delete(r.carts, ownerID)

	r.logger.Info("cart deleted", zap.String("owner_id", ownerID))

	return true, nil
}

func (r *cartRepository) OwnerIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.carts)), nil
}

func (r *cartRepository) newCart(ownerID string) (*domain.Cart, error) {
	unit, err := r.catalog.CurrencyUnit()
	if err != nil {
		return nil, fmt.Errorf("catalog.CurrencyUnit: %w", err)
	}

	logger := r.logger.With(zap.String("owner_id", ownerID))
	cart := domain.NewCart(
		domain.WithCurrency(unit),
		domain.WithLogger(logger),
	)

	if err := r.catalog.Apply(cart); err != nil {
		return nil, fmt.Errorf("catalog.Apply: %w", err)
	}

	logger.Info("cart created",
		zap.Stringer("cart_id", cart.ID()), zap.Int("promotions", len(r.catalog.Promotions)))

	return cart, nil
}
