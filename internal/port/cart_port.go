package port

import (
	"context"
	"github.com/nikolayk812/cartledger/internal/domain"
	"github.com/shopspring/decimal"
)

type PromotionRegistry interface {
	RegisterPromotion(code, reference string, percent int, opts ...domain.PromotionOption) error
	RegisterBuyNGetOnePromotion(code, reference string, threshold int) error
	ActivatePromotion(code string) bool
}

type Cart interface {
	PromotionRegistry

	Add(reference string, price float64, quantity int) error
	Remove(reference string, quantity int) error

	TotalAmount() decimal.Decimal
	References() []string
	UnitPrices(reference string) ([]float64, error)
	Quantity(reference string) (int, error)
	QuantityAt(reference string, price float64) (int, error)
	Amount(reference string, price float64) (decimal.Decimal, error)
}

type CartRepository interface {
	GetCart(ctx context.Context, ownerID string) (*domain.Cart, error)
	DeleteCart(ctx context.Context, ownerID string) (bool, error)
	OwnerIDs(ctx context.Context) ([]string, error)
}
