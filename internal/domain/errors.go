package domain

import "errors"

var (
	ErrInvalidReference     = errors.New("reference is empty")
	ErrInvalidPrice         = errors.New("price must be a finite positive number")
	ErrInvalidQuantity      = errors.New("quantity must be a positive integer")
	ErrReferenceNotFound    = errors.New("reference not found")
	ErrPriceNotFound        = errors.New("price not found")
	ErrInsufficientQuantity = errors.New("insufficient quantity")

	ErrInvalidPromotionCode       = errors.New("promotion code is empty")
	ErrInvalidPercent             = errors.New("percent must be an integer between 1 and 99")
	ErrInvalidThreshold           = errors.New("threshold must be an integer greater than or equal to 2")
	ErrPromotionReferenceConflict = errors.New("reference is already in the cart")
	ErrPromotionCodeConflict      = errors.New("promotion code is already registered")
)
