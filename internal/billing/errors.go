package billing

import "errors"

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrLineNotFound         = errors.New("item is not in the cart")
	ErrInsufficientPayment  = errors.New("insufficient payment")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrSessionNotFound      = errors.New("billing session not found")
)
