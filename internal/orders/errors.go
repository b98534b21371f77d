package orders

import "errors"

var (
	ErrProductNotFound = errors.New("product not found")

	// ErrOrderNotFound also covers orders owned by another user; a caller
	// must not be able to tell a foreign order from a missing one.
	ErrOrderNotFound = errors.New("order not found")

	ErrInvalidQuantity = errors.New("quantity must be positive")
)
