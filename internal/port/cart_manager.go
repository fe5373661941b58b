package port

import "github.com/rl1809/gomarket-cart/internal/core/domain"

// CartManager is the capability set handed to cart consumers.
type CartManager interface {
	// Products returns a copy of the current cart in display order
	Products() ([]domain.CartItem, error)

	// AddToCart appends p with quantity 1, or increments it when already present
	AddToCart(p domain.Product) error

	// Increment raises the quantity of id by one, no-op when absent
	Increment(id string) error

	// Decrement lowers the quantity of id by one and removes it at zero, no-op when absent
	Decrement(id string) error
}
