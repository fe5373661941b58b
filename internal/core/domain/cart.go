package domain

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Product describes a catalog item as it is offered to the cart, without a quantity.
type Product struct {
	ID       string
	Title    string
	ImageURL string
	Price    decimal.Decimal
}

type CartItem struct {
	Product
	Quantity int
}

// Cart is ordered by insertion and unique by product ID. Every entry has Quantity >= 1.
// Transitions never modify the receiver.
type Cart []CartItem

func (c Cart) IndexOf(id string) int {
	return slices.IndexFunc(c, func(item CartItem) bool { return item.ID == id })
}

func (c Cart) Clone() Cart {
	if c == nil {
		return Cart{}
	}
	return slices.Clone(c)
}

// WithAdded appends p with quantity 1. Callers check IndexOf first; an existing
// entry must be incremented instead.
func (c Cart) WithAdded(p Product) Cart {
	next := make(Cart, 0, len(c)+1)
	next = append(next, c...)
	return append(next, CartItem{Product: p, Quantity: 1})
}

// WithIncremented returns the cart unchanged when id is absent.
func (c Cart) WithIncremented(id string) Cart {
	next := c.Clone()
	if i := next.IndexOf(id); i >= 0 {
		next[i].Quantity++
	}
	return next
}

// WithDecremented removes the entry once its quantity reaches zero.
func (c Cart) WithDecremented(id string) Cart {
	next := make(Cart, 0, len(c))
	for _, item := range c {
		if item.ID == id {
			item.Quantity--
		}
		if item.Quantity > 0 {
			next = append(next, item)
		}
	}
	return next
}

// Units is the total quantity across all entries.
func (c Cart) Units() int {
	total := 0
	for _, item := range c {
		total += item.Quantity
	}
	return total
}

// Normalize restores the cart invariants on data read back from storage.
// Entries with an empty id, a negative price or a quantity below 1 are dropped,
// and only the first entry of a duplicated id is kept.
func Normalize(items []CartItem) (Cart, int) {
	out := make(Cart, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	dropped := 0
	for _, item := range items {
		if item.ID == "" || item.Quantity < 1 || item.Price.IsNegative() {
			dropped++
			continue
		}
		if _, ok := seen[item.ID]; ok {
			dropped++
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out, dropped
}
