// Package cart holds the cart engine. Every operation is a pure function:
// a Cart value is never modified once built, mutations return a new Cart and
// the caller decides when to swap it in and who to notify.
package cart

import (
	"errors"
	"fmt"

	"github.com/drstein77/shopeasy/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrDuplicateItem   = errors.New("duplicate cart item")
)

// Cart is an ordered list of items, unique by product id.
// The zero value is an empty cart.
type Cart struct {
	items []models.CartItem
}

// FromItems builds a cart from existing lines, checking that every quantity
// is at least one and that no product appears twice.
func FromItems(items ...models.CartItem) (Cart, error) {
	seen := make(map[int]struct{}, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return Cart{}, fmt.Errorf("product %d: %w", item.ID, ErrInvalidQuantity)
		}
		if _, ok := seen[item.ID]; ok {
			return Cart{}, fmt.Errorf("product %d: %w", item.ID, ErrDuplicateItem)
		}
		seen[item.ID] = struct{}{}
	}

	return Cart{items: clone(items)}, nil
}

// Items returns a copy of the cart lines in insertion order.
func (c Cart) Items() []models.CartItem {
	return clone(c.items)
}

func (c Cart) Len() int {
	return len(c.items)
}

func (c Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Find returns the line holding productID.
func (c Cart) Find(productID int) (models.CartItem, bool) {
	if i := c.index(productID); i >= 0 {
		return c.items[i], true
	}
	return models.CartItem{}, false
}

func (c Cart) index(productID int) int {
	for i, item := range c.items {
		if item.ID == productID {
			return i
		}
	}
	return -1
}

// AddItem returns a cart with one more unit of p. An existing line keeps its
// position and gets quantity+1; a new product is appended with quantity 1.
// p is taken at face value, checking it against a catalog is up to the caller.
func AddItem(c Cart, p models.Product) Cart {
	if i := c.index(p.ID); i >= 0 {
		items := clone(c.items)
		items[i].Quantity++
		return Cart{items: items}
	}

	items := make([]models.CartItem, len(c.items), len(c.items)+1)
	copy(items, c.items)
	items = append(items, models.CartItem{Product: p, Quantity: 1})
	return Cart{items: items}
}

// RemoveItem returns a cart without the line for productID. Removing a
// product that is not in the cart returns c as is.
func RemoveItem(c Cart, productID int) Cart {
	i := c.index(productID)
	if i < 0 {
		return c
	}

	items := make([]models.CartItem, 0, len(c.items)-1)
	items = append(items, c.items[:i]...)
	items = append(items, c.items[i+1:]...)
	return Cart{items: items}
}

// Total is the sum of price*quantity over all lines. No rounding is applied.
func Total(c Cart) decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// ItemCount is the sum of quantities, shown on the cart badge.
func ItemCount(c Cart) int {
	count := 0
	for _, item := range c.items {
		count += item.Quantity
	}
	return count
}

// CheckoutEnabled reports whether checkout can be offered for c.
func CheckoutEnabled(c Cart) bool {
	return !c.IsEmpty()
}

// Equal reports whether a and b hold the same lines in the same order.
func Equal(a, b Cart) bool {
	if len(a.items) != len(b.items) {
		return false
	}
	for i := range a.items {
		x, y := a.items[i], b.items[i]
		if x.ID != y.ID || x.Name != y.Name || x.Image != y.Image ||
			x.Quantity != y.Quantity || !x.Price.Equal(y.Price) {
			return false
		}
	}
	return true
}

func clone(items []models.CartItem) []models.CartItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]models.CartItem, len(items))
	copy(out, items)
	return out
}
