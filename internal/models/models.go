package models

import "github.com/shopspring/decimal"

// Product is a catalog entry. Products are created once when the catalog is
// loaded and never change afterwards.
type Product struct {
	ID    int             `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

// CartItem is a product held in a cart together with its quantity.
type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

// LineTotal returns price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type AddItemRequest struct {
	ProductID *int `json:"product_id"`
}

type CartLine struct {
	CartItem
	Subtotal decimal.Decimal `json:"subtotal"`
}

// CartResponse is the cart panel as returned by the API.
type CartResponse struct {
	Items           []CartLine      `json:"items"`
	ItemCount       int             `json:"item_count"`
	Total           decimal.Decimal `json:"total"`
	TotalDisplay    string          `json:"total_display"`
	CheckoutEnabled bool            `json:"checkout_enabled"`
	Open            bool            `json:"open"`
}
