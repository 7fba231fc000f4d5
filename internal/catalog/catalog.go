// Package catalog provides the read-only product list the shop sells from.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/drstein77/shopeasy/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateID   = errors.New("duplicate product id")
	ErrNegativePrice = errors.New("negative product price")
	ErrEmpty         = errors.New("catalog is empty")
)

// Source is anything the catalog can be loaded from at start-up.
type Source interface {
	ListProducts(context.Context) ([]models.Product, error)
}

// Static is an immutable, ordered product list.
type Static struct {
	products []models.Product
	byID     map[int]int
}

// New builds a catalog from products, keeping their order.
func New(products []models.Product) (*Static, error) {
	byID := make(map[int]int, len(products))
	for i, p := range products {
		if _, ok := byID[p.ID]; ok {
			return nil, fmt.Errorf("product %d: %w", p.ID, ErrDuplicateID)
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("product %d: %w", p.ID, ErrNegativePrice)
		}
		byID[p.ID] = i
	}

	list := make([]models.Product, len(products))
	copy(list, products)

	return &Static{products: list, byID: byID}, nil
}

// Default returns the built-in three product catalog.
func Default() *Static {
	c, err := New([]models.Product{
		{ID: 1, Name: "T-Shirt", Price: decimal.RequireFromString("25.99"), Image: "/tshirt.jpg"},
		{ID: 2, Name: "Jeans", Price: decimal.RequireFromString("49.99"), Image: "/jeans.jpg"},
		{ID: 3, Name: "Sneakers", Price: decimal.RequireFromString("79.99"), Image: "/sneakers.jpg"},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// List returns a copy of all products in catalog order.
func (c *Static) List() []models.Product {
	out := make([]models.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Static) Find(id int) (models.Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Product{}, false
	}
	return c.products[i], true
}

func (c *Static) Len() int {
	return len(c.products)
}

// Load reads all products from src once and freezes them.
func Load(ctx context.Context, src Source) (*Static, error) {
	products, err := src.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if len(products) == 0 {
		return nil, ErrEmpty
	}
	return New(products)
}

// LoadFile reads a JSON array of products. Prices may be JSON numbers or
// strings.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to decode catalog file %s: %w", path, err)
	}
	if len(products) == 0 {
		return nil, ErrEmpty
	}
	return New(products)
}
