package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/drstein77/shopeasy/internal/cart"
	"github.com/drstein77/shopeasy/internal/middleware"
	"github.com/drstein77/shopeasy/internal/models"
	"github.com/drstein77/shopeasy/internal/storage"
	"github.com/go-chi/chi"
	"go.uber.org/zap"
)

// Catalog lists the products on sale
type Catalog interface {
	List() []models.Product
}

// Storage interface for session cart state
type Storage interface {
	View(sessionID string) storage.View
	AddItem(ctx context.Context, sessionID string, productID int) (storage.View, error)
	RemoveItem(ctx context.Context, sessionID string, productID int) (storage.View, error)
	TogglePanel(sessionID string) storage.View
	SetPanel(sessionID string, open bool) storage.View
}

// Pinger reports database health
type Pinger interface {
	Ping(context.Context) bool
}

// Log interface for logging
type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// BaseController struct for handling requests
type BaseController struct {
	catalog Catalog
	storage Storage
	pinger  Pinger
	log     Log
}

// NewBaseController creates a new BaseController instance. pinger may be nil
// when the shop runs without a database.
func NewBaseController(catalog Catalog, storage Storage, pinger Pinger, log Log) *BaseController {
	return &BaseController{
		catalog: catalog,
		storage: storage,
		pinger:  pinger,
		log:     log,
	}
}

// Route sets up the routes for the BaseController
func (h *BaseController) Route() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/ping", h.ping)
	r.Get("/api/v0/products", h.getProducts)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session)
		r.Get("/api/v0/cart", h.getCart)
		r.Post("/api/v0/cart/items", h.addItem)
		r.Delete("/api/v0/cart/items/{productID}", h.removeItem)
		r.Post("/api/v0/cart/panel", h.togglePanel)
		r.Delete("/api/v0/cart/panel", h.closePanel)
		r.Post("/api/v0/cart/checkout", h.checkout)
	})

	return r
}

func (h *BaseController) ping(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil && !h.pinger.Ping(r.Context()) {
		http.Error(w, "database is unreachable", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *BaseController) getProducts(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.catalog.List())
}

func (h *BaseController) getCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, h.storage.View(middleware.SessionID(r.Context())))
}

func (h *BaseController) addItem(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req models.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == nil {
		http.Error(w, "request body must be {\"product_id\": <int>}", http.StatusBadRequest)
		return
	}

	v, err := h.storage.AddItem(r.Context(), middleware.SessionID(r.Context()), *req.ProductID)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("Failed to add item", zap.Error(err))
		http.Error(w, "failed to add item", http.StatusInternalServerError)
		return
	}

	h.writeCart(w, v)
}

func (h *BaseController) removeItem(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.Atoi(chi.URLParam(r, "productID"))
	if err != nil {
		http.Error(w, "product id must be an integer", http.StatusBadRequest)
		return
	}

	v, err := h.storage.RemoveItem(r.Context(), middleware.SessionID(r.Context()), productID)
	if err != nil {
		h.log.Error("Failed to remove item", zap.Error(err))
		http.Error(w, "failed to remove item", http.StatusInternalServerError)
		return
	}

	h.writeCart(w, v)
}

func (h *BaseController) togglePanel(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, h.storage.TogglePanel(middleware.SessionID(r.Context())))
}

// closePanel backs the close button of the panel; closing a closed panel is
// fine.
func (h *BaseController) closePanel(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, h.storage.SetPanel(middleware.SessionID(r.Context()), false))
}

// checkout is a placeholder: refused while the cart is empty and not
// implemented otherwise.
func (h *BaseController) checkout(w http.ResponseWriter, r *http.Request) {
	v := h.storage.View(middleware.SessionID(r.Context()))
	if !cart.CheckoutEnabled(v.Cart) {
		http.Error(w, "cart is empty", http.StatusConflict)
		return
	}
	http.Error(w, "checkout is not available", http.StatusNotImplemented)
}

func (h *BaseController) writeCart(w http.ResponseWriter, v storage.View) {
	h.writeJSON(w, http.StatusOK, newCartResponse(v.Cart, v.Open))
}

func (h *BaseController) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}

func newCartResponse(c cart.Cart, open bool) models.CartResponse {
	items := c.Items()
	lines := make([]models.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, models.CartLine{CartItem: item, Subtotal: item.LineTotal()})
	}

	total := cart.Total(c)
	return models.CartResponse{
		Items:           lines,
		ItemCount:       cart.ItemCount(c),
		Total:           total,
		TotalDisplay:    total.StringFixed(2),
		CheckoutEnabled: cart.CheckoutEnabled(c),
		Open:            open,
	}
}
