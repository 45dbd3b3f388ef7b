package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/caphe-pos/storefront/internal/cart"
	"github.com/caphe-pos/storefront/internal/service"
	"github.com/caphe-pos/storefront/internal/upstream"
)

// CartOps defines the cart operations needed by cart handlers.
// Satisfied by *service.CartService; narrow interface for testability.
type CartOps interface {
	Cart(ctx context.Context, sessionID string) (*cart.Cart, error)
	AddItem(ctx context.Context, sessionID, productID string, quantity int, opts []cart.SelectedOption) (*cart.Cart, error)
	UpdateQuantity(ctx context.Context, sessionID, lineID string, quantity int) (*cart.Cart, error)
	RemoveItem(ctx context.Context, sessionID, lineID string) (*cart.Cart, error)
	Clear(ctx context.Context, sessionID string) (*cart.Cart, error)
}

// CartHandler serves the session cart endpoints.
type CartHandler struct {
	carts CartOps
}

func NewCartHandler(carts CartOps) *CartHandler {
	return &CartHandler{carts: carts}
}

// RegisterRoutes registers cart endpoints on the given Chi router.
// Expected to be mounted inside a session-scoped subrouter:
// /sessions/{sid}/cart
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Post("/items", h.AddItem)
	r.Put("/items/{lineID}", h.UpdateItem)
	r.Delete("/items/{lineID}", h.RemoveItem)
	r.Delete("/", h.Clear)
}

// --- Request / Response types ---

type addItemRequest struct {
	ProductID       string                `json:"product_id"`
	Quantity        int                   `json:"quantity"`
	SelectedOptions []cart.SelectedOption `json:"selected_options"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type lineItemResponse struct {
	LineID          string                `json:"line_id"`
	ProductID       string                `json:"product_id"`
	Name            string                `json:"name"`
	ImageURL        string                `json:"image_url,omitempty"`
	UnitPrice       decimal.Decimal       `json:"unit_price"`
	Quantity        int                   `json:"quantity"`
	LineTotal       decimal.Decimal       `json:"line_total"`
	SelectedOptions []cart.SelectedOption `json:"selected_options,omitempty"`
}

type cartResponse struct {
	Items      []lineItemResponse `json:"items"`
	ItemCount  int                `json:"item_count"`
	TotalPrice decimal.Decimal    `json:"total_price"`
}

func toCartResponse(c *cart.Cart) cartResponse {
	items := c.Items()
	resp := cartResponse{Items: make([]lineItemResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, lineItemResponse{
			LineID:          item.LineID,
			ProductID:       item.Product.ID,
			Name:            item.Product.Name,
			ImageURL:        item.Product.ImageURL,
			UnitPrice:       cart.UnitPrice(item.Product, item.SelectedOptions),
			Quantity:        item.Quantity,
			LineTotal:       item.Total(),
			SelectedOptions: item.SelectedOptions,
		})
	}
	totals := c.Totals()
	resp.ItemCount = totals.ItemCount
	resp.TotalPrice = totals.TotalPrice
	return resp
}

// --- Handlers ---

// Get returns the session's cart with line totals.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Cart(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// AddItem adds a product with its option selection to the cart.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "product_id is required"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be positive"})
		return
	}

	c, err := h.carts.AddItem(r.Context(), chi.URLParam(r, "sid"), req.ProductID, req.Quantity, req.SelectedOptions)
	if err != nil {
		writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCartResponse(c))
}

// UpdateItem sets a line's quantity; zero removes the line.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	c, err := h.carts.UpdateQuantity(r.Context(), chi.URLParam(r, "sid"), chi.URLParam(r, "lineID"), req.Quantity)
	if err != nil {
		writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// RemoveItem deletes a line.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.RemoveItem(r.Context(), chi.URLParam(r, "sid"), chi.URLParam(r, "lineID"))
	if err != nil {
		writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// Clear empties the cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Clear(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func writeCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
	case errors.Is(err, upstream.ErrUnreachable):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": upstream.UnreachableMessage})
	default:
		log.Printf("ERROR: cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
