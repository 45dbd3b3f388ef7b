package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/caphe-pos/storefront/internal/catalog"
	"github.com/caphe-pos/storefront/internal/upstream"
)

// ProductCatalog defines the catalog methods needed by product handlers.
// Satisfied by *catalog.Service; narrow interface for testability.
type ProductCatalog interface {
	ProductsByCategory(ctx context.Context, category string) ([]catalog.Product, error)
	Product(ctx context.Context, id string) (catalog.Product, error)
	Options(ctx context.Context, id string) ([]catalog.OptionGroup, error)
}

// ProductHandler serves the normalized product catalog.
type ProductHandler struct {
	catalog ProductCatalog
}

func NewProductHandler(c ProductCatalog) *ProductHandler {
	return &ProductHandler{catalog: c}
}

// RegisterRoutes registers catalog endpoints on the given Chi router.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/options", h.Options)
}

// --- Response types ---

type productResponse struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Price       decimal.Decimal       `json:"price"`
	UnitPrice   decimal.Decimal       `json:"unit_price"`
	ImageURL    string                `json:"image_url"`
	Category    string                `json:"category"`
	SubCategory string                `json:"sub_category,omitempty"`
	OnSale      bool                  `json:"on_sale"`
	SalePrice   *decimal.Decimal      `json:"sale_price,omitempty"`
	InStock     bool                  `json:"in_stock"`
	Rating      *float64              `json:"rating,omitempty"`
	Attributes  map[string][]string   `json:"attributes,omitempty"`
	AIKeys      []string              `json:"ai_keys,omitempty"`
	Options     []catalog.OptionGroup `json:"options,omitempty"`
}

func toProductResponse(p catalog.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		UnitPrice:   p.UnitBasePrice(),
		ImageURL:    p.ImageURL,
		Category:    p.Category,
		SubCategory: p.SubCategory,
		OnSale:      p.OnSale,
		SalePrice:   p.SalePrice,
		InStock:     p.InStock,
		Rating:      p.Rating,
		Attributes:  p.Attributes,
		AIKeys:      p.AIKeys,
		Options:     p.Options,
	}
}

// --- Handlers ---

// List returns the catalog, optionally filtered by ?category=.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	products, err := h.catalog.ProductsByCategory(r.Context(), category)
	if err != nil {
		writeCatalogError(w, err)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single product.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

// Options returns the product's option groups with per-category
// defaults merged in.
func (h *ProductHandler) Options(w http.ResponseWriter, r *http.Request) {
	opts, err := h.catalog.Options(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
	case errors.Is(err, upstream.ErrUnreachable):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": upstream.UnreachableMessage})
	default:
		log.Printf("ERROR: catalog: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
