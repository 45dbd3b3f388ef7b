package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/caphe-pos/storefront/internal/catalog"
	"github.com/caphe-pos/storefront/internal/handler"
	"github.com/caphe-pos/storefront/internal/upstream"
)

// --- Mock catalog ---

type mockCatalog struct {
	products []catalog.Product
	err      error
}

func (m *mockCatalog) ProductsByCategory(_ context.Context, category string) ([]catalog.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	if category == "" || category == "all" {
		return m.products, nil
	}
	var out []catalog.Product
	for _, p := range m.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockCatalog) Product(_ context.Context, id string) (catalog.Product, error) {
	if m.err != nil {
		return catalog.Product{}, m.err
	}
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return catalog.Product{}, catalog.ErrNotFound
}

func (m *mockCatalog) Options(ctx context.Context, id string) ([]catalog.OptionGroup, error) {
	p, err := m.Product(ctx, id)
	if err != nil {
		return nil, err
	}
	return catalog.MergedOptions(p), nil
}

func setupProductRouter(c *mockCatalog) *chi.Mux {
	h := handler.NewProductHandler(c)
	r := chi.NewRouter()
	r.Route("/products", h.RegisterRoutes)
	return r
}

func testCatalog() *mockCatalog {
	sale := decimal.NewFromInt(25000)
	return &mockCatalog{products: []catalog.Product{
		{ID: "1", Name: "Cà phê đen", Price: decimal.NewFromInt(29000), Category: "drink", InStock: true},
		{ID: "2", Name: "Bánh kem dâu", Price: decimal.NewFromInt(150000), Category: "cake", InStock: true},
		{ID: "3", Name: "Trà đào", Price: decimal.NewFromInt(30000), Category: "drink", OnSale: true, SalePrice: &sale, InStock: true},
	}}
}

// --- List tests ---

func TestProductList_All(t *testing.T) {
	router := setupProductRouter(testCatalog())

	rr := doRequest(t, router, "GET", "/products", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeList(t, rr)
	if len(resp) != 3 {
		t.Fatalf("expected 3 products, got %d", len(resp))
	}
}

func TestProductList_FilterByCategory(t *testing.T) {
	router := setupProductRouter(testCatalog())

	rr := doRequest(t, router, "GET", "/products?category=drink", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeList(t, rr)
	if len(resp) != 2 {
		t.Fatalf("expected 2 drinks, got %d", len(resp))
	}
}

func TestProductList_BackendUnreachable(t *testing.T) {
	router := setupProductRouter(&mockCatalog{err: upstream.ErrUnreachable})

	rr := doRequest(t, router, "GET", "/products", nil)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadGateway)
	}
	resp := decodeMap(t, rr)
	if resp["error"] != upstream.UnreachableMessage {
		t.Errorf("expected localized unreachable message, got %v", resp["error"])
	}
}

// --- Get tests ---

func TestProductGet_SalePriceExposed(t *testing.T) {
	router := setupProductRouter(testCatalog())

	rr := doRequest(t, router, "GET", "/products/3", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeMap(t, rr)
	if resp["on_sale"] != true {
		t.Error("expected on_sale true")
	}
	// unit_price reflects the effective (sale) price.
	if resp["unit_price"] != "25000" && resp["unit_price"] != float64(25000) {
		t.Errorf("unexpected unit_price %v", resp["unit_price"])
	}
}

func TestProductGet_NotFound(t *testing.T) {
	router := setupProductRouter(testCatalog())

	rr := doRequest(t, router, "GET", "/products/999", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

// --- Options tests ---

func TestProductOptions_IncludesCategoryDefaults(t *testing.T) {
	router := setupProductRouter(testCatalog())

	rr := doRequest(t, router, "GET", "/products/1/options", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeList(t, rr)
	names := make(map[string]bool)
	for _, group := range resp {
		names[group["name"].(string)] = true
	}
	if !names["Mức đường"] || !names["Mức đá"] || !names["Topping thêm"] {
		t.Errorf("expected drink default option groups, got %v", names)
	}
}
