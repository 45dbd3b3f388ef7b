package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caphe-pos/storefront/internal/cart"
	"github.com/caphe-pos/storefront/internal/catalog"
	"github.com/caphe-pos/storefront/internal/handler"
	"github.com/caphe-pos/storefront/internal/middleware"
	"github.com/caphe-pos/storefront/internal/notify"
	"github.com/caphe-pos/storefront/internal/service"
)

// The cart handler is tested through the real CartService with
// map-backed stores; the service is where the semantics live.

type handlerCartStore struct {
	carts map[string][]cart.LineItem
}

func newHandlerCartStore() *handlerCartStore {
	return &handlerCartStore{carts: make(map[string][]cart.LineItem)}
}

func (m *handlerCartStore) LoadCart(_ context.Context, sessionID string) (*cart.Cart, error) {
	return cart.New(m.carts[sessionID]), nil
}

func (m *handlerCartStore) SaveCart(_ context.Context, sessionID string, c *cart.Cart) error {
	m.carts[sessionID] = c.Items()
	return nil
}

type handlerProductSource struct {
	products map[string]catalog.Product
}

func handlerProducts() *handlerProductSource {
	return &handlerProductSource{products: map[string]catalog.Product{
		"1": {ID: "1", Name: "Cà phê đen", Price: decimal.NewFromInt(29000), Category: "drink", InStock: true},
		"2": {ID: "2", Name: "Bánh kem dâu", Price: decimal.NewFromInt(150000), Category: "cake", InStock: true},
	}}
}

func (m *handlerProductSource) Product(_ context.Context, id string) (catalog.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

type cartEnv struct {
	router *chi.Mux
	sid    string
}

func setupCartEnv() cartEnv {
	svc := service.NewCartService(newHandlerCartStore(), handlerProducts(), notify.NewBus())
	h := handler.NewCartHandler(svc)

	r := chi.NewRouter()
	r.Route("/sessions/{sid}", func(r chi.Router) {
		r.Use(middleware.RequireSession)
		r.Route("/cart", h.RegisterRoutes)
	})
	return cartEnv{router: r, sid: uuid.NewString()}
}

func (e cartEnv) path(suffix string) string {
	return "/sessions/" + e.sid + "/cart" + suffix
}

func TestCartGet_Empty(t *testing.T) {
	env := setupCartEnv()

	rr := doRequest(t, env.router, "GET", env.path(""), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeMap(t, rr)
	if resp["item_count"] != float64(0) {
		t.Errorf("expected empty cart, got %v", resp)
	}
}

func TestCartAddItem(t *testing.T) {
	env := setupCartEnv()

	rr := doRequest(t, env.router, "POST", env.path("/items"), map[string]interface{}{
		"product_id": "1",
		"quantity":   2,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	resp := decodeMap(t, rr)
	if resp["item_count"] != float64(2) {
		t.Errorf("unexpected item_count %v", resp["item_count"])
	}
	items := resp["items"].([]interface{})
	line := items[0].(map[string]interface{})
	if line["line_id"] != "1::default" {
		t.Errorf("unexpected line_id %v", line["line_id"])
	}
}

func TestCartAddItem_WithOptionsMergesByIdentity(t *testing.T) {
	env := setupCartEnv()

	body := map[string]interface{}{
		"product_id": "1",
		"quantity":   1,
		"selected_options": []map[string]string{
			{"name": "Mức đường", "value": "50%"},
		},
	}
	doRequest(t, env.router, "POST", env.path("/items"), body)
	rr := doRequest(t, env.router, "POST", env.path("/items"), body)

	resp := decodeMap(t, rr)
	items := resp["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected identical selections to merge, got %d lines", len(items))
	}
	if items[0].(map[string]interface{})["quantity"] != float64(2) {
		t.Errorf("unexpected quantity %v", items[0])
	}
}

func TestCartAddItem_UnknownProduct(t *testing.T) {
	env := setupCartEnv()

	rr := doRequest(t, env.router, "POST", env.path("/items"), map[string]interface{}{
		"product_id": "999",
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestCartAddItem_MissingProductID(t *testing.T) {
	env := setupCartEnv()

	rr := doRequest(t, env.router, "POST", env.path("/items"), map[string]interface{}{
		"quantity": 1,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCartUpdateItem_ZeroRemoves(t *testing.T) {
	env := setupCartEnv()

	rr := doRequest(t, env.router, "POST", env.path("/items"), map[string]interface{}{
		"product_id": "1",
	})
	resp := decodeMap(t, rr)
	lineID := resp["items"].([]interface{})[0].(map[string]interface{})["line_id"].(string)

	rr = doRequest(t, env.router, "PUT", env.path("/items/"+lineID), map[string]int{"quantity": 0})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp = decodeMap(t, rr)
	if len(resp["items"].([]interface{})) != 0 {
		t.Errorf("expected line removed at quantity 0, got %v", resp["items"])
	}
}

func TestCartRemoveItem(t *testing.T) {
	env := setupCartEnv()

	rr := doRequest(t, env.router, "POST", env.path("/items"), map[string]interface{}{
		"product_id": "1",
		"quantity":   3,
	})
	resp := decodeMap(t, rr)
	lineID := resp["items"].([]interface{})[0].(map[string]interface{})["line_id"].(string)

	rr = doRequest(t, env.router, "DELETE", env.path("/items/"+lineID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp = decodeMap(t, rr)
	if resp["item_count"] != float64(0) {
		t.Errorf("expected empty cart, got %v", resp)
	}
}

func TestCartClear(t *testing.T) {
	env := setupCartEnv()

	doRequest(t, env.router, "POST", env.path("/items"), map[string]interface{}{"product_id": "1"})
	doRequest(t, env.router, "POST", env.path("/items"), map[string]interface{}{"product_id": "2"})

	rr := doRequest(t, env.router, "DELETE", env.path(""), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeMap(t, rr)
	if len(resp["items"].([]interface{})) != 0 {
		t.Errorf("expected cleared cart, got %v", resp["items"])
	}
}

func TestCartRejectsInvalidSession(t *testing.T) {
	env := setupCartEnv()

	rr := doRequest(t, env.router, "GET", "/sessions/not-a-uuid/cart", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
