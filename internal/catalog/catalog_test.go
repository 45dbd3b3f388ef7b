package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/caphe-pos/storefront/internal/catalog"
	"github.com/caphe-pos/storefront/internal/enum"
)

// ========================
// Option merge
// ========================

func TestMergeOptions_OverrideReplacesInPlace(t *testing.T) {
	defaults := []catalog.OptionGroup{
		{Name: "Mức đường", Type: catalog.SelectionRadio},
		{Name: "Topping thêm", Type: catalog.SelectionCheckbox},
	}
	overrides := []catalog.OptionGroup{
		{Name: "Topping thêm", Type: catalog.SelectionCheckbox, Items: []catalog.OptionItem{{Name: "Kem cheese"}}},
	}

	merged := catalog.MergeOptions(defaults, overrides)

	if len(merged) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(merged))
	}
	if merged[1].Name != "Topping thêm" {
		t.Errorf("override changed group order: got %q at index 1", merged[1].Name)
	}
	if len(merged[1].Items) != 1 || merged[1].Items[0].Name != "Kem cheese" {
		t.Errorf("override items not applied: %+v", merged[1].Items)
	}
}

func TestMergeOptions_NewGroupsAppended(t *testing.T) {
	defaults := []catalog.OptionGroup{{Name: "Mức đường"}}
	overrides := []catalog.OptionGroup{{Name: "Loại sữa"}}

	merged := catalog.MergeOptions(defaults, overrides)

	if len(merged) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(merged))
	}
	if merged[0].Name != "Mức đường" || merged[1].Name != "Loại sữa" {
		t.Errorf("unexpected order: %q, %q", merged[0].Name, merged[1].Name)
	}
}

func TestMergeOptions_NoDuplicateNames(t *testing.T) {
	defaults := []catalog.OptionGroup{{Name: "A"}, {Name: "B"}}
	overrides := []catalog.OptionGroup{{Name: "B"}, {Name: "C"}, {Name: "C"}}

	merged := catalog.MergeOptions(defaults, overrides)

	seen := make(map[string]bool)
	for _, g := range merged {
		if seen[g.Name] {
			t.Fatalf("duplicate group %q after merge", g.Name)
		}
		seen[g.Name] = true
	}
}

func TestMergeOptions_AbsentInputs(t *testing.T) {
	if got := catalog.MergeOptions(nil, nil); len(got) != 0 {
		t.Errorf("nil inputs: got %d groups, want 0", len(got))
	}
	if got := catalog.MergeOptions(nil, []catalog.OptionGroup{{Name: "X"}}); len(got) != 1 {
		t.Errorf("nil defaults: got %d groups, want 1", len(got))
	}
}

func TestDefaultOptions_DrinkHasPricedToppings(t *testing.T) {
	groups := catalog.DefaultOptions(enum.CategoryDrink)
	if len(groups) != 3 {
		t.Fatalf("expected 3 drink groups, got %d", len(groups))
	}

	toppings := groups[2]
	if toppings.Type != catalog.SelectionCheckbox {
		t.Errorf("topping group type: got %q, want checkbox", toppings.Type)
	}
	item, ok := toppings.Item("Trân châu")
	if !ok {
		t.Fatal("Trân châu missing from default toppings")
	}
	if !item.Price.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("Trân châu price: got %s, want 5000", item.Price)
	}
}

// ========================
// Option item decoding
// ========================

func TestOptionItem_UnmarshalBareLabel(t *testing.T) {
	var it catalog.OptionItem
	if err := json.Unmarshal([]byte(`"70%"`), &it); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if it.Name != "70%" || !it.Price.IsZero() {
		t.Errorf("got %+v, want free item named 70%%", it)
	}
}

func TestOptionItem_UnmarshalPricedObject(t *testing.T) {
	var it catalog.OptionItem
	if err := json.Unmarshal([]byte(`{"name":"Pudding","price":7000}`), &it); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if it.Name != "Pudding" || !it.Price.Equal(decimal.NewFromInt(7000)) {
		t.Errorf("got %+v, want Pudding/7000", it)
	}
}

func TestOptionItem_UnmarshalStringPrice(t *testing.T) {
	var it catalog.OptionItem
	if err := json.Unmarshal([]byte(`{"name":"Thạch","price":"6000"}`), &it); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !it.Price.Equal(decimal.NewFromInt(6000)) {
		t.Errorf("price: got %s, want 6000", it.Price)
	}
}

// ========================
// Product normalization
// ========================

func TestNormalizeProducts_LooseTypes(t *testing.T) {
	payload := []byte(`[
		{
			"id": 7,
			"name": "Trà đào",
			"price": "45000",
			"category": "Drink",
			"on_sale": 1,
			"sale_price": 39000,
			"quantity": 12,
			"rating": "4.5",
			"image_url": "uploads/tra-dao.jpg"
		},
		{"name": "thiếu id"},
		{"id": "x1", "name": "Bánh bò", "price": 20000, "category": "weird"}
	]`)

	products, err := catalog.NormalizeProducts(payload)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products (malformed entry dropped), got %d", len(products))
	}

	p := products[0]
	if p.ID != "7" {
		t.Errorf("id: got %q, want \"7\"", p.ID)
	}
	if !p.Price.Equal(decimal.NewFromInt(45000)) {
		t.Errorf("price: got %s, want 45000", p.Price)
	}
	if p.Category != enum.CategoryDrink {
		t.Errorf("category: got %q, want drink", p.Category)
	}
	if !p.OnSale || p.SalePrice == nil || !p.SalePrice.Equal(decimal.NewFromInt(39000)) {
		t.Errorf("sale: on_sale=%v sale_price=%v", p.OnSale, p.SalePrice)
	}
	if !p.InStock {
		t.Error("quantity 12 should mean in stock")
	}
	if p.Rating == nil || *p.Rating != 4.5 {
		t.Errorf("rating: got %v, want 4.5", p.Rating)
	}
	if p.ImageURL != "/uploads/tra-dao.jpg" {
		t.Errorf("image url: got %q", p.ImageURL)
	}

	if products[1].Category != enum.CategoryAll {
		t.Errorf("unknown category should normalize to all, got %q", products[1].Category)
	}
	if products[1].ImageURL != catalog.DefaultImageURL {
		t.Errorf("missing image should get the default, got %q", products[1].ImageURL)
	}
}

func TestNormalizeProducts_OutOfStock(t *testing.T) {
	products, err := catalog.NormalizeProducts([]byte(`[{"id":1,"name":"Hết hàng","price":10000,"quantity":0}]`))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if products[0].InStock {
		t.Error("quantity 0 should mean out of stock")
	}
}

func TestNormalizeProducts_Attributes(t *testing.T) {
	payload := []byte(`[{
		"id": 1, "name": "Cà phê sữa", "price": 29000,
		"attributes": [
			{"type": "vị", "value": "đắng"},
			{"type": "vị", "value": "đắng"},
			{"type": "nhiệt độ", "value": "nóng"}
		],
		"ai_keys": "[\"coffee\",\"milk\"]"
	}]`)

	products, err := catalog.NormalizeProducts(payload)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	attrs := products[0].Attributes
	if len(attrs["vị"]) != 1 {
		t.Errorf("duplicate attribute values not collapsed: %v", attrs["vị"])
	}
	if len(attrs) != 2 {
		t.Errorf("expected 2 attribute keys, got %d", len(attrs))
	}
	if len(products[0].AIKeys) != 2 {
		t.Errorf("nested ai_keys not parsed: %v", products[0].AIKeys)
	}
}

// ========================
// Service
// ========================

type stubFetcher struct {
	products []catalog.Product
	err      error
	calls    int
}

func (f *stubFetcher) FetchProducts(context.Context) ([]catalog.Product, error) {
	f.calls++
	return f.products, f.err
}

type memCache struct {
	products []catalog.Product
	ok       bool
}

func (c *memCache) GetProducts(context.Context) ([]catalog.Product, bool) {
	return c.products, c.ok
}

func (c *memCache) SetProducts(_ context.Context, products []catalog.Product) {
	c.products = products
	c.ok = true
}

func TestCatalogService_CachesFetches(t *testing.T) {
	fetcher := &stubFetcher{products: []catalog.Product{{ID: "1", Name: "Cà phê đen"}}}
	svc := catalog.NewService(fetcher, &memCache{})

	for i := 0; i < 3; i++ {
		if _, err := svc.Products(context.Background()); err != nil {
			t.Fatalf("products: %v", err)
		}
	}
	if fetcher.calls != 1 {
		t.Errorf("fetch calls: got %d, want 1 (cached)", fetcher.calls)
	}
}

func TestCatalogService_ProductNotFound(t *testing.T) {
	fetcher := &stubFetcher{products: []catalog.Product{{ID: "1", Name: "Cà phê đen"}}}
	svc := catalog.NewService(fetcher, nil)

	_, err := svc.Product(context.Background(), "missing")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalogService_FilterByCategory(t *testing.T) {
	fetcher := &stubFetcher{products: []catalog.Product{
		{ID: "1", Name: "Trà sữa", Category: enum.CategoryDrink},
		{ID: "2", Name: "Bánh kem", Category: enum.CategoryCake},
	}}
	svc := catalog.NewService(fetcher, nil)

	drinks, err := svc.ProductsByCategory(context.Background(), enum.CategoryDrink)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(drinks) != 1 || drinks[0].ID != "1" {
		t.Errorf("drink filter: %+v", drinks)
	}

	all, err := svc.ProductsByCategory(context.Background(), enum.CategoryAll)
	if err != nil {
		t.Fatalf("filter all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all filter: got %d products, want 2", len(all))
	}
}
