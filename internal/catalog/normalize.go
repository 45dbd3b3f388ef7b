package catalog

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/caphe-pos/storefront/internal/enum"
)

// DefaultImageURL is substituted when the backend record has no usable
// image reference.
const DefaultImageURL = "/images/default-product.jpg"

// rawProduct tolerates the backend's loose typing: ids and prices arrive
// as numbers or strings, flags as booleans or numbers, attributes in two
// different shapes.
type rawProduct struct {
	ID          json.RawMessage `json:"id"`
	Name        string          `json:"name"`
	Price       json.RawMessage `json:"price"`
	ImageURL    json.RawMessage `json:"image_url"`
	Category    string          `json:"category"`
	SubCategory string          `json:"sub_category"`
	OnSale      json.RawMessage `json:"on_sale"`
	SalePrice   json.RawMessage `json:"sale_price"`
	Quantity    json.RawMessage `json:"quantity"`
	Rating      json.RawMessage `json:"rating"`
	Options     []OptionGroup   `json:"options"`
	Attributes  json.RawMessage `json:"attributes"`
	AIKeys      json.RawMessage `json:"ai_keys"`
}

// NormalizeProducts decodes a backend /products payload into clean
// records. Individual malformed entries are dropped, never fatal.
func NormalizeProducts(data []byte) ([]Product, error) {
	var raws []rawProduct
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(raws))
	for _, r := range raws {
		p, ok := normalizeProduct(r)
		if !ok {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

func normalizeProduct(r rawProduct) (Product, bool) {
	id := rawToString(r.ID)
	if id == "" || r.Name == "" {
		return Product{}, false
	}

	p := Product{
		ID:          id,
		Name:        r.Name,
		Price:       rawToDecimal(r.Price),
		ImageURL:    resolveImageURL(r.ImageURL),
		Category:    normalizeCategory(r.Category),
		SubCategory: strings.TrimSpace(r.SubCategory),
		OnSale:      rawToBool(r.OnSale),
		InStock:     true,
		Options:     r.Options,
		Attributes:  parseAttributes(r.Attributes),
		AIKeys:      parseAIKeys(r.AIKeys),
	}

	if sale, ok := rawToDecimalOK(r.SalePrice); ok {
		p.SalePrice = &sale
	}
	if qty, ok := rawToFloatOK(r.Quantity); ok {
		p.InStock = qty > 0
	}
	if rating, ok := rawToFloatOK(r.Rating); ok {
		p.Rating = &rating
	}
	return p, true
}

func normalizeCategory(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case enum.CategoryCake:
		return enum.CategoryCake
	case enum.CategoryDrink:
		return enum.CategoryDrink
	case enum.CategoryFood:
		return enum.CategoryFood
	}
	return enum.CategoryAll
}

func resolveImageURL(raw json.RawMessage) string {
	s := strings.TrimSpace(rawToString(raw))
	if s == "" {
		return DefaultImageURL
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "data:") || strings.HasPrefix(s, "/") {
		return s
	}
	return "/" + s
}

// parseAttributes accepts either a list of {type, value} records or a
// map of key to value(s), and folds both into a deduplicated multimap.
func parseAttributes(raw json.RawMessage) map[string][]string {
	if len(raw) == 0 {
		return nil
	}

	out := make(map[string][]string)
	add := func(key, val string) {
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if key == "" || val == "" {
			return
		}
		for _, existing := range out[key] {
			if existing == val {
				return
			}
		}
		out[key] = append(out[key], val)
	}

	var entries []struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &entries); err == nil {
		for _, e := range entries {
			add(e.Type, rawToString(e.Value))
		}
	} else {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil
		}
		for key, val := range m {
			var list []json.RawMessage
			if err := json.Unmarshal(val, &list); err == nil {
				for _, item := range list {
					add(key, rawToString(item))
				}
			} else {
				add(key, rawToString(val))
			}
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func parseAIKeys(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var keys []string
	seen := make(map[string]bool)
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		keys = append(keys, v)
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			add(rawToString(item))
		}
		return keys
	}

	// A single string may itself hold a JSON-encoded list.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var nested []string
		if err := json.Unmarshal([]byte(s), &nested); err == nil {
			for _, item := range nested {
				add(item)
			}
		} else {
			add(s)
		}
	}
	return keys
}

// --- Loose scalar conversions ---

func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func rawToDecimal(raw json.RawMessage) decimal.Decimal {
	d, _ := rawToDecimalOK(raw)
	return d
}

func rawToDecimalOK(raw json.RawMessage) (decimal.Decimal, bool) {
	if len(raw) == 0 {
		return decimal.Zero, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if d, err := decimal.NewFromString(n.String()); err == nil {
			return d, true
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if d, err := decimal.NewFromString(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return decimal.Zero, false
}

func rawToFloatOK(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func rawToBool(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	if f, ok := rawToFloatOK(raw); ok {
		return f != 0
	}
	return false
}
