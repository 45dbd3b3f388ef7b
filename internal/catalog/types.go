package catalog

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Selection modes for an option group. Radio groups are exclusive,
// checkbox groups allow any subset.
const (
	SelectionRadio    = "radio"
	SelectionCheckbox = "checkbox"
)

// OptionItem is one choice inside an option group. Free choices carry a
// zero price.
type OptionItem struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// UnmarshalJSON accepts both shapes the backend uses for option items:
// a bare label ("100%") or an object ({"name":"Trân châu","price":5000}).
func (it *OptionItem) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		it.Name = label
		it.Price = decimal.Zero
		return nil
	}

	var obj struct {
		Name  string          `json:"name"`
		Price json.RawMessage `json:"price"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	it.Name = obj.Name
	it.Price = rawToDecimal(obj.Price)
	return nil
}

// OptionGroup is a named set of variant choices for a product, e.g.
// sugar level or extra toppings.
type OptionGroup struct {
	Name  string       `json:"name"`
	Type  string       `json:"type"`
	Items []OptionItem `json:"items"`
}

// Item returns the item with the given name, if any.
func (g OptionGroup) Item(name string) (OptionItem, bool) {
	for _, it := range g.Items {
		if it.Name == name {
			return it, true
		}
	}
	return OptionItem{}, false
}

// Product is a normalized catalog record. Prices are VND amounts held as
// decimals; the backend is inconsistent about numeric types, so all
// normalization happens at the upstream boundary (see normalize.go).
type Product struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Price       decimal.Decimal      `json:"price"`
	ImageURL    string               `json:"image_url"`
	Category    string               `json:"category"`
	SubCategory string               `json:"sub_category,omitempty"`
	OnSale      bool                 `json:"on_sale"`
	SalePrice   *decimal.Decimal     `json:"sale_price,omitempty"`
	InStock     bool                 `json:"in_stock"`
	Rating      *float64             `json:"rating,omitempty"`
	Options     []OptionGroup        `json:"options,omitempty"`
	Attributes  map[string][]string  `json:"attributes,omitempty"`
	AIKeys      []string             `json:"ai_keys,omitempty"`
}

// UnitBasePrice returns the price a single unit is charged at before any
// option surcharge: the sale price when the product is flagged on sale
// and a sale price is present, otherwise the base price.
func (p Product) UnitBasePrice() decimal.Decimal {
	if p.OnSale && p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}
