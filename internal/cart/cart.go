// Package cart implements the storefront cart: line identity, sale and
// add-on pricing, and the mutation rules shared by every client surface.
package cart

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/caphe-pos/storefront/internal/catalog"
)

// defaultSentinel replaces an empty option list in a line identity so
// "no options" and "unknown options" can never collide.
const defaultSentinel = "default"

// SelectedOption is one chosen (group, value) pair on a cart line.
type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// LineID derives the stable identity of a cart line from the product id
// and its selected options. Options are serialized as "group:value",
// sorted lexicographically, and joined with "|", which makes the result
// invariant to the order the caller supplied them in. Selections are a
// set: a repeated (group, value) pair counts once, so two additions of
// the same product with the same option set always land on one line.
func LineID(productID string, opts []SelectedOption) string {
	if len(opts) == 0 {
		return productID + "::" + defaultSentinel
	}
	seen := make(map[string]bool, len(opts))
	parts := make([]string, 0, len(opts))
	for _, o := range opts {
		key := o.Name + ":" + o.Value
		if seen[key] {
			continue
		}
		seen[key] = true
		parts = append(parts, key)
	}
	sort.Strings(parts)
	return productID + "::" + strings.Join(parts, "|")
}

// NormalizeSelections reduces a raw selection list to the option set it
// represents: repeated (group, value) pairs collapse to one, and for
// radio groups the last value supplied wins so a line never carries two
// values of an exclusive group. Order of first appearance is preserved.
func NormalizeSelections(p catalog.Product, opts []SelectedOption) []SelectedOption {
	if len(opts) == 0 {
		return nil
	}
	lookup := catalog.OptionLookup(p)
	out := make([]SelectedOption, 0, len(opts))
	for _, o := range opts {
		if group, ok := lookup[o.Name]; ok && group.Type == catalog.SelectionRadio {
			replaced := false
			for i := range out {
				if out[i].Name == o.Name {
					out[i].Value = o.Value
					replaced = true
					break
				}
			}
			if !replaced {
				out = append(out, o)
			}
			continue
		}
		dup := false
		for _, kept := range out {
			if kept == o {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, o)
		}
	}
	return out
}

// LineItem is one distinct (product, option set) entry in the cart. The
// product is a snapshot taken at add time; later catalog edits do not
// reprice lines already in the carts.
type LineItem struct {
	LineID          string           `json:"line_id"`
	Product         catalog.Product  `json:"product"`
	Quantity        int              `json:"quantity"`
	SelectedOptions []SelectedOption `json:"selected_options,omitempty"`
}

// UnitPrice computes the per-unit charge for a product with the given
// selections: the sale-aware base price plus every positive surcharge
// from checkbox groups. Each distinct selection is charged at most once
// no matter how often it appears. Radio (exclusive) choices never
// surcharge, and selections that don't resolve against the merged
// option catalog are charged nothing rather than failing.
func UnitPrice(p catalog.Product, opts []SelectedOption) decimal.Decimal {
	price := p.UnitBasePrice()
	if len(opts) == 0 {
		return price
	}

	lookup := catalog.OptionLookup(p)
	charged := make(map[string]bool, len(opts))
	for _, o := range opts {
		key := o.Name + ":" + o.Value
		if charged[key] {
			continue
		}
		charged[key] = true
		group, ok := lookup[o.Name]
		if !ok || group.Type != catalog.SelectionCheckbox {
			continue
		}
		item, ok := group.Item(o.Value)
		if !ok || !item.Price.IsPositive() {
			continue
		}
		price = price.Add(item.Price)
	}
	return price
}

// Total returns the line's extended price.
func (li LineItem) Total() decimal.Decimal {
	return UnitPrice(li.Product, li.SelectedOptions).Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Totals aggregates a cart: ItemCount sums quantities (not lines).
type Totals struct {
	ItemCount  int             `json:"item_count"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// Cart is an ordered collection of line items keyed by identity. The
// zero value is an empty usable cart. Mutators are synchronous and never
// fail; unknown identities are no-ops.
type Cart struct {
	items []LineItem
}

// New builds a cart from previously persisted lines. Zero- and
// negative-quantity lines are discarded on the way in.
func New(items []LineItem) *Cart {
	c := &Cart{}
	for _, li := range items {
		if li.Quantity <= 0 || li.LineID == "" {
			continue
		}
		c.items = append(c.items, li)
	}
	return c
}

// Items returns the lines in insertion order.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int { return len(c.items) }

// AddItem merges quantity into an existing line with the same identity,
// or appends a new line. Selections are normalized to a set first, so a
// duplicated add-on neither forks the identity nor charges twice.
// Quantities below one are clamped to one.
func (c *Cart) AddItem(p catalog.Product, quantity int, opts []SelectedOption) LineItem {
	if quantity < 1 {
		quantity = 1
	}
	opts = NormalizeSelections(p, opts)
	id := LineID(p.ID, opts)
	for i := range c.items {
		if c.items[i].LineID == id {
			c.items[i].Quantity += quantity
			return c.items[i]
		}
	}
	li := LineItem{
		LineID:          id,
		Product:         p,
		Quantity:        quantity,
		SelectedOptions: opts,
	}
	c.items = append(c.items, li)
	return li
}

// UpdateQuantity sets a line's quantity outright. Zero or negative
// removes the line; a missing identity is a no-op.
func (c *Cart) UpdateQuantity(lineID string, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(lineID)
		return
	}
	for i := range c.items {
		if c.items[i].LineID == lineID {
			c.items[i].Quantity = quantity
			return
		}
	}
}

// RemoveItem deletes the line with the given identity, if present.
func (c *Cart) RemoveItem(lineID string) {
	for i := range c.items {
		if c.items[i].LineID == lineID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}

// Totals sums quantities and extended prices over all lines.
func (c *Cart) Totals() Totals {
	t := Totals{TotalPrice: decimal.Zero}
	for _, li := range c.items {
		t.ItemCount += li.Quantity
		t.TotalPrice = t.TotalPrice.Add(li.Total())
	}
	return t
}
