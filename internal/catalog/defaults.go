package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/caphe-pos/storefront/internal/enum"
)

// defaultOptionsByCategory mirrors the storefront's static option config:
// every product in a category gets these groups unless it overrides them.
var defaultOptionsByCategory = map[string][]OptionGroup{
	enum.CategoryDrink: {
		{
			Name:  "Mức đường",
			Type:  SelectionRadio,
			Items: labels("100%", "70%", "50%", "30%", "0%"),
		},
		{
			Name:  "Mức đá",
			Type:  SelectionRadio,
			Items: labels("100%", "70%", "50%", "30%", "0%"),
		},
		{
			Name: "Topping thêm",
			Type: SelectionCheckbox,
			Items: []OptionItem{
				priced("Trân châu", 5000),
				priced("Pudding", 7000),
				priced("Thạch", 6000),
			},
		},
	},
	enum.CategoryCake: {
		{
			Name:  "Kích thước",
			Type:  SelectionRadio,
			Items: labels("Mini", "Nhỏ", "Trung bình", "Lớn"),
		},
		{
			Name: "Trang trí thêm",
			Type: SelectionCheckbox,
			Items: []OptionItem{
				priced("Nến", 10000),
				priced("Hoa tươi", 20000),
			},
		},
	},
	enum.CategoryFood: {
		{
			Name:  "Độ cay",
			Type:  SelectionRadio,
			Items: labels("Không cay", "Nhẹ", "Vừa", "Nhiều"),
		},
		{
			Name: "Phụ gia",
			Type: SelectionCheckbox,
			Items: []OptionItem{
				priced("Thêm rau", 5000),
				priced("Thêm trứng", 7000),
			},
		},
	},
}

// DefaultOptions returns the category's default option groups. The slice
// is a copy; callers may reorder or extend it freely.
func DefaultOptions(category string) []OptionGroup {
	groups, ok := defaultOptionsByCategory[category]
	if !ok {
		return nil
	}
	out := make([]OptionGroup, len(groups))
	copy(out, groups)
	return out
}

func labels(names ...string) []OptionItem {
	items := make([]OptionItem, len(names))
	for i, n := range names {
		items[i] = OptionItem{Name: n, Price: decimal.Zero}
	}
	return items
}

func priced(name string, vnd int64) OptionItem {
	return OptionItem{Name: name, Price: decimal.NewFromInt(vnd)}
}
