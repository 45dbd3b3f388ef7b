package catalog

// MergeOptions combines category default groups with product-specific
// overrides. An override replaces a default group of the same name in
// place; new names are appended in their own order. The result never
// contains two groups with the same name.
func MergeOptions(defaults, overrides []OptionGroup) []OptionGroup {
	merged := make([]OptionGroup, len(defaults))
	index := make(map[string]int, len(defaults))
	for i, g := range defaults {
		merged[i] = g
		index[g.Name] = i
	}
	for _, g := range overrides {
		if i, ok := index[g.Name]; ok {
			merged[i] = g
			continue
		}
		index[g.Name] = len(merged)
		merged = append(merged, g)
	}
	return merged
}

// MergedOptions returns the effective option groups for a product:
// its category defaults overridden and extended by the product's own
// groups.
func MergedOptions(p Product) []OptionGroup {
	return MergeOptions(DefaultOptions(p.Category), p.Options)
}

// OptionLookup indexes a product's effective option groups by name.
func OptionLookup(p Product) map[string]OptionGroup {
	groups := MergedOptions(p)
	lookup := make(map[string]OptionGroup, len(groups))
	for _, g := range groups {
		lookup[g.Name] = g
	}
	return lookup
}
