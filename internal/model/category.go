package model

// Category is one of a closed set of spending labels.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryUtilities     Category = "Utilities"
	CategoryShopping      Category = "Shopping"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealthcare    Category = "Healthcare"
	CategoryEducation     Category = "Education"
	CategoryBills         Category = "Bills"
	CategoryOther         Category = "Other"
)

var categories = [...]Category{
	CategoryFood,
	CategoryTransport,
	CategoryUtilities,
	CategoryShopping,
	CategoryEntertainment,
	CategoryHealthcare,
	CategoryEducation,
	CategoryBills,
	CategoryOther,
}

// Categories returns the label set in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories[:])
	return out
}

// ParseCategory matches s exactly against the label set.
func ParseCategory(s string) (Category, bool) {
	for _, c := range categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Valid reports whether c is a member of the label set.
func (c Category) Valid() bool {
	_, ok := ParseCategory(string(c))
	return ok
}
