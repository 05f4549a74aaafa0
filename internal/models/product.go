package models

// Category groups produce for browsing.
type Category string

const (
	CategoryFruit     Category = "fruit"
	CategoryVegetable Category = "vegetable"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryFruit || c == CategoryVegetable
}

// Unit is how a product is sold.
type Unit string

const (
	UnitPerWeight Unit = "per lb"
	UnitPerItem   Unit = "each"
)

// Valid reports whether u is a known selling unit.
func (u Unit) Valid() bool {
	return u == UnitPerWeight || u == UnitPerItem
}

// Product represents a piece of produce available at the kiosk.
// Field names on the wire follow the original kiosk API.
type Product struct {
	Label       string   `json:"label"`
	Name        string   `json:"name"`
	Price       Money    `json:"price"`
	Unit        Unit     `json:"unit"`
	Category    Category `json:"category"`
	Barcode     string   `json:"barcode"`
	Icon        string   `json:"image,omitempty"`
	Description string   `json:"description,omitempty"`
	Nutrition   string   `json:"nutrition,omitempty"`
	Origin      string   `json:"origin,omitempty"`
}
