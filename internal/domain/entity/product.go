package entity

// Product producto del catálogo mayorista. Los traslados sólo necesitan su identidad.
type Product struct {
	ID   string
	SKU  string // código único
	Name string
}
