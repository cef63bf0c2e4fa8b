package cart

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

const StorageKey = "shopping_cart"

// Item is one cart line. Subtotal is derived from Price and Quantity and
// is recomputed on every mutation.
type Item struct {
	ID          string  `json:"id"`
	ProductID   int64   `json:"produk_id"`
	VariantID   int64   `json:"varian_id,omitempty"`
	ProductName string  `json:"nama_produk"`
	VariantName string  `json:"nama_varian,omitempty"`
	Price       float64 `json:"harga"`
	Quantity    int     `json:"jumlah"`
	ImageURL    string  `json:"gambar_url,omitempty"`
	Stock       int     `json:"stok_tersedia"`
	Note        string  `json:"catatan,omitempty"`
	Subtotal    float64 `json:"subtotal"`
}

// Cart is persisted whole. Totals are never set directly.
type Cart struct {
	Items      []Item    `json:"items"`
	TotalItems int       `json:"total_items"`
	TotalPrice float64   `json:"total_harga"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ItemID derives line identity: a product without variant and each of its
// variants are distinct lines.
func ItemID(productID, variantID int64) string {
	if variantID == 0 {
		return strconv.FormatInt(productID, 10)
	}
	return strconv.FormatInt(productID, 10) + "_" + strconv.FormatInt(variantID, 10)
}

// OrderLine is the checkout projection of a cart line.
type OrderLine struct {
	ProductID int64  `json:"produk_id"`
	VariantID int64  `json:"varian_id,omitempty"`
	Quantity  int    `json:"jumlah"`
	Note      string `json:"catatan,omitempty"`
}

type OrderData struct {
	Items      []OrderLine `json:"items"`
	TotalItems int         `json:"total_items"`
	TotalPrice float64     `json:"total_harga"`
}

// ProductInfo is fresh catalog data for one product or variant.
type ProductInfo struct {
	ProductID   int64
	VariantID   int64
	Name        string
	VariantName string
	Price       float64
	Stock       int
	ImageURL    string
}

// Change describes what a sync altered on one line.
type Change struct {
	ItemID      string
	Fields      []string
	OldPrice    float64
	NewPrice    float64
	OldStock    int
	NewStock    int
	OldQuantity int
	NewQuantity int
	Removed     bool
}

var (
	ErrItemNotFound    = errors.New("cart item not found")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidProduct  = errors.New("product id must be positive")
)

// StockError rejects an add that would exceed the available stock.
type StockError struct {
	ItemID    string
	Product   string
	Available int
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, only %d available", e.Product, e.Requested, e.Available)
}

// Issue is a problem found by Validate.
type Issue struct {
	ItemID  string
	Message string
}
