package api

import "StoreClient/internal/httpclient"

// Page is one page of a list endpoint: the envelope's data array plus its
// pagination meta.
type Page[T any] struct {
	Items []T              `json:"data"`
	Meta  *httpclient.Meta `json:"meta,omitempty"`
}

type PageParams struct {
	Page    int
	PerPage int
}

type Status struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

type Credentials struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceName string `json:"device_name,omitempty"`
}

type Registration struct {
	Name                 string `json:"nama_pelanggan"`
	Email                string `json:"email"`
	Phone                string `json:"telepon"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Address              string `json:"alamat"`
}

type AuthResponse struct {
	Customer Customer `json:"customer"`
	Token    string   `json:"token"`
}

type CustomerGroup struct {
	ID          int64   `json:"id"`
	Name        string  `json:"nama_grup"`
	Discount    float64 `json:"diskon"`
	MinSpend    float64 `json:"minimal_belanja"`
	Description string  `json:"deskripsi,omitempty"`
}

type Customer struct {
	ID         int64          `json:"id"`
	Name       string         `json:"nama_pelanggan"`
	Email      string         `json:"email"`
	Phone      string         `json:"telepon"`
	Address    string         `json:"alamat"`
	Code       string         `json:"kode_pelanggan"`
	JoinedAt   string         `json:"tanggal_bergabung,omitempty"`
	Points     int            `json:"total_poin"`
	TotalSpent float64        `json:"total_belanja"`
	Status     string         `json:"status"`
	Group      *CustomerGroup `json:"grup,omitempty"`
	CreatedAt  string         `json:"created_at,omitempty"`
	UpdatedAt  string         `json:"updated_at,omitempty"`
}

// ProfileUpdate carries only the fields being changed.
type ProfileUpdate struct {
	Name    string `json:"nama_pelanggan,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"telepon,omitempty"`
	Address string `json:"alamat,omitempty"`
}

type DashboardSummary struct {
	TotalOrders     int     `json:"total_orders"`
	PendingOrders   int     `json:"pending_orders"`
	CompletedOrders int     `json:"completed_orders"`
	TotalPoints     int     `json:"total_points"`
	TotalSpent      float64 `json:"total_spent"`
}

type Dashboard struct {
	Customer            Customer         `json:"customer"`
	Summary             DashboardSummary `json:"summary"`
	RecentOrders        []Order          `json:"recent_orders"`
	AvailablePromotions []Promotion      `json:"available_promotions"`
	NotificationsCount  int              `json:"notifications_count"`
}

type Address struct {
	ID             int64  `json:"id"`
	Label          string `json:"label"`
	RecipientName  string `json:"nama_penerima"`
	RecipientPhone string `json:"telepon_penerima"`
	FullAddress    string `json:"alamat_lengkap"`
	City           string `json:"kota"`
	Province       string `json:"provinsi"`
	PostalCode     string `json:"kode_pos"`
	IsDefault      bool   `json:"is_default"`
}

type AddressInput struct {
	Label          string `json:"label"`
	RecipientName  string `json:"nama_penerima"`
	RecipientPhone string `json:"telepon_penerima"`
	FullAddress    string `json:"alamat_lengkap"`
	City           string `json:"kota"`
	Province       string `json:"provinsi"`
	PostalCode     string `json:"kode_pos"`
	IsDefault      bool   `json:"is_default,omitempty"`
}

type Category struct {
	ID            int64  `json:"id"`
	Name          string `json:"nama_kategori"`
	Description   string `json:"deskripsi,omitempty"`
	ImageURL      string `json:"gambar_url,omitempty"`
	Status        string `json:"status,omitempty"`
	ParentID      int64  `json:"parent_id,omitempty"`
	ProductsCount int    `json:"products_count,omitempty"`
}

type Variant struct {
	ID        int64   `json:"id"`
	Name      string  `json:"nama_varian"`
	BuyPrice  float64 `json:"harga_beli,omitempty"`
	SellPrice float64 `json:"harga_jual"`
	Stock     int     `json:"stok"`
	SKU       string  `json:"sku,omitempty"`
}

type Image struct {
	ID      int64  `json:"id"`
	Path    string `json:"path_gambar,omitempty"`
	URL     string `json:"url"`
	Primary bool   `json:"gambar_utama"`
	Order   int    `json:"urutan"`
}

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"nama_produk"`
	Description string    `json:"deskripsi"`
	Code        string    `json:"kode_produk"`
	Barcode     string    `json:"barcode,omitempty"`
	MinPrice    float64   `json:"harga_jual_min"`
	MaxPrice    float64   `json:"harga_jual_max"`
	CategoryID  int64     `json:"kategori_id"`
	Status      string    `json:"status,omitempty"`
	Category    *Category `json:"kategori,omitempty"`
	Variants    []Variant `json:"varian,omitempty"`
	Images      []Image   `json:"gambar,omitempty"`
	TotalStock  int       `json:"total_stok"`
	IsFavorite  bool      `json:"is_favorite,omitempty"`
	Rating      float64   `json:"rating,omitempty"`
}

// Variant returns the variant with id, if the product has it.
func (p Product) Variant(id int64) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// ImageURL prefers the primary image and falls back to the first one.
func (p Product) ImageURL() string {
	for _, img := range p.Images {
		if img.Primary {
			return img.URL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	return ""
}

type SortOrder string

const (
	SortName      SortOrder = "nama"
	SortPriceAsc  SortOrder = "harga_asc"
	SortPriceDesc SortOrder = "harga_desc"
	SortNewest    SortOrder = "terbaru"
)

type ProductQuery struct {
	Search     string
	CategoryID int64
	MinPrice   float64
	MaxPrice   float64
	Sort       SortOrder
	PerPage    int
	Page       int
}

type Banner struct {
	ID          int64  `json:"id"`
	Title       string `json:"judul_banner"`
	Description string `json:"deskripsi"`
	ImageURL    string `json:"gambar_url"`
	Link        string `json:"link_tujuan,omitempty"`
	Status      string `json:"status,omitempty"`
	StartsAt    string `json:"tanggal_mulai,omitempty"`
	EndsAt      string `json:"tanggal_berakhir,omitempty"`
	Order       int    `json:"urutan"`
}

type OrderItem struct {
	ID          int64   `json:"id"`
	ProductID   int64   `json:"produk_id"`
	VariantID   int64   `json:"varian_id,omitempty"`
	ProductName string  `json:"nama_produk"`
	VariantName string  `json:"nama_varian,omitempty"`
	Quantity    int     `json:"jumlah"`
	Price       float64 `json:"harga"`
	Subtotal    float64 `json:"subtotal"`
}

type Order struct {
	ID              int64          `json:"id"`
	Number          string         `json:"nomor_order"`
	Date            string         `json:"tanggal_order"`
	Status          string         `json:"status"`
	TotalPrice      float64        `json:"total_harga"`
	TotalDiscount   float64        `json:"total_diskon"`
	ShippingCost    float64        `json:"biaya_pengiriman"`
	TotalPaid       float64        `json:"total_bayar"`
	PaymentMethodID int64          `json:"metode_pembayaran_id"`
	ShippingAddress string         `json:"alamat_pengiriman"`
	Note            string         `json:"catatan,omitempty"`
	PointsUsed      int            `json:"poin_digunakan"`
	PointsEarned    int            `json:"poin_didapat"`
	PromoCode       string         `json:"promo_code,omitempty"`
	Items           []OrderItem    `json:"items"`
	PaymentMethod   *PaymentMethod `json:"metode_pembayaran,omitempty"`
}

type OrderLine struct {
	ProductID int64 `json:"produk_id"`
	VariantID int64 `json:"varian_id,omitempty"`
	Quantity  int   `json:"jumlah"`
}

type NewOrder struct {
	Items           []OrderLine `json:"items"`
	PaymentMethodID int64       `json:"metode_pembayaran_id"`
	ShippingAddress string      `json:"alamat_pengiriman"`
	Note            string      `json:"catatan,omitempty"`
	PromoCode       string      `json:"promo_code,omitempty"`
	PointsUsed      int         `json:"poin_digunakan,omitempty"`
	AddressID       int64       `json:"address_id,omitempty"`
}

type PaymentMethod struct {
	ID          int64   `json:"id"`
	Name        string  `json:"nama_metode"`
	Kind        string  `json:"jenis_pembayaran"`
	Provider    string  `json:"provider,omitempty"`
	AdminFee    float64 `json:"biaya_admin"`
	FeePercent  float64 `json:"persentase_biaya,omitempty"`
	MinAmount   float64 `json:"minimal_transaksi,omitempty"`
	MaxAmount   float64 `json:"maksimal_transaksi,omitempty"`
	Instruction string  `json:"instruksi,omitempty"`
	Status      string  `json:"status,omitempty"`
}

type Transaction struct {
	ID            int64   `json:"id"`
	Number        string  `json:"nomor_transaksi"`
	Date          string  `json:"tanggal_transaksi"`
	Kind          string  `json:"jenis_transaksi"`
	TotalPrice    float64 `json:"total_harga"`
	TotalDiscount float64 `json:"total_diskon"`
	TotalPaid     float64 `json:"total_bayar"`
	Status        string  `json:"status"`
	PaymentMethod string  `json:"metode_pembayaran"`
	Note          string  `json:"catatan,omitempty"`
}

type TransactionQuery struct {
	Status    string
	StartDate string
	EndDate   string
	PageParams
}

type PointEntry struct {
	ID            int64  `json:"id"`
	Kind          string `json:"jenis_poin"`
	Points        int    `json:"jumlah_poin"`
	BalanceBefore int    `json:"saldo_sebelum"`
	BalanceAfter  int    `json:"saldo_sesudah"`
	Description   string `json:"keterangan"`
	ExpiresAt     string `json:"tanggal_kedaluwarsa,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type Promotion struct {
	ID           int64   `json:"id"`
	Code         string  `json:"kode_promo"`
	Name         string  `json:"nama_promo"`
	Description  string  `json:"deskripsi"`
	DiscountKind string  `json:"jenis_diskon"`
	Value        float64 `json:"nilai_diskon"`
	MinPurchase  float64 `json:"minimal_pembelian"`
	MaxDiscount  float64 `json:"maksimal_diskon"`
	StartsAt     string  `json:"tanggal_mulai,omitempty"`
	EndsAt       string  `json:"tanggal_berakhir,omitempty"`
	CanUse       bool    `json:"can_use,omitempty"`
}

type PromoValidation struct {
	Valid         bool       `json:"is_valid"`
	Promo         *Promotion `json:"promo,omitempty"`
	TotalDiscount float64    `json:"total_diskon"`
	Message       string     `json:"message,omitempty"`
}

type WishlistItem struct {
	ID        int64    `json:"id"`
	ProductID int64    `json:"produk_id"`
	VariantID int64    `json:"varian_id,omitempty"`
	CreatedAt string   `json:"created_at,omitempty"`
	Product   *Product `json:"produk,omitempty"`
	Variant   *Variant `json:"varian,omitempty"`
}

type Notification struct {
	ID     int64  `json:"id"`
	Title  string `json:"judul"`
	Body   string `json:"pesan"`
	Kind   string `json:"tipe"`
	IsRead bool   `json:"is_read"`
	SentAt string `json:"tanggal_kirim"`
}

type UploadResult struct {
	URL string `json:"url"`
}
