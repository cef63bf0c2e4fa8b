package sandbox

import (
	"fmt"

	"StoreClient/internal/api"
)

const (
	DemoEmail    = "budi@example.com"
	DemoPassword = "rahasia123"
)

// Seed loads a small furniture catalogue and one demo customer.
func (s *Store) Seed() error {
	s.mu.Lock()
	s.categories = []api.Category{
		{ID: 1, Name: "Kursi", Status: "aktif", ProductsCount: 1},
		{ID: 2, Name: "Meja", Status: "aktif", ProductsCount: 1},
		{ID: 3, Name: "Penyimpanan", Status: "aktif", ProductsCount: 2},
	}
	s.banners = []api.Banner{
		{ID: 1, Title: "Promo Akhir Tahun", Description: "Diskon hingga 10%", ImageURL: "/img/banner-1.jpg", Status: "aktif", Order: 1},
		{ID: 2, Title: "Gratis Ongkir", Description: "Belanja minimal 1 juta", ImageURL: "/img/banner-2.jpg", Status: "aktif", Order: 2},
	}
	s.payments = []api.PaymentMethod{
		{ID: 1, Name: "Transfer Bank", Kind: "transfer", Provider: "BCA", Status: "aktif"},
		{ID: 2, Name: "COD", Kind: "cod", AdminFee: 5000, Status: "aktif"},
	}
	s.promos = []api.Promotion{
		{ID: 1, Code: "HEMAT10", Name: "Hemat 10%", DiscountKind: "persentase", Value: 10, MinPurchase: 500000, MaxDiscount: 250000, CanUse: true},
		{ID: 2, Code: "ONGKIR25", Name: "Potongan Ongkir", DiscountKind: "nominal", Value: 25000, MinPurchase: 1000000, CanUse: true},
	}
	s.mu.Unlock()

	for _, p := range []api.Product{
		{ID: 1, Name: "Kursi Lipat Besi", CategoryID: 1, MinPrice: 150000, MaxPrice: 150000, TotalStock: 3},
		{ID: 2, Name: "Meja Makan Jati", CategoryID: 2, Variants: []api.Variant{
			{ID: 21, Name: "4 Kursi", SellPrice: 2500000, Stock: 5, SKU: "MMJ-4"},
			{ID: 22, Name: "6 Kursi", SellPrice: 3200000, Stock: 2, SKU: "MMJ-6"},
		}},
		{ID: 3, Name: "Lemari Pakaian 3 Pintu", CategoryID: 3, MinPrice: 1750000, MaxPrice: 1750000, TotalStock: 10},
		{ID: 4, Name: "Rak Buku Minimalis", CategoryID: 3, MinPrice: 450000, MaxPrice: 450000, TotalStock: 0},
	} {
		p.Code = fmt.Sprintf("PRD%03d", p.ID)
		p.Status = "aktif"
		p.Description = p.Name + " kualitas ekspor."
		p.Images = []api.Image{{ID: p.ID, URL: fmt.Sprintf("/img/product-%d.jpg", p.ID), Primary: true}}
		for _, c := range s.Categories() {
			if c.ID == p.CategoryID {
				p.Category = &c
			}
		}
		s.AddProduct(p)
	}

	_, err := s.Register(api.Registration{
		Name:                 "Budi Santoso",
		Email:                DemoEmail,
		Phone:                "081234567890",
		Password:             DemoPassword,
		PasswordConfirmation: DemoPassword,
		Address:              "Jl. Merdeka 1, Jepara",
	})
	return err
}
