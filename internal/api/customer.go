package api

import (
	"context"
	"fmt"
	"net/http"

	"StoreClient/internal/cache"
	"StoreClient/internal/httpclient"
)

func pageKey(base string, p PageParams) string {
	return fmt.Sprintf("%s_%d_%d", base, p.Page, p.PerPage)
}

func (s *Service) Profile(ctx context.Context, opts ...ReadOption) (Customer, error) {
	v, err := cached(ctx, s, KeyProfile, cache.Medium, opts, func(ctx context.Context) (Customer, error) {
		return fetch[Customer](ctx, s.http, pathProfile, true)
	})
	return v, wrap("profile", err)
}

func (s *Service) UpdateProfile(ctx context.Context, u ProfileUpdate) (Customer, error) {
	v, err := writeDecode[Customer](ctx, s, http.MethodPut, pathProfile, u)
	return v, wrap("update profile", err)
}

func (s *Service) Dashboard(ctx context.Context, opts ...ReadOption) (Dashboard, error) {
	v, err := cached(ctx, s, KeyDashboard, cache.Short, opts, func(ctx context.Context) (Dashboard, error) {
		return fetch[Dashboard](ctx, s.http, pathDashboard, true)
	})
	return v, wrap("dashboard", err)
}

func (s *Service) Addresses(ctx context.Context, opts ...ReadOption) ([]Address, error) {
	v, err := cached(ctx, s, "customer_addresses", cache.Short, opts, func(ctx context.Context) ([]Address, error) {
		return fetch[[]Address](ctx, s.http, pathAddresses, true)
	})
	return v, wrap("addresses", err)
}

func (s *Service) AddAddress(ctx context.Context, a AddressInput) (Address, error) {
	v, err := writeDecode[Address](ctx, s, http.MethodPost, pathAddresses, a)
	return v, wrap("add address", err)
}

func (s *Service) UpdateAddress(ctx context.Context, id int64, a AddressInput) (Address, error) {
	v, err := writeDecode[Address](ctx, s, http.MethodPut, idPath(pathAddresses, id), a)
	return v, wrap("update address", err)
}

func (s *Service) DeleteAddress(ctx context.Context, id int64) error {
	_, err := s.write(ctx, http.MethodDelete, idPath(pathAddresses, id), nil)
	return wrap("delete address", err)
}

// CreateOrder places an order. Offline, it is queued and the returned
// error satisfies offline.IsQueued.
func (s *Service) CreateOrder(ctx context.Context, o NewOrder) (Order, error) {
	v, err := writeDecode[Order](ctx, s, http.MethodPost, pathOrders, o)
	return v, wrap("create order", err)
}

func (s *Service) Orders(ctx context.Context, p PageParams, opts ...ReadOption) (Page[Order], error) {
	endpoint := withQuery(pathOrders, p.values())
	v, err := cached(ctx, s, pageKey(KeyOrders, p), cache.Short, opts, func(ctx context.Context) (Page[Order], error) {
		return fetchPage[Order](ctx, s.http, endpoint, true)
	})
	return v, wrap("orders", err)
}

func (s *Service) Order(ctx context.Context, id int64) (Order, error) {
	v, err := fetch[Order](ctx, s.http, idPath(pathOrders, id), true)
	return v, wrap(fmt.Sprintf("order %d", id), err)
}

func (s *Service) CancelOrder(ctx context.Context, id int64) (Order, error) {
	v, err := writeDecode[Order](ctx, s, http.MethodPost, idPath(pathOrders, id, "cancel"), struct{}{})
	return v, wrap(fmt.Sprintf("cancel order %d", id), err)
}

func (s *Service) Transactions(ctx context.Context, q TransactionQuery) (Page[Transaction], error) {
	v := q.PageParams.values()
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.StartDate != "" {
		v.Set("start_date", q.StartDate)
	}
	if q.EndDate != "" {
		v.Set("end_date", q.EndDate)
	}
	page, err := fetchPage[Transaction](ctx, s.http, withQuery(pathTransactions, v), true)
	return page, wrap("transactions", err)
}

func (s *Service) Transaction(ctx context.Context, id int64) (Transaction, error) {
	v, err := fetch[Transaction](ctx, s.http, idPath(pathTransactions, id), true)
	return v, wrap(fmt.Sprintf("transaction %d", id), err)
}

func (s *Service) PointsHistory(ctx context.Context, p PageParams) (Page[PointEntry], error) {
	page, err := fetchPage[PointEntry](ctx, s.http, withQuery(pathPoints, p.values()), true)
	return page, wrap("points history", err)
}

func (s *Service) Wishlist(ctx context.Context, p PageParams, opts ...ReadOption) (Page[WishlistItem], error) {
	endpoint := withQuery(pathWishlist, p.values())
	v, err := cached(ctx, s, pageKey("customer_wishlist", p), cache.Short, opts, func(ctx context.Context) (Page[WishlistItem], error) {
		return fetchPage[WishlistItem](ctx, s.http, endpoint, true)
	})
	return v, wrap("wishlist", err)
}

func (s *Service) AddToWishlist(ctx context.Context, productID, variantID int64) (WishlistItem, error) {
	body := struct {
		ProductID int64 `json:"produk_id"`
		VariantID int64 `json:"varian_id,omitempty"`
	}{productID, variantID}
	v, err := writeDecode[WishlistItem](ctx, s, http.MethodPost, pathWishlist, body)
	return v, wrap("add to wishlist", err)
}

func (s *Service) RemoveFromWishlist(ctx context.Context, id int64) error {
	_, err := s.write(ctx, http.MethodDelete, idPath(pathWishlist, id), nil)
	return wrap("remove from wishlist", err)
}

func (s *Service) Promotions(ctx context.Context) ([]Promotion, error) {
	v, err := fetch[[]Promotion](ctx, s.http, pathPromotions, true)
	return v, wrap("promotions", err)
}

// ValidatePromo is a read on the server and is never queued.
func (s *Service) ValidatePromo(ctx context.Context, code string, total float64) (PromoValidation, error) {
	body := struct {
		Code  string  `json:"kode_promo"`
		Total float64 `json:"total_belanja"`
	}{code, total}
	resp, err := s.http.Post(ctx, pathValidatePromo, body, true)
	if err != nil {
		return PromoValidation{}, wrap("validate promo", err)
	}
	v, err := httpclient.Decode[PromoValidation](resp)
	return v, wrap("validate promo", err)
}

func (s *Service) PaymentMethods(ctx context.Context, opts ...ReadOption) ([]PaymentMethod, error) {
	v, err := cached(ctx, s, KeyPaymentMethods, cache.Long, opts, func(ctx context.Context) ([]PaymentMethod, error) {
		return fetch[[]PaymentMethod](ctx, s.http, pathPayments, true)
	})
	return v, wrap("payment methods", err)
}

func (s *Service) Notifications(ctx context.Context, p PageParams) (Page[Notification], error) {
	page, err := fetchPage[Notification](ctx, s.http, withQuery(pathNotifications, p.values()), true)
	return page, wrap("notifications", err)
}

func (s *Service) MarkNotificationRead(ctx context.Context, id int64) error {
	_, err := s.write(ctx, http.MethodPost, idPath(pathNotifications, id, "read"), struct{}{})
	return wrap("mark notification read", err)
}

// Upload sends files as multipart form data. Uploads are never queued.
func (s *Service) Upload(ctx context.Context, endpoint string, fields map[string]string, files ...httpclient.File) (UploadResult, error) {
	resp, err := s.http.Upload(ctx, endpoint, fields, files...)
	if err != nil {
		return UploadResult{}, wrap("upload", err)
	}
	v, err := httpclient.Decode[UploadResult](resp)
	return v, wrap("upload", err)
}
