package api

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"StoreClient/internal/cart"
)

const syncConcurrency = 4

var ErrNoCart = errors.New("cart service not configured")

// SyncCartWithLatestData fetches every product referenced by the cart in
// parallel, bypassing the cache, and reconciles the cart with the result.
// Products the API no longer knows are skipped, as are lines whose variant
// disappeared; any other fetch failure aborts the sync.
func (s *Service) SyncCartWithLatestData(ctx context.Context) ([]cart.Change, error) {
	if s.cart == nil {
		return nil, ErrNoCart
	}
	c, err := s.cart.Cart(ctx)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, nil
	}

	var ids []int64
	seen := make(map[int64]bool)
	for _, it := range c.Items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}

	var (
		mu       sync.Mutex
		products = make(map[int64]Product, len(ids))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(syncConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			p, err := s.Product(gctx, id, Fresh())
			if IsNotFound(err) {
				s.log.Warn("cart product no longer available", zap.Int64("product_id", id))
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			products[id] = p
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sync cart: %w", err)
	}

	var latest []cart.ProductInfo
	for _, it := range c.Items {
		p, ok := products[it.ProductID]
		if !ok {
			continue
		}
		info, ok := productInfo(p, it.VariantID)
		if !ok {
			s.log.Warn("cart variant no longer available", zap.Int64("product_id", it.ProductID), zap.Int64("variant_id", it.VariantID))
			continue
		}
		latest = append(latest, info)
	}
	return s.cart.SyncWithProductData(ctx, latest)
}

func productInfo(p Product, variantID int64) (cart.ProductInfo, bool) {
	info := cart.ProductInfo{
		ProductID: p.ID,
		VariantID: variantID,
		Name:      p.Name,
		Price:     p.MinPrice,
		Stock:     p.TotalStock,
		ImageURL:  p.ImageURL(),
	}
	if variantID == 0 {
		return info, true
	}
	v, ok := p.Variant(variantID)
	if !ok {
		return cart.ProductInfo{}, false
	}
	info.VariantName = v.Name
	info.Price = v.SellPrice
	info.Stock = v.Stock
	return info, true
}

// CartItemFromProduct builds a cart line for p, or one of its variants.
func CartItemFromProduct(p Product, variantID int64, qty int) (cart.Item, error) {
	info, ok := productInfo(p, variantID)
	if !ok {
		return cart.Item{}, fmt.Errorf("product %d has no variant %d", p.ID, variantID)
	}
	return cart.Item{
		ProductID:   info.ProductID,
		VariantID:   info.VariantID,
		ProductName: info.Name,
		VariantName: info.VariantName,
		Price:       info.Price,
		Quantity:    qty,
		ImageURL:    info.ImageURL,
		Stock:       info.Stock,
	}, nil
}

// AddToCart adds qty of a product to the cart using its latest cached data.
func (s *Service) AddToCart(ctx context.Context, productID, variantID int64, qty int) (cart.Cart, error) {
	if s.cart == nil {
		return cart.Cart{}, ErrNoCart
	}
	p, err := s.Product(ctx, productID)
	if err != nil {
		return cart.Cart{}, err
	}
	item, err := CartItemFromProduct(p, variantID, qty)
	if err != nil {
		return cart.Cart{}, err
	}
	return s.cart.AddItem(ctx, item)
}

type Checkout struct {
	PaymentMethodID int64
	ShippingAddress string
	AddressID       int64
	Note            string
	PromoCode       string
	PointsUsed      int
}

// PlaceOrder turns the cart into an order. The cart is cleared only once
// the server confirmed the order; a queued order keeps it.
func (s *Service) PlaceOrder(ctx context.Context, co Checkout) (Order, error) {
	if s.cart == nil {
		return Order{}, ErrNoCart
	}
	od, err := s.cart.OrderData(ctx)
	if err != nil {
		return Order{}, err
	}
	if len(od.Items) == 0 {
		return Order{}, errors.New("cart is empty")
	}

	o := NewOrder{
		PaymentMethodID: co.PaymentMethodID,
		ShippingAddress: co.ShippingAddress,
		AddressID:       co.AddressID,
		Note:            co.Note,
		PromoCode:       co.PromoCode,
		PointsUsed:      co.PointsUsed,
	}
	for _, l := range od.Items {
		o.Items = append(o.Items, OrderLine{ProductID: l.ProductID, VariantID: l.VariantID, Quantity: l.Quantity})
	}

	order, err := s.CreateOrder(ctx, o)
	if err != nil {
		return Order{}, err
	}
	if _, err := s.cart.ClearCart(ctx); err != nil {
		s.log.Warn("order placed but cart not cleared", zap.String("order", order.Number), zap.Error(err))
	}
	for _, l := range od.Items {
		if err := s.cache.Delete(ctx, productKey(l.ProductID)); err != nil {
			s.log.Debug("product cache not invalidated", zap.Int64("product_id", l.ProductID), zap.Error(err))
		}
	}
	return order, nil
}
