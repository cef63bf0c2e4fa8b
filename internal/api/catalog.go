package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"StoreClient/internal/cache"
)

func (s *Service) Status(ctx context.Context) (Status, error) {
	st, err := fetch[Status](ctx, s.http, pathStatus, false)
	return st, wrap("api status", err)
}

// TestConnection reports whether the status endpoint answers.
func (s *Service) TestConnection(ctx context.Context) bool {
	_, err := s.Status(ctx)
	return err == nil
}

func (s *Service) Banners(ctx context.Context, opts ...ReadOption) ([]Banner, error) {
	v, err := cached(ctx, s, KeyBanners, cache.Long, opts, func(ctx context.Context) ([]Banner, error) {
		return fetch[[]Banner](ctx, s.http, pathBanners, false)
	})
	return v, wrap("banners", err)
}

func (s *Service) Categories(ctx context.Context, opts ...ReadOption) ([]Category, error) {
	v, err := cached(ctx, s, KeyCategories, cache.VeryLong, opts, func(ctx context.Context) ([]Category, error) {
		return fetch[[]Category](ctx, s.http, pathCategories, false)
	})
	return v, wrap("categories", err)
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.CategoryID > 0 {
		v.Set("kategori_id", strconv.FormatInt(q.CategoryID, 10))
	}
	if q.MinPrice > 0 {
		v.Set("min_harga", strconv.FormatFloat(q.MinPrice, 'f', -1, 64))
	}
	if q.MaxPrice > 0 {
		v.Set("max_harga", strconv.FormatFloat(q.MaxPrice, 'f', -1, 64))
	}
	if q.Sort != "" {
		v.Set("sort_by", string(q.Sort))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	return v
}

// productsKey is stable for equal queries because url.Values encodes keys
// in sorted order.
func productsKey(v url.Values) string {
	return fmt.Sprintf("products_%016x", xxh3.HashString(v.Encode()))
}

// SearchProducts lists products. Browsing pages are cached; free-text
// searches are not, and are recorded in the search history.
func (s *Service) SearchProducts(ctx context.Context, q ProductQuery, opts ...ReadOption) (Page[Product], error) {
	v := q.values()
	endpoint := withQuery(pathProducts, v)
	produce := func(ctx context.Context) (Page[Product], error) {
		return fetchPage[Product](ctx, s.http, endpoint, false)
	}

	if q.Search == "" {
		page, err := cached(ctx, s, productsKey(v), cache.Medium, opts, produce)
		return page, wrap("products", err)
	}

	page, err := produce(ctx)
	if err != nil {
		return Page[Product]{}, wrap("search products", err)
	}
	if s.search != nil {
		total := len(page.Items)
		if page.Meta != nil {
			total = page.Meta.Total
		}
		if _, err := s.search.Add(ctx, q.Search, total); err != nil {
			s.log.Warn("search history not saved", zap.Error(err))
		}
	}
	return page, nil
}

func (s *Service) Product(ctx context.Context, id int64, opts ...ReadOption) (Product, error) {
	v, err := cached(ctx, s, productKey(id), cache.Long, opts, func(ctx context.Context) (Product, error) {
		return fetch[Product](ctx, s.http, idPath(pathProducts, id), false)
	})
	return v, wrap(fmt.Sprintf("product %d", id), err)
}
