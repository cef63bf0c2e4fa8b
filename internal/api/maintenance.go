package api

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"StoreClient/internal/cache"
	"StoreClient/internal/network"
	"StoreClient/internal/offline"
	"StoreClient/internal/search"
)

// ClearAllCache drops every cached response.
func (s *Service) ClearAllCache(ctx context.Context) (int, error) {
	return s.cache.Clear(ctx, "")
}

func (s *Service) CacheInfo(ctx context.Context) (cache.Info, error) {
	return s.cache.Info(ctx)
}

func (s *Service) CleanupCache(ctx context.Context) (int, error) {
	return s.cache.Cleanup(ctx)
}

// PrefetchCommonData warms the semi-static reads in parallel. Payment
// methods need a session and are skipped without one. Failures are logged.
func (s *Service) PrefetchCommonData(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error {
		s.cache.Prefetch(ctx, KeyBanners, cache.Long, func(ctx context.Context) (any, error) {
			return fetch[[]Banner](ctx, s.http, pathBanners, false)
		})
		return nil
	})
	g.Go(func() error {
		s.cache.Prefetch(ctx, KeyCategories, cache.VeryLong, func(ctx context.Context) (any, error) {
			return fetch[[]Category](ctx, s.http, pathCategories, false)
		})
		return nil
	})
	if s.session.IsAuthenticated(ctx) {
		g.Go(func() error {
			s.cache.Prefetch(ctx, KeyPaymentMethods, cache.Long, func(ctx context.Context) (any, error) {
				return fetch[[]PaymentMethod](ctx, s.http, pathPayments, true)
			})
			return nil
		})
	}
	_ = g.Wait()
}

type InitResult struct {
	APIConnected       bool
	CacheCleanedItems  int
	SearchCleanedItems int
}

// Initialize probes the API, drops expired cache entries and old searches,
// and prefetches common data when the API is reachable.
func (s *Service) Initialize(ctx context.Context) (InitResult, error) {
	var res InitResult
	if s.network != nil {
		res.APIConnected = s.network.CheckConnectivity(ctx)
	} else {
		res.APIConnected = s.TestConnection(ctx)
	}

	n, err := s.cache.Cleanup(ctx)
	if err != nil {
		return res, wrap("initialize", err)
	}
	res.CacheCleanedItems = n

	if s.search != nil {
		n, err := s.search.CleanOld(ctx, 0)
		if err != nil {
			return res, wrap("initialize", err)
		}
		res.SearchCleanedItems = n
	}

	if res.APIConnected {
		s.PrefetchCommonData(ctx)
	}
	s.log.Info("services initialized",
		zap.Bool("api_connected", res.APIConnected),
		zap.Int("cache_cleaned", res.CacheCleanedItems),
		zap.Int("searches_cleaned", res.SearchCleanedItems),
	)
	return res, nil
}

type ServiceStatus struct {
	APIConnected  bool
	Network       network.State
	Cache         cache.Info
	Queue         offline.Status
	Search        search.Stats
	CartItemCount int
	Timestamp     time.Time
}

// ServiceStatus gathers a diagnostic snapshot of every component.
func (s *Service) ServiceStatus(ctx context.Context) (ServiceStatus, error) {
	st := ServiceStatus{Timestamp: time.Now()}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		st.APIConnected = s.TestConnection(gctx)
		return nil
	})
	g.Go(func() (err error) {
		st.Cache, err = s.cache.Info(gctx)
		return err
	})
	if s.queue != nil {
		g.Go(func() (err error) {
			st.Queue, err = s.queue.Status(gctx)
			return err
		})
	}
	if s.search != nil {
		g.Go(func() (err error) {
			st.Search, err = s.search.Stats(gctx)
			return err
		})
	}
	if s.cart != nil {
		g.Go(func() (err error) {
			st.CartItemCount, err = s.cart.ItemCount(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return st, err
	}
	if s.network != nil {
		st.Network = s.network.State()
	}
	return st, nil
}

// ClearAllData wipes the cache, cart, search history and offline queue.
func (s *Service) ClearAllData(ctx context.Context) error {
	var errs []error
	if _, err := s.cache.Clear(ctx, ""); err != nil {
		errs = append(errs, err)
	}
	if s.cart != nil {
		if _, err := s.cart.ClearCart(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.search != nil {
		if err := s.search.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.queue != nil {
		if err := s.queue.ClearQueue(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
