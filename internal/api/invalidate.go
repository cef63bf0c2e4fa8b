package api

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// invalidation names the cached reads a write makes stale.
type invalidation struct {
	keys     []string
	patterns []string
}

// invalidationFor maps a successful write to the cache entries it affects.
// The same table serves direct writes and queued writes replayed later.
func invalidationFor(method, endpoint string) invalidation {
	if method == http.MethodGet {
		return invalidation{}
	}
	path, _, _ := strings.Cut(endpoint, "?")

	switch {
	case path == pathProfile:
		return invalidation{keys: []string{KeyProfile, KeyDashboard}}
	case strings.HasPrefix(path, pathOrders):
		return invalidation{keys: []string{KeyDashboard}, patterns: []string{KeyOrders}}
	case strings.HasPrefix(path, pathNotifications):
		return invalidation{keys: []string{KeyDashboard}}
	case strings.HasPrefix(path, pathWishlist):
		return invalidation{patterns: []string{"customer_wishlist"}}
	case strings.HasPrefix(path, pathAddresses):
		return invalidation{patterns: []string{"customer_addresses"}}
	}
	return invalidation{}
}

func (s *Service) invalidate(ctx context.Context, method, endpoint string) {
	inv := invalidationFor(method, endpoint)
	for _, k := range inv.keys {
		if err := s.cache.Delete(ctx, k); err != nil {
			s.log.Warn("cache invalidation failed", zap.String("key", k), zap.Error(err))
		}
	}
	for _, p := range inv.patterns {
		if _, err := s.cache.InvalidatePattern(ctx, p); err != nil {
			s.log.Warn("cache invalidation failed", zap.String("pattern", p), zap.Error(err))
		}
	}
}
