// Package api is the typed storefront surface. It binds the HTTP client,
// the response cache, the session, the offline queue and the cart.
package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"StoreClient/internal/cache"
	"StoreClient/internal/cart"
	"StoreClient/internal/httpclient"
	"StoreClient/internal/network"
	"StoreClient/internal/offline"
	"StoreClient/internal/search"
	"StoreClient/internal/session"
	"StoreClient/pkg/kit"
)

const (
	pathStatus        = "/status"
	pathBanners       = "/public/banners"
	pathProducts      = "/public/products"
	pathCategories    = "/public/product-categories"
	pathLogin         = "/customer/login"
	pathRegister      = "/customer/register"
	pathLogout        = "/customer/logout"
	pathProfile       = "/customer/profile"
	pathDashboard     = "/customer/dashboard"
	pathAddresses     = "/customer/addresses"
	pathOrders        = "/customer/orders"
	pathTransactions  = "/customer/transactions"
	pathPoints        = "/customer/points-history"
	pathWishlist      = "/customer/wishlist"
	pathPromotions    = "/customer/promotions"
	pathValidatePromo = "/customer/promotions/validate"
	pathPayments      = "/customer/payment-methods"
	pathNotifications = "/customer/notifications"
)

// Cache keys, without the cache namespace prefix.
const (
	KeyBanners        = "banners"
	KeyCategories     = "categories"
	KeyPaymentMethods = "payment_methods"
	KeyProfile        = "customer_profile"
	KeyDashboard      = "customer_dashboard"
	KeyOrders         = "customer_orders"
)

func productKey(id int64) string { return "product_" + strconv.FormatInt(id, 10) }

// Deps are the collaborators of Service. Queue, Cart, Search and Network
// are optional; without a queue writes go straight to the client.
type Deps struct {
	HTTP    *httpclient.Client
	Cache   *cache.Manager
	Session *session.Store
	Queue   *offline.Queue
	Cart    *cart.Service
	Search  *search.History
	Network *network.Service
	Log     *zap.Logger
}

type Service struct {
	http    *httpclient.Client
	cache   *cache.Manager
	session *session.Store
	queue   *offline.Queue
	cart    *cart.Service
	search  *search.History
	network *network.Service
	log     *zap.Logger
}

func New(d Deps) *Service {
	s := &Service{
		http:    d.HTTP,
		cache:   d.Cache,
		session: d.Session,
		queue:   d.Queue,
		cart:    d.Cart,
		search:  d.Search,
		network: d.Network,
		log:     kit.OrNop(d.Log),
	}
	if s.queue != nil {
		s.queue.OnDelivered(func(ctx context.Context, it offline.Item) {
			s.invalidate(ctx, it.Method, it.Endpoint)
		})
	}
	return s
}

type readOptions struct{ fresh bool }

type ReadOption func(*readOptions)

// Fresh skips the cache lookup. The fetched value is still cached.
func Fresh() ReadOption { return func(o *readOptions) { o.fresh = true } }

func fetch[T any](ctx context.Context, c *httpclient.Client, endpoint string, auth bool) (T, error) {
	resp, err := c.Get(ctx, endpoint, auth)
	if err != nil {
		var zero T
		return zero, err
	}
	return httpclient.Decode[T](resp)
}

func fetchPage[T any](ctx context.Context, c *httpclient.Client, endpoint string, auth bool) (Page[T], error) {
	resp, err := c.Get(ctx, endpoint, auth)
	if err != nil {
		return Page[T]{}, err
	}
	items, err := httpclient.Decode[[]T](resp)
	if err != nil {
		return Page[T]{}, err
	}
	return Page[T]{Items: items, Meta: resp.Meta}, nil
}

// cached is the cache-aside read shared by every semi-static resource.
func cached[T any](ctx context.Context, s *Service, key string, d time.Duration, opts []ReadOption, produce func(context.Context) (T, error)) (T, error) {
	var o readOptions
	for _, fn := range opts {
		fn(&o)
	}
	if !o.fresh {
		return cache.GetOrSet(ctx, s.cache, key, d, produce)
	}

	v, err := produce(ctx)
	if err != nil {
		return v, err
	}
	if err := s.cache.Set(ctx, key, v, d); err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

// write sends an authenticated mutation. With a queue attached, eligible
// writes that cannot reach the server come back as *offline.QueuedError.
// Cached reads affected by a successful write are invalidated.
func (s *Service) write(ctx context.Context, method, endpoint string, body any) (*httpclient.Response, error) {
	var (
		resp *httpclient.Response
		err  error
	)
	if s.queue != nil {
		resp, err = s.queue.Dispatch(ctx, method, endpoint, body)
	} else {
		resp, err = s.http.Do(ctx, method, endpoint, body, true)
	}
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, method, endpoint)
	return resp, nil
}

func writeDecode[T any](ctx context.Context, s *Service, method, endpoint string, body any) (T, error) {
	resp, err := s.write(ctx, method, endpoint, body)
	if err != nil {
		var zero T
		return zero, err
	}
	return httpclient.Decode[T](resp)
}

func withQuery(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}

func (p PageParams) values() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	}
	return q
}

func idPath(base string, id int64, suffix ...string) string {
	p := base + "/" + strconv.FormatInt(id, 10)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

// IsNotFound reports a 404 from the API.
func IsNotFound(err error) bool {
	e, ok := httpclient.AsError(err)
	return ok && e.Status == http.StatusNotFound
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
