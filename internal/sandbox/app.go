// Package sandbox is a self-contained storefront backend speaking the same
// envelope and endpoints as the production API. It backs local runs of
// storectl and the end-to-end tests, and can inject the faults the client
// has to survive.
package sandbox

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"StoreClient/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string
}

const (
	loginLimitPerMin    = 5
	registerLimitPerMin = 3
	limitWindow         = 60 * time.Second
)

// New builds a seeded sandbox server signing tokens with secret.
func New(secret string, log *zap.Logger, opts ...StoreOption) (*Server, error) {
	store := NewStore(opts...)
	if err := store.Seed(); err != nil {
		return nil, err
	}
	return &Server{
		Store:   store,
		JWT:     NewTokenMaker(secret),
		Faults:  &Faults{},
		Log:     kit.OrNop(log),
		Version: "sandbox",
	}, nil
}

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	r := chi.NewRouter()
	log := kit.OrNop(deps.Log)

	metricsOn := deps.MetricsEnabled && deps.Registry != nil
	if deps.MetricsEnabled && deps.Registry == nil {
		log.Warn("metrics enabled but Registry is nil")
	}
	if s.Faults == nil {
		s.Faults = &Faults{}
	}

	setupMiddleware(r, deps, log, metricsOn)
	setupRoutes(r, s, deps, metricsOn)

	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps, log *zap.Logger, metricsOn bool) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer(log))
	r.Use(kit.Logging(log))

	if metricsOn {
		r.Use(kit.NewMetrics(deps.Registry).Middleware(deps.Service))
	}
}

func setupRoutes(r *chi.Mux, s *Server, deps HTTPDeps, metricsOn bool) {
	loginLimiter := kit.NewIPRateLimiter(loginLimitPerMin, limitWindow)
	registerLimiter := kit.NewIPRateLimiter(registerLimitPerMin, limitWindow)

	r.Group(func(api chi.Router) {
		api.Use(s.Faults.Middleware)

		api.Get("/status", s.handleStatus)

		api.Route("/public", func(pr chi.Router) {
			pr.Get("/banners", s.handleBanners)
			pr.Get("/product-categories", s.handleCategories)
			pr.Get("/products", s.handleProducts)
			pr.Get("/products/{id}", s.handleProduct)
		})

		api.Route("/customer", func(cr chi.Router) {
			cr.With(loginLimiter.Middleware).Post("/login", s.handleLogin)
			cr.With(registerLimiter.Middleware).Post("/register", s.handleRegister)

			cr.Group(func(ar chi.Router) {
				ar.Use(AuthJWT(s.JWT, s.Store))

				ar.Post("/logout", s.handleLogout)
				ar.Get("/profile", s.handleProfile)
				ar.Put("/profile", s.handleUpdateProfile)
				ar.Get("/dashboard", s.handleDashboard)

				ar.Get("/addresses", s.handleAddresses)
				ar.Post("/addresses", s.handleSaveAddress)
				ar.Put("/addresses/{id}", s.handleSaveAddress)
				ar.Delete("/addresses/{id}", s.handleDeleteAddress)

				ar.Get("/orders", s.handleOrders)
				ar.Post("/orders", s.handleCreateOrder)
				ar.Get("/orders/{id}", s.handleOrder)
				ar.Post("/orders/{id}/cancel", s.handleCancelOrder)

				ar.Get("/transactions", s.handleTransactions)
				ar.Get("/transactions/{id}", s.handleTransaction)
				ar.Get("/points-history", s.handlePoints)

				ar.Get("/wishlist", s.handleWishlist)
				ar.Post("/wishlist", s.handleAddWishlist)
				ar.Delete("/wishlist/{id}", s.handleRemoveWishlist)

				ar.Get("/promotions", s.handlePromotions)
				ar.Post("/promotions/validate", s.handleValidatePromo)
				ar.Get("/payment-methods", s.handlePaymentMethods)

				ar.Get("/notifications", s.handleNotifications)
				ar.Post("/notifications/{id}/read", s.handleMarkRead)

				ar.Post("/upload", s.handleUpload)
			})
		})
	})

	r.Route("/_sandbox", func(ad chi.Router) {
		ad.Get("/faults", s.handleGetFaults)
		ad.Put("/faults", s.handleSetFaults)
		ad.Delete("/faults", s.handleResetFaults)
		ad.Post("/stock", s.handleSetStock)
	})

	r.Get("/healthz", healthz)
	r.Get("/readyz", s.handleReady)

	if metricsOn {
		r.With(kit.MetricsAuth(deps.MetricsToken)).Handle(
			"/metrics",
			promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}),
		)
	}
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
