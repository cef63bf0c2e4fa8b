// Command storectl drives the storefront client from a terminal: browse the
// catalogue, manage the cart, place orders and inspect the local cache and
// offline queue.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"StoreClient/internal/api"
	"StoreClient/internal/cache"
	"StoreClient/internal/cart"
	"StoreClient/internal/config"
	"StoreClient/internal/httpclient"
	"StoreClient/internal/kvstore"
	"StoreClient/internal/network"
	"StoreClient/internal/offline"
	"StoreClient/internal/search"
	"StoreClient/internal/session"
	"StoreClient/internal/tracing"
	"StoreClient/pkg/kit"
)

const service = "storectl"

type app struct {
	cfg     config.Config
	log     *zap.Logger
	out     io.Writer
	api     *api.Service
	session *session.Store
	cache   *cache.Manager
	queue   *offline.Queue
	cart    *cart.Service
	search  *search.History
	network *network.Service
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: storectl [-metrics-out FILE] COMMAND [ARGS]

Commands:
  status                         component diagnostics
  init                           probe API, clean cache and history, prefetch
  watch                          follow connectivity and replay the queue
  login -email E -password P     sign in
  logout                         sign out and drop user data
  whoami                         stored identity and token expiry
  profile [-fresh]               customer profile
  banners | categories           catalogue metadata
  products [-search Q] [-category ID] [-sort S] [-page N] [-fresh]
  product ID [-fresh]
  cart show|add|set|rm|note|clear|sync|validate
  order place|list|show|cancel
  queue status|list|flush|clear|rm
  cache info|cleanup|clear [PREFIX]
  search history|popular|suggest|clear|export|import
`)
}

func main() {
	metricsOut := flag.String("metrics-out", "", "write client metrics to FILE on exit")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	if err := run(flag.Args(), *metricsOut); err != nil {
		if id, ok := offline.IsQueued(err); ok {
			fmt.Printf("offline: request queued as %s, it will be sent when the API is reachable\n", id)
			return
		}
		fmt.Fprintln(os.Stderr, "storectl:", describe(err))
		os.Exit(1)
	}
}

func run(args []string, metricsOut string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := kit.NewLogger(service, cfg.Debug)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := tracing.Init(ctx, service, tracing.Settings{
		Enabled:    cfg.Tracing.Enabled,
		Endpoint:   cfg.Tracing.Endpoint,
		SampleRate: cfg.Tracing.SampleRate,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn("trace shutdown", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	a, closeApp, err := build(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer closeApp()

	err = a.dispatch(ctx, args[0], args[1:])

	if metricsOut != "" {
		if werr := prometheus.WriteToTextfile(metricsOut, reg); werr != nil {
			log.Warn("write metrics", zap.Error(werr))
		}
	}
	return err
}

func build(ctx context.Context, cfg config.Config, log *zap.Logger, reg prometheus.Registerer) (*app, func(), error) {
	kv, closeKV, err := kvstore.Open(ctx, cfg.Store())
	if err != nil {
		return nil, nil, err
	}

	metrics := kit.NewClientMetrics(reg)
	sess := session.New(kv, log)
	client := httpclient.New(cfg.Client(), sess,
		httpclient.WithLogger(log),
		httpclient.WithMetrics(metrics),
		httpclient.WithTracer(tracing.Tracer("StoreClient/httpclient")),
		httpclient.WithNavigator(httpclient.NavigatorFunc(func() {
			fmt.Fprintln(os.Stderr, "session expired, sign in again with: storectl login")
		})),
	)

	a := &app{
		cfg:     cfg,
		log:     log,
		out:     os.Stdout,
		session: sess,
		cache:   cache.New(kv, cache.WithLogger(log), cache.WithMetrics(metrics)),
		queue: offline.New(kv, client,
			offline.WithLogger(log),
			offline.WithMetrics(metrics),
			offline.WithMaxRetries(cfg.Queue.MaxRetries),
		),
		cart:    cart.New(kv, cart.WithLogger(log)),
		search:  search.New(kv, search.WithLogger(log)),
		network: network.New(client, cfg.Connectivity(), network.WithLogger(log)),
	}
	a.queue.OnDropped(func(_ context.Context, it offline.Item, cause error) {
		fmt.Fprintf(os.Stderr, "storectl: gave up on queued %s %s after %d attempts: %s\n",
			it.Method, it.Endpoint, it.RetryCount, describe(cause))
	})
	detach := a.queue.Attach(ctx, a.network)

	a.api = api.New(api.Deps{
		HTTP:    client,
		Cache:   a.cache,
		Session: sess,
		Queue:   a.queue,
		Cart:    a.cart,
		Search:  a.search,
		Network: a.network,
		Log:     log,
	})

	return a, func() {
		a.network.Stop()
		detach()
		closeKV()
	}, nil
}

// describe prefers the user-facing message of API errors.
func describe(err error) string {
	var se *cart.StockError
	if errors.As(err, &se) {
		return fmt.Sprintf("only %d of %s in stock, %d requested", se.Available, se.Product, se.Requested)
	}
	e, ok := httpclient.AsError(err)
	if !ok {
		return err.Error()
	}
	msg := e.UserMessage()
	for _, m := range e.ValidationErrors() {
		msg += "\n  - " + m
	}
	return msg
}
