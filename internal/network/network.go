// Package network tracks whether the storefront API is reachable. Reachable
// means the status endpoint answered; OS connectivity is not consulted.
package network

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"StoreClient/pkg/kit"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMinInterval  = 30 * time.Second
)

const (
	TypeAPI     = "api"
	TypeNone    = "none"
	TypeUnknown = "unknown"
)

// Prober answers whether the backend is reachable right now.
type Prober interface {
	CheckStatus(ctx context.Context) bool
}

type ProberFunc func(ctx context.Context) bool

func (f ProberFunc) CheckStatus(ctx context.Context) bool { return f(ctx) }

type State struct {
	IsConnected         bool
	IsInternetReachable bool
	Type                string
}

type Listener func(State)

type Config struct {
	PollInterval time.Duration
	MinInterval  time.Duration
}

type subscriber struct {
	id int
	fn Listener
}

type Service struct {
	prober  Prober
	cfg     Config
	clock   clock.Clock
	log     *zap.Logger
	limiter *rate.Limiter

	mu        sync.Mutex
	state     State
	probed    bool
	listeners []subscriber
	nextID    int
	stop      context.CancelFunc
	done      chan struct{}
}

type Option func(*Service)

func WithClock(c clock.Clock) Option { return func(s *Service) { s.clock = c } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = kit.OrNop(l) } }

func New(prober Prober, cfg Config, opts ...Option) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}

	s := &Service{
		prober: prober,
		cfg:    cfg,
		clock:  clock.New(),
		log:    zap.NewNop(),
		state:  State{Type: TypeUnknown},
	}
	for _, o := range opts {
		o(s)
	}
	s.limiter = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	return s
}

// Start probes once and then polls until ctx ends or Stop is called.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.stop, s.done = cancel, done
	s.mu.Unlock()

	s.CheckConnectivity(ctx)
	go s.loop(ctx, done)
}

func (s *Service) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}

func (s *Service) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	t := s.clock.Ticker(s.cfg.PollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.poll(ctx)
		}
	}
}

// poll probes only when the limiter grants a token, so ticks closer than
// MinInterval to the previous probe are skipped.
func (s *Service) poll(ctx context.Context) bool {
	if !s.limiter.AllowN(s.clock.Now(), 1) {
		return false
	}
	s.update(s.prober.CheckStatus(ctx))
	return true
}

// CheckConnectivity probes immediately, bypassing the throttle, and returns
// the fresh result.
func (s *Service) CheckConnectivity(ctx context.Context) bool {
	s.limiter.AllowN(s.clock.Now(), 1)
	ok := s.prober.CheckStatus(ctx)
	s.update(ok)
	return ok
}

func (s *Service) update(connected bool) {
	next := State{IsConnected: connected, IsInternetReachable: connected, Type: TypeNone}
	if connected {
		next.Type = TypeAPI
	}

	s.mu.Lock()
	changed := !s.probed || s.state.IsConnected != connected
	s.state = next
	s.probed = true
	listeners := s.snapshot()
	s.mu.Unlock()

	if !changed {
		return
	}
	s.log.Info("connectivity changed", zap.Bool("connected", connected))
	for _, l := range listeners {
		l(next)
	}
}

func (s *Service) snapshot() []Listener {
	out := make([]Listener, len(s.listeners))
	for i, sub := range s.listeners {
		out[i] = sub.fn
	}
	return out
}

// Subscribe registers l and calls it right away with the current state.
func (s *Service) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, subscriber{id: id, fn: l})
	cur := s.state
	s.mu.Unlock()

	l(cur)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Service) IsOnline() bool { return s.State().IsConnected }

func (s *Service) IsOffline() bool { return !s.IsOnline() }

// SetMinInterval changes the probe throttle.
func (s *Service) SetMinInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.limiter.SetLimitAt(s.clock.Now(), rate.Every(d))
}
