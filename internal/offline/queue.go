// Package offline persists mutating requests that failed for lack of
// connectivity and replays them once the API is reachable again.
package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"StoreClient/internal/httpclient"
	"StoreClient/internal/kvstore"
	"StoreClient/internal/network"
	"StoreClient/pkg/kit"
)

const (
	StorageKey        = "offline_queue"
	DefaultMaxRetries = 3
)

// Item is one deferred request. RetryCount never exceeds MaxRetries: the
// item is dropped when a failure brings it to the limit.
type Item struct {
	ID         string          `json:"id"`
	Endpoint   string          `json:"endpoint"`
	Method     string          `json:"method"`
	Data       json.RawMessage `json:"data,omitempty"`
	Timestamp  int64           `json:"timestamp"`
	RetryCount int             `json:"retryCount"`
	MaxRetries int             `json:"maxRetries"`
}

type Status struct {
	Count  int
	Oldest time.Time
	Newest time.Time
}

// Sender performs the replayed request; *httpclient.Client satisfies it.
type Sender interface {
	Do(ctx context.Context, method, endpoint string, body any, requireAuth bool) (*httpclient.Response, error)
}

// Connectivity is the part of the network service the queue listens to.
type Connectivity interface {
	Subscribe(l network.Listener) (unsubscribe func())
	IsOnline() bool
}

type (
	DeliveredFunc func(ctx context.Context, it Item)
	DroppedFunc   func(ctx context.Context, it Item, cause error)
)

type Queue struct {
	kv      kvstore.Store
	sender  Sender
	clock   clock.Clock
	log     *zap.Logger
	metrics *kit.ClientMetrics

	maxRetries int

	mu        sync.Mutex
	items     []Item
	loaded    bool
	online    func() bool
	delivered []DeliveredFunc
	dropped   []DroppedFunc

	// processing serializes replay passes.
	processing sync.Mutex

	// Replays started by Attach; latest is closed when the most recent
	// one returns.
	replays sync.WaitGroup
	latest  chan struct{}
}

type Option func(*Queue)

func WithClock(c clock.Clock) Option { return func(q *Queue) { q.clock = c } }

func WithLogger(l *zap.Logger) Option { return func(q *Queue) { q.log = kit.OrNop(l) } }

func WithMetrics(m *kit.ClientMetrics) Option { return func(q *Queue) { q.metrics = m } }

// WithMaxRetries sets the retry budget of writes queued by Dispatch.
func WithMaxRetries(n int) Option { return func(q *Queue) { q.maxRetries = n } }

func New(kv kvstore.Store, sender Sender, opts ...Option) *Queue {
	q := &Queue{kv: kv, sender: sender, clock: clock.New(), log: zap.NewNop(), maxRetries: DefaultMaxRetries}
	for _, o := range opts {
		o(q)
	}
	return q
}

// OnDelivered registers fn to run after an item is replayed successfully.
func (q *Queue) OnDelivered(fn DeliveredFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.delivered = append(q.delivered, fn)
}

// OnDropped registers fn to run when an item exhausts its retries.
func (q *Queue) OnDropped(fn DroppedFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dropped = append(q.dropped, fn)
}

// Load reads the persisted queue. Other methods load lazily; calling Load
// at startup surfaces storage errors early.
func (q *Queue) Load(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.loaded = false
	return q.ensureLoaded(ctx)
}

func (q *Queue) ensureLoaded(ctx context.Context) error {
	if q.loaded {
		return nil
	}

	raw, ok, err := q.kv.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("load offline queue: %w", err)
	}

	q.items = nil
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &q.items); err != nil {
			q.log.Warn("corrupt offline queue discarded", zap.Error(err))
			q.items = nil
		}
	}
	q.loaded = true
	q.metrics.QueueDepth(len(q.items))
	q.log.Debug("offline queue loaded", zap.Int("count", len(q.items)))
	return nil
}

func (q *Queue) persist(ctx context.Context) error {
	items := q.items
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := q.kv.Set(ctx, StorageKey, string(raw)); err != nil {
		return fmt.Errorf("save offline queue: %w", err)
	}
	q.metrics.QueueDepth(len(q.items))
	return nil
}

// AddToQueue appends a request and returns its id. maxRetries <= 0 means
// DefaultMaxRetries.
func (q *Queue) AddToQueue(ctx context.Context, endpoint, method string, data any, maxRetries int) (string, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	payload, err := encodePayload(data)
	if err != nil {
		return "", fmt.Errorf("encode queued payload: %w", err)
	}

	it := Item{
		ID:         uuid.NewString(),
		Endpoint:   endpoint,
		Method:     method,
		Data:       payload,
		Timestamp:  q.clock.Now().UnixMilli(),
		MaxRetries: maxRetries,
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.ensureLoaded(ctx); err != nil {
		return "", err
	}
	q.items = append(q.items, it)
	if err := q.persist(ctx); err != nil {
		q.items = q.items[:len(q.items)-1]
		return "", err
	}

	q.log.Info("request queued", zap.String("id", it.ID), zap.String("method", method), zap.String("endpoint", endpoint))
	return it.ID, nil
}

type droppedItem struct {
	item  Item
	cause error
}

// ProcessQueue replays every queued item once, in enqueue order. It does
// nothing while the attached connectivity reports offline.
func (q *Queue) ProcessQueue(ctx context.Context) error {
	q.processing.Lock()
	defer q.processing.Unlock()

	q.mu.Lock()
	online := q.online
	if err := q.ensureLoaded(ctx); err != nil {
		q.mu.Unlock()
		return err
	}
	pending := slices.Clone(q.items)
	q.mu.Unlock()

	if online != nil && !online() {
		q.log.Debug("offline, queue processing skipped")
		return nil
	}
	if len(pending) == 0 {
		return nil
	}

	q.log.Info("processing offline queue", zap.Int("count", len(pending)))

	var (
		finished  = make(map[string]bool, len(pending))
		retries   = make(map[string]int)
		delivered []Item
		dropped   []droppedItem
	)
	for _, it := range pending {
		if ctx.Err() != nil {
			break
		}

		_, err := q.sender.Do(ctx, it.Method, it.Endpoint, it.Data, true)
		if err == nil {
			finished[it.ID] = true
			delivered = append(delivered, it)
			continue
		}
		if ctx.Err() != nil {
			break
		}

		it.RetryCount++
		if it.RetryCount >= it.MaxRetries {
			finished[it.ID] = true
			dropped = append(dropped, droppedItem{item: it, cause: err})
			q.log.Warn("queued request dropped after max retries",
				zap.String("id", it.ID),
				zap.String("method", it.Method),
				zap.String("endpoint", it.Endpoint),
				zap.Int("retries", it.RetryCount),
				zap.Error(err),
			)
			continue
		}
		retries[it.ID] = it.RetryCount
		q.log.Debug("queued request failed", zap.String("id", it.ID), zap.Int("retries", it.RetryCount), zap.Error(err))
	}

	q.mu.Lock()
	kept := make([]Item, 0, len(q.items))
	for _, it := range q.items {
		if finished[it.ID] {
			continue
		}
		if n, ok := retries[it.ID]; ok {
			it.RetryCount = n
		}
		kept = append(kept, it)
	}
	q.items = kept
	persistErr := q.persist(context.WithoutCancel(ctx))
	onDelivered := slices.Clone(q.delivered)
	onDropped := slices.Clone(q.dropped)
	q.mu.Unlock()

	for _, it := range delivered {
		for _, fn := range onDelivered {
			fn(ctx, it)
		}
	}
	for _, d := range dropped {
		for _, fn := range onDropped {
			fn(ctx, d.item, d.cause)
		}
	}

	if persistErr != nil {
		return persistErr
	}
	return ctx.Err()
}

// Attach replays the queue whenever conn reports the API reachable while
// items are waiting. Replays run on ctx in the background; detach waits for
// the ones already started.
func (q *Queue) Attach(ctx context.Context, conn Connectivity) (detach func()) {
	q.mu.Lock()
	q.online = conn.IsOnline
	q.mu.Unlock()

	attached := true

	unsubscribe := conn.Subscribe(func(st network.State) {
		if !st.IsConnected {
			return
		}
		if n, err := q.count(ctx); err != nil || n == 0 {
			return
		}

		q.mu.Lock()
		if !attached {
			q.mu.Unlock()
			return
		}
		done := make(chan struct{})
		q.latest = done
		q.replays.Add(1)
		q.mu.Unlock()

		go func() {
			defer q.replays.Done()
			defer close(done)
			if err := q.ProcessQueue(ctx); err != nil {
				q.log.Warn("background queue processing", zap.Error(err))
			}
		}()
	})

	return func() {
		unsubscribe()
		q.mu.Lock()
		attached = false
		q.online = nil
		q.mu.Unlock()
		q.replays.Wait()
	}
}

// Flush probes with check and, when the API is reachable, makes one replay
// pass. A pass the probe already started through Attach is awaited rather
// than repeated, so a flush costs each item at most one retry.
func (q *Queue) Flush(ctx context.Context, check func(context.Context) bool) (online bool, err error) {
	q.mu.Lock()
	before := q.latest
	q.mu.Unlock()

	if !check(ctx) {
		return false, nil
	}

	q.mu.Lock()
	started := q.latest
	q.mu.Unlock()

	if started != nil && started != before {
		select {
		case <-started:
			return true, nil
		case <-ctx.Done():
			return true, ctx.Err()
		}
	}
	return true, q.ProcessQueue(ctx)
}

func (q *Queue) count(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	return len(q.items), nil
}

func (q *Queue) Status(ctx context.Context) (Status, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.ensureLoaded(ctx); err != nil {
		return Status{}, err
	}

	st := Status{Count: len(q.items)}
	for i, it := range q.items {
		ts := time.UnixMilli(it.Timestamp)
		if i == 0 || ts.Before(st.Oldest) {
			st.Oldest = ts
		}
		if i == 0 || ts.After(st.Newest) {
			st.Newest = ts
		}
	}
	return st, nil
}

func (q *Queue) Items(ctx context.Context) ([]Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(q.items), nil
}

func (q *Queue) ClearQueue(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.kv.Remove(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear offline queue: %w", err)
	}
	q.items = nil
	q.loaded = true
	q.metrics.QueueDepth(0)
	return nil
}

// RemoveFromQueue deletes one item and reports whether it existed.
func (q *Queue) RemoveFromQueue(ctx context.Context, id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.ensureLoaded(ctx); err != nil {
		return false, err
	}

	i := slices.IndexFunc(q.items, func(it Item) bool { return it.ID == id })
	if i < 0 {
		return false, nil
	}

	prev := q.items
	q.items = slices.Delete(slices.Clone(q.items), i, i+1)
	if err := q.persist(ctx); err != nil {
		q.items = prev
		return false, err
	}
	return true, nil
}

func encodePayload(data any) (json.RawMessage, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}
