package offline_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"StoreClient/internal/httpclient"
	"StoreClient/internal/kvstore"
	"StoreClient/internal/network"
	"StoreClient/internal/offline"
)

var errOffline = &httpclient.Error{Kind: httpclient.KindNetwork, Status: httpclient.StatusNetwork, Message: httpclient.MsgNetwork}

type call struct {
	method   string
	endpoint string
	body     string
}

type fakeSender struct {
	mu     sync.Mutex
	calls  []call
	result func(n int, c call) error
}

func (s *fakeSender) Do(_ context.Context, method, endpoint string, body any, _ bool) (*httpclient.Response, error) {
	c := call{method: method, endpoint: endpoint}
	if raw, ok := body.([]byte); ok {
		c.body = string(raw)
	}
	if raw, ok := body.(interface{ MarshalJSON() ([]byte, error) }); ok {
		b, _ := raw.MarshalJSON()
		c.body = string(b)
	}

	s.mu.Lock()
	s.calls = append(s.calls, c)
	n := len(s.calls)
	s.mu.Unlock()

	if s.result != nil {
		if err := s.result(n, c); err != nil {
			return nil, err
		}
	}
	return &httpclient.Response{Success: true}, nil
}

func (s *fakeSender) snapshot() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.calls...)
}

type fakeConn struct {
	mu       sync.Mutex
	online   bool
	listener network.Listener
}

func (c *fakeConn) Subscribe(l network.Listener) func() {
	c.mu.Lock()
	c.listener = l
	online := c.online
	c.mu.Unlock()
	l(network.State{IsConnected: online, IsInternetReachable: online})
	return func() {
		c.mu.Lock()
		c.listener = nil
		c.mu.Unlock()
	}
}

func (c *fakeConn) IsOnline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

func (c *fakeConn) set(online bool) {
	c.mu.Lock()
	c.online = online
	l := c.listener
	c.mu.Unlock()
	if l != nil {
		l(network.State{IsConnected: online, IsInternetReachable: online})
	}
}

func mustAdd(t *testing.T, q *offline.Queue, endpoint string, data any, maxRetries int) string {
	t.Helper()
	id, err := q.AddToQueue(context.Background(), endpoint, http.MethodPost, data, maxRetries)
	if err != nil {
		t.Fatalf("add %s: %v", endpoint, err)
	}
	return id
}

func TestReplayIsFIFO(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	q := offline.New(kvstore.NewMemStore(), sender)

	mustAdd(t, q, "/customer/orders", map[string]int{"n": 1}, 0)
	mustAdd(t, q, "/customer/addresses", map[string]int{"n": 2}, 0)
	mustAdd(t, q, "/customer/wishlist", map[string]int{"n": 3}, 0)

	if err := q.ProcessQueue(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}

	calls := sender.snapshot()
	want := []string{"/customer/orders", "/customer/addresses", "/customer/wishlist"}
	if len(calls) != len(want) {
		t.Fatalf("calls=%+v", calls)
	}
	for i, c := range calls {
		if c.endpoint != want[i] {
			t.Fatalf("call %d endpoint=%s want %s", i, c.endpoint, want[i])
		}
	}
	if calls[0].body != `{"n":1}` {
		t.Fatalf("payload not replayed verbatim: %q", calls[0].body)
	}

	st, _ := q.Status(ctx)
	if st.Count != 0 {
		t.Fatalf("queue not drained: %+v", st)
	}
}

func TestItemDroppedAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{result: func(int, call) error { return errOffline }}
	q := offline.New(kvstore.NewMemStore(), sender)

	var dropped []offline.Item
	q.OnDropped(func(_ context.Context, it offline.Item, cause error) {
		if !errors.Is(cause, httpclient.ErrNetwork) {
			t.Errorf("cause=%v", cause)
		}
		dropped = append(dropped, it)
	})

	id := mustAdd(t, q, "/customer/orders", nil, 2)

	_ = q.ProcessQueue(ctx)
	items, _ := q.Items(ctx)
	if len(items) != 1 || items[0].RetryCount != 1 {
		t.Fatalf("after first failure items=%+v", items)
	}

	_ = q.ProcessQueue(ctx)
	items, _ = q.Items(ctx)
	if len(items) != 0 {
		t.Fatalf("item must be dropped after 2 failures, got %+v", items)
	}
	if len(dropped) != 1 || dropped[0].ID != id || dropped[0].RetryCount != 2 {
		t.Fatalf("dropped=%+v", dropped)
	}

	_ = q.ProcessQueue(ctx)
	if got := len(sender.snapshot()); got != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", got)
	}
}

func TestSuccessAfterFailureStopsAttempts(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{result: func(n int, _ call) error {
		if n == 1 {
			return errOffline
		}
		return nil
	}}
	q := offline.New(kvstore.NewMemStore(), sender)

	var delivered int
	q.OnDelivered(func(context.Context, offline.Item) { delivered++ })

	mustAdd(t, q, "/customer/orders", nil, 3)
	_ = q.ProcessQueue(ctx)
	_ = q.ProcessQueue(ctx)
	_ = q.ProcessQueue(ctx)

	if got := len(sender.snapshot()); got != 2 {
		t.Fatalf("attempts=%d want 2", got)
	}
	if delivered != 1 {
		t.Fatalf("delivered=%d", delivered)
	}
}

func TestItemsAddedDuringReplayAreKept(t *testing.T) {
	ctx := context.Background()
	var q *offline.Queue
	sender := &fakeSender{}
	sender.result = func(n int, _ call) error {
		if n == 1 {
			if _, err := q.AddToQueue(ctx, "/customer/wishlist", http.MethodPost, nil, 0); err != nil {
				t.Errorf("add during replay: %v", err)
			}
		}
		return nil
	}
	q = offline.New(kvstore.NewMemStore(), sender)

	mustAdd(t, q, "/customer/orders", nil, 0)
	if err := q.ProcessQueue(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}

	items, _ := q.Items(ctx)
	if len(items) != 1 || items[0].Endpoint != "/customer/wishlist" {
		t.Fatalf("items=%+v", items)
	}
}

func TestQueueSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemStore()

	first := offline.New(kv, &fakeSender{})
	id := mustAdd(t, first, "/customer/orders", map[string]string{"catatan": "pagi"}, 0)

	second := offline.New(kv, &fakeSender{})
	if err := second.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	items, _ := second.Items(ctx)
	if len(items) != 1 || items[0].ID != id || items[0].MaxRetries != offline.DefaultMaxRetries {
		t.Fatalf("items=%+v", items)
	}
}

func TestCorruptQueueIsDiscarded(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemStore()
	_ = kv.Set(ctx, offline.StorageKey, "[{broken")

	items, err := offline.New(kv, &fakeSender{}).Items(ctx)
	if err != nil || len(items) != 0 {
		t.Fatalf("items=%+v err=%v", items, err)
	}
}

func TestProcessSkippedWhileOffline(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	q := offline.New(kvstore.NewMemStore(), sender)
	conn := &fakeConn{}

	detach := q.Attach(ctx, conn)
	defer detach()

	mustAdd(t, q, "/customer/orders", nil, 0)
	if err := q.ProcessQueue(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(sender.snapshot()) != 0 {
		t.Fatalf("no replay expected while offline")
	}
}

func TestAttachReplaysWhenBackOnline(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	q := offline.New(kvstore.NewMemStore(), sender)
	conn := &fakeConn{}

	detach := q.Attach(ctx, conn)
	defer detach()

	mustAdd(t, q, "/customer/orders", nil, 0)
	conn.set(true)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if st, _ := q.Status(ctx); st.Count == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("queue was not replayed after reconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(sender.snapshot()) != 1 {
		t.Fatalf("calls=%+v", sender.snapshot())
	}
}

func TestStatusAndRemove(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMock()
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	clk.Set(start)
	q := offline.New(kvstore.NewMemStore(), &fakeSender{}, offline.WithClock(clk))

	first := mustAdd(t, q, "/customer/orders", nil, 0)
	clk.Add(time.Minute)
	mustAdd(t, q, "/customer/addresses", nil, 0)

	st, err := q.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Count != 2 || !st.Oldest.Equal(start) || !st.Newest.Equal(start.Add(time.Minute)) {
		t.Fatalf("status=%+v", st)
	}

	if ok, _ := q.RemoveFromQueue(ctx, first); !ok {
		t.Fatalf("remove existing")
	}
	if ok, _ := q.RemoveFromQueue(ctx, first); ok {
		t.Fatalf("remove twice")
	}
	if err := q.ClearQueue(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if st, _ := q.Status(ctx); st.Count != 0 {
		t.Fatalf("status after clear=%+v", st)
	}
}

func TestFlushCostsOneRetryWhenAttached(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{result: func(int, call) error { return errOffline }}
	q := offline.New(kvstore.NewMemStore(), sender)
	svc := network.New(network.ProberFunc(func(context.Context) bool { return true }),
		network.Config{PollInterval: time.Hour, MinInterval: time.Millisecond})

	detach := q.Attach(ctx, svc)
	defer detach()

	mustAdd(t, q, "/customer/orders", nil, 5)

	// The first probe notifies the attached queue, which starts the pass.
	for want := 1; want <= 2; want++ {
		online, err := q.Flush(ctx, svc.CheckConnectivity)
		if err != nil || !online {
			t.Fatalf("flush %d: online=%v err=%v", want, online, err)
		}
		if got := len(sender.snapshot()); got != want {
			t.Fatalf("after flush %d: attempts=%d", want, got)
		}
		items, err := q.Items(ctx)
		if err != nil || len(items) != 1 || items[0].RetryCount != want {
			t.Fatalf("after flush %d: items=%+v err=%v", want, items, err)
		}
	}
}

func TestFlushOffline(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	q := offline.New(kvstore.NewMemStore(), sender)
	mustAdd(t, q, "/customer/orders", nil, 0)

	online, err := q.Flush(ctx, func(context.Context) bool { return false })
	if err != nil || online {
		t.Fatalf("online=%v err=%v", online, err)
	}
	if len(sender.snapshot()) != 0 {
		t.Fatalf("no replay expected while offline")
	}
}

func TestDetachWaitsForRunningReplay(t *testing.T) {
	ctx := context.Background()
	entered := make(chan struct{})
	release := make(chan struct{})
	sender := &fakeSender{result: func(int, call) error {
		close(entered)
		<-release
		return nil
	}}
	kv := kvstore.NewMemStore()
	q := offline.New(kv, sender)
	conn := &fakeConn{}

	detach := q.Attach(ctx, conn)
	mustAdd(t, q, "/customer/orders", nil, 0)
	conn.set(true)

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("replay did not start")
	}

	detached := make(chan struct{})
	go func() {
		detach()
		close(detached)
	}()

	select {
	case <-detached:
		t.Fatalf("detach returned while a replay was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-detached:
	case <-time.After(2 * time.Second):
		t.Fatalf("detach did not return after the replay finished")
	}

	raw, ok, err := kv.Get(ctx, offline.StorageKey)
	if err != nil || !ok || raw != "[]" {
		t.Fatalf("persisted queue=%q ok=%v err=%v", raw, ok, err)
	}
}
