package offline_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"StoreClient/internal/httpclient"
	"StoreClient/internal/kvstore"
	"StoreClient/internal/offline"
)

func TestShouldQueue(t *testing.T) {
	cases := []struct {
		method, endpoint string
		want             bool
	}{
		{http.MethodPost, "/customer/orders", true},
		{http.MethodPut, "/customer/addresses/3", true},
		{http.MethodDelete, "/customer/wishlist/9", true},
		{"post", "/customer/orders", true},
		{http.MethodGet, "/customer/orders", false},
		{http.MethodPatch, "/customer/profile", false},
		{http.MethodPost, "/customer/login", false},
		{http.MethodPost, "/customer/logout", false},
		{http.MethodPost, "/customer/register", false},
		{http.MethodPost, "/customer/profile/upload", false},
	}

	for _, c := range cases {
		if got := offline.ShouldQueue(c.method, c.endpoint); got != c.want {
			t.Fatalf("%s %s: got %v want %v", c.method, c.endpoint, got, c.want)
		}
	}
}

func TestDispatchQueuesNetworkFailures(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{result: func(int, call) error { return errOffline }}
	q := offline.New(kvstore.NewMemStore(), sender)

	_, err := q.Dispatch(ctx, http.MethodPost, "/customer/orders", map[string]int{"alamat_id": 1})
	id, queued := offline.IsQueued(err)
	if !queued || id == "" {
		t.Fatalf("expected queued error, got %v", err)
	}
	if !errors.Is(err, httpclient.ErrNetwork) {
		t.Fatalf("queued error must unwrap to the network error")
	}

	items, _ := q.Items(ctx)
	if len(items) != 1 || items[0].ID != id || string(items[0].Data) != `{"alamat_id":1}` {
		t.Fatalf("items=%+v", items)
	}
}

func TestDispatchSurfacesOtherFailures(t *testing.T) {
	ctx := context.Background()
	validation := &httpclient.Error{Kind: httpclient.KindValidation, Status: http.StatusUnprocessableEntity}

	cases := []struct {
		name     string
		method   string
		endpoint string
		err      error
	}{
		{"validation", http.MethodPost, "/customer/orders", validation},
		{"read", http.MethodGet, "/customer/orders", errOffline},
		{"login", http.MethodPost, "/customer/login", errOffline},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sender := &fakeSender{result: func(int, call) error { return c.err }}
			q := offline.New(kvstore.NewMemStore(), sender)

			_, err := q.Dispatch(ctx, c.method, c.endpoint, nil)
			if _, queued := offline.IsQueued(err); queued {
				t.Fatalf("must not queue")
			}
			if !errors.Is(err, c.err) {
				t.Fatalf("err=%v", err)
			}
			if st, _ := q.Status(ctx); st.Count != 0 {
				t.Fatalf("queue=%+v", st)
			}
		})
	}
}
