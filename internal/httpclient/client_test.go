package httpclient_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"StoreClient/internal/httpclient"
)

type fakeAuth struct {
	token   string
	logouts atomic.Int32
}

func (a *fakeAuth) Token(context.Context) (string, error) { return a.token, nil }

func (a *fakeAuth) Logout(context.Context) error {
	a.logouts.Add(1)
	a.token = ""
	return nil
}

func newClient(t *testing.T, url string, auth httpclient.Auth, opts ...httpclient.Option) *httpclient.Client {
	t.Helper()
	return httpclient.New(httpclient.Config{
		BaseURL:       url,
		Timeout:       200 * time.Millisecond,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	}, auth, opts...)
}

func countingServer(t *testing.T, hits *atomic.Int32, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		h(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func writeBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

type banner struct {
	ID    int64  `json:"id"`
	Title string `json:"judul_banner"`
}

func TestBOMIsStrippedBeforeParsing(t *testing.T) {
	payload := `{"success":true,"data":[{"id":1,"judul_banner":"Sale"}]}`

	for _, prefix := range []string{"", "\uFEFF"} {
		var hits atomic.Int32
		ts := countingServer(t, &hits, func(w http.ResponseWriter, _ *http.Request) {
			writeBody(w, http.StatusOK, prefix+payload)
		})

		resp, err := newClient(t, ts.URL, nil).Get(context.Background(), "/public/banners", false)
		if err != nil {
			t.Fatalf("prefix %q: %v", prefix, err)
		}

		got, err := httpclient.Decode[[]banner](resp)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(got) != 1 || got[0] != (banner{ID: 1, Title: "Sale"}) {
			t.Fatalf("prefix %q: got %+v", prefix, got)
		}
	}
}

func TestServerErrorRetriedUpToCeiling(t *testing.T) {
	var hits atomic.Int32
	ts := countingServer(t, &hits, func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, http.StatusServiceUnavailable, `{"success":false,"message":"down"}`)
	})

	_, err := newClient(t, ts.URL, nil).Get(context.Background(), "/public/products", false)
	if !errors.Is(err, httpclient.ErrServer) {
		t.Fatalf("expected server error, got %v", err)
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}

	apiErr, ok := httpclient.AsError(err)
	if !ok || apiErr.Status != http.StatusServiceUnavailable || !apiErr.Retryable() {
		t.Fatalf("unexpected error shape: %+v", apiErr)
	}
	if apiErr.UserMessage() != httpclient.MsgServer {
		t.Fatalf("user message: %q", apiErr.UserMessage())
	}
}

func TestClientErrorFailsFast(t *testing.T) {
	var hits atomic.Int32
	ts := countingServer(t, &hits, func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, http.StatusBadRequest, `{"success":false,"message":"bad filter"}`)
	})

	_, err := newClient(t, ts.URL, nil).Get(context.Background(), "/public/products", false)
	if !errors.Is(err, httpclient.ErrClient) {
		t.Fatalf("expected client error, got %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected 1 attempt, got %d", got)
	}

	apiErr, _ := httpclient.AsError(err)
	if apiErr.Message != "bad filter" || apiErr.Retryable() {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestValidationErrorCarriesFields(t *testing.T) {
	var hits atomic.Int32
	ts := countingServer(t, &hits, func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, http.StatusUnprocessableEntity,
			`{"success":false,"message":"Invalid data","errors":{"telepon":["required"],"email":["taken","invalid"]}}`)
	})

	_, err := newClient(t, ts.URL, &fakeAuth{token: "t"}).Post(context.Background(), "/customer/addresses", map[string]string{}, true)
	if !errors.Is(err, httpclient.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("validation errors must not be retried")
	}

	apiErr, _ := httpclient.AsError(err)
	want := []string{"taken", "invalid", "required"}
	if got := apiErr.ValidationErrors(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("flattened=%v want %v", got, want)
	}
	if apiErr.UserMessage() != "Invalid data" {
		t.Fatalf("user message: %q", apiErr.UserMessage())
	}
}

func TestUnauthorizedClearsSessionAndRedirects(t *testing.T) {
	var hits atomic.Int32
	ts := countingServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer expired" {
			t.Errorf("authorization header: %q", r.Header.Get("Authorization"))
		}
		writeBody(w, http.StatusUnauthorized, `{"success":false,"message":"Unauthenticated."}`)
	})

	auth := &fakeAuth{token: "expired"}
	var redirects atomic.Int32
	c := newClient(t, ts.URL, auth, httpclient.WithNavigator(httpclient.NavigatorFunc(func() { redirects.Add(1) })))

	_, err := c.Get(context.Background(), "/customer/profile", true)
	if !errors.Is(err, httpclient.ErrAuthentication) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if hits.Load() != 1 || auth.logouts.Load() != 1 || redirects.Load() != 1 {
		t.Fatalf("hits=%d logouts=%d redirects=%d", hits.Load(), auth.logouts.Load(), redirects.Load())
	}
}

func TestUnauthorizedOnPublicCallLeavesSession(t *testing.T) {
	var hits atomic.Int32
	ts := countingServer(t, &hits, func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, http.StatusUnauthorized, `{"success":false,"message":"bad credentials"}`)
	})

	auth := &fakeAuth{token: "keep"}
	_, err := newClient(t, ts.URL, auth).Post(context.Background(), "/customer/login", map[string]string{"email": "x"}, false)
	if !errors.Is(err, httpclient.ErrAuthentication) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if auth.logouts.Load() != 0 {
		t.Fatalf("public 401 must not clear the session")
	}
}

func TestMissingTokenFailsWithoutRequest(t *testing.T) {
	var hits atomic.Int32
	ts := countingServer(t, &hits, func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, http.StatusOK, `{"success":true}`)
	})

	_, err := newClient(t, ts.URL, &fakeAuth{}).Get(context.Background(), "/customer/orders", true)
	if !errors.Is(err, httpclient.ErrAuthentication) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("no request expected, got %d", hits.Load())
	}
}

func TestTimeoutIsRetried(t *testing.T) {
	var hits atomic.Int32
	ts := countingServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	c := httpclient.New(httpclient.Config{
		BaseURL:       ts.URL,
		Timeout:       30 * time.Millisecond,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, nil)

	_, err := c.Get(context.Background(), "/public/banners", false)
	if !errors.Is(err, httpclient.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	apiErr, _ := httpclient.AsError(err)
	if apiErr.Status != httpclient.StatusTimeout {
		t.Fatalf("status=%d", apiErr.Status)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", hits.Load())
	}
}

func TestUnreachableHostIsNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := newClient(t, url, nil).Get(context.Background(), "/status", false)
	if !errors.Is(err, httpclient.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	apiErr, _ := httpclient.AsError(err)
	if apiErr.Status != httpclient.StatusNetwork || apiErr.UserMessage() != httpclient.MsgNetwork {
		t.Fatalf("unexpected: %+v", apiErr)
	}
}

func TestMalformedSuccessBodyIsRetriedThenFails(t *testing.T) {
	var hits atomic.Int32
	ts := countingServer(t, &hits, func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, http.StatusOK, `<html>maintenance</html>`)
	})

	_, err := newClient(t, ts.URL, nil).Get(context.Background(), "/public/banners", false)
	if !errors.Is(err, httpclient.ErrDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits.Load())
	}
}

func TestRecoversAfterTransientFailure(t *testing.T) {
	var hits atomic.Int32
	ts := countingServer(t, &hits, func(w http.ResponseWriter, _ *http.Request) {
		if hits.Load() < 2 {
			writeBody(w, http.StatusBadGateway, `{"success":false}`)
			return
		}
		writeBody(w, http.StatusOK, `{"success":true,"data":{"status":"ok"}}`)
	})

	resp, err := newClient(t, ts.URL, nil).Get(context.Background(), "/status", false)
	if err != nil || !resp.Success {
		t.Fatalf("resp=%+v err=%v", resp, err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", hits.Load())
	}
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	var hits atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	ts := countingServer(t, &hits, func(w http.ResponseWriter, _ *http.Request) {
		cancel()
		writeBody(w, http.StatusInternalServerError, `{"success":false}`)
	})

	c := httpclient.New(httpclient.Config{
		BaseURL:       ts.URL,
		Timeout:       time.Second,
		RetryAttempts: 5,
		RetryDelay:    50 * time.Millisecond,
	}, nil)

	_, err := c.Get(ctx, "/public/banners", false)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected 1 attempt, got %d", hits.Load())
	}
}

func TestCheckStatus(t *testing.T) {
	var (
		hits atomic.Int32
		up   atomic.Bool
	)
	up.Store(true)
	ts := countingServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			t.Errorf("path=%s", r.URL.Path)
		}
		if up.Load() {
			writeBody(w, http.StatusOK, `{"success":true}`)
			return
		}
		writeBody(w, http.StatusServiceUnavailable, `{"success":false}`)
	})

	c := newClient(t, ts.URL, nil)
	if !c.CheckStatus(context.Background()) {
		t.Fatalf("expected reachable")
	}
	up.Store(false)
	if c.CheckStatus(context.Background()) {
		t.Fatalf("expected unreachable")
	}
	if hits.Load() != 2 {
		t.Fatalf("status probe must not retry, hits=%d", hits.Load())
	}
}

func TestUploadSendsMultipart(t *testing.T) {
	var hits atomic.Int32
	ts := countingServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		f, _, err := r.FormFile("avatar")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)

		writeBody(w, http.StatusOK, fmt.Sprintf(`{"success":true,"data":{"size":%d,"label":%q}}`, len(b), r.FormValue("label")))
	})

	resp, err := newClient(t, ts.URL, &fakeAuth{token: "t"}).Upload(context.Background(), "/customer/profile/avatar",
		map[string]string{"label": "me"},
		httpclient.File{Field: "avatar", Name: "me.png", Content: strings.NewReader("pngbytes")},
	)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	got, err := httpclient.Decode[struct {
		Size  int    `json:"size"`
		Label string `json:"label"`
	}](resp)
	if err != nil || got.Size != len("pngbytes") || got.Label != "me" {
		t.Fatalf("got=%+v err=%v", got, err)
	}
}
