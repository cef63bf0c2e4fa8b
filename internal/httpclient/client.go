// Package httpclient is the single outbound path to the storefront REST API.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"StoreClient/pkg/kit"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultUploadFactor = 3

	statusEndpoint  = "/status"
	profileEndpoint = "/customer/profile"

	contentTypeJSON = "application/json"
)

type Config struct {
	BaseURL       string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration

	// UploadTimeoutFactor multiplies Timeout for multipart uploads.
	UploadTimeoutFactor int
}

// Auth supplies the bearer token and clears the session on 401.
type Auth interface {
	Token(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
}

// Navigator sends the user back to the login entry point.
type Navigator interface {
	RedirectToLogin()
}

type NavigatorFunc func()

func (f NavigatorFunc) RedirectToLogin() { f() }

type Client struct {
	cfg     Config
	http    *http.Client
	auth    Auth
	nav     Navigator
	log     *zap.Logger
	metrics *kit.ClientMetrics
	tracer  trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = kit.OrNop(l) } }

func WithMetrics(m *kit.ClientMetrics) Option { return func(c *Client) { c.metrics = m } }

func WithNavigator(n Navigator) Option { return func(c *Client) { c.nav = n } }

func WithTracer(t trace.Tracer) Option { return func(c *Client) { c.tracer = t } }

func New(cfg Config, auth Auth, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	if cfg.UploadTimeoutFactor < 1 {
		cfg.UploadTimeoutFactor = defaultUploadFactor
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:    cfg,
		http:   &http.Client{},
		auth:   auth,
		log:    zap.NewNop(),
		tracer: otel.Tracer("StoreClient/httpclient"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type request struct {
	method      string
	endpoint    string
	body        []byte
	contentType string
	requireAuth bool
	timeout     time.Duration
	attempts    int
}

func (c *Client) Get(ctx context.Context, endpoint string, requireAuth bool) (*Response, error) {
	return c.Do(ctx, http.MethodGet, endpoint, nil, requireAuth)
}

func (c *Client) Post(ctx context.Context, endpoint string, body any, requireAuth bool) (*Response, error) {
	return c.Do(ctx, http.MethodPost, endpoint, body, requireAuth)
}

func (c *Client) Put(ctx context.Context, endpoint string, body any, requireAuth bool) (*Response, error) {
	return c.Do(ctx, http.MethodPut, endpoint, body, requireAuth)
}

func (c *Client) Patch(ctx context.Context, endpoint string, body any, requireAuth bool) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, endpoint, body, requireAuth)
}

func (c *Client) Delete(ctx context.Context, endpoint string, requireAuth bool) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, endpoint, nil, requireAuth)
}

// Do sends a JSON request with the configured timeout and retry policy.
// body may be nil, raw JSON bytes or any value encoding/json accepts.
func (c *Client) Do(ctx context.Context, method, endpoint string, body any, requireAuth bool) (*Response, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s %s: %w", method, endpoint, err)
	}

	return c.send(ctx, request{
		method:      method,
		endpoint:    endpoint,
		body:        payload,
		contentType: contentTypeJSON,
		requireAuth: requireAuth,
		timeout:     c.cfg.Timeout,
		attempts:    c.cfg.RetryAttempts,
	})
}

// CheckStatus probes the status endpoint once. It is the reachability test
// the network service polls.
func (c *Client) CheckStatus(ctx context.Context) bool {
	resp, err := c.send(ctx, request{
		method:   http.MethodGet,
		endpoint: statusEndpoint,
		timeout:  c.cfg.Timeout,
		attempts: 1,
	})
	return err == nil && resp.Success
}

// TestAuth reports whether the stored token is still accepted.
func (c *Client) TestAuth(ctx context.Context) bool {
	_, err := c.send(ctx, request{
		method:      http.MethodGet,
		endpoint:    profileEndpoint,
		requireAuth: true,
		timeout:     c.cfg.Timeout,
		attempts:    1,
	})
	return err == nil
}

func (c *Client) send(ctx context.Context, r request) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, "api "+r.method, trace.WithAttributes(
		attribute.String("http.method", r.method),
		attribute.String("api.endpoint", r.endpoint),
	))
	defer span.End()

	resp, err := c.sendAttempts(ctx, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

func (c *Client) sendAttempts(ctx context.Context, r request) (*Response, error) {
	var token string
	if r.requireAuth {
		tok, err := c.token(ctx)
		if err != nil {
			return nil, err
		}
		token = tok
	}

	var (
		resp    *Response
		attempt int
	)
	err := retry.Do(ctx, linearBackoff(c.cfg.RetryDelay, r.attempts), func(ctx context.Context) error {
		attempt++
		trace.SpanFromContext(ctx).AddEvent("attempt", trace.WithAttributes(attribute.Int("attempt", attempt)))

		res, err := c.attempt(ctx, r, token)
		if err == nil {
			resp = res
			return nil
		}

		apiErr, ok := AsError(err)
		if !ok || !apiErr.Retryable() {
			return err
		}
		if attempt < r.attempts {
			c.metrics.Retry()
			c.log.Warn("api attempt failed, retrying",
				zap.String("method", r.method),
				zap.String("endpoint", r.endpoint),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", r.attempts),
				zap.Error(err),
			)
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.auth == nil {
		return "", &Error{Kind: KindAuthentication, Status: http.StatusUnauthorized, Message: "Authentication required"}
	}

	tok, err := c.auth.Token(ctx)
	if err != nil || tok == "" {
		return "", &Error{Kind: KindAuthentication, Status: http.StatusUnauthorized, Message: "Authentication required", cause: err}
	}
	return tok, nil
}

func (c *Client) attempt(ctx context.Context, r request, token string) (*Response, error) {
	actx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(actx, r.method, c.url(r.endpoint), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("Content-Type", r.contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportFailure(ctx, actx, r, start, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, c.transportFailure(ctx, actx, r, start, err)
	}

	c.metrics.ObserveRequest(r.method, res.StatusCode, time.Since(start))
	c.log.Debug("api response",
		zap.String("method", r.method),
		zap.String("endpoint", r.endpoint),
		zap.Int("status", res.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	return c.parse(ctx, r, res.StatusCode, raw)
}

func (c *Client) transportFailure(parent, actx context.Context, r request, start time.Time, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	c.metrics.ObserveRequest(r.method, StatusNetwork, time.Since(start))

	var ne net.Error
	if errors.Is(actx.Err(), context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &Error{Kind: KindTimeout, Status: StatusTimeout, Message: MsgTimeout, cause: err}
	}
	return &Error{Kind: KindNetwork, Status: StatusNetwork, Message: MsgNetwork, cause: err}
}

func (c *Client) parse(ctx context.Context, r request, status int, raw []byte) (*Response, error) {
	var env Response
	decodeErr := json.Unmarshal(StripBOM(raw), &env)

	if status >= 200 && status < 300 {
		if decodeErr != nil {
			return nil, &Error{Kind: KindDecode, Status: status, Message: "malformed response body", cause: decodeErr}
		}
		return &env, nil
	}

	kind, msg := classifyStatus(status)
	e := &Error{Kind: kind, Status: status, Message: msg}
	if decodeErr == nil {
		e.Message = orDefault(env.Message, msg)
		e.Errors = env.Errors
		e.Code = env.Code
	}

	if kind == KindAuthentication && r.requireAuth {
		c.handleUnauthorized(ctx)
	}
	return nil, e
}

// handleUnauthorized is the only place the HTTP layer touches session state.
func (c *Client) handleUnauthorized(ctx context.Context) {
	if c.auth != nil {
		if err := c.auth.Logout(ctx); err != nil {
			c.log.Warn("clear session after 401 failed", zap.Error(err))
		}
	}
	if c.nav != nil {
		c.nav.RedirectToLogin()
	}
}

func (c *Client) url(endpoint string) string {
	return c.cfg.BaseURL + "/" + strings.TrimLeft(endpoint, "/")
}

// linearBackoff waits base, 2*base, 3*base... and allows attempts-1 retries.
func linearBackoff(base time.Duration, attempts int) retry.Backoff {
	var n int64
	next := retry.BackoffFunc(func() (time.Duration, bool) {
		n++
		return time.Duration(n) * base, false
	})
	return retry.WithMaxRetries(uint64(max(attempts-1, 0)), next)
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return b, nil
	case []byte:
		return b, nil
	default:
		return json.Marshal(b)
	}
}
