package offline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"StoreClient/internal/httpclient"
)

// Endpoints that are never replayed from the queue: credentials must not be
// resent from stale state and uploads are too large to keep around.
var unqueueable = []string{"/login", "/logout", "/register", "/upload"}

// ShouldQueue reports whether a failed request may be deferred.
func ShouldQueue(method, endpoint string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return false
	}
	for _, s := range unqueueable {
		if strings.Contains(endpoint, s) {
			return false
		}
	}
	return true
}

// QueuedError reports that a write did not reach the server and was queued
// for replay. It unwraps to the network error that caused it.
type QueuedError struct {
	ID    string
	Cause error
}

func (e *QueuedError) Error() string {
	return fmt.Sprintf("request queued as %s: %v", e.ID, e.Cause)
}

func (e *QueuedError) Unwrap() error { return e.Cause }

// IsQueued returns the queue id when err reports a deferred write.
func IsQueued(err error) (string, bool) {
	var qe *QueuedError
	if errors.As(err, &qe) {
		return qe.ID, true
	}
	return "", false
}

// Dispatch sends an authenticated request. An eligible write that fails
// for lack of connectivity is queued and reported as *QueuedError.
func (q *Queue) Dispatch(ctx context.Context, method, endpoint string, body any) (*httpclient.Response, error) {
	resp, err := q.sender.Do(ctx, method, endpoint, body, true)
	if err == nil {
		return resp, nil
	}
	if !ShouldQueue(method, endpoint) || !isConnectivityError(err) {
		return nil, err
	}

	id, qerr := q.AddToQueue(ctx, endpoint, method, body, q.maxRetries)
	if qerr != nil {
		return nil, errors.Join(err, qerr)
	}
	return nil, &QueuedError{ID: id, Cause: err}
}

func isConnectivityError(err error) bool {
	return errors.Is(err, httpclient.ErrNetwork) || errors.Is(err, httpclient.ErrTimeout)
}
