package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// Kind classifies an Error. Callers usually branch with errors.Is against
// the sentinels below instead of switching on Kind.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthentication
	KindValidation
	KindClient
	KindServer
	KindNetwork
	KindTimeout
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindValidation:
		return "validation"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Status sentinels for failures that never produced an HTTP response.
const (
	StatusNetwork = 0
	StatusTimeout = http.StatusRequestTimeout
)

var (
	ErrAuthentication = errors.New("authentication error")
	ErrValidation     = errors.New("validation error")
	ErrClient         = errors.New("client error")
	ErrServer         = errors.New("server error")
	ErrNetwork        = errors.New("network error")
	ErrTimeout        = errors.New("timeout error")
	ErrDecode         = errors.New("decode error")
)

var kindSentinels = map[Kind]error{
	KindAuthentication: ErrAuthentication,
	KindValidation:     ErrValidation,
	KindClient:         ErrClient,
	KindServer:         ErrServer,
	KindNetwork:        ErrNetwork,
	KindTimeout:        ErrTimeout,
	KindDecode:         ErrDecode,
}

// User-facing messages.
const (
	MsgNetwork      = "Network error. Please check your connection."
	MsgUnauthorized = "Your session has expired. Please login again."
	MsgServer       = "Server error. Please try again later."
	MsgValidation   = "Please check your input and try again."
	MsgNotFound     = "Requested resource not found."
	MsgTimeout      = "Request timeout. Please try again."
	MsgUnknown      = "An unexpected error occurred."
)

// Error is the single structured failure returned by Client.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Errors  map[string][]string
	Code    string

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s error (status %d): %s: %v", e.Kind, e.Status, e.Message, e.cause)
	}
	return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// Retryable mirrors the client's own retry policy so the offline queue can
// decide what is worth replaying.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindServer, KindNetwork, KindTimeout, KindDecode:
		return true
	default:
		return false
	}
}

// UserMessage renders the error for display.
func (e *Error) UserMessage() string {
	switch {
	case e.Status == http.StatusUnauthorized:
		return MsgUnauthorized
	case e.Status == http.StatusUnprocessableEntity:
		return orDefault(e.Message, MsgValidation)
	case e.Status == http.StatusNotFound:
		return MsgNotFound
	case e.Kind == KindTimeout:
		return MsgTimeout
	case e.Kind == KindNetwork:
		return MsgNetwork
	case e.Kind == KindDecode:
		return MsgUnknown
	case e.Status >= 500:
		return MsgServer
	default:
		return orDefault(e.Message, MsgUnknown)
	}
}

// ValidationErrors flattens the field map, fields in lexical order.
func (e *Error) ValidationErrors() []string {
	if len(e.Errors) == 0 {
		return nil
	}

	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var out []string
	for _, f := range fields {
		out = append(out, e.Errors[f]...)
	}
	return out
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func classifyStatus(status int) (Kind, string) {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuthentication, MsgUnauthorized
	case status == http.StatusUnprocessableEntity:
		return KindValidation, MsgValidation
	case status == http.StatusRequestTimeout:
		return KindTimeout, MsgTimeout
	case status == http.StatusNotFound:
		return KindClient, MsgNotFound
	case status >= 500:
		return KindServer, MsgServer
	default:
		return KindClient, MsgUnknown
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
