package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var bom = []byte("\xEF\xBB\xBF")

// Meta is the pagination block of list responses.
type Meta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// Response is the storefront envelope with the payload left raw.
type Response struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Message string              `json:"message,omitempty"`
	Meta    *Meta               `json:"meta,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Code    string              `json:"code,omitempty"`
}

// StripBOM drops a leading UTF-8 byte-order mark. The backend emits one
// intermittently and encoding/json rejects it.
func StripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, bom)
}

// Decode unmarshals the envelope payload into T. A missing or null payload
// yields the zero value.
func Decode[T any](resp *Response) (T, error) {
	var v T
	if resp == nil || len(resp.Data) == 0 || bytes.Equal(resp.Data, []byte("null")) {
		return v, nil
	}
	if err := json.Unmarshal(resp.Data, &v); err != nil {
		return v, fmt.Errorf("decode %T: %w", v, err)
	}
	return v, nil
}
