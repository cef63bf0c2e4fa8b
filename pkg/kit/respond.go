package kit

import (
	"encoding/json"
	"net/http"
)

// BOM is the UTF-8 byte-order mark some storefront backends prepend to JSON.
const BOM = "\uFEFF"

// PageMeta is the pagination block of the response envelope.
type PageMeta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// Envelope is the JSON shape every storefront endpoint answers with.
type Envelope struct {
	Success bool                `json:"success"`
	Data    any                 `json:"data"`
	Message string              `json:"message,omitempty"`
	Meta    *PageMeta           `json:"meta,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteOK(w http.ResponseWriter, status int, data any, meta *PageMeta) {
	WriteJSON(w, status, Envelope{Success: true, Data: data, Meta: meta})
}

func WriteFail(w http.ResponseWriter, status int, msg string, fields map[string][]string) {
	WriteJSON(w, status, Envelope{Success: false, Message: msg, Errors: fields})
}

type bomWriter struct {
	http.ResponseWriter
	wrote bool
}

func (w *bomWriter) Write(p []byte) (int, error) {
	if !w.wrote {
		w.wrote = true
		if _, err := w.ResponseWriter.Write([]byte(BOM)); err != nil {
			return 0, err
		}
	}
	return w.ResponseWriter.Write(p)
}

func (w *bomWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// WithBOM prefixes every response body written through w with a BOM.
func WithBOM(w http.ResponseWriter) http.ResponseWriter {
	return &bomWriter{ResponseWriter: w}
}
