package sandbox

import (
	"net/http"
	"sync"
	"time"

	"StoreClient/pkg/kit"
)

// Faults makes the sandbox misbehave the way real storefront backends do:
// BOM-prefixed bodies, slow answers, bursts of 5xx and dropped connections.
type Faults struct {
	mu       sync.Mutex
	bom      bool
	latency  time.Duration
	failLeft int
	status   int
}

type FaultSettings struct {
	BOM       bool `json:"bom"`
	LatencyMS int  `json:"latency_ms"`
	FailNext  int  `json:"fail_next"`
	Status    int  `json:"status"`
}

func (f *Faults) SetBOM(on bool) {
	f.mu.Lock()
	f.bom = on
	f.mu.Unlock()
}

func (f *Faults) SetLatency(d time.Duration) {
	f.mu.Lock()
	f.latency = d
	f.mu.Unlock()
}

// FailNext fails the next n requests with status. Status 0 drops the
// connection without answering.
func (f *Faults) FailNext(n, status int) {
	f.mu.Lock()
	f.failLeft, f.status = n, status
	f.mu.Unlock()
}

func (f *Faults) Reset() {
	f.mu.Lock()
	f.bom, f.latency, f.failLeft, f.status = false, 0, 0, 0
	f.mu.Unlock()
}

func (f *Faults) Settings() FaultSettings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FaultSettings{BOM: f.bom, LatencyMS: int(f.latency / time.Millisecond), FailNext: f.failLeft, Status: f.status}
}

func (f *Faults) apply(s FaultSettings) {
	f.mu.Lock()
	f.bom = s.BOM
	f.latency = time.Duration(s.LatencyMS) * time.Millisecond
	f.failLeft, f.status = s.FailNext, s.Status
	f.mu.Unlock()
}

// take consumes one pending failure, if any.
func (f *Faults) take() (status int, fail bool, bom bool, latency time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLeft > 0 {
		f.failLeft--
		return f.status, true, f.bom, f.latency
	}
	return 0, false, f.bom, f.latency
}

func (f *Faults) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, fail, bom, latency := f.take()

		if latency > 0 {
			select {
			case <-time.After(latency):
			case <-r.Context().Done():
				return
			}
		}
		if fail && status == 0 {
			conn, _, err := http.NewResponseController(w).Hijack()
			if err != nil {
				panic(http.ErrAbortHandler)
			}
			_ = conn.Close()
			return
		}
		if bom {
			w = kit.WithBOM(w)
		}
		if !fail {
			next.ServeHTTP(w, r)
			return
		}
		kit.WriteFail(w, status, http.StatusText(status), nil)
	})
}
