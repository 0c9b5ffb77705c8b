package webpush_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// relay is a fake push service. Each path answers with a fixed status,
// unknown paths with 201.
type relay struct {
	*httptest.Server

	statuses map[string]int
	delay    time.Duration

	mu          sync.Mutex
	requests    []capturedRequest
	inFlight    int
	maxInFlight int
}

func newRelay(t *testing.T, statuses map[string]int) *relay {
	t.Helper()
	return newSlowRelay(t, statuses, 0)
}

// newSlowRelay delays every response by delay.
func newSlowRelay(t *testing.T, statuses map[string]int, delay time.Duration) *relay {
	t.Helper()
	r := &relay{statuses: statuses, delay: delay}
	r.Server = httptest.NewServer(http.HandlerFunc(r.handle))
	t.Cleanup(r.Close)
	return r
}

func (r *relay) handle(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)

	r.mu.Lock()
	r.requests = append(r.requests, capturedRequest{
		method: req.Method,
		path:   req.URL.Path,
		header: req.Header.Clone(),
		body:   body,
	})
	r.inFlight++
	r.maxInFlight = max(r.maxInFlight, r.inFlight)
	r.mu.Unlock()

	if r.delay > 0 {
		time.Sleep(r.delay)
	}

	r.mu.Lock()
	r.inFlight--
	r.mu.Unlock()

	status, ok := r.statuses[req.URL.Path]
	if !ok {
		status = http.StatusCreated
	}
	w.WriteHeader(status)
}

func (r *relay) endpoint(path string) string {
	return r.URL + path
}

func (r *relay) received() []capturedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]capturedRequest(nil), r.requests...)
}

func (r *relay) peak() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxInFlight
}
