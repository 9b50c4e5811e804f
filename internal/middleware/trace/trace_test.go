package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	m := NewMiddleware(nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q", seen)
	}
	if rr.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header %q, context %q", rr.Header().Get(HeaderRequestID), seen)
	}
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	m := NewMiddleware(nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "upstream-1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "upstream-1" {
		t.Fatalf("request id = %q", seen)
	}
}

func TestMetrics(t *testing.T) {
	m := NewMiddleware(func(*http.Request) string { return "127.0.0.1" })
	codes := []int{http.StatusOK, http.StatusNotFound, http.StatusInternalServerError}
	for _, code := range codes {
		code := code
		h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}

	got := m.GetMetrics()
	if got.TotalRequests != 3 || got.ServerErrors != 1 || got.InFlight != 0 {
		t.Fatalf("metrics = %+v", got)
	}
}

func TestRequestIDMissing(t *testing.T) {
	if id := RequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); id != "" {
		t.Fatalf("id = %q", id)
	}
}
