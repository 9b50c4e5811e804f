package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"direct public peer", "203.0.113.9:5555", nil, "203.0.113.9"},
		{"public peer cannot spoof", "203.0.113.9:5555", map[string]string{"X-Forwarded-For": "1.1.1.1"}, "203.0.113.9"},
		{"trusted proxy xff", "10.0.0.2:80", map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.2"}, "198.51.100.7"},
		{"trusted proxy real ip", "127.0.0.1:80", map[string]string{"X-Real-IP": "198.51.100.8"}, "198.51.100.8"},
		{"trusted proxy junk header", "192.168.1.1:80", map[string]string{"X-Forwarded-For": "nope"}, "192.168.1.1"},
		{"no port", "198.51.100.1", nil, "198.51.100.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := d.ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsSuspicious(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		method string
		target string
		ua     string
		want   bool
	}{
		{"normal listing", http.MethodGet, "/?category=food", "Mozilla/5.0", false},
		{"path traversal", http.MethodGet, "/static/../.env", "Mozilla/5.0", true},
		{"sql in query", http.MethodGet, "/?category=x%27%20union%20select", "Mozilla/5.0", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Header.Set("User-Agent", tt.ua)
			if got := d.IsSuspicious(r); got != tt.want {
				t.Errorf("IsSuspicious = %v, want %v", got, tt.want)
			}
		})
	}
	if got := d.GetMetrics().SuspiciousRequests; got != 4 {
		t.Errorf("suspicious count = %d, want 4", got)
	}
}

func TestHeaders(t *testing.T) {
	h := Headers(DefaultHeadersConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	for _, name := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "Referrer-Policy"} {
		if rr.Header().Get(name) == "" {
			t.Errorf("missing %s", name)
		}
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS sent over plain HTTP")
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	h.ServeHTTP(rr, req)
	if rr.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS missing over TLS")
	}
}
